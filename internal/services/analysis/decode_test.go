package analysis_test

import (
	"testing"

	"soundscape/internal/services/analysis"
)

type scenePayload struct {
	Index      int     `json:"index"`
	StartSec   float64 `json:"start_seconds"`
	EndSec     float64 `json:"end_seconds"`
	Dialogue   bool    `json:"dialogue"`
	MusicLevel string  `json:"music_level"`
}

func TestDecodeModelJSONPlainObject(t *testing.T) {
	var scene scenePayload
	err := analysis.DecodeModelJSON(`{"index":0,"start_seconds":0,"end_seconds":30,"dialogue":true,"music_level":"high"}`, &scene)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if scene.EndSec != 30 || !scene.Dialogue || scene.MusicLevel != "high" {
		t.Fatalf("unexpected decode result: %+v", scene)
	}
}

func TestDecodeModelJSONCodeFence(t *testing.T) {
	content := "```json\n{\"index\": 2, \"music_level\": \"low\"}\n```"
	var scene scenePayload
	if err := analysis.DecodeModelJSON(content, &scene); err != nil {
		t.Fatalf("decode fenced payload: %v", err)
	}
	if scene.Index != 2 || scene.MusicLevel != "low" {
		t.Fatalf("unexpected decode result: %+v", scene)
	}
}

func TestDecodeModelJSONBareFence(t *testing.T) {
	content := "```\n{\"index\": 1}\n```"
	var scene scenePayload
	if err := analysis.DecodeModelJSON(content, &scene); err != nil {
		t.Fatalf("decode bare-fenced payload: %v", err)
	}
	if scene.Index != 1 {
		t.Fatalf("unexpected decode result: %+v", scene)
	}
}

func TestDecodeModelJSONProseWrappedObject(t *testing.T) {
	content := `Here is the scene breakdown you asked for:
{"index": 3, "dialogue": false}
Let me know if you need adjustments.`
	var scene scenePayload
	if err := analysis.DecodeModelJSON(content, &scene); err != nil {
		t.Fatalf("decode prose-wrapped payload: %v", err)
	}
	if scene.Index != 3 {
		t.Fatalf("unexpected decode result: %+v", scene)
	}
}

func TestDecodeModelJSONProseWrappedArray(t *testing.T) {
	content := "The spotted actions are: [{\"index\": 0}, {\"index\": 1}] as requested."
	var scenes []scenePayload
	if err := analysis.DecodeModelJSON(content, &scenes); err != nil {
		t.Fatalf("decode prose-wrapped array: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(scenes))
	}
}

func TestDecodeModelJSONRejectsGarbage(t *testing.T) {
	var scene scenePayload
	if err := analysis.DecodeModelJSON("", &scene); err == nil {
		t.Fatal("empty payload should fail")
	}
	if err := analysis.DecodeModelJSON("no json anywhere here", &scene); err == nil {
		t.Fatal("payload without JSON should fail")
	}
}
