package services_test

import (
	"errors"
	"testing"

	"soundscape/internal/services"
)

func TestWrapTagsWithMarker(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrTransient, "uploading", "put", "media endpoint", cause)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("wrapped error lost its marker")
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error lost its cause")
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "generating", "", "", errors.New("boom"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("nil marker should default to transient")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err   error
		fatal bool
	}{
		{services.Wrap(services.ErrValidation, "analysis", "", "empty prompt", nil), true},
		{services.Wrap(services.ErrConfiguration, "analysis", "", "api key missing", nil), true},
		{services.Wrap(services.ErrNotFound, "uploading", "", "missing source", nil), true},
		{services.Wrap(services.ErrTransient, "uploading", "", "", errors.New("flaky")), false},
		{services.Wrap(services.ErrExternalTool, "generating", "", "", errors.New("backend down")), false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := services.IsFatal(tt.err); got != tt.fatal {
			t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.fatal)
		}
	}
}

func TestMessageStripsSentinelPrefix(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "analysis", "decode", "no JSON object found", nil)
	got := services.Message(err)
	if got != "analysis: decode: no JSON object found" {
		t.Fatalf("unexpected message: %q", got)
	}
	if services.Message(nil) != "" {
		t.Fatal("nil error should render empty message")
	}
}
