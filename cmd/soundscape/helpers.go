package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"soundscape/internal/events"
	"soundscape/internal/ipc"
)

var stageCaser = cases.Title(language.English)

// stageLabel turns a wire stage name into a display label, e.g.
// "story_analysis" becomes "Story Analysis".
func stageLabel(stage string) string {
	return stageCaser.String(strings.ReplaceAll(stage, "_", " "))
}

func formatProgress(progress float64) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return fmt.Sprintf("%3.0f%%", progress*100)
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format("15:04:05")
}

func formatEventLine(evt events.ProgressEvent) string {
	line := fmt.Sprintf("%s  %s  %-22s %s",
		formatTimestamp(evt.Timestamp),
		formatProgress(evt.Payload.Progress),
		stageLabel(evt.Payload.Stage),
		evt.Payload.Message,
	)
	if evt.Payload.Error != "" && evt.Payload.Error != evt.Payload.Message {
		line = fmt.Sprintf("%s (%s)", line, evt.Payload.Error)
	}
	return strings.TrimRight(line, " ")
}

func jobRows(views []ipc.JobView) [][]string {
	rows := make([][]string, 0, len(views))
	for _, job := range views {
		rows = append(rows, []string{
			job.ID,
			job.Status,
			job.SourcePath,
			job.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", job.EventCount),
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
