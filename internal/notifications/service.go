package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"soundscape/internal/config"
)

const userAgent = "Soundscape-Go/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyJobStarted(ctx context.Context, jobID, sourcePath string) error
	NotifyJobCompleted(ctx context.Context, jobID, summary string) error
	NotifyJobDegraded(ctx context.Context, jobID, summary string) error
	NotifyJobFailed(ctx context.Context, jobID, reason string) error
	NotifyJobCancelled(ctx context.Context, jobID string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobStarted(ctx context.Context, jobID, sourcePath string) error {
	data := payload{
		title:   "Soundscape - Job Started",
		message: fmt.Sprintf("Started soundtrack job %s for %s", strings.TrimSpace(jobID), strings.TrimSpace(sourcePath)),
		tags:    []string{"soundscape", "job", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobID, summary string) error {
	message := fmt.Sprintf("Soundtrack ready for job %s", strings.TrimSpace(jobID))
	if summary = strings.TrimSpace(summary); summary != "" {
		message = fmt.Sprintf("%s\n%s", message, summary)
	}
	data := payload{
		title:    "Soundscape - Complete",
		message:  message,
		tags:     []string{"soundscape", "job", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobDegraded(ctx context.Context, jobID, summary string) error {
	message := fmt.Sprintf("Soundtrack ready with substitutions for job %s", strings.TrimSpace(jobID))
	if summary = strings.TrimSpace(summary); summary != "" {
		message = fmt.Sprintf("%s\n%s", message, summary)
	}
	data := payload{
		title:   "Soundscape - Complete (degraded)",
		message: message,
		tags:    []string{"soundscape", "job", "degraded"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID, reason string) error {
	var builder strings.Builder
	builder.WriteString("Job ")
	builder.WriteString(strings.TrimSpace(jobID))
	builder.WriteString(" failed")
	if reason = strings.TrimSpace(reason); reason != "" {
		builder.WriteString(": ")
		builder.WriteString(reason)
	}
	data := payload{
		title:    "Soundscape - Error",
		message:  builder.String(),
		tags:     []string{"soundscape", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCancelled(ctx context.Context, jobID string) error {
	data := payload{
		title:   "Soundscape - Cancelled",
		message: fmt.Sprintf("Job %s cancelled", strings.TrimSpace(jobID)),
		tags:    []string{"soundscape", "job", "cancelled"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Soundscape - Test",
		message:  "Notification system test",
		tags:     []string{"soundscape", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobStarted(context.Context, string, string) error   { return nil }
func (noopService) NotifyJobCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyJobDegraded(context.Context, string, string) error  { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error    { return nil }
func (noopService) NotifyJobCancelled(context.Context, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
