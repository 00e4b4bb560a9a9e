package mediaprep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"soundscape/internal/services"
)

const defaultHTTPTimeout = 300 * time.Second

// Config captures the runtime settings for the upload/prepare service.
// An empty BaseURL keeps media local.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
}

// Client prepares source media for the analysis collaborators.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      services.RetryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the retry policy (useful for tests).
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// NewClient constructs a media preparation client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		retry:      services.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Prepare validates the source video and returns its media reference.
// With a configured service the file is uploaded and the service's
// reference is returned; transient upload failures are retried.
func (c *Client) Prepare(ctx context.Context, videoPath string) (services.MediaRef, error) {
	info, err := os.Stat(videoPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", services.Wrap(services.ErrNotFound, "uploading", "prepare", fmt.Sprintf("source video missing: %s", videoPath), nil)
		}
		return "", services.Wrap(services.ErrValidation, "uploading", "prepare", "stat source video", err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "uploading", "prepare", fmt.Sprintf("source is a directory: %s", videoPath), nil)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrValidation, "uploading", "prepare", fmt.Sprintf("source video is empty: %s", videoPath), nil)
	}

	if c.cfg.BaseURL == "" {
		abs, err := filepath.Abs(videoPath)
		if err != nil {
			return "", fmt.Errorf("prepare: resolve path: %w", err)
		}
		return services.MediaRef("file://" + abs), nil
	}

	attempts := c.retry.Attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ref, err := c.uploadOnce(ctx, videoPath)
		if err == nil {
			return ref, nil
		}
		delay, retryable := c.retry.Decide(ctx, err, attempt)
		if !retryable {
			return "", err
		}
		if sleepErr := c.retry.Sleep(ctx, delay); sleepErr != nil {
			return "", sleepErr
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return "", fmt.Errorf("prepare: failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) uploadOnce(ctx context.Context, videoPath string) (services.MediaRef, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("prepare: open source: %w", err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, file)
	if err != nil {
		return "", fmt.Errorf("prepare: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Filename", filepath.Base(videoPath))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("prepare: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("prepare: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := services.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return "", fmt.Errorf("prepare: %w", &services.HTTPStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		})
	}
	ref := strings.TrimSpace(string(body))
	if ref == "" {
		return "", errors.New("prepare: empty media reference in response")
	}
	return services.MediaRef(ref), nil
}
