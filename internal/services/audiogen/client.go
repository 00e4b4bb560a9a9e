package audiogen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"soundscape/internal/services"
	"soundscape/internal/soundgen"
)

const defaultHTTPTimeout = 180 * time.Second

// Header names the generation API uses to report track properties.
const (
	headerActualDuration = "X-Audio-Duration-Seconds"
	headerLoop           = "X-Audio-Loop"
)

// Config captures the runtime settings required to talk to the generation API.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// Client implements soundgen.Generator against an HTTP generation service.
// It performs exactly one attempt per call; retry and fallback policy
// belong to the fan-out runner.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

var _ soundgen.Generator = (*Client)(nil)

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

// NewClient constructs a generation client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type generationRequest struct {
	Prompt          string  `json:"prompt"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Generate renders the prompt to audio and writes it to outputPath. The
// write goes through a temp file and rename so a retry never leaves a
// truncated track behind.
func (c *Client) Generate(ctx context.Context, prompt string, durationSeconds float64, outputPath string) (soundgen.GenerationResult, error) {
	var result soundgen.GenerationResult
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return result, services.Wrap(services.ErrValidation, "generating", "generate", "prompt required", nil)
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return result, services.Wrap(services.ErrConfiguration, "generating", "generate", "api key required", nil)
	}

	encoded, err := json.Marshal(generationRequest{Prompt: prompt, DurationSeconds: durationSeconds})
	if err != nil {
		return result, fmt.Errorf("generate: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return result, fmt.Errorf("generate: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, fmt.Errorf("generate: http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryAfter, _ := services.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return result, fmt.Errorf("generate: %w", &services.HTTPStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		})
	}

	if err := writeAtomic(outputPath, resp.Body); err != nil {
		return result, fmt.Errorf("generate: write output: %w", err)
	}

	if v := strings.TrimSpace(resp.Header.Get(headerActualDuration)); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			result.ActualDuration = parsed
		}
	}
	if result.ActualDuration == 0 {
		result.ActualDuration = durationSeconds
	}
	if v := strings.TrimSpace(resp.Header.Get(headerLoop)); v != "" {
		result.Loop, _ = strconv.ParseBool(v)
	}
	return result, nil
}

func writeAtomic(outputPath string, body io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".gen-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, outputPath)
}
