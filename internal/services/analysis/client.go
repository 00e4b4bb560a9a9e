package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"soundscape/internal/plan"
	"soundscape/internal/services"
)

const (
	jsonResponseType   = "json_object"
	defaultHTTPTimeout = 120 * time.Second
)

// Config captures the runtime settings required to talk to the analysis API.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	TimeoutSeconds   int
	RetryMaxAttempts int
}

// Client wraps an OpenAI-compatible chat completion API for the three
// analysis collaborators.
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

// NewClient constructs an analysis client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	retry := services.DefaultRetryPolicy()
	if cfg.RetryMaxAttempts > 0 {
		retry.MaxAttempts = cfg.RetryMaxAttempts
	}
	client := &Client{
		cfg: Config{
			APIKey:           strings.TrimSpace(cfg.APIKey),
			BaseURL:          strings.TrimSpace(cfg.BaseURL),
			Model:            strings.TrimSpace(cfg.Model),
			TimeoutSeconds:   cfg.TimeoutSeconds,
			RetryMaxAttempts: cfg.RetryMaxAttempts,
		},
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// AnalyzeStory asks the model for a scene/beat breakdown of the video.
func (c *Client) AnalyzeStory(ctx context.Context, media services.MediaRef) (plan.StoryAnalysis, error) {
	var analysis plan.StoryAnalysis
	content, err := c.completeJSON(ctx, storyAnalysisPrompt, storyAnalysisUserPrompt(media), "analyze story")
	if err != nil {
		return analysis, err
	}
	if err := DecodeModelJSON(content, &analysis); err != nil {
		return analysis, services.Wrap(services.ErrExternalTool, "story_analysis", "decode", "parse payload", err)
	}
	return analysis, nil
}

// PlanSoundDesign asks the model for scenes with mix attributes and the
// per-type segment lists.
func (c *Client) PlanSoundDesign(ctx context.Context, media services.MediaRef, analysis plan.StoryAnalysis) (plan.SoundDesignPlan, error) {
	var design plan.SoundDesignPlan
	content, err := c.completeJSON(ctx, soundDesignPrompt, soundDesignUserPrompt(media, analysis), "plan sound design")
	if err != nil {
		return design, err
	}
	if err := DecodeModelJSON(content, &design); err != nil {
		return design, services.Wrap(services.ErrExternalTool, "sound_design_planning", "decode", "parse payload", err)
	}
	return design, nil
}

// SpotActions asks the model for discrete on-screen actions worth a sound
// effect. The stage is optional; callers skip it when disabled.
func (c *Client) SpotActions(ctx context.Context, media services.MediaRef, analysis plan.StoryAnalysis) ([]plan.SpottedAction, error) {
	content, err := c.completeJSON(ctx, actionSpottingPrompt, actionSpottingUserPrompt(media, analysis), "spot actions")
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Actions []plan.SpottedAction `json:"actions"`
	}
	if err := DecodeModelJSON(content, &parsed); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "action_spotting", "decode", "parse payload", err)
	}
	return parsed.Actions, nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) completeJSON(ctx context.Context, systemPrompt, userPrompt, op string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", services.Wrap(services.ErrConfiguration, "", op, "api key required", nil)
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}

	attempts := c.retry.Attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		content, err := c.sendOnce(ctx, payload, op)
		if err == nil {
			return content, nil
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
	return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) sendOnce(ctx context.Context, payload chatCompletionRequest, op string) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%s: encode body: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("%s: new request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: http error: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := services.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return "", fmt.Errorf("%s: %w", op, &services.HTTPStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		})
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("%s: api error: %s", op, strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", fmt.Errorf("%s: empty choices", op)
}
