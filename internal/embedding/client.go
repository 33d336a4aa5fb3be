// Package embedding provides embedding generation for retrieval chunks.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// Provider failures split into two classes: transient errors are retried
// with backoff, permanent errors (provider 4xx) are not.
var (
	ErrTransient = errors.New("transient embedding failure")
	ErrPermanent = errors.New("permanent embedding failure")
)

// Embedder turns texts into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// Config holds embedding client configuration.
type Config struct {
	BaseURL       string
	APIKey        string
	Model         string
	Dimension     int
	Timeout       time.Duration
	MaxRetries    int
	RetryBaseWait time.Duration
	RetryMaxWait  time.Duration
}

// HTTPClient talks to an OpenAI-compatible /embeddings endpoint.
type HTTPClient struct {
	httpClient *http.Client
	cfg        Config
	rng        *rand.Rand
	sleep      func(context.Context, time.Duration) error
}

// NewHTTPClient creates an embedding client.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedding base URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = "e5-large-v2"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryBaseWait <= 0 {
		cfg.RetryBaseWait = 500 * time.Millisecond
	}
	if cfg.RetryMaxWait <= 0 {
		cfg.RetryMaxWait = 30 * time.Second
	}
	return &HTTPClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:      sleepCtx,
	}, nil
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Embed generates embeddings for texts, retrying transient failures with
// exponential backoff (base 500ms, factor 2, jitter ±20%, cap 30s).
func (c *HTTPClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrTransient, err)
			}
		}
		out, err := c.embedOnce(ctx, texts)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, ErrPermanent) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrTransient, c.cfg.MaxRetries, lastErr)
}

func (c *HTTPClient) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Input: texts, Model: c.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrPermanent, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrPermanent, resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", ErrTransient, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrPermanent, parsed.Error.Message)
	}
	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	for i, v := range out {
		if len(v) != c.cfg.Dimension {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, want %d",
				ErrPermanent, i, len(v), c.cfg.Dimension)
		}
	}
	return out, nil
}

// backoff computes the wait before the given attempt.
func (c *HTTPClient) backoff(attempt int) time.Duration {
	wait := c.cfg.RetryBaseWait
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= c.cfg.RetryMaxWait {
			wait = c.cfg.RetryMaxWait
			break
		}
	}
	jitter := 1 + (c.rng.Float64()*0.4 - 0.2)
	wait = time.Duration(float64(wait) * jitter)
	if wait > c.cfg.RetryMaxWait {
		wait = c.cfg.RetryMaxWait
	}
	return wait
}

// Dimension returns the configured embedding dimension.
func (c *HTTPClient) Dimension() int { return c.cfg.Dimension }

// Model returns the model name sent with each request.
func (c *HTTPClient) Model() string { return c.cfg.Model }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
