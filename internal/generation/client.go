package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vipplay/content-dispatcher/internal/envelope"
)

// Client calls the external content generation service
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a generation pipeline client
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type generateRequest struct {
	Topic            string   `json:"topic"`
	WordCount        int      `json:"word_count,omitempty"`
	Tone             string   `json:"tone,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
	SEOOptimization  bool     `json:"seo_optimization"`
	ContentStructure string   `json:"content_structure,omitempty"`
}

type generateResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	Message string `json:"message"`
}

// Generate runs a topic generation and returns the produced content.
// The call can take tens of seconds; the context bounds it.
func (c *Client) Generate(ctx context.Context, params envelope.GenerationParams) (string, error) {
	reqBody := generateRequest{
		Topic:            params.Topic,
		WordCount:        params.WordCount,
		Tone:             params.Tone,
		Keywords:         params.Keywords,
		SEOOptimization:  params.SEOOptimization,
		ContentStructure: params.ContentStructure,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generation/topic", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("generation service error (status %d): %s", resp.StatusCode, string(body))
	}

	var res generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}

	if !res.Success {
		return "", fmt.Errorf("generation rejected: %s", res.Message)
	}

	if res.Content == "" {
		return "", fmt.Errorf("generation returned no content")
	}

	c.logger.Debug("Generation call completed",
		slog.String("topic", params.Topic),
		slog.Duration("elapsed", time.Since(started)),
		slog.Int("content_size", len(res.Content)),
	)

	return res.Content, nil
}
