// Package emotion implements the text emotion-classifier collaborator client.
package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/atorsvn/neku-bot/internal/config"
)

// Result is an emotion label with its confidence score.
type Result struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Client calls an HTTP emotion classification service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an emotion classifier client.
func NewClient(cfg *config.EmotionConfig) *Client {
	return &Client{
		baseURL: cfg.URL,
		httpClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
	}
}

// Classify returns the dominant emotion label and score for text. With no
// backend configured it returns a neutral result rather than failing the
// pipeline, since emotion only annotates the response.
func (c *Client) Classify(ctx context.Context, text string) (Result, error) {
	if c.baseURL == "" {
		return Result{Label: "neutral", Score: 0}, nil
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/classify", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("emotion classifier unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("emotion classifier returned status %d: %s", resp.StatusCode, string(diag))
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode emotion response: %w", err)
	}
	return out, nil
}
