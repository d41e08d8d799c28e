// Package tts implements the speech-synthesis collaborator client.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/atorsvn/neku-bot/internal/config"
)

// Chunk is one synthesized audio span: the exact text it covers, its phoneme
// string, and the encoded audio bytes, in playback order.
type Chunk struct {
	Text     string
	Phonemes string
	Audio    []byte
}

// Synthesizer produces ordered audio chunks for a sentence.
type Synthesizer interface {
	Synthesize(ctx context.Context, sentence string) ([]Chunk, error)
}

type wireChunk struct {
	Index       int    `json:"index"`
	Text        string `json:"text"`
	Phonemes    string `json:"phonemes"`
	AudioBase64 string `json:"audio_base64"`
}

// Client calls an HTTP TTS service (a Kokoro wrapper in the default deploy).
type Client struct {
	baseURL    string
	voice      string
	langCode   string
	speed      float64
	httpClient *http.Client
}

// NewClient creates a TTS client with the configured voice preset.
func NewClient(cfg *config.TTSConfig) *Client {
	return &Client{
		baseURL:  cfg.URL,
		voice:    cfg.Voice,
		langCode: cfg.LangCode,
		speed:    cfg.Speed,
		httpClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
	}
}

// Synthesize converts one sentence into ordered audio chunks.
func (c *Client) Synthesize(ctx context.Context, sentence string) ([]Chunk, error) {
	body, err := json.Marshal(map[string]any{
		"text":      sentence,
		"voice":     c.voice,
		"lang_code": c.langCode,
		"speed":     c.speed,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/synthesize", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts backend returned status %d: %s", resp.StatusCode, string(diag))
	}

	var wire []wireChunk
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode tts response: %w", err)
	}

	chunks := make([]Chunk, 0, len(wire))
	for _, w := range wire {
		audio, err := base64.StdEncoding.DecodeString(w.AudioBase64)
		if err != nil {
			return nil, fmt.Errorf("decode audio for chunk %d: %w", w.Index, err)
		}
		chunks = append(chunks, Chunk{Text: w.Text, Phonemes: w.Phonemes, Audio: audio})
	}
	return chunks, nil
}
