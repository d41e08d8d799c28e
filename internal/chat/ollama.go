// Package chat implements the conversational collaborator: an Ollama chat
// client with persona system prompt and persisted per-user history.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/atorsvn/neku-bot/internal/config"
	"github.com/atorsvn/neku-bot/internal/history"
)

// Message is one chat turn in the Ollama wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// OllamaClient generates replies via Ollama's /api/chat endpoint.
type OllamaClient struct {
	baseURL    string
	model      string
	persona    config.PersonaConfig
	store      *history.Store
	httpClient *http.Client
}

// NewOllamaClient creates a chat client bound to a conversation store.
func NewOllamaClient(cfg *config.OllamaConfig, persona config.PersonaConfig, store *history.Store) (*OllamaClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("ollama URL is required")
	}
	return &OllamaClient{
		baseURL: cfg.URL,
		model:   cfg.Model,
		persona: persona,
		store:   store,
		httpClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
	}, nil
}

// GenerateReply produces the assistant reply for a user's prompt, persisting
// both the prompt and the reply to the user's history in order.
func (c *OllamaClient) GenerateReply(ctx context.Context, userID, prompt string) (string, error) {
	messages := []Message{{Role: "system", Content: c.systemPrompt()}}

	turns, err := c.store.GetContext(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load context: %w", err)
	}
	for _, t := range turns {
		messages = append(messages, Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	if err := c.store.SaveMessage(ctx, userID, "user", prompt); err != nil {
		return "", fmt.Errorf("save user message: %w", err)
	}

	reply, err := c.complete(ctx, messages)
	if err != nil {
		return "", err
	}

	if err := c.store.SaveMessage(ctx, userID, "assistant", reply); err != nil {
		return "", fmt.Errorf("save assistant message: %w", err)
	}
	return reply, nil
}

func (c *OllamaClient) systemPrompt() string {
	return fmt.Sprintf(
		"Bot Name: %s\nPrompt: %s\nPersonality: %s\nSituation: %s\n",
		c.persona.BotName, c.persona.BotPrompt, c.persona.BotPersonality, c.persona.BotSituation,
	)
}

func (c *OllamaClient) complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(diag))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return out.Message.Content, nil
}

// Health checks whether the Ollama backend is reachable.
func (c *OllamaClient) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/tags", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check returned status %d", resp.StatusCode)
	}
	return nil
}
