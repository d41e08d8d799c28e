package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atorsvn/neku-bot/internal/config"
	"github.com/atorsvn/neku-bot/internal/history"
)

func testPersona() config.PersonaConfig {
	return config.PersonaConfig{
		BotName:        "neku",
		BotPrompt:      "answer briefly",
		BotPersonality: "cheerful",
		BotSituation:   "chatting on discord",
	}
}

func newTestClient(t *testing.T, serverURL string) (*OllamaClient, *history.Store) {
	t.Helper()
	store, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c, err := NewOllamaClient(&config.OllamaConfig{URL: serverURL, Model: "llama3.2"}, testPersona(), store)
	require.NoError(t, err)
	return c, store
}

func TestGenerateReplySendsPersonaAndHistory(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(chatResponse{
			Model:   got.Model,
			Message: Message{Role: "assistant", Content: "nice to meet you"},
			Done:    true,
		})
	}))
	defer srv.Close()

	c, store := newTestClient(t, srv.URL)
	ctx := context.Background()

	// Seed one prior exchange.
	require.NoError(t, store.SaveMessage(ctx, "u1", "user", "earlier question"))
	require.NoError(t, store.SaveMessage(ctx, "u1", "assistant", "earlier answer"))

	reply, err := c.GenerateReply(ctx, "u1", "who are you?")
	require.NoError(t, err)
	assert.Equal(t, "nice to meet you", reply)

	assert.Equal(t, "llama3.2", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Bot Name: neku")
	assert.Contains(t, got.Messages[0].Content, "Personality: cheerful")
	assert.Equal(t, Message{Role: "user", Content: "earlier question"}, got.Messages[1])
	assert.Equal(t, Message{Role: "assistant", Content: "earlier answer"}, got.Messages[2])
	assert.Equal(t, Message{Role: "user", Content: "who are you?"}, got.Messages[3])
}

func TestGenerateReplyPersistsBothTurns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Message: Message{Role: "assistant", Content: "saved reply"}})
	}))
	defer srv.Close()

	c, store := newTestClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.GenerateReply(ctx, "u1", "remember this")
	require.NoError(t, err)

	turns, err := store.GetContext(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, history.Turn{Role: "user", Content: "remember this"}, turns[0])
	assert.Equal(t, history.Turn{Role: "assistant", Content: "saved reply"}, turns[1])
}

func TestGenerateReplyBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)

	_, err := c.GenerateReply(context.Background(), "u1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestNewOllamaClientRequiresURL(t *testing.T) {
	store, err := history.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = NewOllamaClient(&config.OllamaConfig{}, testPersona(), store)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	assert.NoError(t, c.Health(context.Background()))

	c2, _ := newTestClient(t, "http://127.0.0.1:1")
	assert.Error(t, c2.Health(context.Background()))
}
