// Package agent dispatches incoming channel commands into pipeline requests
// and delivers the finished video back to the channel.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/atorsvn/neku-bot/internal/channel"
	"github.com/atorsvn/neku-bot/internal/metrics"
	"github.com/atorsvn/neku-bot/internal/pipeline"
)

// Loop consumes an adapter's incoming messages and runs one pipeline request
// per command via trackable handles.
type Loop struct {
	manager *pipeline.Manager
	log     *slog.Logger
}

// NewLoop creates a dispatcher over the pipeline manager.
func NewLoop(manager *pipeline.Manager, log *slog.Logger) *Loop {
	return &Loop{manager: manager, log: log}
}

// Run consumes messages until the adapter's incoming channel closes or the
// context is done. Each message is handled in its own goroutine; the per-user
// in-flight limit lives in the manager.
func (l *Loop) Run(ctx context.Context, adapter channel.Adapter) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-adapter.Incoming():
			if !ok {
				return
			}
			metrics.MessagesReceived.WithLabelValues(adapter.Name()).Inc()
			go l.handle(ctx, adapter, msg)
		}
	}
}

func (l *Loop) handle(ctx context.Context, adapter channel.Adapter, msg *channel.Message) {
	if msg.Content == "" {
		_ = adapter.Reply(msg, &channel.Response{Content: "Say something after the command and I'll answer with a video."})
		return
	}

	adapter.Typing(msg)

	h, err := l.manager.Submit(ctx, msg.UserID, msg.Content)
	if err != nil {
		if errors.Is(err, pipeline.ErrBusy) {
			_ = adapter.Reply(msg, &channel.Response{Content: "Still working on your last message, hold on."})
			return
		}
		l.log.Error("submit failed", "user_id", msg.UserID, "error", err)
		_ = adapter.Reply(msg, &channel.Response{Content: "Something went wrong starting that request."})
		return
	}

	res, err := h.Wait()
	if err != nil {
		l.log.Error("pipeline failed", "request_id", h.RequestID, "user_id", msg.UserID, "error", err)
		_ = adapter.Reply(msg, &channel.Response{Content: "I couldn't finish that one, sorry."})
		return
	}

	if err := adapter.Reply(msg, &channel.Response{FilePath: res.Video}); err != nil {
		l.log.Error("delivery failed", "request_id", res.RequestID, "error", err)
	}

	// The front door owns the artifacts once delivery is attempted.
	if err := os.RemoveAll(filepath.Dir(res.Video)); err != nil {
		l.log.Warn("artifact cleanup failed", "request_id", res.RequestID, "error", err)
	}
}
