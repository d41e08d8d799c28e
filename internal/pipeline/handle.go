package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrBusy is returned when a user already has a pipeline request in flight.
var ErrBusy = errors.New("a request for this user is already running")

// Handle tracks one in-flight pipeline request. The front door can await its
// completion or cancel it; cancellation kills in-flight encoder processes and
// the scratch area is still cleaned up.
type Handle struct {
	RequestID string
	UserID    string

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result *Result
	err    error
}

// Done is closed when the request finishes, successfully or not.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel aborts the request.
func (h *Handle) Cancel() { h.cancel() }

// Wait blocks until the request finishes and returns its outcome.
func (h *Handle) Wait() (*Result, error) {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.err
}

func (h *Handle) finish(res *Result, err error) {
	h.mu.Lock()
	h.result = res
	h.err = err
	h.mu.Unlock()
	close(h.done)
}

// Manager launches pipeline requests and enforces one in-flight request per
// user, replacing fire-and-forget task spawning with trackable handles.
type Manager struct {
	pipeline *Pipeline

	mu       sync.Mutex
	inFlight map[string]*Handle
}

// NewManager creates a Manager over the given pipeline.
func NewManager(p *Pipeline) *Manager {
	return &Manager{
		pipeline: p,
		inFlight: make(map[string]*Handle),
	}
}

// Submit starts a pipeline run for the user's prompt. It returns ErrBusy if
// that user already has a request in flight.
func (m *Manager) Submit(ctx context.Context, userID, prompt string) (*Handle, error) {
	m.mu.Lock()
	if _, ok := m.inFlight[userID]; ok {
		m.mu.Unlock()
		return nil, ErrBusy
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		RequestID: uuid.NewString()[:8],
		UserID:    userID,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	m.inFlight[userID] = h
	m.mu.Unlock()

	go func() {
		defer cancel()
		res, err := m.pipeline.Run(runCtx, h.RequestID, userID, prompt)

		m.mu.Lock()
		delete(m.inFlight, userID)
		m.mu.Unlock()

		h.finish(res, err)
	}()
	return h, nil
}

// CancelAll aborts every in-flight request and waits for them to finish, used
// during shutdown.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.inFlight))
	for _, h := range m.inFlight {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
		<-h.Done()
	}
}
