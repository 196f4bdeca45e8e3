// Package sessions multiplexes live connections: one session task per
// connection, at most one session per identity fingerprint.
package sessions

import (
	"sync"

	"github.com/google/uuid"

	"aimrange/internal/metrics"
)

// Handle is the registry's grip on one session: an outbound frame queue and
// a shutdown signal. The session task owns everything else.
type Handle struct {
	ID          uuid.UUID
	Fingerprint string

	send chan []byte

	done     chan struct{}
	reason   string
	shutdown sync.Once
}

func NewHandle(fingerprint string, queueSize int) *Handle {
	return &Handle{
		ID:          uuid.New(),
		Fingerprint: fingerprint,
		send:        make(chan []byte, queueSize),
		done:        make(chan struct{}),
	}
}

// Enqueue queues an outbound frame. Non-blocking: a slow client drops
// frames rather than stalling the session.
func (h *Handle) Enqueue(frame []byte) bool {
	select {
	case h.send <- frame:
		return true
	default:
		return false
	}
}

// Shutdown asks the session to stop. Safe to call from any goroutine and
// more than once; only the first reason sticks.
func (h *Handle) Shutdown(reason string) {
	h.shutdown.Do(func() {
		h.reason = reason
		close(h.done)
	})
}

// Done is closed once Shutdown has been called.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Reason reports why the session was shut down. Valid after Done closes.
func (h *Handle) Reason() string {
	return h.reason
}

// Registry maps fingerprints to live session handles.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Handle
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Handle)}
}

// Register installs the handle, returning any displaced handle for the same
// fingerprint. The newest connection always wins; the caller shuts the old
// session down.
func (r *Registry) Register(h *Handle) *Handle {
	r.mu.Lock()
	old := r.sessions[h.Fingerprint]
	r.sessions[h.Fingerprint] = h
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(r.Count()))
	if old != nil {
		metrics.SessionsEvicted.Inc()
	}
	return old
}

// Unregister removes the handle, but only if this exact session still owns
// the slot. A displaced session must not evict its replacement.
func (r *Registry) Unregister(fingerprint string, id uuid.UUID) {
	r.mu.Lock()
	if cur, ok := r.sessions[fingerprint]; ok && cur.ID == id {
		delete(r.sessions, fingerprint)
	}
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(r.Count()))
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Drain snapshots every live handle so the caller can broadcast shutdown.
func (r *Registry) Drain() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	handles := make([]*Handle, 0, len(r.sessions))
	for _, h := range r.sessions {
		handles = append(handles, h)
	}
	return handles
}
