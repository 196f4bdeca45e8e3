package store

import (
	"context"
	"errors"
	"log"
	"time"

	"aimrange/internal/metrics"
	"aimrange/internal/rankings"
)

// Request is the closed set of operations the worker accepts.
type Request interface {
	kind() string
}

// GetOrCreateRequest resolves a fingerprint to an identity, creating one
// (subject to the identity cap) when absent.
type GetOrCreateRequest struct {
	Fingerprint string
	Reply       chan IdentityResult
}

// IdentityResult is the reply payload for GetOrCreateRequest.
type IdentityResult struct {
	Identity *Identity
	Err      error
}

// SaveRoundRequest persists one finished round. Fire-and-forget.
type SaveRoundRequest struct {
	Round RoundResult
}

// RenameRequest updates an identity's display name.
type RenameRequest struct {
	UserID int64
	Name   string
	Reply  chan error
}

// DeleteRequest removes an identity and everything it owns.
type DeleteRequest struct {
	UserID int64
	Reply  chan error
}

func (GetOrCreateRequest) kind() string { return "get_or_create" }
func (SaveRoundRequest) kind() string   { return "save_round" }
func (RenameRequest) kind() string      { return "rename" }
func (DeleteRequest) kind() string      { return "delete" }

// Options tunes the worker.
type Options struct {
	QueueSize     int
	RankingLimit  int
	MaxIdentities int
}

// Worker serializes every store mutation: it owns the sole writable handle
// and processes requests from a bounded queue strictly one at a time. After
// each successful mutation it recomputes and publishes a fresh ranking
// snapshot.
type Worker struct {
	store *Store
	cache *rankings.Cache
	opts  Options

	requests chan Request
	done     chan struct{}

	now func() time.Time
}

func NewWorker(s *Store, cache *rankings.Cache, opts Options) *Worker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	return &Worker{
		store:    s,
		cache:    cache,
		opts:     opts,
		requests: make(chan Request, opts.QueueSize),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

// Start publishes the initial snapshot and launches the worker goroutine.
func (w *Worker) Start() {
	w.publishSnapshot()

	go func() {
		defer close(w.done)
		for req := range w.requests {
			w.handle(req)
		}
		log.Println("[DB] Worker drained")
	}()
}

// Stop closes the queue; queued requests still complete. Call at most once.
func (w *Worker) Stop() {
	close(w.requests)
}

// Wait blocks until the worker drains or the timeout elapses.
func (w *Worker) Wait(timeout time.Duration) bool {
	select {
	case <-w.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Submit blocks until the request is queued or the context ends.
func (w *Worker) Submit(ctx context.Context, req Request) error {
	select {
	case w.requests <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues the request if there is room. Never blocks.
func (w *Worker) TrySubmit(req Request) bool {
	select {
	case w.requests <- req:
		return true
	default:
		return false
	}
}

// SubmitRound implements game.Persister.
func (w *Worker) SubmitRound(userID, score int64, hits, misses int) bool {
	ok := w.TrySubmit(SaveRoundRequest{Round: RoundResult{
		UserID: userID,
		Score:  score,
		Hits:   hits,
		Misses: misses,
	}})
	if !ok {
		log.Println("[DB] Request queue full, dropping round result")
	}
	return ok
}

// SubmitRename implements game.Persister.
func (w *Worker) SubmitRename(userID int64, name string) (<-chan error, bool) {
	reply := make(chan error, 1)
	if !w.TrySubmit(RenameRequest{UserID: userID, Name: name, Reply: reply}) {
		return nil, false
	}
	return reply, true
}

// SubmitDelete implements game.Persister.
func (w *Worker) SubmitDelete(userID int64) (<-chan error, bool) {
	reply := make(chan error, 1)
	if !w.TrySubmit(DeleteRequest{UserID: userID, Reply: reply}) {
		return nil, false
	}
	return reply, true
}

func (w *Worker) handle(req Request) {
	result := "ok"

	switch r := req.(type) {
	case GetOrCreateRequest:
		identity, created, err := w.store.GetOrCreateIdentity(r.Fingerprint, w.now(), w.opts.MaxIdentities)
		if err != nil {
			result = "error"
			if errors.Is(err, ErrCapacityExceeded) {
				result = "capacity"
			}
		} else if created {
			// Eviction may have dropped a ranked-zero identity; republish.
			w.publishSnapshot()
		}
		r.Reply <- IdentityResult{Identity: identity, Err: err}

	case SaveRoundRequest:
		if err := w.store.SaveRound(r.Round, w.now()); err != nil {
			log.Printf("[DB] SaveRound error: %v\n", err)
			result = "error"
		} else {
			metrics.RoundsPersisted.Inc()
			w.publishSnapshot()
		}

	case RenameRequest:
		err := w.store.RenameIdentity(r.UserID, r.Name)
		if err != nil {
			result = "error"
		} else {
			w.publishSnapshot()
		}
		r.Reply <- err

	case DeleteRequest:
		err := w.store.DeleteIdentity(r.UserID)
		if err != nil {
			result = "error"
		} else {
			w.publishSnapshot()
		}
		r.Reply <- err
	}

	metrics.WorkerRequests.WithLabelValues(req.kind(), result).Inc()
}

func (w *Worker) publishSnapshot() {
	snap, err := w.store.ComputeSnapshot(w.opts.RankingLimit, w.now())
	if err != nil {
		log.Printf("[DB] ComputeSnapshot error: %v\n", err)
		return
	}
	w.cache.Publish(snap)
	metrics.SnapshotGeneration.Set(float64(snap.Generation))
}
