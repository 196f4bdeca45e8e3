package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/coder/websocket"

	"aimrange/internal/anticheat"
	"aimrange/internal/game"
	"aimrange/internal/metrics"
	"aimrange/internal/sessions"
	"aimrange/internal/store"
)

// fingerprintHeader carries the client's stable identity token. The client
// derives it from its keypair; the server only treats it as an opaque key.
const fingerprintHeader = "X-Fingerprint"

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	fingerprint := r.Header.Get(fingerprintHeader)
	if fingerprint == "" {
		metrics.ConnectionsRefused.Inc()
		http.Error(w, "Missing fingerprint", http.StatusUnauthorized)
		return
	}

	// Resolve the identity before upgrading, so capacity refusals stay
	// plain HTTP errors the client can show.
	identity, err := s.resolveIdentity(r.Context(), fingerprint)
	if err != nil {
		metrics.ConnectionsRefused.Inc()
		if errors.Is(err, store.ErrCapacityExceeded) {
			http.Error(w, "Server full", http.StatusServiceUnavailable)
			return
		}
		log.Printf("[Server] Identity lookup failed: %v\n", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[Server] Upgrade failed: %v\n", err)
		return
	}

	handle := sessions.NewHandle(fingerprint, s.cfg.QueueSize)
	if old := s.registry.Register(handle); old != nil {
		// Newest connection wins; the old session says goodbye and leaves.
		old.Shutdown("replaced by a new connection")
	}

	sess := sessions.New(handle, s.registry, conn, identity, s.worker, s.cache, sessions.Options{
		TickInterval:  s.cfg.TickInterval,
		RoundDuration: s.cfg.RoundDuration,
		Validator: anticheat.Config{
			MinReactionTime:      s.cfg.MinReactionTime,
			MaxPixelsPerMs:       s.cfg.MaxPixelsPerMs,
			MinVarianceThreshold: s.cfg.JitterVariance,
		},
	})

	log.Printf("[Server] Session %s opened (user %d)\n", handle.ID, identity.ID)
	go sess.Run(s.ctx)
}

func (s *Server) resolveIdentity(ctx context.Context, fingerprint string) (*store.Identity, error) {
	reply := make(chan store.IdentityResult, 1)
	req := store.GetOrCreateRequest{Fingerprint: fingerprint, Reply: reply}

	ctx, cancel := context.WithTimeout(ctx, game.ReplyTimeout)
	defer cancel()

	if err := s.worker.Submit(ctx, req); err != nil {
		return nil, err
	}

	select {
	case res := <-reply:
		return res.Identity, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
