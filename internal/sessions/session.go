package sessions

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"

	"aimrange/internal/anticheat"
	"aimrange/internal/game"
	"aimrange/internal/metrics"
	"aimrange/internal/protocol"
	"aimrange/internal/rankings"
	"aimrange/internal/store"
)

// Options carries the per-session tunables from the server config.
type Options struct {
	TickInterval  time.Duration
	RoundDuration time.Duration
	Validator     anticheat.Config
}

// resolution is a settled async reply headed back into the controller.
type resolution struct {
	kind game.PendingKind
	err  error
}

// Session is one connection's task. It owns the controller and is the only
// goroutine that touches it; reads, replies, and ticks all funnel into the
// single Run loop.
type Session struct {
	handle   *Handle
	registry *Registry
	conn     *websocket.Conn
	ctrl     *game.Controller
	worker   *store.Worker
	cache    *rankings.Cache
	opts     Options

	replies chan resolution
	cleanup sync.Once
}

func New(handle *Handle, registry *Registry, conn *websocket.Conn, identity *store.Identity, worker *store.Worker, cache *rankings.Cache, opts Options) *Session {
	profile := game.Profile{
		ID:          identity.ID,
		Fingerprint: identity.Fingerprint,
		Name:        identity.Name,
		HighScore:   identity.HighScore,
		TotalHits:   identity.TotalHits,
		TotalMisses: identity.TotalMisses,
		Sessions:    identity.Sessions,
	}
	for _, day := range identity.Activity {
		profile.Activity = append(profile.Activity, game.ActivityDay{Date: day.Date, Count: day.Count})
	}

	return &Session{
		handle:   handle,
		registry: registry,
		conn:     conn,
		ctrl:     game.NewController(profile, anticheat.NewValidator(opts.Validator), worker, opts.RoundDuration),
		worker:   worker,
		cache:    cache,
		opts:     opts,
		replies:  make(chan resolution, 2),
	}
}

// Run drives the session until the client leaves, the handle is shut down,
// or the server context ends. It always unregisters and closes the socket.
func (s *Session) Run(ctx context.Context) {
	writerDone := make(chan struct{})
	go s.writePump(writerDone)

	actions := make(chan game.Action, 16)
	go s.readPump(ctx, actions)

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	reason := "session closed"
	defer func() { s.close(reason, writerDone) }()

	for {
		select {
		case <-ctx.Done():
			reason = "server shutting down"
			return

		case <-s.handle.Done():
			reason = s.handle.Reason()
			return

		case act, ok := <-actions:
			if !ok {
				reason = "client disconnected"
				return
			}
			if s.handleAction(act) {
				reason = "client quit"
				return
			}

		case res := <-s.replies:
			s.resolve(ctx, res)

		case <-ticker.C:
			s.apply(game.Tick{})
			s.pushFrame()
		}
	}
}

// handleAction applies one client action and renders right away; input
// feedback must not wait for the next tick.
func (s *Session) handleAction(act game.Action) bool {
	quit := s.apply(act)
	s.pushFrame()
	return quit
}

// apply feeds one action through the controller and handles its side
// effects. Returns true when the session should end.
func (s *Session) apply(act game.Action) bool {
	outcome := s.ctrl.Apply(act)

	if outcome.CheatFlagged {
		metrics.ValidatorRejections.Inc()
		log.Printf("[Session] %s: click rejected by validator\n", s.handle.ID)
	}
	if outcome.Pending != nil {
		go forwardReply(outcome.Pending, s.replies, s.handle.Done())
	}
	return s.ctrl.ShouldQuit()
}

// forwardReply waits for the worker's answer and feeds it back into the
// session loop, turning silence into an explicit timeout error.
func forwardReply(p *game.Pending, replies chan<- resolution, done <-chan struct{}) {
	var res resolution
	res.kind = p.Kind

	select {
	case err := <-p.Reply:
		res.err = err
	case <-time.After(game.ReplyTimeout):
		res.err = context.DeadlineExceeded
	case <-done:
		return
	}

	select {
	case replies <- res:
	case <-done:
	}
}

func (s *Session) resolve(ctx context.Context, res resolution) {
	s.ctrl.Resolve(res.kind, res.err)

	// A successful reset deleted the durable row. Re-resolve the fingerprint
	// so later rounds persist under the fresh identity.
	if res.kind == game.PendingDelete && res.err == nil {
		s.readoptIdentity(ctx)
	}

	s.pushFrame()
}

func (s *Session) readoptIdentity(ctx context.Context) {
	prior := s.ctrl.Profile()

	reply := make(chan store.IdentityResult, 1)
	req := store.GetOrCreateRequest{Fingerprint: s.handle.Fingerprint, Reply: reply}

	ctx, cancel := context.WithTimeout(ctx, game.ReplyTimeout)
	defer cancel()

	if err := s.worker.Submit(ctx, req); err != nil {
		log.Printf("[Session] %s: identity re-adoption not queued: %v\n", s.handle.ID, err)
		return
	}

	select {
	case res := <-reply:
		if res.Err != nil {
			log.Printf("[Session] %s: identity re-adoption failed: %v\n", s.handle.ID, res.Err)
			return
		}

		// The fresh row starts nameless; the player keeps the name they
		// already chose, and it is re-persisted onto the new row.
		name := res.Identity.Name
		if name == "" {
			name = prior.Name
		}
		s.ctrl.AdoptProfile(game.Profile{
			ID:          res.Identity.ID,
			Fingerprint: res.Identity.Fingerprint,
			Name:        name,
		})
		if name != "" && name != res.Identity.Name {
			if _, ok := s.worker.SubmitRename(res.Identity.ID, name); !ok {
				log.Printf("[Session] %s: name not re-persisted after reset (queue full)\n", s.handle.ID)
			}
		}
	case <-ctx.Done():
		log.Printf("[Session] %s: identity re-adoption timed out\n", s.handle.ID)
	}
}

func (s *Session) pushFrame() {
	frame, err := protocol.EncodeFrame(s.ctrl, s.cache.Load(), s.opts.RoundDuration, time.Now())
	if err != nil {
		log.Printf("[Session] %s: frame encode error: %v\n", s.handle.ID, err)
		return
	}
	// Dropped frames are fine; the next tick supersedes them anyway.
	s.handle.Enqueue(frame)
}

// writePump is the only goroutine that writes to the socket. It deliberately
// ignores the run context so the goodbye frame still goes out during server
// shutdown; each write gets its own deadline instead.
func (s *Session) writePump(done chan<- struct{}) {
	defer close(done)

	for frame := range s.handle.send {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		// Write errors are swallowed: the pump keeps draining so close
		// never blocks on a full queue.
		_ = s.conn.Write(ctx, websocket.MessageText, frame)
		cancel()
	}
}

func (s *Session) readPump(ctx context.Context, actions chan<- game.Action) {
	defer close(actions)

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return
		}
		act, ok := protocol.DecodeAction(data)
		if !ok {
			continue
		}
		select {
		case actions <- act:
		case <-s.handle.Done():
			return
		}
	}
}

// close runs the teardown exactly once: goodbye frame, writer drain, socket
// close, registry slot release.
func (s *Session) close(reason string, writerDone <-chan struct{}) {
	s.cleanup.Do(func() {
		s.handle.Shutdown(reason)

		s.handle.Enqueue(protocol.EncodeGoodbye(reason))
		close(s.handle.send)

		select {
		case <-writerDone:
		case <-time.After(time.Second):
		}

		s.conn.Close(websocket.StatusNormalClosure, reason)
		s.registry.Unregister(s.handle.Fingerprint, s.handle.ID)
		log.Printf("[Session] %s closed: %s\n", s.handle.ID, reason)
	})
}
