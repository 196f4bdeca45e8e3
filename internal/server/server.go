// Package server wires the HTTP surface to the session layer: websocket
// upgrades, health and metrics endpoints, and coordinated shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aimrange/internal/config"
	"aimrange/internal/rankings"
	"aimrange/internal/sessions"
	"aimrange/internal/store"
)

func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	cache := rankings.NewCache()
	worker := store.NewWorker(st, cache, store.Options{
		QueueSize:     cfg.QueueSize,
		RankingLimit:  cfg.RankingLimit,
		MaxIdentities: cfg.MaxIdentities,
	})
	worker.Start()

	// Sessions outlive individual requests; they hang off this context so a
	// shutdown reaches every loop.
	ctx, cancelSessions := context.WithCancel(context.Background())
	defer cancelSessions()

	srv := &Server{
		cfg:      cfg,
		store:    st,
		worker:   worker,
		cache:    cache,
		registry: sessions.NewRegistry(),
		ctx:      ctx,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/play", srv.handleSession)
	mux.HandleFunc("/health", srv.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on %s\n", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := srv.registry.Count(); n > 0 {
					log.Printf("[Server] %d active sessions\n", n)
				}
			}
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	log.Println("[Server] Shutting down")

	// Tell every live session to leave; the goodbye frame rides the normal
	// write path during the grace period.
	for _, h := range srv.registry.Drain() {
		h.Shutdown("server shutting down")
	}

	deadline := time.Now().Add(cfg.ShutdownGrace)
	for srv.registry.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	cancelSessions()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] HTTP shutdown: %v\n", err)
	}

	// The worker drains its queue before the store closes, so in-flight
	// round results still land.
	worker.Stop()
	if !worker.Wait(cfg.ShutdownGrace) {
		log.Println("[Server] Worker did not drain before the grace period ended")
	}

	log.Println("[Server] Shutdown complete")
	return nil
}

type Server struct {
	cfg      config.Config
	store    *store.Store
	worker   *store.Worker
	cache    *rankings.Cache
	registry *sessions.Registry
	ctx      context.Context
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"db_error","error":"%s"}`, err.Error())
		return
	}
	fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, s.registry.Count())
}
