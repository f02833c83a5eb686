package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/satriojati/storymap/internal/agent/cache"
	"github.com/satriojati/storymap/internal/logging"
)

// Server exposes the agent over HTTP:
//
//	GET  /cache?url=...&kind=...  caching proxy
//	POST /push                    push payload delivery (the subscription endpoint)
//	POST /message                 control messages from the client
//	GET  /healthz                 liveness
type Server struct {
	srv    *http.Server
	worker *Worker
	log    logging.Logger
}

func NewServer(addr string, worker *Worker, proxy *cache.Handler, log logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{worker: worker, log: log}

	mux := http.NewServeMux()
	mux.Handle("/cache", proxy)
	mux.HandleFunc("/push", s.handlePush)
	mux.HandleFunc("/message", s.handleMessage)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64<<10))
	if err != nil {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return
	}
	s.worker.Deliver(raw)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var m Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "malformed message", http.StatusBadRequest)
		return
	}
	s.worker.Post(m)
	w.WriteHeader(http.StatusAccepted)
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "agent listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
