package agent

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/satriojati/storymap/internal/logging"
)

// WSSource feeds push payloads from a websocket into the worker. Backends
// that keep a persistent connection per device publish here instead of
// POSTing to the agent's push endpoint.
type WSSource struct {
	url string
	log logging.Logger

	// dialFn is a test seam for websocket.DefaultDialer.DialContext.
	dialFn func(ctx context.Context, url string) (*websocket.Conn, error)

	backoff time.Duration
}

func NewWSSource(url string, log logging.Logger) *WSSource {
	if log == nil {
		log = logging.Nop()
	}
	return &WSSource{
		url: url,
		log: log,
		dialFn: func(ctx context.Context, url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return conn, err
		},
		backoff: time.Second,
	}
}

// Run keeps a connection to the feed alive, delivering every message, until
// ctx is done. Reconnects use doubling backoff capped at a minute.
func (s *WSSource) Run(ctx context.Context, deliver func([]byte)) {
	wait := s.backoff
	for {
		if err := s.readLoop(ctx, deliver); err != nil {
			s.log.Warn(ctx, "push feed disconnected", "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if wait < time.Minute {
			wait *= 2
		}
	}
}

func (s *WSSource) readLoop(ctx context.Context, deliver func([]byte)) error {
	conn, err := s.dialFn(ctx, s.url)
	if err != nil {
		return err
	}
	defer conn.Close()
	s.log.Info(ctx, "push feed connected", "url", s.url)

	// Unblock ReadMessage when ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		deliver(raw)
	}
}
