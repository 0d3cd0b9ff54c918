package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// DefaultAddr is where the engine listens unless configured otherwise.
const DefaultAddr = "127.0.0.1:7878"

const writeTimeout = 2 * time.Second

// CommandSink receives decoded commands. Submit may block until the
// command is accepted or ctx is done.
type CommandSink interface {
	Submit(ctx context.Context, cmd Command) error
}

// Server accepts controller connections and relays messages between them
// and the engine.
//
// Only the newest connection is live: accepting a connection closes the
// previous one. Every connection gets its own reader; a single writer
// drains the event channel into whichever connection is live. Events
// produced while no controller is connected are dropped.
type Server struct {
	sink   CommandSink
	events <-chan Event

	mu      sync.Mutex
	current *session
}

type session struct {
	id   int
	conn net.Conn
	wire *Conn
}

// NewServer creates a server feeding commands to sink and sending the
// events read from events.
func NewServer(sink CommandSink, events <-chan Event) *Server {
	return &Server{sink: sink, events: events}
}

// Serve accepts connections on ln until ctx is cancelled or the listener
// fails. It returns nil after cancellation and the accept error otherwise.
// ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Info("protocol server listening", "addr", ln.Addr().String())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		ln.Close()
		s.supersede(nil)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop(ctx)
	}()

	var serveErr error
	for id := 1; ; id++ {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil {
				serveErr = fmt.Errorf("accept: %w", err)
				slog.Error("protocol listener failed", "error", err)
			}
			break
		}

		sess := &session{id: id, conn: conn, wire: NewConn(conn)}
		slog.Info("controller connected", "conn", id, "remote", conn.RemoteAddr().String())
		s.supersede(sess)
		if ctx.Err() != nil {
			// accepted while shutting down, after the live session was closed
			s.drop(sess)
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.readLoop(ctx, sess)
		}()
	}

	cancel()
	wg.Wait()
	return serveErr
}

// Connected reports whether a controller is currently connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// supersede makes sess the live session and closes the previous one.
func (s *Server) supersede(sess *session) {
	s.mu.Lock()
	prev := s.current
	s.current = sess
	s.mu.Unlock()

	if prev != nil {
		slog.Debug("controller superseded", "conn", prev.id)
		prev.conn.Close()
	}
}

// drop forgets sess if it is still live.
func (s *Server) drop(sess *session) {
	s.mu.Lock()
	if s.current == sess {
		s.current = nil
	}
	s.mu.Unlock()
	sess.conn.Close()
}

func (s *Server) readLoop(ctx context.Context, sess *session) {
	defer s.drop(sess)

	for {
		cmd, err := sess.wire.ReadCommand()
		if err != nil {
			if IsDecodeError(err) {
				slog.Warn("ignoring bad command", "conn", sess.id, "error", err)
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				slog.Info("controller disconnected", "conn", sess.id)
			} else {
				slog.Warn("controller read failed", "conn", sess.id, "error", err)
			}
			return
		}

		slog.Debug("command received", "conn", sess.id, "type", TypeOf(cmd))
		if err := s.sink.Submit(ctx, cmd); err != nil {
			slog.Warn("command not delivered", "conn", sess.id, "type", TypeOf(cmd), "error", err)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (s *Server) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.events:
			if !ok {
				return
			}
			s.deliver(ev)
		}
	}
}

func (s *Server) deliver(ev Event) {
	s.mu.Lock()
	sess := s.current
	s.mu.Unlock()
	if sess == nil {
		return
	}

	sess.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := sess.wire.WriteEvent(ev); err != nil {
		slog.Warn("controller write failed", "conn", sess.id, "error", err)
		s.drop(sess)
	}
}
