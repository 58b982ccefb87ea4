// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

// Package telnet provides the line-oriented TCP transport.
package telnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/parleyd/parleyd/internal/command"
	"github.com/parleyd/parleyd/internal/observability"
)

// Server accepts TCP connections, applies the session capacity bound, and
// hands each admitted connection to its own ConnectionHandler goroutine.
type Server struct {
	addr       string
	dispatcher *command.Dispatcher
	services   *command.Services
	metrics    *observability.Metrics

	mu       sync.RWMutex
	listener net.Listener
	handlers sync.WaitGroup
}

// NewServer creates a new telnet server.
func NewServer(addr string, dispatcher *command.Dispatcher, services *command.Services, metrics *observability.Metrics) *Server {
	return &Server{
		addr:       addr,
		dispatcher: dispatcher,
		services:   services,
		metrics:    metrics,
	}
}

// Addr returns the server's listen address, or "" before Run binds it.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run starts the server and blocks until the context is cancelled or the
// listener fails permanently. Connection handlers are drained before Run
// returns.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	slog.Info("telnet server started", "addr", listener.Addr())

	go func() {
		<-ctx.Done()
		if closeErr := listener.Close(); closeErr != nil {
			slog.Debug("error closing listener", "error", closeErr)
		}
		// Unblock handler read loops so Run can drain them.
		for _, sess := range s.services.Sessions.All() {
			if closeErr := sess.Close(); closeErr != nil {
				slog.Debug("error closing session on shutdown",
					"session_id", sess.ID(),
					"error", closeErr,
				)
			}
		}
	}()

	defer s.handlers.Wait()

	for {
		conn, acceptErr := s.accept(ctx, listener)
		if acceptErr != nil {
			if ctx.Err() != nil || errors.Is(acceptErr, net.ErrClosed) {
				return nil
			}
			return oops.Code("ACCEPT_FAILED").Wrap(acceptErr)
		}
		s.admit(ctx, conn)
	}
}

// accept wraps listener.Accept with fibonacci backoff so a transient
// failure (out of descriptors, aborted handshake) doesn't spin the accept
// loop. A closed listener is fatal, not retryable.
func (s *Server) accept(ctx context.Context, listener net.Listener) (net.Conn, error) {
	var conn net.Conn
	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(50*time.Millisecond))

	err := retry.Do(ctx, backoff, func(_ context.Context) error {
		c, acceptErr := listener.Accept()
		if acceptErr != nil {
			if errors.Is(acceptErr, net.ErrClosed) {
				return acceptErr
			}
			slog.Warn("accept failed, backing off", "error", acceptErr)
			return retry.RetryableError(acceptErr)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// admit runs capacity admission for one connection. A rejected connection
// is told so and closed before any session bookkeeping happens.
func (s *Server) admit(ctx context.Context, conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	sess, err := s.services.Sessions.Admit(conn, remoteAddr)
	if err != nil {
		s.metrics.ConnectionsTotal.WithLabelValues("rejected").Inc()
		slog.Warn("connection rejected at capacity",
			"remote_addr", remoteAddr,
			"active", s.services.Sessions.Len(),
		)
		//nolint:errcheck // the connection is being dropped either way
		fmt.Fprintln(conn, "Server is full.  Goodbye.")
		if closeErr := conn.Close(); closeErr != nil {
			slog.Debug("error closing rejected connection", "error", closeErr)
		}
		return
	}

	s.metrics.ConnectionsTotal.WithLabelValues("admitted").Inc()
	s.metrics.SessionsActive.Inc()

	handler := NewConnectionHandler(conn, sess, s.dispatcher, s.services)
	s.handlers.Add(1)
	go func() {
		defer s.handlers.Done()
		defer s.metrics.SessionsActive.Dec()
		handler.Handle(ctx)
	}()
}
