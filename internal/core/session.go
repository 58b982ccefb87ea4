// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

// Package core owns the live session set and message fan-out.
package core

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/samber/oops"
)

// Session represents one connected client.
//
// The session is the exclusive owner of its transport sink: all writes go
// through Send, which serializes them so per-session delivery is FIFO, and
// only the session may close the sink.
type Session struct {
	id         int64
	remoteAddr string

	mu       sync.Mutex
	conn     io.WriteCloser
	username string
	closed   bool
}

// ID returns the server-assigned session id.
func (s *Session) ID() int64 {
	return s.id
}

// RemoteAddr returns the remote address reported by the transport at
// admission time.
func (s *Session) RemoteAddr() string {
	return s.remoteAddr
}

// Username returns the authenticated username, or "" while anonymous.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Authenticated reports whether the session has a username set.
func (s *Session) Authenticated() bool {
	return s.Username() != ""
}

// SetUsername transitions the session to authenticated. A username, once
// set, is never silently overwritten: callers must go through ClearUsername
// first.
func (s *Session) SetUsername(name string) error {
	if name == "" {
		return oops.Code("SESSION_EMPTY_USERNAME").Errorf("username cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.username != "" {
		return oops.Code("SESSION_ALREADY_AUTHENTICATED").
			With("session_id", s.id).
			With("username", s.username).
			Errorf("session %d is already authenticated", s.id)
	}
	s.username = name
	return nil
}

// ClearUsername transitions the session back to anonymous and returns the
// username it previously held.
func (s *Session) ClearUsername() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.username == "" {
		return "", oops.Code("SESSION_NOT_AUTHENTICATED").
			With("session_id", s.id).
			Errorf("session %d is not authenticated", s.id)
	}
	name := s.username
	s.username = ""
	return name, nil
}

// Send writes one line to the session's transport. Delivery is fire and
// forget: a write failure is logged and left for the session's own read
// loop to discover and tear down.
func (s *Session) Send(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, err := fmt.Fprintln(s.conn, msg); err != nil {
		slog.Debug("session write failed",
			"session_id", s.id,
			"error", err,
		)
	}
}

// Close closes the session's transport. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.conn.Close(); err != nil {
		return oops.Code("SESSION_CLOSE_FAILED").
			With("session_id", s.id).
			Wrap(err)
	}
	return nil
}
