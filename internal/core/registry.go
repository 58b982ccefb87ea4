// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package core

import (
	"io"
	"sync"

	"github.com/samber/oops"
)

// CodeServerFull identifies a capacity rejection. It is a normal outcome,
// not a fault: the transport is notified and closed before any session
// bookkeeping happens.
const CodeServerFull = "SERVER_FULL"

// Registry owns the live set of connected sessions. It is the only
// component that creates or removes sessions. Ids increase monotonically
// and are never reused for the lifetime of the process.
type Registry struct {
	mu       sync.RWMutex
	max      int
	nextID   int64
	order    []int64
	sessions map[int64]*Session
}

// NewRegistry creates a registry bounded to maxSessions concurrent
// sessions.
func NewRegistry(maxSessions int) *Registry {
	return &Registry{
		max:      maxSessions,
		sessions: make(map[int64]*Session),
	}
}

// Admit creates and stores a session for conn, or rejects when the
// registry is at capacity. The capacity check, id allocation, and insert
// happen under one lock so concurrent accepts can never jointly overflow
// the bound.
func (r *Registry) Admit(conn io.WriteCloser, remoteAddr string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions)+1 > r.max {
		return nil, oops.Code(CodeServerFull).
			With("max_sessions", r.max).
			Errorf("session limit reached")
	}

	s := &Session{
		id:         r.nextID,
		remoteAddr: remoteAddr,
		conn:       conn,
	}
	r.nextID++
	r.sessions[s.id] = s
	r.order = append(r.order, s.id)
	return s, nil
}

// Remove deletes the session with the given id. Removing an unknown id is
// a no-op.
func (r *Registry) Remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	for i, sid := range r.order {
		if sid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the session with the given id, if still registered.
func (r *Registry) Get(id int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// All returns a snapshot of the live sessions in insertion order. The
// order is for human-readable listings only; callers must not rely on it
// for correctness.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Session, 0, len(r.sessions))
	for _, id := range r.order {
		result = append(result, r.sessions[id])
	}
	return result
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
