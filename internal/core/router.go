// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package core

// Router resolves message addressing to a set of session sinks.
//
// Fan-out works over a registry snapshot, so a session added or removed
// mid-broadcast either receives the whole message or none of it. Delivery
// to each recipient is fire and forget.
type Router struct {
	sessions *Registry
}

// NewRouter creates a router over the given registry.
func NewRouter(sessions *Registry) *Router {
	return &Router{sessions: sessions}
}

// Broadcast sends msg to every live session.
func (rt *Router) Broadcast(msg string) {
	for _, s := range rt.sessions.All() {
		s.Send(msg)
	}
}

// BroadcastAuthenticated sends msg to every authenticated session,
// including the sender if authenticated.
func (rt *Router) BroadcastAuthenticated(msg string) {
	for _, s := range rt.sessions.All() {
		if s.Authenticated() {
			s.Send(msg)
		}
	}
}

// BroadcastExcept sends msg to every session except the one with the
// given id.
func (rt *Router) BroadcastExcept(id int64, msg string) {
	for _, s := range rt.sessions.All() {
		if s.ID() != id {
			s.Send(msg)
		}
	}
}

// DeliverTo sends msg to every session whose username equals target and
// returns the number of recipients. Username uniqueness across sessions is
// deliberately not enforced, so multiple matches all receive the message.
func (rt *Router) DeliverTo(target, msg string) int {
	delivered := 0
	for _, s := range rt.sessions.All() {
		if s.Username() == target {
			s.Send(msg)
			delivered++
		}
	}
	return delivered
}
