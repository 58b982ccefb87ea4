// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

// Package command provides the command registry, parser, and dispatch
// system.
package command

import (
	"context"

	"github.com/parleyd/parleyd/internal/auth"
	"github.com/parleyd/parleyd/internal/core"
)

// Handler is the function signature for command handlers.
type Handler func(ctx context.Context, exec *Execution) error

// Entry represents a registered command.
type Entry struct {
	Name    string  // canonical keyword (e.g. "send")
	Handler Handler // command implementation
	Help    string  // short description (one line)
	Usage   string  // usage pattern (e.g. "send [all|UserID] [message]")
}

// Execution provides context for one command invocation.
type Execution struct {
	Session  *core.Session
	Args     string
	Services *Services
}

// Services provides access to core services for command handlers.
// Handlers MUST NOT store references to services beyond execution.
type Services struct {
	Sessions *core.Registry // live session set
	Router   *core.Router   // message fan-out
	Auth     *auth.Service  // credential verification and registration
	Hashing  *auth.Pool     // worker pool for slow hash operations
	Commands *Registry      // registered commands, for help output
}
