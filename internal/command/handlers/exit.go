// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parleyd/parleyd/internal/command"
)

// ExitHandler announces the departure to everyone else, then removes the
// session and closes its transport. Closing the transport is what unblocks
// the connection's read loop.
func ExitHandler(ctx context.Context, exec *command.Execution) error {
	sess := exec.Session
	svc := exec.Services

	notice := fmt.Sprintf("Client %d disconnected from room.", sess.ID())
	if name := sess.Username(); name != "" {
		notice = name + " logged out.  " + notice
	}
	svc.Router.BroadcastExcept(sess.ID(), notice)

	slog.InfoContext(ctx, "session exited",
		"session_id", sess.ID(),
		"username", sess.Username(),
	)

	svc.Sessions.Remove(sess.ID())
	if err := sess.Close(); err != nil {
		slog.WarnContext(ctx, "closing exited session",
			"session_id", sess.ID(),
			"error", err,
		)
	}
	return nil
}
