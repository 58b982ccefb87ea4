// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package handlers

import (
	"context"
	"log/slog"

	"github.com/parleyd/parleyd/internal/command"
)

// SendHandler routes a chat message: "send all <msg>" fans out to every
// authenticated session, "send <user> <msg>" delivers to every session
// holding that username.
func SendHandler(ctx context.Context, exec *command.Execution) error {
	sess := exec.Session
	svc := exec.Services

	from := sess.Username()
	if from == "" {
		sess.Send("Denied.  Please log in first.")
		slog.InfoContext(ctx, "anonymous send denied", "session_id", sess.ID())
		return nil
	}

	target, msg := command.SplitArg(exec.Args)
	if target == "" || msg == "" {
		sess.Send("Cannot send empty message.")
		return nil
	}

	switch target {
	case "all":
		svc.Router.BroadcastAuthenticated(from + ": " + msg)
		slog.InfoContext(ctx, "chat broadcast",
			"from", from,
			"session_id", sess.ID(),
		)
	case from:
		sess.Send("Message from yourself: " + msg)
	default:
		delivered := svc.Router.DeliverTo(target, from+" (to you): "+msg+" ")
		if delivered == 0 {
			sess.Send(target + " is not on this server. ")
			return nil
		}
		sess.Send(from + " (to " + target + "): " + msg)
		slog.InfoContext(ctx, "chat message",
			"from", from,
			"to", target,
			"recipients", delivered,
		)
	}
	return nil
}
