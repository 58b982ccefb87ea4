// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package handlers

import (
	"context"
	"log/slog"

	"github.com/parleyd/parleyd/internal/command"
)

// LogoutHandler returns an authenticated session to anonymous without
// disconnecting it.
func LogoutHandler(ctx context.Context, exec *command.Execution) error {
	sess := exec.Session

	name, err := sess.ClearUsername()
	if err != nil {
		sess.Send("You are not logged in. ")
		return nil
	}

	slog.InfoContext(ctx, "user logged out",
		"username", name,
		"session_id", sess.ID(),
	)
	exec.Services.Router.Broadcast(name + " logged out.")
	return nil
}
