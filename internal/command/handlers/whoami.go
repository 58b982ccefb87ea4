// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package handlers

import (
	"context"
	"fmt"

	"github.com/parleyd/parleyd/internal/command"
)

// WhoAmIHandler reports the session's own identity: the username when
// authenticated, otherwise the server-assigned client number.
func WhoAmIHandler(_ context.Context, exec *command.Execution) error {
	sess := exec.Session

	if name := sess.Username(); name != "" {
		sess.Send(name)
		return nil
	}
	sess.Send(fmt.Sprintf("Client %d", sess.ID()))
	return nil
}
