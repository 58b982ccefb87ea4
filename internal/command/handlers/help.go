// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package handlers

import (
	"context"

	"github.com/parleyd/parleyd/internal/command"
)

// HelpHandler prints the command list, generated from the registry so new
// commands show up without touching this file.
func HelpHandler(_ context.Context, exec *command.Execution) error {
	sess := exec.Session

	sess.Send("Command list:")
	for _, entry := range exec.Services.Commands.All() {
		sess.Send("  " + entry.Usage + " - " + entry.Help)
	}
	return nil
}
