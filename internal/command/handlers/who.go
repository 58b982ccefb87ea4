// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package handlers

import (
	"context"
	"fmt"

	"github.com/parleyd/parleyd/internal/command"
)

// WhoHandler lists the authenticated sessions. Anonymous sessions may ask;
// they just never appear in the listing.
func WhoHandler(_ context.Context, exec *command.Execution) error {
	sess := exec.Session

	count := 0
	for _, other := range exec.Services.Sessions.All() {
		name := other.Username()
		if name == "" {
			continue
		}
		sess.Send(fmt.Sprintf("%s\t\tClient %d\t%s", name, other.ID(), other.RemoteAddr()))
		count++
	}
	sess.Send(fmt.Sprintf("%d logged in users.", count))
	return nil
}
