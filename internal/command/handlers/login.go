// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package handlers

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/parleyd/parleyd/internal/auth"
	"github.com/parleyd/parleyd/internal/command"
	"github.com/parleyd/parleyd/internal/observability"
	"github.com/parleyd/parleyd/pkg/errutil"
)

// LoginHandler authenticates an anonymous session against the credential
// store. Verification is slow by design, so it is submitted to the hash
// pool; the session keeps receiving traffic while it waits.
func LoginHandler(ctx context.Context, exec *command.Execution) error {
	sess := exec.Session
	svc := exec.Services

	if sess.Authenticated() {
		sess.Send("Already logged in.")
		slog.InfoContext(ctx, "relogin attempt",
			"session_id", sess.ID(),
			"username", sess.Username(),
		)
		return nil
	}

	username, rest := command.SplitArg(exec.Args)
	password, _ := command.SplitArg(rest)

	if username == "" || password == "" {
		sess.Send("You cannot login with empty information.")
		slog.InfoContext(ctx, "empty login command", "session_id", sess.ID())
		return nil
	}
	if username == auth.ReservedUsername {
		sess.Send("You cannot login with a username containing a disallowed phrase.")
		slog.InfoContext(ctx, "login with reserved username", "session_id", sess.ID())
		return nil
	}

	sid := sess.ID()
	token := svc.Hashing.Submit("login", sid, func(token ulid.ULID) {
		finishLogin(svc, sid, username, password, token)
	})
	slog.DebugContext(ctx, "login verification queued",
		"session_id", sid,
		"token", token.String(),
	)
	return nil
}

// finishLogin runs on a hash worker. It re-resolves the session by id so a
// client that disconnected mid-verification gets its reply discarded
// rather than written to a dead transport.
func finishLogin(svc *command.Services, sessionID int64, username, password string, token ulid.ULID) {
	err := svc.Auth.Authenticate(username, password)

	sess, ok := svc.Sessions.Get(sessionID)
	if !ok {
		slog.Debug("discarding login result for closed session",
			"session_id", sessionID,
			"token", token.String(),
		)
		return
	}

	if err != nil {
		observability.RecordAuth("login", "failure")
		// The reply is the same for unknown usernames and wrong
		// passwords; the error context carries the distinction.
		errutil.LogWarn(slog.Default(), "login failed", err)
		sess.Send("Username or password incorrect.")
		return
	}

	if setErr := sess.SetUsername(username); setErr != nil {
		// Another login or newuser won the race while we were hashing.
		sess.Send("Already logged in.")
		return
	}

	observability.RecordAuth("login", "success")
	slog.Info("user logged in",
		"username", username,
		"session_id", sessionID,
	)
	svc.Router.Broadcast(username + " logged in.")
}
