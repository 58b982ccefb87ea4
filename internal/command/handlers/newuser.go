// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package handlers

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/parleyd/parleyd/internal/auth"
	"github.com/parleyd/parleyd/internal/command"
	"github.com/parleyd/parleyd/internal/observability"
	"github.com/parleyd/parleyd/pkg/errutil"
)

// NewUserHandler registers a new account and authenticates the session with
// it. Policy checks run inline so bad requests get an immediate reply; the
// hash and the durable append run on the pool.
func NewUserHandler(ctx context.Context, exec *command.Execution) error {
	sess := exec.Session
	svc := exec.Services

	if sess.Authenticated() {
		sess.Send("Already logged in.")
		slog.InfoContext(ctx, "newuser while authenticated",
			"session_id", sess.ID(),
			"username", sess.Username(),
		)
		return nil
	}

	username, rest := command.SplitArg(exec.Args)
	password, _ := command.SplitArg(rest)

	if username == "" || password == "" {
		sess.Send("You cannot create a new user with empty information.")
		slog.InfoContext(ctx, "empty newuser command", "session_id", sess.ID())
		return nil
	}
	if len(username) >= auth.MaxUsernameLength {
		sess.Send("UserID is too long.")
		slog.InfoContext(ctx, "newuser username too long", "session_id", sess.ID())
		return nil
	}
	if username == auth.ReservedUsername {
		sess.Send("UserID contains a disallowed phrase.")
		slog.InfoContext(ctx, "newuser with reserved username", "session_id", sess.ID())
		return nil
	}
	if err := auth.ValidatePassword(password); err != nil {
		sess.Send("Password length must be between 8 and 64 characters.")
		slog.InfoContext(ctx, "newuser password outside policy", "session_id", sess.ID())
		return nil
	}
	if svc.Auth.UsernameTaken(username) {
		sess.Send("UserID already exists.")
		slog.InfoContext(ctx, "newuser username taken",
			"session_id", sess.ID(),
			"username", username,
		)
		return nil
	}

	sid := sess.ID()
	token := svc.Hashing.Submit("newuser", sid, func(token ulid.ULID) {
		finishNewUser(svc, sid, username, password, token)
	})
	slog.DebugContext(ctx, "registration queued",
		"session_id", sid,
		"token", token.String(),
	)
	return nil
}

// finishNewUser runs on a hash worker. The taken check repeats inside
// Store.Append under its lock, so two racing registrations of the same
// username cannot both succeed.
func finishNewUser(svc *command.Services, sessionID int64, username, password string, token ulid.ULID) {
	err := svc.Auth.Register(username, password)

	sess, ok := svc.Sessions.Get(sessionID)
	if !ok {
		slog.Debug("discarding registration result for closed session",
			"session_id", sessionID,
			"token", token.String(),
		)
		return
	}

	if err != nil {
		observability.RecordAuth("newuser", "failure")
		if oopsErr, isOops := oops.AsOops(err); isOops && oopsErr.Code() == auth.CodeUsernameTaken {
			errutil.LogWarn(slog.Default(), "registration lost username race", err)
			sess.Send("UserID already exists.")
			return
		}
		errutil.LogError(slog.Default(), "registration failed", err)
		sess.Send("Error saving login.  Please contact server admin.")
		return
	}

	if setErr := sess.SetUsername(username); setErr != nil {
		// The credential is saved either way; the session just can't
		// adopt it because something else authenticated it first.
		sess.Send("Already logged in.")
		return
	}

	observability.RecordAuth("newuser", "success")
	slog.Info("user registered",
		"username", username,
		"session_id", sessionID,
	)
	svc.Router.Broadcast(username + " logged in with a new account.")
}
