// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

// Package errutil provides structured logging helpers for oops errors.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// attrs extracts structured attributes from an error. For oops errors it
// surfaces the message, code, and context; plain errors log as a string.
func attrs(err error) []any {
	if oopsErr, ok := oops.AsOops(err); ok {
		out := []any{"error", oopsErr.Error()}
		if code := oopsErr.Code(); code != "" {
			out = append(out, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			out = append(out, "context", ctx)
		}
		return out
	}
	return []any{"error", err}
}

// LogError logs an error with structured context at error level.
func LogError(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, attrs(err)...)
}

// LogWarn logs an error with structured context at warn level. Used for
// expected operational failures such as rejected logins.
func LogWarn(logger *slog.Logger, msg string, err error) {
	logger.Warn(msg, attrs(err)...)
}
