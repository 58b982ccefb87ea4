// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package command

import (
	"github.com/samber/oops"
)

// Error codes for command dispatch failures.
const (
	CodeEmptyInput     = "EMPTY_INPUT"
	CodeUnknownCommand = "UNKNOWN_COMMAND"
	CodeNoSession      = "NO_SESSION"
	CodeNilServices    = "NIL_SERVICES"
	CodeNilRegistry    = "NIL_REGISTRY"
)

// ErrUnknownCommand creates an error for an unrecognized keyword.
func ErrUnknownCommand(cmd string) error {
	return oops.Code(CodeUnknownCommand).
		With("command", cmd).
		Errorf("unknown command: %s", cmd)
}

// ErrNoSession creates an error for a dispatch without a session.
func ErrNoSession() error {
	return oops.Code(CodeNoSession).
		Errorf("no session associated with execution")
}

// ErrNilServices creates an error for a dispatch without wired services.
func ErrNilServices() error {
	return oops.Code(CodeNilServices).
		Errorf("execution services are nil")
}

// ErrNilRegistry creates an error for a dispatcher built without a
// registry.
func ErrNilRegistry() error {
	return oops.Code(CodeNilRegistry).
		Errorf("registry is required")
}

// ClientMessage extracts the single client-facing reply line for a
// dispatch error. Handlers reply on their own and return nil, so every
// error that reaches the connection handler gets the reply the protocol
// has always used for input it cannot act on.
func ClientMessage(err error) string {
	if err == nil {
		return ""
	}
	return "Command not understood."
}
