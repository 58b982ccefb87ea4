// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

// Package handlers implements the chat server's command set.
package handlers

import (
	"github.com/parleyd/parleyd/internal/command"
)

// RegisterAll registers every built-in command with the registry.
func RegisterAll(reg *command.Registry) error {
	entries := []command.Entry{
		{
			Name:    "login",
			Handler: LoginHandler,
			Help:    "log in with an existing account",
			Usage:   "login [UserID] [Password]",
		},
		{
			Name:    "newuser",
			Handler: NewUserHandler,
			Help:    "create an account and log in with it",
			Usage:   "newuser [UserID] [Password]",
		},
		{
			Name:    "logout",
			Handler: LogoutHandler,
			Help:    "log out but stay connected",
			Usage:   "logout",
		},
		{
			Name:    "exit",
			Handler: ExitHandler,
			Help:    "disconnect from the server",
			Usage:   "exit",
		},
		{
			Name:    "send",
			Handler: SendHandler,
			Help:    "send a message to a user, or to all",
			Usage:   "send [all|UserID] [message]",
		},
		{
			Name:    "who",
			Handler: WhoHandler,
			Help:    "list logged in users",
			Usage:   "who",
		},
		{
			Name:    "whoami",
			Handler: WhoAmIHandler,
			Help:    "show your own identity",
			Usage:   "whoami",
		},
		{
			Name:    "help",
			Handler: HelpHandler,
			Help:    "show this command list",
			Usage:   "help",
		},
	}

	for _, entry := range entries {
		if err := reg.Register(entry); err != nil {
			return err
		}
	}
	return nil
}
