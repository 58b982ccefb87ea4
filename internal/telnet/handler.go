// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package telnet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/parleyd/parleyd/internal/command"
	"github.com/parleyd/parleyd/internal/core"
)

// ConnectionHandler handles a single client connection: banner, line loop,
// dispatch, teardown. All writes go through the session so they stay
// serialized with fan-out deliveries from other goroutines.
type ConnectionHandler struct {
	reader     *bufio.Reader
	session    *core.Session
	dispatcher *command.Dispatcher
	services   *command.Services
}

// NewConnectionHandler creates a handler for an admitted connection.
func NewConnectionHandler(conn net.Conn, sess *core.Session, dispatcher *command.Dispatcher, services *command.Services) *ConnectionHandler {
	return &ConnectionHandler{
		reader:     bufio.NewReader(conn),
		session:    sess,
		dispatcher: dispatcher,
		services:   services,
	}
}

// Handle processes the connection until EOF, a fatal transport error, or an
// exit command closes it. Teardown is idempotent with the exit handler's
// own removal.
func (h *ConnectionHandler) Handle(ctx context.Context) {
	defer func() {
		h.services.Sessions.Remove(h.session.ID())
		if err := h.session.Close(); err != nil {
			slog.Debug("error closing session transport",
				"session_id", h.session.ID(),
				"error", err,
			)
		}
		slog.Info("client disconnected",
			"session_id", h.session.ID(),
			"remote_addr", h.session.RemoteAddr(),
		)
	}()

	slog.Info("client connected",
		"session_id", h.session.ID(),
		"remote_addr", h.session.RemoteAddr(),
	)
	h.session.Send(fmt.Sprintf("Welcome to the server. You are Client %d.", h.session.ID()))
	h.session.Send("Type help for command list.")

	for {
		line, err := h.reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.Debug("connection read error",
					"session_id", h.session.ID(),
					"error", err,
				)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		h.processLine(ctx, line)
	}
}

// processLine dispatches one input line. Handlers reply to the client
// themselves; any error that comes back here means the input couldn't be
// acted on at all, which gets exactly one reply line.
func (h *ConnectionHandler) processLine(ctx context.Context, line string) {
	exec := &command.Execution{
		Session:  h.session,
		Services: h.services,
	}
	if err := h.dispatcher.Dispatch(ctx, line, exec); err != nil {
		if msg := command.ClientMessage(err); msg != "" {
			h.session.Send(msg)
		}
	}
}
