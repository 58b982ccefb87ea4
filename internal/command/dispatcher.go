// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package command

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/parleyd/parleyd/internal/observability"
)

var tracer = otel.Tracer("parleyd/command")

// Dispatcher handles command parsing and execution.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a new command dispatcher with the given registry.
func NewDispatcher(registry *Registry) (*Dispatcher, error) {
	if registry == nil {
		return nil, ErrNilRegistry()
	}
	return &Dispatcher{registry: registry}, nil
}

// Dispatch parses and executes one line of input against a session.
func (d *Dispatcher) Dispatch(ctx context.Context, input string, exec *Execution) (err error) {
	if exec.Session == nil {
		return ErrNoSession()
	}
	if exec.Services == nil {
		return ErrNilServices()
	}

	parsed, err := Parse(input)
	if err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("command.name", parsed.Name),
			attribute.Int64("session.id", exec.Session.ID()),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	entry, ok := d.registry.Get(parsed.Name)
	if !ok {
		observability.RecordCommand("unknown")
		err = ErrUnknownCommand(parsed.Name)
		return err
	}

	observability.RecordCommand(parsed.Name)

	exec.Args = parsed.Args
	err = entry.Handler(ctx, exec)
	if err != nil {
		slog.WarnContext(ctx, "command execution failed",
			"command", parsed.Name,
			"session_id", exec.Session.ID(),
			"error", err,
		)
	}
	return err
}
