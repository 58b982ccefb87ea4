// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/parleyd/parleyd/internal/auth"
	"github.com/parleyd/parleyd/internal/command"
	"github.com/parleyd/parleyd/internal/command/handlers"
	"github.com/parleyd/parleyd/internal/config"
	"github.com/parleyd/parleyd/internal/core"
	"github.com/parleyd/parleyd/internal/logging"
	"github.com/parleyd/parleyd/internal/observability"
	"github.com/parleyd/parleyd/internal/telnet"
)

const shutdownTimeout = 5 * time.Second

// newServeCmd creates the serve subcommand with all flags configured.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		Long: `Start the chat server: the TCP chat listener plus the
observability HTTP endpoints (metrics and health probes).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}

	def := config.Default()
	cmd.Flags().String("listen-addr", def.ListenAddr, "chat listen address")
	cmd.Flags().Int("max-clients", def.MaxClients, "maximum concurrent client sessions")
	cmd.Flags().String("credentials-file", def.CredentialsFile, "credential store file path")
	cmd.Flags().String("metrics-addr", def.MetricsAddr, "metrics/health HTTP address")
	cmd.Flags().String("log-format", def.LogFormat, "log format (json or text)")
	cmd.Flags().Int("hash-workers", def.HashWorkers, "password hashing worker count")

	return cmd
}

// runServe wires the server together and blocks until a shutdown signal.
func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.SetDefault("parleyd", version, cfg.LogFormat)

	slog.Info("starting parleyd",
		"listen_addr", cfg.ListenAddr,
		"max_clients", cfg.MaxClients,
		"credentials_file", cfg.CredentialsFile,
		"hash_workers", cfg.HashWorkers,
	)

	store, err := auth.OpenStore(cfg.CredentialsFile)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	authService := auth.NewService(store, auth.NewArgon2idHasher())
	hashPool := auth.NewPool(cfg.HashWorkers)
	defer hashPool.Close()

	sessions := core.NewRegistry(cfg.MaxClients)
	router := core.NewRouter(sessions)

	commands := command.NewRegistry()
	if err := handlers.RegisterAll(commands); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	dispatcher, err := command.NewDispatcher(commands)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	services := &command.Services{
		Sessions: sessions,
		Router:   router,
		Auth:     authService,
		Hashing:  hashPool,
		Commands: commands,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obsServer := observability.NewServer(cfg.MetricsAddr, func() bool { return true })
	obsErrCh, err := obsServer.Start()
	if err != nil {
		return fmt.Errorf("failed to start observability server: %w", err)
	}
	go func() {
		if obsErr := <-obsErrCh; obsErr != nil {
			slog.Error("observability server error", "error", obsErr)
			cancel()
		}
	}()

	chatServer := telnet.NewServer(cfg.ListenAddr, dispatcher, services, obsServer.Metrics())
	chatErrCh := make(chan error, 1)
	go func() {
		chatErrCh <- chatServer.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case runErr := <-chatErrCh:
		if runErr != nil {
			slog.Error("chat server error", "error", runErr)
		}
		cancel()
		stopObservability(obsServer)
		return runErr
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")
	cancel()

	// Run returns once the listener is closed and handlers drain.
	if runErr := <-chatErrCh; runErr != nil {
		slog.Warn("chat server shutdown error", "error", runErr)
	}

	stopObservability(obsServer)

	slog.Info("shutdown complete")
	return nil
}

func stopObservability(obsServer *observability.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := obsServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}
