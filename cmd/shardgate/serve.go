// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shardgate Contributors

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

	"github.com/shardgate/shardgate/internal/account"
	accountpg "github.com/shardgate/shardgate/internal/account/postgres"
	"github.com/shardgate/shardgate/internal/config"
	"github.com/shardgate/shardgate/internal/httpapi"
	"github.com/shardgate/shardgate/internal/logging"
	"github.com/shardgate/shardgate/internal/observability"
	shardpg "github.com/shardgate/shardgate/internal/shard/postgres"
	"github.com/shardgate/shardgate/internal/store"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account and shard API server",
		Long: `Start the HTTP API server for account authentication, registration,
password changes, and shard data reads, plus the metrics/health endpoint.`,
		RunE: runServe,
	}

	// Dotted flag names map directly onto config keys. Flag defaults
	// mirror config defaults so unset flags never override file values.
	defaults := config.Default()
	cmd.Flags().String("server.addr", defaults.Server.Addr, "API listen address")
	cmd.Flags().String("metrics.addr", defaults.Metrics.Addr, "metrics/health HTTP address")
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().String("log.format", defaults.Log.Format, "log format (json or text)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("log.format must be 'json' or 'text', got %q", cfg.Log.Format)
	}
	logging.SetDefault("shardgate", version, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	slog.Info("connecting to database")
	db, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	accounts := accountpg.NewAccountRepository(db)
	characters := shardpg.NewCharacterRepository(db)
	guilds := shardpg.NewGuildRepository(db)

	tokens, err := account.NewTokenService([]byte(cfg.Token.Secret))
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	accountSvc, err := account.NewService(accounts, account.NewBcryptHasher(), tokens, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create account service: %w", err)
	}

	obsServer := observability.NewServer(cfg.Metrics.Addr, db.Ready)
	obsErrChan, err := obsServer.Start()
	if err != nil {
		return fmt.Errorf("failed to start observability server: %w", err)
	}
	go monitorServerErrors(ctx, cancel, obsErrChan, "observability")

	handler, err := httpapi.NewHandler(accountSvc, tokens, characters, guilds, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create api handler: %w", err)
	}
	apiServer, err := httpapi.NewServer(cfg.Server.Addr, handler, obsServer.Metrics())
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}
	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopServer(obsServer.Stop, "observability")
		return fmt.Errorf("failed to start api server: %w", err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Shardgate server started")
	slog.Info("server ready",
		"api_addr", apiServer.Addr(),
		"metrics_addr", obsServer.Addr(),
	)

	// Wait for shutdown signal or server failure
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")
	stopServer(apiServer.Stop, "api")
	stopServer(obsServer.Stop, "observability")
	slog.Info("shutdown complete")
	return nil
}

// stopServer stops a server with a bounded timeout, logging failures.
func stopServer(stop func(context.Context) error, name string) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := stop(shutdownCtx); err != nil {
		slog.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// This ensures that server failures trigger graceful shutdown of the entire process.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
