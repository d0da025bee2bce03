// Package main provides the CLI entry point for mcphost, a host process
// that mediates between chat traffic and tool-providing MCP subprocess
// servers under LLM direction.
//
// # Basic Usage
//
// Start the host:
//
//	mcphost serve --config mcphost.yaml
//
// # Environment Variables
//
// Configuration can be provided via environment variables; see
// internal/config for the full list. The important ones:
//
//   - MCPHOST_LLM_API_KEY, ANTHROPIC_API_KEY, OPENAI_API_KEY: LLM credential
//   - MCPHOST_LLM_PROVIDER: "anthropic" (default), "openai", "google" or "bedrock"
//   - MCPHOST_INVENTORY_PATH: path to the server inventory descriptor
//   - MCPHOST_LOG_LEVEL, MCPHOST_LOG_FILE: logging
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mcphost/host/internal/config"
	"github.com/mcphost/host/internal/logging"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "mcphost",
		Short:        "mcphost - LLM-directed host for MCP tool servers",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildValidateCmd(),
	)

	return rootCmd
}

func buildServeCmd() *cobra.Command {
	var (
		overlayPath string
		debug       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mcphost server",
		Long: `Start the mcphost server.

The server will:
1. Load and validate configuration from the environment (and an optional YAML overlay)
2. Spawn every MCP server named in the inventory descriptor
3. Start the HTTP surface: request-send, stream subscribe, /metrics, /healthz

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), overlayPath, debug)
		},
	}

	cmd.Flags().StringVarP(&overlayPath, "config", "c", "", "Path to an optional YAML configuration overlay")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func buildValidateCmd() *cobra.Command {
	var overlayPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate configuration without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithOverlay(overlayPath)
			if err != nil {
				return err
			}
			fmt.Printf("configuration OK: provider=%s model=%s inventory=%s\n", cfg.LLM.Provider, cfg.LLM.Model, cfg.Inventory.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&overlayPath, "config", "c", "", "Path to an optional YAML configuration overlay")
	return cmd
}

// runServe implements the serve command: config, component wiring, HTTP
// surface, and graceful shutdown on SIGINT/SIGTERM.
func runServe(ctx context.Context, overlayPath string, debug bool) error {
	cfg, err := config.LoadWithOverlay(overlayPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting mcphost",
		"version", version,
		"commit", commit,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	srv, err := newServer(app, logger)
	if err != nil {
		return fmt.Errorf("failed to build http server: %w", err)
	}

	if err := srv.start(); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}
	logger.Info("mcphost started", "addr", srv.addr)

	<-ctx.Done()
	logger.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.stop(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", "error", err)
	}
	app.close()

	logger.Info("mcphost stopped gracefully")
	return nil
}

// metricsRegistry wires a Collector into its own Prometheus registry so
// /metrics only ever exposes mcphost's own gauges and counters, not the
// process-default registry's Go runtime metrics.
func metricsRegistry(collector interface{ RegisterOn(prometheus.Registerer) error }) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := collector.RegisterOn(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
