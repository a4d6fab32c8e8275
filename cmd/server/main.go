// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

// Package main is the entry point for the audit log server.
//
// The server initializes components in order:
//
//  1. Configuration: Koanf v2 layered loading (defaults, YAML file, env)
//  2. Logging: process-wide zerolog logger
//  3. Store: BadgerDB-backed primary log
//  4. Engine: audit service with in-memory counting aggregates, restored
//     from the primary log by a full backfill before serving
//  5. Supervisor tree: retention sweeper and HTTP server under suture
//
// Graceful shutdown on SIGINT/SIGTERM: the HTTP server drains in-flight
// requests, then the store is closed.
//
// # Configuration
//
// Environment variables (highest priority):
//   - AUDIT_PORT, AUDIT_HOST: HTTP listener
//   - AUDIT_STORE_PATH: Badger directory (AUDIT_STORE_IN_MEMORY=true for dev)
//   - AUDIT_SWEEP_INTERVAL: retention sweeper period (0 disables)
//   - LOG_LEVEL, LOG_FORMAT: logging
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robertalv/audit-log/internal/api"
	"github.com/robertalv/audit-log/internal/audit"
	"github.com/robertalv/audit-log/internal/config"
	"github.com/robertalv/audit-log/internal/logging"
	"github.com/robertalv/audit-log/internal/store"
	"github.com/robertalv/audit-log/internal/supervisor"
	"github.com/robertalv/audit-log/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("store_path", cfg.Store.Path).
		Bool("in_memory", cfg.Store.InMemory).
		Int("port", cfg.Server.Port).
		Msg("Starting audit log server")

	var st *store.Store
	if cfg.Store.InMemory {
		st, err = store.OpenInMemory()
	} else {
		st, err = store.Open(cfg.Store.Path)
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	svc, err := audit.New(st)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build audit engine")
	}

	// Restore the counting aggregates from the primary log before taking
	// traffic; queries must never observe partial counts.
	processed, err := svc.BackfillAll(cfg.Store.BackfillBatchSize)
	if err != nil {
		logging.Fatal().Err(err).Msg("Startup backfill failed")
	}
	logging.Info().Int("events", processed).Msg("Aggregates restored from primary log")

	router := api.NewRouter(svc, cfg.API)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddEngineService(services.NewRetentionService(svc, cfg.Retention.SweepInterval, cfg.Retention.BatchSize))
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.Timeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}
	logging.Info().Msg("Shutdown complete")
}
