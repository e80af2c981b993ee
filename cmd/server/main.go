// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Inbox Actions — Extraction Service
//
// Entry point for the inbox actions service. It:
//  1. Loads account configuration from config.yaml
//  2. Connects to PostgreSQL and Redis
//  3. Builds an email source per configured account (Gmail, IMAP, or M365)
//  4. Runs the periodic inbox scan and the cleanup loop
//  5. Serves the actions HTTP API
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/inboxactions/internal/api"
	"github.com/bcem/inboxactions/internal/config"
	"github.com/bcem/inboxactions/internal/dedup"
	"github.com/bcem/inboxactions/internal/digest"
	"github.com/bcem/inboxactions/internal/provider/gmail"
	"github.com/bcem/inboxactions/internal/provider/graph"
	"github.com/bcem/inboxactions/internal/provider/imapsrc"
	"github.com/bcem/inboxactions/internal/store"
	isync "github.com/bcem/inboxactions/internal/sync"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting inbox actions service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"accounts", len(cfg.Accounts),
		"sync_interval", cfg.SyncInterval,
		"digest_hour", cfg.DigestHour,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	if err := pgPool.Ping(ctx); err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)

	publisher := digest.NewPublisher(rdb, cfg.DigestsQueue)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	// --- Dedup Filter ---
	filter := dedup.NewFilter(rdb)

	// --- Action Store (Postgres) ---
	actions, err := store.NewStore(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise action store", "error", err)
		os.Exit(1)
	}

	// --- Build email sources per account ---
	accounts, err := buildAccounts(ctx, cfg.Accounts)
	if err != nil {
		slog.Error("failed to build email sources", "error", err)
		os.Exit(1)
	}

	// --- Sync Runner ---
	runner := isync.NewRunner(isync.RunnerConfig{
		Accounts:     accounts,
		Store:        actions,
		Dedup:        filter,
		Publisher:    publisher,
		Lookback:     cfg.SyncLookback,
		MaxFetch:     cfg.MaxFetch,
		MaxAnalyze:   cfg.MaxAnalyze,
		SyncInterval: cfg.SyncInterval,
		DigestHour:   cfg.DigestHour,
	})

	// --- Phase 1: Start API server ---
	handler := api.NewHandler(actions)
	ready, err := api.Serve(ctx, cfg.Port, handler)
	if err != nil {
		slog.Error("failed to start API server", "error", err)
		os.Exit(1)
	}
	<-ready

	// --- Phase 2: Initial scan, then periodic loops ---
	if _, err := runner.RunOnce(ctx); err != nil {
		slog.Error("initial inbox scan failed", "error", err)
	}
	runner.StartPeriodicSync(ctx)

	pruner := isync.NewPruner(actions, cfg.CleanupInterval, cfg.Retention)
	pruner.Start(ctx)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	slog.Info("received shutdown signal", "signal", sig)
	cancel() // Stop all background goroutines

	runner.Stop()
	pruner.Stop()

	rdb.Close()
	pgPool.Close()

	slog.Info("inbox actions service stopped")
}

// buildAccounts constructs one email source per configured account.
func buildAccounts(ctx context.Context, configs []config.AccountConfig) ([]isync.Account, error) {
	var accounts []isync.Account

	for _, a := range configs {
		account := isync.Account{Alias: a.Alias, UserID: a.UserID}

		switch a.Provider {
		case "gmail":
			src, err := gmail.NewSource(ctx, a.Alias, a.Gmail)
			if err != nil {
				slog.Error("gmail source init failed", "account", a.Alias, "error", err)
				continue
			}
			account.Source = src
		case "imap":
			account.Source = imapsrc.NewSource(a.Alias, a.IMAP)
		case "m365":
			account.Source = graph.NewSource(ctx, a.Alias, a.Graph)
		}

		accounts = append(accounts, account)
		slog.Info("email source ready", "account", a.Alias, "provider", a.Provider)
	}

	if len(accounts) == 0 {
		return nil, fmt.Errorf("no usable email sources")
	}

	return accounts, nil
}
