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

// Inbox Actions — Historical Backfill Command
//
// Standalone CLI tool that scans historical emails from configured
// accounts within a lookback window and extracts actions from them.
// Intended for seeding data on new deployments.
//
// Usage:
//
//	go run ./cmd/backfill/ [--accounts alias1,alias2] [--since 168h] [--max 500]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

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

	// --- CLI Flags ---
	accountsFlag := flag.String("accounts", "", "Comma-separated account aliases (optional; empty = all configured accounts)")
	sinceFlag := flag.String("since", "168h", "Lookback duration (e.g. 168h for 1 week, 720h for 30 days)")
	maxFlag := flag.Int("max", 500, "Maximum messages fetched per account")
	flag.Parse()

	sinceDuration, err := time.ParseDuration(*sinceFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --since duration %q: %v\n", *sinceFlag, err)
		os.Exit(1)
	}

	slog.Info("starting historical backfill", "since", sinceDuration)

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// --- Resolve accounts ---
	selected := cfg.Accounts
	if *accountsFlag != "" {
		wanted := make(map[string]bool)
		for _, alias := range strings.Split(*accountsFlag, ",") {
			if alias = strings.TrimSpace(alias); alias != "" {
				wanted[alias] = true
			}
		}

		selected = nil
		for _, a := range cfg.Accounts {
			if wanted[a.Alias] {
				selected = append(selected, a)
			}
		}
		if len(selected) == 0 {
			slog.Error("no matching accounts in configuration", "accounts", *accountsFlag)
			os.Exit(1)
		}
	}

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

	actions, err := store.NewStore(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise action store", "error", err)
		os.Exit(1)
	}

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	publisher := digest.NewPublisher(rdb, cfg.DigestsQueue)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	// --- Dedup Filter ---
	filter := dedup.NewFilter(rdb)

	// --- Build email sources ---
	var accounts []isync.Account
	for _, a := range selected {
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
	}

	if len(accounts) == 0 {
		slog.Error("no usable email sources")
		os.Exit(1)
	}

	// --- Run Backfill ---
	// The backfill is one scan with the lookback widened and the caps
	// raised; digests are left to the long-running service.
	runner := isync.NewRunner(isync.RunnerConfig{
		Accounts:   accounts,
		Store:      actions,
		Dedup:      filter,
		Publisher:  publisher,
		Lookback:   sinceDuration,
		MaxFetch:   *maxFlag,
		MaxAnalyze: *maxFlag,
		DigestHour: cfg.DigestHour,
	})

	result, err := runner.RunOnce(ctx)
	if err != nil {
		slog.Error("backfill failed", "error", err)
		os.Exit(1)
	}

	// --- Summary ---
	slog.Info("backfill complete",
		"total_actions", result.TotalActions,
		"elapsed", result.Elapsed,
	)

	for _, ar := range result.AccountResults {
		slog.Info("account result",
			"account", ar.Alias,
			"fetched", ar.Fetched,
			"skipped", ar.Skipped,
			"analyzed", ar.Analyzed,
			"actions", ar.Actions,
			"errors", ar.Errors,
		)
	}
}
