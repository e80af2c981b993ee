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

// Package sync drives the periodic inbox scan. Each run fetches recent
// messages per account, skips ones already seen, runs action extraction
// on the remainder, and persists the results. A daily digest job is
// queued per user once new actions have landed.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bcem/inboxactions/internal/digest"
	"github.com/bcem/inboxactions/internal/extract"
	"github.com/bcem/inboxactions/internal/models"
	"github.com/bcem/inboxactions/internal/provider"
)

// ActionStore is the persistence interface the runner needs.
// Implemented by store.Store.
type ActionStore interface {
	Insert(ctx context.Context, userID string, a extract.Action) (bool, error)
	CountByStatus(ctx context.Context, userID string) (map[string]int, error)
}

// DedupFilter reports whether a message has been seen before.
// Implemented by dedup.Filter.
type DedupFilter interface {
	IsNew(ctx context.Context, messageID string) (bool, error)
}

// DigestPublisher queues digest notification jobs.
// Implemented by digest.Publisher.
type DigestPublisher interface {
	PublishDigest(ctx context.Context, job digest.Job) error
}

// Account binds a configured mailbox to its email source and owner.
type Account struct {
	Alias  string
	UserID string
	Source provider.Source
}

// AccountResult tracks per-account scan progress.
type AccountResult struct {
	Alias    string
	Fetched  int
	Skipped  int
	Analyzed int
	Actions  int
	Errors   int
}

// RunResult summarises a completed scan across all accounts.
type RunResult struct {
	AccountResults []AccountResult
	TotalActions   int
	Elapsed        time.Duration
}

// Runner performs inbox scans and schedules digests.
type Runner struct {
	accounts  []Account
	store     ActionStore
	dedup     DedupFilter
	publisher DigestPublisher

	lookback   time.Duration
	maxFetch   int // messages listed per account per run
	maxAnalyze int // messages run through extraction per account per run

	syncInterval time.Duration
	digestHour   int

	// lastDigestDate guards against sending more than one digest per
	// user per day.
	mu             sync.Mutex
	lastDigestDate string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RunnerConfig holds dependencies for the sync runner.
type RunnerConfig struct {
	Accounts     []Account
	Store        ActionStore
	Dedup        DedupFilter
	Publisher    DigestPublisher
	Lookback     time.Duration
	MaxFetch     int
	MaxAnalyze   int
	SyncInterval time.Duration
	DigestHour   int
}

// NewRunner creates a sync runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		accounts:     cfg.Accounts,
		store:        cfg.Store,
		dedup:        cfg.Dedup,
		publisher:    cfg.Publisher,
		lookback:     cfg.Lookback,
		maxFetch:     cfg.MaxFetch,
		maxAnalyze:   cfg.MaxAnalyze,
		syncInterval: cfg.SyncInterval,
		digestHour:   cfg.DigestHour,
	}
}

// RunOnce scans every configured account once and returns a summary.
// Account failures are logged and do not abort the run.
func (r *Runner) RunOnce(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	since := start.UTC().Add(-r.lookback)

	slog.Info("starting inbox scan",
		"accounts", len(r.accounts),
		"since", since.Format(time.RFC3339),
	)

	result := &RunResult{}
	touched := make(map[string]int) // userID -> new actions this run

	for _, account := range r.accounts {
		ar, err := r.scanAccount(ctx, account, since, touched)
		if err != nil {
			slog.Error("inbox scan failed for account",
				"account", account.Alias,
				"error", err,
			)
			ar.Errors++
		}

		result.AccountResults = append(result.AccountResults, ar)
		result.TotalActions += ar.Actions
	}

	result.Elapsed = time.Since(start)

	slog.Info("inbox scan complete",
		"total_actions", result.TotalActions,
		"elapsed", result.Elapsed,
	)

	return result, nil
}

// scanAccount fetches, dedups, extracts, and persists for one account.
func (r *Runner) scanAccount(ctx context.Context, account Account, since time.Time, touched map[string]int) (AccountResult, error) {
	ar := AccountResult{Alias: account.Alias}

	messages, err := account.Source.FetchSince(ctx, since, r.maxFetch)
	if err != nil {
		return ar, fmt.Errorf("fetch messages: %w", err)
	}
	ar.Fetched = len(messages)

	for _, msg := range messages {
		if ar.Analyzed >= r.maxAnalyze {
			slog.Debug("analysis cap reached",
				"account", account.Alias,
				"cap", r.maxAnalyze,
			)
			break
		}

		isNew, err := r.dedup.IsNew(ctx, account.Alias+":"+msg.MessageID)
		if err != nil {
			slog.Warn("dedup check failed", "error", err)
		} else if !isNew {
			ar.Skipped++
			continue
		}

		ar.Analyzed++
		inserted, err := r.processMessage(ctx, account.UserID, msg)
		if err != nil {
			slog.Warn("message processing failed",
				"account", account.Alias,
				"message_id", msg.MessageID,
				"error", err,
			)
			ar.Errors++
			continue
		}

		ar.Actions += inserted
		touched[account.UserID] += inserted
	}

	slog.Info("account scan complete",
		"account", account.Alias,
		"fetched", ar.Fetched,
		"skipped", ar.Skipped,
		"analyzed", ar.Analyzed,
		"actions", ar.Actions,
	)

	return ar, nil
}

// processMessage runs extraction over one email and persists every
// resulting action. Returns the number of newly inserted rows.
func (r *Runner) processMessage(ctx context.Context, userID string, msg models.EmailMessage) (int, error) {
	email := extract.EmailContext{
		From:       msg.From.Address,
		Subject:    msg.Subject,
		Body:       msg.PlainText(),
		ReceivedAt: msg.ReceivedAt,
		MessageID:  msg.MessageID,
	}

	inserted := 0
	for _, action := range extract.Extract(email) {
		ok, err := r.store.Insert(ctx, userID, action)
		if err != nil {
			return inserted, fmt.Errorf("persist action %q: %w", action.Title, err)
		}
		if ok {
			inserted++
		}
	}

	return inserted, nil
}

// maybeSendDigests publishes one digest per user once the configured
// local hour has been reached, at most once per calendar day.
func (r *Runner) maybeSendDigests(ctx context.Context, now time.Time) {
	if now.Hour() < r.digestHour {
		return
	}

	today := now.Format("2006-01-02")

	r.mu.Lock()
	if r.lastDigestDate == today {
		r.mu.Unlock()
		return
	}
	r.lastDigestDate = today
	r.mu.Unlock()

	// One digest per distinct user, not per account.
	seen := make(map[string]bool)
	for _, account := range r.accounts {
		if seen[account.UserID] {
			continue
		}
		seen[account.UserID] = true

		counts, err := r.store.CountByStatus(ctx, account.UserID)
		if err != nil {
			slog.Error("digest count failed", "user", account.UserID, "error", err)
			continue
		}

		pending := counts["todo"]
		if pending == 0 {
			continue
		}

		job := digest.Job{
			UserID:     account.UserID,
			PendingNew: pending,
			Date:       today,
		}
		if err := r.publisher.PublishDigest(ctx, job); err != nil {
			slog.Error("digest publish failed", "user", account.UserID, "error", err)
			continue
		}

		slog.Info("digest queued", "user", account.UserID, "pending", pending)
	}
}

// StartPeriodicSync runs the scan loop at the configured interval and
// checks the digest schedule after each pass.
func (r *Runner) StartPeriodicSync(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.syncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if _, err := r.RunOnce(loopCtx); err != nil {
					slog.Error("periodic inbox scan failed", "error", err)
				}
				r.maybeSendDigests(loopCtx, time.Now())
			}
		}
	}()

	slog.Info("periodic inbox scan started", "interval", r.syncInterval)
}

// Stop shuts down the scan loop.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}
