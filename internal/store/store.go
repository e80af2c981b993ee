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

// Package store provides Postgres persistence for extracted actions.
// Actions enter as "todo" and are moved to "done" or "ignored" by user
// interaction through the HTTP API. Insertion is keyed on
// (user_id, message_id, title) so re-extracting an already-processed
// email never duplicates tasks.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bcem/inboxactions/internal/extract"
)

// Action lifecycle statuses.
const (
	StatusTodo    = "todo"
	StatusDone    = "done"
	StatusIgnored = "ignored"
)

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	return s == StatusTodo || s == StatusDone || s == StatusIgnored
}

// Record represents a single persisted action.
type Record struct {
	ID              int64      `json:"id"`
	UserID          string     `json:"user_id"`
	MessageID       string     `json:"message_id"`
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	SourceSentence  string     `json:"source_sentence"`
	EmailFrom       string     `json:"email_from"`
	EmailReceivedAt *time.Time `json:"email_received_at"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Store provides CRUD operations for action records in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates an action store backed by the given Postgres pool.
// It ensures the actions table exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure actions schema: %w", err)
	}
	slog.Info("action store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS actions (
			id                BIGSERIAL PRIMARY KEY,
			user_id           TEXT NOT NULL,
			message_id        TEXT NOT NULL DEFAULT '',
			type              TEXT NOT NULL,
			title             TEXT NOT NULL,
			source_sentence   TEXT NOT NULL DEFAULT '',
			email_from        TEXT NOT NULL DEFAULT '',
			email_received_at TIMESTAMPTZ,
			status            TEXT DEFAULT 'todo',
			created_at        TIMESTAMPTZ DEFAULT NOW(),
			updated_at        TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(user_id, message_id, title)
		);
		CREATE INDEX IF NOT EXISTS idx_actions_user ON actions(user_id);
		CREATE INDEX IF NOT EXISTS idx_actions_status ON actions(status);
		CREATE INDEX IF NOT EXISTS idx_actions_updated ON actions(updated_at);
	`)
	return err
}

// Insert persists one extracted action with status "todo". It returns
// false when an action with the same (user_id, message_id, title) already
// exists — re-running extraction over a processed email is a no-op.
func (s *Store) Insert(ctx context.Context, userID string, a extract.Action) (bool, error) {
	var receivedAt *time.Time
	if !a.EmailReceivedAt.IsZero() {
		t := a.EmailReceivedAt
		receivedAt = &t
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO actions
			(user_id, message_id, type, title, source_sentence, email_from, email_received_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, message_id, title) DO NOTHING
	`, userID, a.MessageID, string(a.Type), a.Title, a.SourceSentence, a.EmailFrom, receivedAt, StatusTodo)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Get retrieves a single action by id.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, message_id, type, title, source_sentence,
		       email_from, email_received_at, status, created_at, updated_at
		FROM actions
		WHERE id = $1
	`, id)
	return scanRecord(row)
}

// ListByUser returns a user's actions, optionally filtered by status,
// newest email first.
func (s *Store) ListByUser(ctx context.Context, userID, status string) ([]Record, error) {
	query := `
		SELECT id, user_id, message_id, type, title, source_sentence,
		       email_from, email_received_at, status, created_at, updated_at
		FROM actions
		WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY email_received_at DESC NULLS LAST, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// CountByStatus returns the number of a user's actions per status.
func (s *Store) CountByStatus(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM actions
		WHERE user_id = $1
		GROUP BY status
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// UpdateStatus moves an action to a new lifecycle status. Returns false
// if no action with the given id belongs to the user.
func (s *Store) UpdateStatus(ctx context.Context, userID string, id int64, status string) (bool, error) {
	if !ValidStatus(status) {
		return false, fmt.Errorf("invalid status %q", status)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE actions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3
	`, status, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes an action record. Returns false when nothing matched.
func (s *Store) Delete(ctx context.Context, userID string, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM actions WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// PruneCompleted deletes done/ignored actions last touched before the
// cutoff and returns how many rows were removed.
func (s *Store) PruneCompleted(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM actions
		WHERE status IN ($1, $2) AND updated_at < $3
	`, StatusDone, StatusIgnored, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// scanRecord scans a single row into a Record.
func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(
		&r.ID, &r.UserID, &r.MessageID, &r.Type, &r.Title, &r.SourceSentence,
		&r.EmailFrom, &r.EmailReceivedAt, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// collectRecords scans multiple rows into a slice of Records.
func collectRecords(rows pgx.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.MessageID, &r.Type, &r.Title, &r.SourceSentence,
			&r.EmailFrom, &r.EmailReceivedAt, &r.Status, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
