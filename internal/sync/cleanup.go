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

package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PruneStore deletes completed and ignored actions older than a cutoff.
// Implemented by store.Store.
type PruneStore interface {
	PruneCompleted(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner periodically removes old completed actions.
type Pruner struct {
	store     PruneStore
	interval  time.Duration
	retention time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPruner creates a cleanup loop.
func NewPruner(store PruneStore, interval, retention time.Duration) *Pruner {
	return &Pruner{
		store:     store,
		interval:  interval,
		retention: retention,
	}
}

// RunOnce prunes immediately and returns the number of rows removed.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-p.retention)
	return p.store.PruneCompleted(ctx, cutoff)
}

// Start runs the cleanup loop at the configured interval.
func (p *Pruner) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				pruned, err := p.RunOnce(loopCtx)
				if err != nil {
					slog.Error("action cleanup failed", "error", err)
					continue
				}
				if pruned > 0 {
					slog.Info("old actions pruned", "count", pruned)
				}
			}
		}
	}()

	slog.Info("action cleanup started",
		"interval", p.interval,
		"retention", p.retention,
	)
}

// Stop shuts down the cleanup loop.
func (p *Pruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}
