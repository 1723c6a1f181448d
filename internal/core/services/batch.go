// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"golang.org/x/sync/semaphore"
)

// Enricher turns a candidate into a meta, or nil when it must be dropped.
type Enricher interface {
	Enrich(ctx context.Context, c model.Candidate) *model.EnrichedMeta
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// BatchScheduler enriches candidates in fixed size chunks. Inside a chunk at
// most ConcurrencyLimit enrichments run at once; chunks run one after the
// other with Delay between them to stay under the TMDB request budget.
type BatchScheduler struct {
	enricher         Enricher
	adapter          *PlatformAdapter
	BatchSize        int
	ConcurrencyLimit int
	Delay            time.Duration
	Sleep            Sleeper
}

// NewBatchScheduler falls back to chunks of 15 and 3 concurrent enrichments
// when batchSize or concurrencyLimit is not positive.
func NewBatchScheduler(enricher Enricher, adapter *PlatformAdapter, batchSize int, concurrencyLimit int, delay time.Duration) *BatchScheduler {
	if batchSize <= 0 {
		batchSize = 15
	}
	if concurrencyLimit <= 0 {
		concurrencyLimit = 3
	}
	return &BatchScheduler{
		enricher:         enricher,
		adapter:          adapter,
		BatchSize:        batchSize,
		ConcurrencyLimit: concurrencyLimit,
		Delay:            delay,
		Sleep:            ContextSleep,
	}
}

// ProcessBatch enriches and formats candidates for platform. Dropped
// candidates are filtered out; the rest keep their input order.
func (s *BatchScheduler) ProcessBatch(ctx context.Context, candidates []model.Candidate, platform model.Platform) []*model.EnrichedMeta {
	out := make([]*model.EnrichedMeta, 0, len(candidates))
	for start := 0; start < len(candidates); start += s.BatchSize {
		end := min(start+s.BatchSize, len(candidates))
		for _, meta := range s.processChunk(ctx, candidates[start:end]) {
			if meta != nil {
				out = append(out, s.adapter.Format(meta, platform))
			}
		}

		if end < len(candidates) {
			if err := s.Sleep(ctx, s.Delay); err != nil {
				slog.WarnContext(ctx, "batch processing interrupted", "processed", end, "total", len(candidates), "error", err)
				break
			}
		}
	}
	return out
}

func (s *BatchScheduler) processChunk(ctx context.Context, chunk []model.Candidate) []*model.EnrichedMeta {
	results := make([]*model.EnrichedMeta, len(chunk))
	sem := semaphore.NewWeighted(int64(s.ConcurrencyLimit))
	var wg sync.WaitGroup

	for i, c := range chunk {
		if err := sem.Acquire(ctx, 1); err != nil {
			slog.WarnContext(ctx, "stopped scheduling enrichments", "error", err)
			break
		}
		wg.Add(1)
		go func(i int, c model.Candidate) {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					slog.ErrorContext(ctx, "enrichment panicked", "name", c.Name, "error", fmt.Sprint(r))
					results[i] = nil
				}
			}()
			results[i] = s.enricher.Enrich(ctx, c)
		}(i, c)
	}
	wg.Wait()
	return results
}
