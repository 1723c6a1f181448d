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

package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Sweeper is a cache that can drop its expired entries.
type Sweeper interface {
	Name() string
	Sweep() int
}

// CacheSweepWorkflow periodically removes expired entries from the caches
// so that keys nobody asks for again do not pile up. It never invalidates
// live entries.
type CacheSweepWorkflow struct {
	cor.BaseCommand
	interval time.Duration
	caches   []Sweeper
}

func NewCacheSweepWorkflow(interval time.Duration, caches ...Sweeper) *CacheSweepWorkflow {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CacheSweepWorkflow{
		BaseCommand: *cor.NewBaseCommand("cache-sweep-workflow"),
		interval:    interval,
		caches:      caches,
	}
}

// IsExecutable only needs a Go context.
func (w *CacheSweepWorkflow) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute sweeps every cache once and leaves the removed count in CtxOut.
func (w *CacheSweepWorkflow) Execute(context cor.Context) {
	removed := 0
	for _, c := range w.caches {
		n := c.Sweep()
		removed += n
		if n > 0 {
			slog.DebugContext(context.GetContext(), "swept cache", "cache", c.Name(), "removed", n)
		}
	}
	w.SuccessCounter.Add(context.GetContext(), 1)
	context.Add(w.GetOutputParam(), removed)
}

// StartTimer runs Execute every interval until ctx is done.
func (w *CacheSweepWorkflow) StartTimer(ctx context.Context) {
	tracer := otel.Tracer("cache-sweep")
	ticker := time.NewTicker(w.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				traceCtx, span := tracer.Start(ctx, "cache-sweep")
				chainCtx := cor.NewBaseContext()
				chainCtx.SetContext(traceCtx)

				w.Execute(chainCtx)

				if removed, ok := chainCtx.Get(cor.CtxOut).(int); ok {
					span.SetAttributes(attribute.Int("removed", removed))
				}
				span.SetStatus(codes.Ok, "swept caches")
				span.End()
			case <-ctx.Done():
				return
			}
		}
	}()
}
