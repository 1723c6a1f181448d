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

// Package workflow wires commands into the chains that serve catalog
// requests, meta requests, cache warm-up messages and cache housekeeping.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/cloud"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/commands"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/services"
)

// SearchFailedNotification is shown by the host when a search broke.
var SearchFailedNotification = model.Notification{
	Title:    "Search unavailable",
	Message:  "Recommendations could not be loaded. Please try again shortly.",
	Severity: "error",
}

// CatalogSearchWorkflow answers catalog search requests.
//
// Logic Flow:
//  1. A blank search term yields an empty catalog.
//  2. A query whose intent conflicts with the requested type yields an empty
//     catalog without calling any provider.
//  3. Recommendations are fetched (cached) and sorted newest first.
//  4. Candidates are enriched in windows; the first window with results is
//     returned, with loading set while more windows remain.
//  5. Any error or panic becomes an empty catalog carrying a notification.
type CatalogSearchWorkflow struct {
	cor.BaseCommand
	classifier *services.IntentClassifier
	fetcher    *services.RecommendationFetcher
	scheduler  *services.BatchScheduler
	windowSize int
	chain      cor.Chain
}

func NewCatalogSearchWorkflow(
	config *cloud.Config,
	fetcher *services.RecommendationFetcher,
	scheduler *services.BatchScheduler) *CatalogSearchWorkflow {

	out := &CatalogSearchWorkflow{
		BaseCommand: *cor.NewBaseCommand("catalog-search-workflow"),
		classifier:  services.NewIntentClassifier(),
		fetcher:     fetcher,
		scheduler:   scheduler,
		windowSize:  config.Catalog.ProgressiveBatchSize,
	}
	out.initializeChain()
	return out
}

func (w *CatalogSearchWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewSearchTermGate("validate-search-term"))
	out.AddCommand(commands.NewIntentGate("check-intent", w.classifier))
	out.AddCommand(commands.NewRecommendationLoader("load-recommendations", w.fetcher))
	out.AddCommand(commands.NewCandidateSorter("sort-by-year"))
	out.AddCommand(commands.NewProgressiveAssembler("assemble-catalog", w.scheduler, w.windowSize))
	w.chain = out
}

func (w *CatalogSearchWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Search never fails; problems surface as an empty catalog with a
// notification.
func (w *CatalogSearchWorkflow) Search(ctx context.Context, query *model.SearchQuery) (out *model.CatalogResponse) {
	if query == nil {
		return model.EmptyCatalog()
	}
	defer func() {
		if r := recover(); r != nil {
			w.ErrorCounter.Add(ctx, 1)
			slog.ErrorContext(ctx, "catalog search panicked", "query", query.Text, "type", query.Type, "error", fmt.Sprint(r))
			out = searchFailed()
		}
	}()

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, query)
	w.Execute(chainCtx)

	if chainCtx.HasErrors() {
		for name, err := range chainCtx.GetErrors() {
			slog.ErrorContext(ctx, "catalog search failed", "command", name, "query", query.Text, "error", err)
		}
		w.ErrorCounter.Add(ctx, 1)
		return searchFailed()
	}
	w.SuccessCounter.Add(ctx, 1)
	if resp, ok := chainCtx.Get(commands.ParamCatalogResponse).(*model.CatalogResponse); ok && resp != nil {
		return resp
	}
	return model.EmptyCatalog()
}

func searchFailed() *model.CatalogResponse {
	out := model.EmptyCatalog()
	notification := SearchFailedNotification
	out.Notification = &notification
	return out
}
