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

package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/services"
)

// ProgressiveAssembler enriches the sorted candidates in windows and answers
// with the first window that produced anything. Loading tells the host that
// more windows remain.
type ProgressiveAssembler struct {
	cor.BaseCommand
	scheduler  *services.BatchScheduler
	windowSize int
}

func NewProgressiveAssembler(name string, scheduler *services.BatchScheduler, windowSize int) *ProgressiveAssembler {
	if windowSize <= 0 {
		windowSize = 5
	}
	return &ProgressiveAssembler{BaseCommand: *cor.NewBaseCommand(name), scheduler: scheduler, windowSize: windowSize}
}

func (p *ProgressiveAssembler) Execute(context cor.Context) {
	candidates := context.Get(p.GetInputParam()).([]model.Candidate)
	query := context.Get(ParamSearchQuery).(*model.SearchQuery)
	ctx := context.GetContext()

	for start := 0; start < len(candidates); start += p.windowSize {
		end := min(start+p.windowSize, len(candidates))
		metas := p.scheduler.ProcessBatch(ctx, candidates[start:end], query.Platform)
		if len(metas) == 0 {
			continue
		}
		slog.DebugContext(ctx, "catalog window ready", "query", query.Text, "metas", len(metas), "window_end", end, "total", len(candidates))
		p.Succeed(context)
		Respond(context, &model.CatalogResponse{Metas: metas, Loading: end < len(candidates)})
		return
	}

	p.Succeed(context)
	Respond(context, model.EmptyCatalog())
}
