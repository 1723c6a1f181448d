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
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/commands"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/services"
)

// MetaResolverWorkflow answers meta requests for the synthetic ai_ ids that
// appear when a host asks about a title before it was enriched.
type MetaResolverWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

func NewMetaResolverWorkflow(enricher services.Enricher, adapter *services.PlatformAdapter) *MetaResolverWorkflow {
	out := &MetaResolverWorkflow{BaseCommand: *cor.NewBaseCommand("meta-resolver-workflow")}
	chain := cor.NewBaseChain(out.GetName())
	chain.AddCommand(commands.NewSyntheticIDResolver("resolve-synthetic-id"))
	chain.AddCommand(commands.NewMetaEnricher("enrich-meta", enricher, adapter))
	out.chain = chain
	return out
}

func (w *MetaResolverWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Resolve returns {meta: null} for unknown ids, dropped titles and failures.
func (w *MetaResolverWorkflow) Resolve(ctx context.Context, id string, platform model.Platform) (out *model.MetaResponse) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "meta resolution panicked", "id", id, "error", fmt.Sprint(r))
			out = &model.MetaResponse{}
		}
	}()

	req := &commands.MetaRequest{ID: id, Platform: platform}
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, req)
	chainCtx.Add(commands.ParamMetaRequest, req)
	w.Execute(chainCtx)

	if chainCtx.HasErrors() {
		for name, err := range chainCtx.GetErrors() {
			slog.ErrorContext(ctx, "meta resolution failed", "command", name, "id", id, "error", err)
		}
		return &model.MetaResponse{}
	}
	if resp, ok := chainCtx.Get(commands.ParamMetaResponse).(*model.MetaResponse); ok && resp != nil {
		return resp
	}
	return &model.MetaResponse{}
}
