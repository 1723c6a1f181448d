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
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/commands"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/services"
)

// CacheWarmupWorkflow handles warm-up messages from Pub/Sub: the message
// text is parsed and recommendations are fetched for each requested type so
// the first real search is served from cache.
type CacheWarmupWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

func NewCacheWarmupWorkflow(fetcher *services.RecommendationFetcher) *CacheWarmupWorkflow {
	out := &CacheWarmupWorkflow{BaseCommand: *cor.NewBaseCommand("cache-warmup-workflow")}
	chain := cor.NewBaseChain(out.GetName())
	chain.AddCommand(commands.NewWarmupTriggerParser("parse-warmup-trigger"))
	chain.AddCommand(commands.NewCacheWarmer("warm-recommendations", fetcher))
	out.chain = chain
	return out
}

func (w *CacheWarmupWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}
