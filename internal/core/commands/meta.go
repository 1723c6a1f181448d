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
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/services"
)

// MetaRequest is the input of the meta resolution chain. It is also kept
// under ParamMetaRequest for the steps that need the platform.
type MetaRequest struct {
	ID       string
	Platform model.Platform
}

// RespondMeta stores the final meta response and halts the chain.
func RespondMeta(context cor.Context, response *model.MetaResponse) {
	context.Add(ParamMetaResponse, response)
	context.Halt()
}

// SyntheticIDResolver turns an ai_ id back into a candidate without a year.
// Other ids resolve to a null meta.
type SyntheticIDResolver struct {
	cor.BaseCommand
}

func NewSyntheticIDResolver(name string) *SyntheticIDResolver {
	return &SyntheticIDResolver{BaseCommand: *cor.NewBaseCommand(name)}
}

func (s *SyntheticIDResolver) Execute(context cor.Context) {
	req := context.Get(s.GetInputParam()).(*MetaRequest)
	t, name, ok := model.ParseSyntheticID(req.ID)
	if !ok {
		RespondMeta(context, &model.MetaResponse{})
		return
	}
	candidate := model.NewCandidate(t, name, 0, "", "")
	context.Add(s.GetOutputParam(), &candidate)
}

// MetaEnricher enriches one candidate and formats it for the platform.
type MetaEnricher struct {
	cor.BaseCommand
	enricher services.Enricher
	adapter  *services.PlatformAdapter
}

func NewMetaEnricher(name string, enricher services.Enricher, adapter *services.PlatformAdapter) *MetaEnricher {
	return &MetaEnricher{BaseCommand: *cor.NewBaseCommand(name), enricher: enricher, adapter: adapter}
}

func (m *MetaEnricher) Execute(context cor.Context) {
	candidate := context.Get(m.GetInputParam()).(*model.Candidate)
	req := context.Get(ParamMetaRequest).(*MetaRequest)

	meta := m.enricher.Enrich(context.GetContext(), *candidate)
	if meta != nil {
		m.Succeed(context)
	}
	RespondMeta(context, &model.MetaResponse{Meta: m.adapter.Format(meta, req.Platform)})
}
