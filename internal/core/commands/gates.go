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

// Package commands contains the cor.Command steps that catalog workflows are
// built from. Each step reads its input from the chain context, does one
// thing and leaves its output in CtxOut, or halts the chain once the
// response is known.
package commands

import (
	"strings"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/services"
)

// Context keys shared by the catalog commands and workflows.
const (
	ParamSearchQuery     = "__search_query__"
	ParamCatalogResponse = "__catalog_response__"
	ParamMetaRequest     = "__meta_request__"
	ParamMetaResponse    = "__meta_response__"
)

// Respond stores the final catalog response and halts the chain.
func Respond(context cor.Context, response *model.CatalogResponse) {
	context.Add(ParamCatalogResponse, response)
	context.Halt()
}

// SearchTermGate answers blank searches with an empty catalog.
type SearchTermGate struct {
	cor.BaseCommand
}

func NewSearchTermGate(name string) *SearchTermGate {
	return &SearchTermGate{BaseCommand: *cor.NewBaseCommand(name)}
}

func (g *SearchTermGate) Execute(context cor.Context) {
	query := context.Get(g.GetInputParam()).(*model.SearchQuery)
	if strings.TrimSpace(query.Text) == "" {
		Respond(context, model.EmptyCatalog())
		return
	}
	context.Add(ParamSearchQuery, query)
	context.Add(g.GetOutputParam(), query)
}

// IntentGate answers with an empty catalog when the query clearly asks for
// the other media type, so no provider is called for it.
type IntentGate struct {
	cor.BaseCommand
	classifier *services.IntentClassifier
}

func NewIntentGate(name string, classifier *services.IntentClassifier) *IntentGate {
	return &IntentGate{BaseCommand: *cor.NewBaseCommand(name), classifier: classifier}
}

func (g *IntentGate) Execute(context cor.Context) {
	query := context.Get(g.GetInputParam()).(*model.SearchQuery)
	intent := g.classifier.Classify(query.Text)
	if intent.ConflictsWith(query.Type) {
		Respond(context, model.EmptyCatalog())
		return
	}
	context.Add(g.GetOutputParam(), query)
}
