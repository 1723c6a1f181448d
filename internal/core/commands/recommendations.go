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
	"slices"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/services"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RecommendationLoader turns the search query into candidates.
type RecommendationLoader struct {
	cor.BaseCommand
	fetcher *services.RecommendationFetcher
}

func NewRecommendationLoader(name string, fetcher *services.RecommendationFetcher) *RecommendationLoader {
	return &RecommendationLoader{BaseCommand: *cor.NewBaseCommand(name), fetcher: fetcher}
}

func (r *RecommendationLoader) Execute(context cor.Context) {
	query := context.Get(r.GetInputParam()).(*model.SearchQuery)
	candidates := r.fetcher.Fetch(context.GetContext(), query.Text, query.Type)
	trace.SpanFromContext(context.GetContext()).SetAttributes(attribute.Int("candidates", len(candidates)))
	r.Succeed(context)
	context.Add(r.GetOutputParam(), candidates)
}

// CandidateSorter orders candidates newest first. Candidates without a
// valid year go last; ties keep the provider's order.
type CandidateSorter struct {
	cor.BaseCommand
}

func NewCandidateSorter(name string) *CandidateSorter {
	return &CandidateSorter{BaseCommand: *cor.NewBaseCommand(name)}
}

func (s *CandidateSorter) Execute(context cor.Context) {
	in := context.Get(s.GetInputParam()).([]model.Candidate)
	context.Add(s.GetOutputParam(), SortByYear(in))
}

// SortByYear returns a sorted copy; in is shared with the cache.
func SortByYear(in []model.Candidate) []model.Candidate {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b model.Candidate) int {
		switch {
		case a.Year <= 0 && b.Year <= 0:
			return 0
		case a.Year <= 0:
			return 1
		case b.Year <= 0:
			return -1
		}
		return b.Year - a.Year
	})
	if out == nil {
		out = make([]model.Candidate, 0)
	}
	return out
}
