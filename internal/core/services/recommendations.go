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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/cloud"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cache"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
)

// TextGenerator is satisfied by cloud.QuotaAwareGenerativeAIModel.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// RecommendationFetcher asks the generative model for titles matching a
// query and caches the parsed candidates per (query, type).
type RecommendationFetcher struct {
	generator TextGenerator
	parser    *CandidateParser
	cache     *cache.TTLCache[[]model.Candidate]
	prompt    *template.Template
	minimum   int
	timeout   time.Duration
}

func NewRecommendationFetcher(
	generator TextGenerator,
	recommendations *cache.TTLCache[[]model.Candidate],
	promptTemplate string,
	minimum int,
	timeout time.Duration) (*RecommendationFetcher, error) {

	tmpl, err := template.New("recommendation-template").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recommendation prompt: %w", err)
	}
	return &RecommendationFetcher{
		generator: generator,
		parser:    NewCandidateParser(),
		cache:     recommendations,
		prompt:    tmpl,
		minimum:   minimum,
		timeout:   timeout,
	}, nil
}

// Cache exposes the recommendation cache, mainly for housekeeping.
func (f *RecommendationFetcher) Cache() *cache.TTLCache[[]model.Candidate] {
	return f.cache
}

func recommendationKey(query string, t model.MediaType) string {
	return strings.TrimSpace(query) + "|" + string(t)
}

// RenderPrompt fills the recommendation template for query and t.
func (f *RecommendationFetcher) RenderPrompt(query string, t model.MediaType) (string, error) {
	params := map[string]interface{}{
		"MINIMUM":     f.minimum,
		"TYPE":        string(t),
		"QUERY":       query,
		"HEADER":      model.RecommendationHeader,
		"FORMAT_LINE": model.GetFormatTemplateLine(t),
		"EXAMPLE":     model.GetExampleRecommendation(t),
	}
	var buf bytes.Buffer
	if err := f.prompt.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to render recommendation prompt: %w", err)
	}
	return buf.String(), nil
}

// Fetch never fails: a provider error yields an empty list that is not
// cached. The returned slice is shared with the cache and must not be
// modified.
func (f *RecommendationFetcher) Fetch(ctx context.Context, query string, t model.MediaType) []model.Candidate {
	out, hit, err := f.cache.Load(ctx, recommendationKey(query, t), func(loadCtx context.Context) ([]model.Candidate, error) {
		return f.generate(loadCtx, query, t)
	})
	if err != nil {
		slog.WarnContext(ctx, "recommendation fetch failed", "query", query, "type", t, "error", err)
		return make([]model.Candidate, 0)
	}
	slog.DebugContext(ctx, "recommendations ready", "query", query, "type", t, "count", len(out), "cached", hit)
	return out
}

func (f *RecommendationFetcher) generate(ctx context.Context, query string, t model.MediaType) ([]model.Candidate, error) {
	prompt, err := f.RenderPrompt(query, t)
	if err != nil {
		return nil, err
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	text, err := f.generator.GenerateText(ctx, prompt)
	if errors.Is(err, cloud.ErrEmptyResponse) {
		// An answer with no text is as empty as one with no usable lines.
		return make([]model.Candidate, 0), nil
	}
	if err != nil {
		return nil, err
	}
	return f.parser.Candidates(ctx, text, t), nil
}
