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
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/services"
)

var ErrEmptyWarmupQuery = errors.New("warm-up message has no query")

// WarmupTriggerParser reads a warm-up message. JSON objects carry a query
// and optional types; anything else is taken as a plain query for both types.
type WarmupTriggerParser struct {
	cor.BaseCommand
}

func NewWarmupTriggerParser(name string) *WarmupTriggerParser {
	return &WarmupTriggerParser{BaseCommand: *cor.NewBaseCommand(name)}
}

func (w *WarmupTriggerParser) Execute(context cor.Context) {
	in := strings.TrimSpace(context.Get(w.GetInputParam()).(string))
	out, err := ParseWarmupRequest(in)
	if err != nil {
		// The same message will never parse, so it must not be redelivered.
		w.Fail(context, cor.Permanent(err))
		return
	}
	w.Succeed(context)
	context.Add(w.GetOutputParam(), out)
}

// ParseWarmupRequest decodes a warm-up payload.
func ParseWarmupRequest(in string) (*model.WarmupRequest, error) {
	out := &model.WarmupRequest{}
	if strings.HasPrefix(in, "{") {
		var raw struct {
			Query string   `json:"query"`
			Types []string `json:"types"`
		}
		if err := json.Unmarshal([]byte(in), &raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal warm-up message: %w", err)
		}
		out.Query = strings.TrimSpace(raw.Query)
		for _, t := range raw.Types {
			mediaType, err := model.ParseMediaType(t)
			if err != nil {
				return nil, err
			}
			out.Types = append(out.Types, mediaType)
		}
	} else {
		out.Query = in
	}
	if out.Query == "" {
		return nil, ErrEmptyWarmupQuery
	}
	if len(out.Types) == 0 {
		out.Types = []model.MediaType{model.MediaTypeMovie, model.MediaTypeSeries}
	}
	return out, nil
}

// CacheWarmer pre-fetches recommendations for every requested type.
type CacheWarmer struct {
	cor.BaseCommand
	fetcher *services.RecommendationFetcher
}

func NewCacheWarmer(name string, fetcher *services.RecommendationFetcher) *CacheWarmer {
	return &CacheWarmer{BaseCommand: *cor.NewBaseCommand(name), fetcher: fetcher}
}

func (c *CacheWarmer) Execute(context cor.Context) {
	req := context.Get(c.GetInputParam()).(*model.WarmupRequest)
	run := uuid.NewString()
	for _, t := range req.Types {
		candidates := c.fetcher.Fetch(context.GetContext(), req.Query, t)
		slog.InfoContext(context.GetContext(), "cache warmed", "run", run, "query", req.Query, "type", t, "candidates", len(candidates))
	}
	c.Succeed(context)
	context.Add(c.GetOutputParam(), req)
}
