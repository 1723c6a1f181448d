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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cache"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
)

// MetadataEnricher resolves candidates against TMDB and turns them into
// displayable metas. Base records are cached per (name, type, year).
type MetadataEnricher struct {
	source  TitleSource
	cache   *cache.TTLCache[*model.TitleRecord]
	timeout time.Duration
}

// NewMetadataEnricher bounds every TMDB call by timeout; zero means no bound.
func NewMetadataEnricher(source TitleSource, records *cache.TTLCache[*model.TitleRecord], timeout time.Duration) *MetadataEnricher {
	return &MetadataEnricher{source: source, cache: records, timeout: timeout}
}

// Cache exposes the record cache, mainly for housekeeping.
func (e *MetadataEnricher) Cache() *cache.TTLCache[*model.TitleRecord] {
	return e.cache
}

func metadataKey(c model.Candidate) string {
	return fmt.Sprintf("%s|%s|%d", strings.ToLower(strings.TrimSpace(c.Name)), c.Type, c.Year)
}

// Enrich returns nil when the candidate cannot be shown: TMDB failed or had
// no match, or the record lacks a poster or an IMDb id.
func (e *MetadataEnricher) Enrich(ctx context.Context, c model.Candidate) *model.EnrichedMeta {
	record, hit, err := e.cache.Load(ctx, metadataKey(c), func(loadCtx context.Context) (*model.TitleRecord, error) {
		return e.lookup(loadCtx, c)
	})
	if err != nil {
		if errors.Is(err, ErrNoResults) {
			slog.DebugContext(ctx, "no metadata match", "name", c.Name, "type", c.Type, "year", c.Year)
		} else {
			slog.WarnContext(ctx, "metadata lookup failed", "name", c.Name, "type", c.Type, "error", err)
		}
		return nil
	}
	if !record.Displayable() {
		slog.DebugContext(ctx, "dropping title without poster or imdb id", "name", c.Name, "cached", hit)
		return nil
	}
	return toMeta(c, record)
}

func (e *MetadataEnricher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

type detailsResult struct {
	details *TitleDetails
	err     error
}

// lookup searches TMDB and, on a hit, fetches details while the base record
// is assembled from the search result.
func (e *MetadataEnricher) lookup(ctx context.Context, c model.Candidate) (*model.TitleRecord, error) {
	searchCtx, cancelSearch := e.withTimeout(ctx)
	hit, err := e.source.SearchTitle(searchCtx, c.Name, c.Type, c.Year)
	cancelSearch()
	if err != nil {
		return nil, err
	}

	detailsCh := make(chan detailsResult, 1)
	go func() {
		detailsCtx, cancel := e.withTimeout(ctx)
		defer cancel()
		d, err := e.source.Details(detailsCtx, c.Type, hit.ID)
		detailsCh <- detailsResult{details: d, err: err}
	}()

	record := &model.TitleRecord{
		TMDBID:      hit.ID,
		PosterURL:   e.source.ImageURL(PosterSize, hit.PosterPath),
		BackdropURL: e.source.ImageURL(BackdropSize, hit.BackdropPath),
		Rating:      hit.VoteAverage,
		GenreIDs:    hit.GenreIDs,
		Overview:    hit.Overview,
	}

	res := <-detailsCh
	if res.err != nil {
		return nil, fmt.Errorf("details for tmdb id %d: %w", hit.ID, res.err)
	}
	record.ImdbID = res.details.ExternalIDs.ImdbID
	record.Cast = res.details.TopCast()
	record.Similar = res.details.TopSimilar()
	return record, nil
}

func toMeta(c model.Candidate, r *model.TitleRecord) *model.EnrichedMeta {
	description := r.Overview
	if description == "" {
		description = c.Description
	}
	out := &model.EnrichedMeta{
		ID:          r.ImdbID,
		Type:        c.Type,
		Name:        c.Name,
		Description: description,
		Year:        c.Year,
		Poster:      r.PosterURL,
		Background:  r.BackdropURL,
		Genres:      GenreNames(r.GenreIDs),
		PosterShape: model.PosterShapeRegular,
	}
	if r.Rating > 0 {
		out.ImdbRating = strconv.FormatFloat(r.Rating, 'f', 1, 64)
	}
	for _, member := range r.Cast {
		out.Cast = append(out.Cast, member.Name)
	}
	return out
}
