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

package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cache"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/services"
	test "github.com/jaycherian/gcp-go-ai-catalog/internal/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnricher(t *testing.T, titles ...*test.TMDBTitle) (*services.MetadataEnricher, *test.FakeTMDB) {
	t.Helper()
	fake := test.NewFakeTMDB(titles...)
	t.Cleanup(fake.Close)
	client := services.NewTMDBClient(fake.Config())
	records := cache.New[*model.TitleRecord]("metadata", 30*time.Minute)
	return services.NewMetadataEnricher(client, records, 5*time.Second), fake
}

func TestTMDBSearchUsesYearParameters(t *testing.T) {
	fake := test.NewFakeTMDB(test.MatrixTitle(), test.BreakingBadTitle())
	defer fake.Close()
	client := services.NewTMDBClient(fake.Config())
	ctx := context.Background()

	hit, err := client.SearchTitle(ctx, "The Matrix", model.MediaTypeMovie, 1999)
	require.NoError(t, err)
	assert.Equal(t, 603, hit.ID)

	_, err = client.SearchTitle(ctx, "Breaking Bad", model.MediaTypeSeries, 2008)
	require.NoError(t, err)

	_, err = client.SearchTitle(ctx, "Nothing Here", model.MediaTypeMovie, 0)
	assert.True(t, errors.Is(err, services.ErrNoResults))

	queries := fake.Queries()
	require.Len(t, queries, 3)
	assert.Contains(t, queries[0], "year=1999")
	assert.Contains(t, queries[1], "first_air_date_year=2008")
	assert.NotContains(t, queries[2], "year=")
}

func TestTMDBDetails(t *testing.T) {
	fake := test.NewFakeTMDB(test.MatrixTitle())
	defer fake.Close()
	client := services.NewTMDBClient(fake.Config())

	details, err := client.Details(context.Background(), model.MediaTypeMovie, 603)
	require.NoError(t, err)
	assert.Equal(t, "tt0133093", details.ExternalIDs.ImdbID)
	assert.Len(t, details.TopCast(), 5)
	assert.Len(t, details.TopSimilar(), 1)
	assert.Equal(t, "The Matrix Reloaded", details.TopSimilar()[0].Title)

	_, err = client.Details(context.Background(), model.MediaTypeMovie, 1)
	assert.Error(t, err)
}

func TestTMDBCircuitBreakerOpens(t *testing.T) {
	fake := test.NewFakeTMDB(test.MatrixTitle())
	defer fake.Close()
	fake.FailAll.Store(true)

	config := fake.Config()
	config.BreakerFailureThreshold = 2
	config.BreakerTimeoutInSeconds = 60
	client := services.NewTMDBClient(config)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.SearchTitle(ctx, "The Matrix", model.MediaTypeMovie, 1999)
		assert.Error(t, err)
	}
	_, err := client.SearchTitle(ctx, "The Matrix", model.MediaTypeMovie, 1999)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 2, fake.Requests())
}

func TestEnrichBuildsMeta(t *testing.T) {
	enricher, fake := newEnricher(t, test.MatrixTitle())
	candidate := model.NewCandidate(model.MediaTypeMovie, "The Matrix", 1999, "fallback", "")

	meta := enricher.Enrich(context.Background(), candidate)
	require.NotNil(t, meta)
	assert.Equal(t, "tt0133093", meta.ID)
	assert.Equal(t, model.MediaTypeMovie, meta.Type)
	assert.Equal(t, "The Matrix", meta.Name)
	assert.Equal(t, 1999, meta.Year)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/matrix.jpg", meta.Poster)
	assert.Equal(t, "https://image.tmdb.org/t/p/original/matrix-bg.jpg", meta.Background)
	assert.Equal(t, []string{"Action", "Science Fiction"}, meta.Genres)
	assert.Equal(t, model.PosterShapeRegular, meta.PosterShape)
	assert.Equal(t, "8.2", meta.ImdbRating)
	assert.Len(t, meta.Cast, 5)
	assert.True(t, strings.HasPrefix(meta.Description, "Set in the 22nd century"))

	again := enricher.Enrich(context.Background(), candidate)
	require.NotNil(t, again)
	assert.Equal(t, 1, fake.SearchCalls())
	assert.Equal(t, 1, fake.DetailCalls())
}

func TestEnrichFallsBackToCandidateDescription(t *testing.T) {
	enricher, _ := newEnricher(t, test.DarkCityTitle())
	meta := enricher.Enrich(context.Background(), model.NewCandidate(model.MediaTypeMovie, "Dark City", 1998, "A man wakes with no memory", ""))
	require.NotNil(t, meta)
	assert.Equal(t, "A man wakes with no memory", meta.Description)
	assert.Empty(t, meta.Background)
	assert.Empty(t, meta.ImdbRating)
}

func TestEnrichQualityGate(t *testing.T) {
	enricher, fake := newEnricher(t, test.PosterlessTitle())
	candidate := model.NewCandidate(model.MediaTypeMovie, "eXistenZ", 1999, "", "")

	assert.Nil(t, enricher.Enrich(context.Background(), candidate))
	// The record itself is cached; only the output is gated.
	assert.Nil(t, enricher.Enrich(context.Background(), candidate))
	assert.Equal(t, 1, fake.SearchCalls())
}

func TestEnrichDoesNotCacheMisses(t *testing.T) {
	enricher, fake := newEnricher(t, test.MatrixTitle())
	unknown := model.NewCandidate(model.MediaTypeMovie, "Not A Real Film", 2001, "", "")

	assert.Nil(t, enricher.Enrich(context.Background(), unknown))
	assert.Nil(t, enricher.Enrich(context.Background(), unknown))
	assert.Equal(t, 2, fake.SearchCalls())
	assert.Equal(t, 0, enricher.Cache().Len())
}

func TestEnrichDoesNotCacheDetailFailures(t *testing.T) {
	enricher, fake := newEnricher(t, test.MatrixTitle())
	fake.FailDetails.Store(true)
	candidate := model.NewCandidate(model.MediaTypeMovie, "The Matrix", 1999, "", "")

	assert.Nil(t, enricher.Enrich(context.Background(), candidate))
	fake.FailDetails.Store(false)
	assert.NotNil(t, enricher.Enrich(context.Background(), candidate))
	assert.Equal(t, 2, fake.SearchCalls())
}
