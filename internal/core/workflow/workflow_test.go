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

package workflow_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/cloud"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cache"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cor"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/services"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-ai-catalog/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

const tName = "github.com/jaycherian/gcp-go-ai-catalog/tests/workflow"

var tracer = otel.Tracer(tName)

// TestMain routes the pipeline's logs through the OpenTelemetry bridge so
// they are emitted as log records of the test's spans.
func TestMain(m *testing.M) {
	slog.SetDefault(otelslog.NewLogger(tName))
	os.Exit(m.Run())
}

type pipeline struct {
	config    *cloud.Config
	generator *test.FakeGenerator
	tmdb      *test.FakeTMDB
	fetcher   *services.RecommendationFetcher
	enricher  *services.MetadataEnricher
	adapter   *services.PlatformAdapter
	scheduler *services.BatchScheduler
	search    *workflow.CatalogSearchWorkflow
}

func newPipeline(t *testing.T, answer string) *pipeline {
	t.Helper()
	p := &pipeline{config: test.GetConfig()}
	p.generator = &test.FakeGenerator{Response: answer}
	p.tmdb = test.NewFakeTMDB(test.MatrixTitle(), test.DarkCityTitle(), test.PosterlessTitle(), test.BreakingBadTitle())
	t.Cleanup(p.tmdb.Close)

	var err error
	p.fetcher, err = services.NewRecommendationFetcher(
		p.generator,
		cache.New[[]model.Candidate]("recommendations", p.config.Catalog.RecommendationTTL()),
		p.config.PromptTemplates.RecommendationPrompt,
		p.config.Catalog.MinimumRecommendations,
		p.config.Catalog.ProviderTimeout())
	require.NoError(t, err)

	p.enricher = services.NewMetadataEnricher(
		services.NewTMDBClient(p.tmdb.Config()),
		cache.New[*model.TitleRecord]("metadata", p.config.Catalog.MetadataTTL()),
		p.config.Catalog.ProviderTimeout())
	p.adapter = services.NewPlatformAdapter(p.config.Catalog.TVDescriptionLimit)
	p.scheduler = services.NewBatchScheduler(p.enricher, p.adapter,
		p.config.Catalog.BatchSize, p.config.Catalog.ConcurrencyLimit, p.config.Catalog.InterBatchDelay())
	p.search = workflow.NewCatalogSearchWorkflow(p.config, p.fetcher, p.scheduler)
	return p
}

func query(text string, t model.MediaType, platform model.Platform) *model.SearchQuery {
	return &model.SearchQuery{Text: text, Type: t, Platform: platform}
}

func names(metas []*model.EnrichedMeta) []string {
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		out = append(out, m.Name)
	}
	return out
}

func TestSearchBlankTerm(t *testing.T) {
	p := newPipeline(t, test.GetTestRecommendationText())
	resp := p.search.Search(context.Background(), query("   ", model.MediaTypeMovie, model.PlatformDesktop))
	assert.NotNil(t, resp.Metas)
	assert.Empty(t, resp.Metas)
	assert.False(t, resp.Loading)
	assert.Nil(t, resp.Notification)
	assert.Equal(t, 0, p.generator.Calls())
}

func TestSearchIntentConflict(t *testing.T) {
	p := newPipeline(t, test.GetTestRecommendationText())
	resp := p.search.Search(context.Background(), query("best tv series of the decade", model.MediaTypeMovie, model.PlatformDesktop))
	assert.Empty(t, resp.Metas)
	assert.Equal(t, 0, p.generator.Calls())
	assert.Equal(t, 0, p.tmdb.Requests())
}

func TestSearchSortsEnrichesAndCaches(t *testing.T) {
	answer := strings.Join([]string{
		"movie|Dark City|1998|A man wakes with no memory|Noir sci-fi",
		"movie|eXistenZ|1999|Game within a game|Reality bending",
		"movie|The Matrix|1999|A hacker learns the truth|Defining film",
	}, "\n")
	p := newPipeline(t, answer)
	ctx, span := tracer.Start(context.Background(), "search_sorts_enriches_and_caches")
	defer span.End()

	resp := p.search.Search(ctx, query("simulated reality", model.MediaTypeMovie, model.PlatformDesktop))
	// eXistenZ sorts ahead of The Matrix among the 1999 titles but has no poster.
	assert.Equal(t, []string{"The Matrix", "Dark City"}, names(resp.Metas))
	assert.False(t, resp.Loading)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/matrix.jpg", resp.Metas[0].Poster)
	assert.Equal(t, "A man wakes with no memory", resp.Metas[1].Description)

	searches := p.tmdb.SearchCalls()
	again := p.search.Search(ctx, query("simulated reality", model.MediaTypeMovie, model.PlatformDesktop))
	assert.Equal(t, names(resp.Metas), names(again.Metas))
	assert.Equal(t, 1, p.generator.Calls())
	assert.Equal(t, searches, p.tmdb.SearchCalls())
}

func TestSearchReturnsFirstNonEmptyWindow(t *testing.T) {
	lines := []string{
		"movie|Unknown One|2010|x|y",
		"movie|Unknown Two|2009|x|y",
		"movie|Unknown Three|2008|x|y",
		"movie|Unknown Four|2007|x|y",
		"movie|Unknown Five|2006|x|y",
		"movie|Dark City|1998|x|y",
		"movie|Unknown Six|1990|x|y",
	}
	p := newPipeline(t, strings.Join(lines, "\n"))

	resp := p.search.Search(context.Background(), query("obscure", model.MediaTypeMovie, model.PlatformDesktop))
	assert.Equal(t, []string{"Dark City"}, names(resp.Metas))
	assert.False(t, resp.Loading)
}

func TestSearchSignalsMoreWindows(t *testing.T) {
	lines := []string{"movie|The Matrix|1999|x|y"}
	for i := 0; i < 6; i++ {
		lines = append(lines, "movie|Filler "+string(rune('A'+i))+"|1980|x|y")
	}
	p := newPipeline(t, strings.Join(lines, "\n"))

	resp := p.search.Search(context.Background(), query("matrix", model.MediaTypeMovie, model.PlatformDesktop))
	assert.Equal(t, []string{"The Matrix"}, names(resp.Metas))
	assert.True(t, resp.Loading)
}

func TestSearchExhausted(t *testing.T) {
	p := newPipeline(t, "movie|Nobody Knows This|2001|x|y")
	resp := p.search.Search(context.Background(), query("nothing", model.MediaTypeMovie, model.PlatformDesktop))
	assert.Empty(t, resp.Metas)
	assert.False(t, resp.Loading)
	assert.Nil(t, resp.Notification)
}

func TestSearchFormatsForAndroidTV(t *testing.T) {
	p := newPipeline(t, "series|Breaking Bad|2008|x|y")
	resp := p.search.Search(context.Background(), query("crime drama", model.MediaTypeSeries, model.PlatformAndroidTV))
	require.Len(t, resp.Metas, 1)
	assert.Equal(t, "https://image.tmdb.org/t/p/w342/bb.jpg", resp.Metas[0].Poster)
	assert.Equal(t, []string{"Drama", "Crime", "Sci-Fi & Fantasy"}, resp.Metas[0].Genres)
}

func TestSearchRecoversFromPanics(t *testing.T) {
	p := newPipeline(t, test.GetTestRecommendationText())
	broken := workflow.NewCatalogSearchWorkflow(p.config, p.fetcher, nil)

	resp := broken.Search(context.Background(), query("simulated reality", model.MediaTypeMovie, model.PlatformDesktop))
	assert.Empty(t, resp.Metas)
	assert.False(t, resp.Loading)
	require.NotNil(t, resp.Notification)
	assert.Equal(t, "error", resp.Notification.Severity)
}

func TestSearchSurvivesPanickingGenerator(t *testing.T) {
	p := newPipeline(t, "")
	p.generator.Respond = func(string) (string, error) {
		panic("unexpected candidate shape")
	}
	ctx := context.Background()

	resp := p.search.Search(ctx, query("simulated reality", model.MediaTypeMovie, model.PlatformDesktop))
	assert.NotNil(t, resp.Metas)
	assert.Empty(t, resp.Metas)
	assert.False(t, resp.Loading)

	// Nothing was cached, so the next request asks the model again.
	p.search.Search(ctx, query("simulated reality", model.MediaTypeMovie, model.PlatformDesktop))
	assert.Equal(t, 2, p.generator.Calls())
	assert.Equal(t, 0, p.fetcher.Cache().Len())
}

func TestSearchProviderFailureIsEmpty(t *testing.T) {
	p := newPipeline(t, "")
	p.generator.Err = context.DeadlineExceeded
	resp := p.search.Search(context.Background(), query("anything", model.MediaTypeMovie, model.PlatformDesktop))
	assert.Empty(t, resp.Metas)
	assert.False(t, resp.Loading)
}

func TestConcurrentSearchesShareProviderCalls(t *testing.T) {
	p := newPipeline(t, "movie|The Matrix|1999|x|y")
	p.generator.Delay = 30 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := p.search.Search(context.Background(), query("matrix", model.MediaTypeMovie, model.PlatformDesktop))
			assert.Len(t, resp.Metas, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, p.generator.Calls())
	assert.Equal(t, 1, p.tmdb.SearchCalls())
}

func TestMetaResolver(t *testing.T) {
	p := newPipeline(t, "")
	resolver := workflow.NewMetaResolverWorkflow(p.enricher, p.adapter)
	ctx := context.Background()

	resp := resolver.Resolve(ctx, model.SyntheticID(model.MediaTypeMovie, "The Matrix"), model.PlatformDesktop)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, "tt0133093", resp.Meta.ID)
	assert.Equal(t, 0, resp.Meta.Year)

	assert.Nil(t, resolver.Resolve(ctx, "tt0133093", model.PlatformDesktop).Meta)
	assert.Nil(t, resolver.Resolve(ctx, "ai_music_x", model.PlatformDesktop).Meta)
	assert.Nil(t, resolver.Resolve(ctx, "ai_movie_existenz", model.PlatformDesktop).Meta)

	tv := resolver.Resolve(ctx, "ai_series_breaking_bad", model.PlatformAndroidTV)
	require.NotNil(t, tv.Meta)
	assert.Equal(t, "https://image.tmdb.org/t/p/w342/bb.jpg", tv.Meta.Poster)
}

func TestCacheWarmupWorkflow(t *testing.T) {
	p := newPipeline(t, test.GetTestRecommendationText())
	warmup := workflow.NewCacheWarmupWorkflow(p.fetcher)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, test.GetTestWarmupMessageText())
	warmup.Execute(chainCtx)
	require.False(t, chainCtx.HasErrors())
	assert.Equal(t, 2, p.generator.Calls())

	p.fetcher.Fetch(context.Background(), "mind bending sci-fi", model.MediaTypeMovie)
	assert.Equal(t, 2, p.generator.Calls())

	bad := cor.NewBaseContext()
	bad.SetContext(context.Background())
	bad.Add(cor.CtxIn, `{"query": ""}`)
	warmup.Execute(bad)
	assert.True(t, bad.HasErrors())
	assert.True(t, cor.OnlyPermanentErrors(bad))
	assert.Equal(t, 2, p.generator.Calls())
}

func TestCacheSweepWorkflow(t *testing.T) {
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	recommendations := cache.New[[]model.Candidate]("recommendations", time.Hour, cache.WithClock[[]model.Candidate](clock))
	records := cache.New[*model.TitleRecord]("metadata", 30*time.Minute, cache.WithClock[*model.TitleRecord](clock))
	recommendations.Set("a|movie", nil)
	records.Set("a|movie|0", &model.TitleRecord{})

	sweep := workflow.NewCacheSweepWorkflow(time.Minute, recommendations, records)
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())

	now = now.Add(45 * time.Minute)
	sweep.Execute(chainCtx)
	assert.Equal(t, 1, chainCtx.Get(cor.CtxOut))
	assert.Equal(t, 1, recommendations.Len())
	assert.Equal(t, 0, records.Len())
}
