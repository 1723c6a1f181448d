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
	"sync"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/cloud"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cache"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/services"
	test "github.com/jaycherian/gcp-go-ai-catalog/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFetcher(t *testing.T, generator services.TextGenerator) *services.RecommendationFetcher {
	t.Helper()
	recommendations := cache.New[[]model.Candidate]("recommendations", time.Hour)
	fetcher, err := services.NewRecommendationFetcher(generator, recommendations, cloud.DefaultRecommendationPrompt, 10, 5*time.Second)
	require.NoError(t, err)
	return fetcher
}

func TestRenderPrompt(t *testing.T) {
	fetcher := newFetcher(t, &test.FakeGenerator{})
	prompt, err := fetcher.RenderPrompt("heist thrillers", model.MediaTypeSeries)
	require.NoError(t, err)
	assert.Contains(t, prompt, `at least 10 highly rated series recommendations for "heist thrillers"`)
	assert.Contains(t, prompt, model.RecommendationHeader)
	assert.Contains(t, prompt, model.GetExampleRecommendation(model.MediaTypeSeries))
	assert.Contains(t, prompt, `Type must be "series"`)
}

func TestFetchCachesWithinTTL(t *testing.T) {
	generator := &test.FakeGenerator{Response: test.GetTestRecommendationText()}
	fetcher := newFetcher(t, generator)
	ctx := context.Background()

	first := fetcher.Fetch(ctx, "simulated reality", model.MediaTypeMovie)
	second := fetcher.Fetch(ctx, "simulated reality", model.MediaTypeMovie)
	require.Len(t, first, 3)
	assert.Same(t, &first[0], &second[0])
	assert.Equal(t, 1, generator.Calls())
	assert.Contains(t, generator.Prompts()[0], "simulated reality")

	fetcher.Fetch(ctx, "simulated reality", model.MediaTypeSeries)
	assert.Equal(t, 2, generator.Calls())
}

func TestFetchFailureIsEmptyAndNotCached(t *testing.T) {
	generator := &test.FakeGenerator{Err: errors.New("quota exhausted")}
	fetcher := newFetcher(t, generator)
	ctx := context.Background()

	out := fetcher.Fetch(ctx, "anything", model.MediaTypeMovie)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	fetcher.Fetch(ctx, "anything", model.MediaTypeMovie)
	assert.Equal(t, 2, generator.Calls())
	assert.Equal(t, 0, fetcher.Cache().Len())
}

func TestFetchCachesEmptyParse(t *testing.T) {
	generator := &test.FakeGenerator{Response: "Sorry, I cannot help with that."}
	fetcher := newFetcher(t, generator)
	ctx := context.Background()

	assert.Empty(t, fetcher.Fetch(ctx, "gibberish", model.MediaTypeMovie))
	assert.Empty(t, fetcher.Fetch(ctx, "gibberish", model.MediaTypeMovie))
	assert.Equal(t, 1, generator.Calls())
}

func TestFetchCachesEmptyAnswer(t *testing.T) {
	generator := &test.FakeGenerator{Err: cloud.ErrEmptyResponse}
	fetcher := newFetcher(t, generator)
	ctx := context.Background()

	out := fetcher.Fetch(ctx, "nothing at all", model.MediaTypeSeries)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	fetcher.Fetch(ctx, "nothing at all", model.MediaTypeSeries)
	assert.Equal(t, 1, generator.Calls())
	assert.Equal(t, 1, fetcher.Cache().Len())
}

func TestFetchSharesConcurrentMisses(t *testing.T) {
	generator := &test.FakeGenerator{Response: test.GetTestRecommendationText(), Delay: 50 * time.Millisecond}
	fetcher := newFetcher(t, generator)

	var wg sync.WaitGroup
	results := make([][]model.Candidate, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = fetcher.Fetch(context.Background(), "noir", model.MediaTypeMovie)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, generator.Calls())
	for _, r := range results {
		assert.Len(t, r, 3)
	}
}

func TestNewRecommendationFetcherRejectsBadTemplate(t *testing.T) {
	_, err := services.NewRecommendationFetcher(&test.FakeGenerator{}, cache.New[[]model.Candidate]("r", time.Hour), "{{.QUERY", 10, 0)
	assert.Error(t, err)
}
