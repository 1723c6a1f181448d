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
	"net/http"
	"testing"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/services"
	test "github.com/jaycherian/gcp-go-ai-catalog/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntentClassifier(t *testing.T) {
	classifier := services.NewIntentClassifier()
	cases := map[string]model.Intent{
		"best movie of the year":      model.IntentMovie,
		"new tv series to watch":      model.IntentSeries,
		"something good":              model.IntentAmbiguous,
		"best sci-fi movies":          model.IntentMovie,
		"Funny SITCOM":                model.IntentSeries,
		"documentary series on space": model.IntentAmbiguous,
		"mind bending thrillers":      model.IntentAmbiguous,
		"films like Inception":        model.IntentMovie,
		"anime with great animation":  model.IntentSeries,
		"a movie or a show":           model.IntentAmbiguous,
	}
	for query, want := range cases {
		assert.Equal(t, want, classifier.Classify(query), query)
	}
}

func TestCandidateParserOutcomes(t *testing.T) {
	parser := services.NewCandidateParser()

	ok := parser.ParseLine("movie | The Matrix | 1999 | desc | why", model.MediaTypeMovie)
	require.True(t, ok.Accepted)
	assert.Equal(t, "ai_movie_the_matrix", ok.Candidate.ID)
	assert.Equal(t, 1999, ok.Candidate.Year)
	assert.Equal(t, "desc", ok.Candidate.Description)
	assert.Equal(t, "why", ok.Candidate.Relevance)

	short := parser.ParseLine("movie|Heat", model.MediaTypeMovie)
	assert.False(t, short.Accepted)
	assert.True(t, errors.Is(short.Reason, services.ErrTooFewFields))

	missing := parser.ParseLine("movie||1999", model.MediaTypeMovie)
	assert.True(t, errors.Is(missing.Reason, services.ErrMissingField))

	mismatch := parser.ParseLine("series|Lost|2004", model.MediaTypeMovie)
	assert.True(t, errors.Is(mismatch.Reason, services.ErrTypeMismatch))

	noYear := parser.ParseLine("movie|Heat|n/a", model.MediaTypeMovie)
	assert.True(t, noYear.Accepted)
	assert.Equal(t, 0, noYear.Candidate.Year)
	assert.Empty(t, noYear.Candidate.Description)
}

func TestCandidateParserSkipsNoise(t *testing.T) {
	parser := services.NewCandidateParser()
	candidates := parser.Candidates(context.Background(), test.GetTestRecommendationText(), model.MediaTypeMovie)

	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"The Matrix", "Dark City", "eXistenZ"}, names)
	assert.Equal(t, 0, candidates[2].Year)
}

func TestPlatformClassify(t *testing.T) {
	adapter := services.NewPlatformAdapter(0)

	explicit := http.Header{}
	explicit.Set(services.HeaderStremioPlatform, "android-tv")
	explicit.Set(services.HeaderUserAgent, "Mozilla/5.0 (Windows NT 10.0)")
	assert.Equal(t, model.PlatformAndroidTV, adapter.Classify(explicit, ""))

	unrecognized := http.Header{}
	unrecognized.Set(services.HeaderStremioPlatform, "fridge")
	unrecognized.Set(services.HeaderUserAgent, "Mozilla/5.0 (Windows NT 10.0)")
	assert.Equal(t, model.PlatformUnknown, adapter.Classify(unrecognized, ""))

	assert.Equal(t, model.PlatformAndroidTV, adapter.Classify(http.Header{}, "Stremio AndroidTV build"))
	assert.Equal(t, model.PlatformAndroidTV, adapter.Classify(http.Header{}, "Mozilla/5.0 (Linux; Android 9; Chromecast)"))
	assert.Equal(t, model.PlatformMobile, adapter.Classify(http.Header{}, "Mozilla/5.0 (Linux; Android 13; Pixel 7)"))
	assert.Equal(t, model.PlatformDesktop, adapter.Classify(http.Header{}, "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0)"))
	assert.Equal(t, model.PlatformUnknown, adapter.Classify(http.Header{}, "curl/8.0"))

	fallback := http.Header{}
	fallback.Set(services.HeaderStremioUserAgent, "StremioMobile iPhone")
	fallback.Set(services.HeaderUserAgent, "Mozilla/5.0 (Windows NT 10.0)")
	assert.Equal(t, model.PlatformMobile, adapter.Classify(fallback, ""))

	plain := http.Header{}
	plain.Set(services.HeaderUserAgent, "Mozilla/5.0 (X11; Linux x86_64)")
	assert.Equal(t, model.PlatformDesktop, adapter.Classify(plain, ""))
}

func TestPlatformFormat(t *testing.T) {
	adapter := services.NewPlatformAdapter(200)
	long := make([]rune, 500)
	for i := range long {
		long[i] = 'é'
	}
	meta := &model.EnrichedMeta{
		ID:          "tt0133093",
		Description: string(long),
		Poster:      "https://image.tmdb.org/t/p/w500/matrix.jpg",
	}

	tv := adapter.Format(meta, model.PlatformAndroidTV)
	assert.Len(t, []rune(tv.Description), 200)
	assert.Equal(t, "https://image.tmdb.org/t/p/w342/matrix.jpg", tv.Poster)

	desktop := adapter.Format(meta, model.PlatformDesktop)
	assert.Len(t, []rune(desktop.Description), 500)
	assert.Equal(t, meta.Poster, desktop.Poster)

	// The source meta is shared through the cache and stays untouched.
	assert.Len(t, []rune(meta.Description), 500)
	assert.Nil(t, adapter.Format(nil, model.PlatformAndroidTV))
}

func TestGenreNames(t *testing.T) {
	assert.Equal(t, []string{"Action", "Science Fiction"}, services.GenreNames([]int{28, 878, 424242}))
	assert.Equal(t, []string{"Sci-Fi & Fantasy"}, services.GenreNames([]int{10765}))
	assert.Nil(t, services.GenreNames(nil))
}
