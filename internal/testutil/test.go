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

// Package test provides helpers and canned data shared by the package tests:
// a test configuration, a scripted generative model and an in-process fake
// of the TMDB API.
package test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/cloud"
)

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetConfig returns the default configuration tuned for fast tests: no
// inter-batch delay worth waiting for and a short provider timeout.
func GetConfig() *cloud.Config {
	config := cloud.NewConfig()
	config.Application.Name = "ai-catalog-search-test"
	config.Catalog.InterBatchDelayMs = 1
	config.Catalog.ProviderTimeoutInSeconds = 5
	config.MetadataProvider.APIKey = "test-key"
	config.MetadataProvider.RequestsPerSecond = 1000
	return config
}

// GetTestRecommendationText returns a generative answer as it tends to come
// back: fenced, with the header echoed, one malformed line and one line of
// the wrong type.
func GetTestRecommendationText() string {
	return "```csv\n" +
		"type|name|year|description|relevance\n" +
		"movie|The Matrix|1999|A hacker learns the truth about reality|Defining cyberpunk film\n" +
		"movie|Dark City|1998|A man wakes with no memory in a city without sun|Shares the simulated world theme\n" +
		"movie|Ghost in the Shell\n" +
		"series|Westworld|2016|Hosts in a theme park awaken|Similar ideas\n" +
		"movie|eXistenZ|unknown|A game designer is lost in her own game|Reality bending\n" +
		"```"
}

// GetTestWarmupMessageText returns a cache warm-up Pub/Sub payload.
func GetTestWarmupMessageText() string {
	return `{"query": "mind bending sci-fi", "types": ["movie", "series"]}`
}

// FakeGenerator is a scripted generative model. Respond, when set, wins
// over Response and Err.
type FakeGenerator struct {
	Response string
	Err      error
	Delay    time.Duration
	Respond  func(prompt string) (string, error)

	calls   atomic.Int32
	mu      sync.Mutex
	prompts []string
}

func (f *FakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.Delay):
		}
	}
	if f.Respond != nil {
		return f.Respond(prompt)
	}
	return f.Response, f.Err
}

// Calls returns how many times GenerateText was invoked.
func (f *FakeGenerator) Calls() int {
	return int(f.calls.Load())
}

// Prompts returns a copy of every prompt received.
func (f *FakeGenerator) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// TMDBTitle is one title known to the FakeTMDB server.
type TMDBTitle struct {
	ID           int
	Name         string
	Overview     string
	PosterPath   string
	BackdropPath string
	ImdbID       string
	GenreIDs     []int
	VoteAverage  float64
	Cast         []string
}

// FakeTMDB serves /search/{movie,tv} and /{movie,tv}/{id} for a fixed set
// of titles. Search matches on the lower-cased query.
type FakeTMDB struct {
	Server *httptest.Server

	// FailDetails makes every details request answer HTTP 500.
	FailDetails atomic.Bool
	// FailAll makes every request answer HTTP 500.
	FailAll atomic.Bool

	byName      map[string]*TMDBTitle
	byID        map[int]*TMDBTitle
	requests    atomic.Int32
	searchCalls atomic.Int32
	detailCalls atomic.Int32
	mu          sync.Mutex
	queries     []string
}

func NewFakeTMDB(titles ...*TMDBTitle) *FakeTMDB {
	f := &FakeTMDB{byName: make(map[string]*TMDBTitle), byID: make(map[int]*TMDBTitle)}
	for _, t := range titles {
		f.byName[strings.ToLower(t.Name)] = t
		f.byID[t.ID] = t
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

func (f *FakeTMDB) Close() {
	f.Server.Close()
}

// Config returns a metadata provider configuration pointing at the fake.
func (f *FakeTMDB) Config() cloud.MetadataProvider {
	config := GetConfig().MetadataProvider
	config.BaseURL = f.Server.URL
	config.ImageBaseURL = "https://image.tmdb.org/t/p"
	config.TimeoutInSeconds = 5
	return config
}

// Requests counts every request that reached the server, failed ones included.
func (f *FakeTMDB) Requests() int {
	return int(f.requests.Load())
}

func (f *FakeTMDB) SearchCalls() int {
	return int(f.searchCalls.Load())
}

func (f *FakeTMDB) DetailCalls() int {
	return int(f.detailCalls.Load())
}

// Queries returns the raw query strings of all search requests.
func (f *FakeTMDB) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func (f *FakeTMDB) serve(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	if f.FailAll.Load() {
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}
	if r.URL.Query().Get("api_key") == "" {
		http.Error(w, "missing api key", http.StatusUnauthorized)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "search":
		f.searchCalls.Add(1)
		f.mu.Lock()
		f.queries = append(f.queries, r.URL.RawQuery)
		f.mu.Unlock()
		f.search(w, r, parts[1])
	case len(parts) == 2 && (parts[0] == "movie" || parts[0] == "tv"):
		f.detailCalls.Add(1)
		if f.FailDetails.Load() {
			http.Error(w, "details unavailable", http.StatusInternalServerError)
			return
		}
		f.details(w, parts[1])
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeTMDB) search(w http.ResponseWriter, r *http.Request, kind string) {
	results := make([]map[string]interface{}, 0, 1)
	if t, ok := f.byName[strings.ToLower(r.URL.Query().Get("query"))]; ok {
		titleKey := "title"
		if kind == "tv" {
			titleKey = "name"
		}
		results = append(results, map[string]interface{}{
			"id":            t.ID,
			titleKey:        t.Name,
			"overview":      t.Overview,
			"poster_path":   t.PosterPath,
			"backdrop_path": t.BackdropPath,
			"vote_average":  t.VoteAverage,
			"genre_ids":     t.GenreIDs,
		})
	}
	writeJSON(w, map[string]interface{}{"page": 1, "results": results})
}

func (f *FakeTMDB) details(w http.ResponseWriter, rawID string) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	t, ok := f.byID[id]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	cast := make([]map[string]string, 0, len(t.Cast))
	for _, name := range t.Cast {
		cast = append(cast, map[string]string{"name": name, "character": "Self"})
	}
	writeJSON(w, map[string]interface{}{
		"id":           t.ID,
		"external_ids": map[string]string{"imdb_id": t.ImdbID},
		"credits":      map[string]interface{}{"cast": cast},
		"similar": map[string]interface{}{"results": []map[string]interface{}{
			{"id": t.ID + 1, "title": t.Name + " Reloaded"},
		}},
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// MatrixTitle is a movie fixture with more cast than the enricher keeps.
func MatrixTitle() *TMDBTitle {
	return &TMDBTitle{
		ID:           603,
		Name:         "The Matrix",
		Overview:     "Set in the 22nd century, The Matrix tells the story of a computer hacker.",
		PosterPath:   "/matrix.jpg",
		BackdropPath: "/matrix-bg.jpg",
		ImdbID:       "tt0133093",
		GenreIDs:     []int{28, 878, 999999},
		VoteAverage:  8.217,
		Cast:         []string{"Keanu Reeves", "Laurence Fishburne", "Carrie-Anne Moss", "Hugo Weaving", "Gloria Foster", "Joe Pantoliano"},
	}
}

func DarkCityTitle() *TMDBTitle {
	return &TMDBTitle{
		ID:         2666,
		Name:       "Dark City",
		PosterPath: "/darkcity.jpg",
		ImdbID:     "tt0118929",
		GenreIDs:   []int{9648, 878},
	}
}

// PosterlessTitle has an IMDb id but no poster and never passes the gate.
func PosterlessTitle() *TMDBTitle {
	return &TMDBTitle{ID: 4242, Name: "eXistenZ", ImdbID: "tt0120907"}
}

// BreakingBadTitle is a series fixture.
func BreakingBadTitle() *TMDBTitle {
	return &TMDBTitle{
		ID:         1396,
		Name:       "Breaking Bad",
		Overview:   "A chemistry teacher diagnosed with cancer turns to manufacturing meth.",
		PosterPath: "/bb.jpg",
		ImdbID:     "tt0903747",
		GenreIDs:   []int{18, 80, 10765},
	}
}
