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
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/cloud"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	PosterSize   = "w500"
	BackdropSize = "original"

	castLimit    = 5
	similarLimit = 3
)

// ErrNoResults is returned by SearchTitle when TMDB knows no matching title.
var ErrNoResults = errors.New("tmdb: no results")

// SearchResult is the first hit of a TMDB /search call.
type SearchResult struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"` // movies
	Name         string  `json:"name"`  // tv
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
	GenreIDs     []int   `json:"genre_ids"`
}

// TitleDetails holds the parts of a TMDB details response requested through
// append_to_response.
type TitleDetails struct {
	ID          int `json:"id"`
	ExternalIDs struct {
		ImdbID string `json:"imdb_id"`
	} `json:"external_ids"`
	Credits struct {
		Cast []struct {
			Name      string `json:"name"`
			Character string `json:"character"`
		} `json:"cast"`
	} `json:"credits"`
	Similar struct {
		Results []struct {
			ID    int    `json:"id"`
			Title string `json:"title"`
			Name  string `json:"name"`
		} `json:"results"`
	} `json:"similar"`
}

// TopCast returns at most the first five billed cast members.
func (d *TitleDetails) TopCast() []*model.CastMember {
	out := make([]*model.CastMember, 0, castLimit)
	for _, c := range d.Credits.Cast {
		if len(out) == castLimit {
			break
		}
		out = append(out, &model.CastMember{Name: c.Name, Character: c.Character})
	}
	return out
}

// TopSimilar returns at most three similar titles.
func (d *TitleDetails) TopSimilar() []*model.SimilarTitle {
	out := make([]*model.SimilarTitle, 0, similarLimit)
	for _, s := range d.Similar.Results {
		if len(out) == similarLimit {
			break
		}
		title := s.Title
		if title == "" {
			title = s.Name
		}
		out = append(out, &model.SimilarTitle{TMDBID: s.ID, Title: title})
	}
	return out
}

// TitleSource is the metadata provider used by the MetadataEnricher.
type TitleSource interface {
	SearchTitle(ctx context.Context, name string, t model.MediaType, year int) (*SearchResult, error)
	Details(ctx context.Context, t model.MediaType, tmdbID int) (*TitleDetails, error)
	ImageURL(size string, path string) string
}

// TMDBClient is a small TMDB v3 client. Requests are traced with otelhttp,
// throttled by a token bucket and guarded by a circuit breaker so a failing
// TMDB does not stall every batch for the full timeout.
type TMDBClient struct {
	baseURL      string
	imageBaseURL string
	apiKey       string
	httpClient   *http.Client
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker[[]byte]
}

func NewTMDBClient(config cloud.MetadataProvider) *TMDBClient {
	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = 40
	}
	threshold := config.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 1,
		Timeout:     time.Duration(config.BreakerTimeoutInSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &TMDBClient{
		baseURL:      strings.TrimSuffix(config.BaseURL, "/"),
		imageBaseURL: strings.TrimSuffix(config.ImageBaseURL, "/"),
		apiKey:       config.APIKey,
		httpClient: &http.Client{
			Timeout:   time.Duration(config.TimeoutInSeconds) * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Limit(rps), max(1, int(rps))),
		breaker: breaker,
	}
}

func searchPath(t model.MediaType) string {
	if t == model.MediaTypeSeries {
		return "tv"
	}
	return "movie"
}

// SearchTitle returns the first TMDB hit for name. A positive year narrows
// the search to the release (movies) or first air (tv) year.
func (c *TMDBClient) SearchTitle(ctx context.Context, name string, t model.MediaType, year int) (*SearchResult, error) {
	q := url.Values{}
	q.Set("query", name)
	if year > 0 {
		if t == model.MediaTypeSeries {
			q.Set("first_air_date_year", strconv.Itoa(year))
		} else {
			q.Set("year", strconv.Itoa(year))
		}
	}

	var result struct {
		Results []*SearchResult `json:"results"`
	}
	if err := c.get(ctx, "/search/"+searchPath(t), q, &result); err != nil {
		return nil, err
	}
	if len(result.Results) == 0 || result.Results[0] == nil {
		return nil, fmt.Errorf("%w for %q (%s, %d)", ErrNoResults, name, t, year)
	}
	return result.Results[0], nil
}

// Details fetches external ids, credits and similar titles in one call.
func (c *TMDBClient) Details(ctx context.Context, t model.MediaType, tmdbID int) (*TitleDetails, error) {
	q := url.Values{}
	q.Set("append_to_response", "external_ids,credits,similar")

	out := &TitleDetails{}
	if err := c.get(ctx, fmt.Sprintf("/%s/%d", searchPath(t), tmdbID), q, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ImageURL builds an image URL; an empty path yields an empty URL.
func (c *TMDBClient) ImageURL(size string, path string) string {
	if path == "" {
		return ""
	}
	return c.imageBaseURL + "/" + size + path
}

func (c *TMDBClient) get(ctx context.Context, path string, q url.Values, dst interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("tmdb: rate limiter wait: %w", err)
	}
	q.Set("api_key", c.apiKey)
	reqURL := c.baseURL + path + "?" + q.Encode()

	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("tmdb: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("tmdb: request %s failed: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("tmdb: %s returned HTTP %d", path, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("tmdb: decode %s: %w", path, err)
	}
	return nil
}
