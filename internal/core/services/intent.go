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

// Package services holds the stateful building blocks of the catalog search
// pipeline: intent detection, the generative recommendation fetcher and its
// line parser, the TMDB client and enricher, the batch scheduler and the
// platform adapter. Workflows in package workflow compose them into chains.
package services

import (
	"strings"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
)

var (
	movieKeywords = []string{
		"movie", "movies", "film", "films", "cinema", "theatrical", "feature", "features",
		"motion picture", "blockbuster", "documentary", "documentaries",
	}
	seriesKeywords = []string{
		"series", "show", "shows", "tv", "television", "episode", "episodes", "sitcom",
		"drama series", "miniseries", "season", "seasons", "anime", "documentary series",
		"docuseries", "web series",
	}
)

// IntentClassifier guesses whether a free-text query asks for movies, series
// or leaves it open. Matching is a plain lower-cased substring test, so "tv"
// also matches inside longer words.
type IntentClassifier struct {
	MovieKeywords  []string
	SeriesKeywords []string
}

// NewIntentClassifier returns a classifier with the built-in keyword sets.
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{MovieKeywords: movieKeywords, SeriesKeywords: seriesKeywords}
}

// Classify returns IntentMovie or IntentSeries when only that keyword set
// matches, and IntentAmbiguous when both or neither do.
func (c *IntentClassifier) Classify(query string) model.Intent {
	q := strings.ToLower(query)
	movie := containsAny(q, c.MovieKeywords)
	series := containsAny(q, c.SeriesKeywords)
	switch {
	case movie && !series:
		return model.IntentMovie
	case series && !movie:
		return model.IntentSeries
	default:
		return model.IntentAmbiguous
	}
}

func containsAny(in string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(in, k) {
			return true
		}
	}
	return false
}
