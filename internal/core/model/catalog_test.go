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

// Package model_test contains unit tests for the data models defined in the
// model package: synthetic id generation and parsing, media type parsing and
// the quality gate on the cached title record.
package model_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func TestSyntheticID(t *testing.T) {
	assert.Equal(t, "ai_movie_the_matrix", model.SyntheticID(model.MediaTypeMovie, "The Matrix"))
	assert.Equal(t, "ai_series_breaking_bad", model.SyntheticID(model.MediaTypeSeries, "Breaking Bad"))
	// Runs of punctuation and spaces collapse to a single underscore.
	assert.Equal(t, "ai_movie_spider_man_no_way_home", model.SyntheticID(model.MediaTypeMovie, "Spider-Man: No Way Home"))
	assert.Equal(t, "wall_e_", model.Slug("WALL·E!"))
}

func TestNewCandidate(t *testing.T) {
	c := model.NewCandidate(model.MediaTypeMovie, "The Matrix", 1999, "desc", "why")
	assert.Equal(t, "ai_movie_the_matrix", c.ID)
	assert.Equal(t, 1999, c.Year)
	assert.Equal(t, model.MediaTypeMovie, c.Type)
}

func TestParseSyntheticID(t *testing.T) {
	typ, name, ok := model.ParseSyntheticID("ai_movie_the_matrix")
	assert.True(t, ok)
	assert.Equal(t, model.MediaTypeMovie, typ)
	assert.Equal(t, "the matrix", name)

	typ, name, ok = model.ParseSyntheticID("ai_series_breaking_bad")
	assert.True(t, ok)
	assert.Equal(t, model.MediaTypeSeries, typ)
	assert.Equal(t, "breaking bad", name)

	for _, bad := range []string{"tt0133093", "ai_", "ai_movie", "ai_movie_", "ai_podcast_serial"} {
		_, _, ok := model.ParseSyntheticID(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseMediaType(t *testing.T) {
	mt, err := model.ParseMediaType(" Series ")
	assert.NoError(t, err)
	assert.Equal(t, model.MediaTypeSeries, mt)

	_, err = model.ParseMediaType("channel")
	assert.Error(t, err)
}

func TestIntentConflictsWith(t *testing.T) {
	assert.True(t, model.IntentMovie.ConflictsWith(model.MediaTypeSeries))
	assert.False(t, model.IntentMovie.ConflictsWith(model.MediaTypeMovie))
	assert.False(t, model.IntentAmbiguous.ConflictsWith(model.MediaTypeSeries))
}

func TestTitleRecordDisplayable(t *testing.T) {
	var nilRecord *model.TitleRecord
	assert.False(t, nilRecord.Displayable())
	assert.False(t, (&model.TitleRecord{PosterURL: "p"}).Displayable())
	assert.False(t, (&model.TitleRecord{ImdbID: "tt1"}).Displayable())
	assert.True(t, (&model.TitleRecord{PosterURL: "p", ImdbID: "tt1"}).Displayable())
}
