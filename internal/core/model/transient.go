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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains the structures that only live in memory
// while a request (or a cache entry) is alive: the base record resolved from
// the metadata provider, and the trigger payload for cache warm-up.
package model

// These objects are held in the in-memory caches and are never persisted.

// CastMember is one billed actor of a title.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character,omitempty"`
}

// SimilarTitle is a related title suggested by the metadata provider.
type SimilarTitle struct {
	TMDBID int    `json:"tmdb_id"`
	Title  string `json:"title"`
}

// TitleRecord is the combined search + details record resolved from TMDB for
// one candidate. This is what the metadata cache stores; the quality gate
// and the platform formatting are applied on top of it for every request.
type TitleRecord struct {
	TMDBID      int             `json:"tmdb_id"`
	PosterURL   string          `json:"poster"`   // Empty when TMDB has no poster.
	BackdropURL string          `json:"backdrop"` // Empty when TMDB has no backdrop.
	Rating      float64         `json:"rating"`   // TMDB vote average.
	GenreIDs    []int           `json:"genre_ids"`
	Overview    string          `json:"overview"`
	ImdbID      string          `json:"imdb_id"` // Empty when the details fetch failed or TMDB has no cross reference.
	Cast        []*CastMember   `json:"cast,omitempty"`
	Similar     []*SimilarTitle `json:"similar,omitempty"`
}

// Displayable reports whether the record passes the quality gate: the host
// must never show an entry without a poster or without an IMDb id.
func (r *TitleRecord) Displayable() bool {
	return r != nil && r.PosterURL != "" && r.ImdbID != ""
}

// WarmupRequest is the payload of a cache warm-up trigger message.
type WarmupRequest struct {
	Query string      `json:"query"`
	Types []MediaType `json:"types,omitempty"` // Defaults to both movie and series.
}
