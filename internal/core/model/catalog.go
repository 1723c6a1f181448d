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
// This file, `catalog.go`, holds the types that cross the boundary between the
// catalog pipeline and the addon host: the requested media type, the detected
// intent and platform, the AI suggested Candidate and the display-ready
// EnrichedMeta, plus the response envelopes returned to the host.
package model

import (
	"fmt"
	"regexp"
	"strings"
)

// MediaType is the catalog type requested by the host.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// ParseMediaType maps the host's type string to a MediaType. Anything other
// than "movie" or "series" is rejected.
func ParseMediaType(in string) (MediaType, error) {
	switch MediaType(strings.ToLower(strings.TrimSpace(in))) {
	case MediaTypeMovie:
		return MediaTypeMovie, nil
	case MediaTypeSeries:
		return MediaTypeSeries, nil
	}
	return "", fmt.Errorf("unsupported media type %q", in)
}

// Intent is the media type a free-text query appears to ask for.
type Intent string

const (
	IntentMovie     Intent = "movie"
	IntentSeries    Intent = "series"
	IntentAmbiguous Intent = "ambiguous"
)

// ConflictsWith reports whether a non-ambiguous intent points at a different
// media type than the one requested.
func (i Intent) ConflictsWith(t MediaType) bool {
	return i != IntentAmbiguous && string(i) != string(t)
}

// Platform is the device class of the requesting client.
type Platform string

const (
	PlatformAndroidTV Platform = "android-tv"
	PlatformMobile    Platform = "mobile"
	PlatformDesktop   Platform = "desktop"
	PlatformUnknown   Platform = "unknown"
)

// SearchQuery is the per-request input of the catalog pipeline.
type SearchQuery struct {
	Text     string    // The raw search term typed by the user.
	Type     MediaType // The catalog type the host asked for.
	Platform Platform  // The detected device class.
}

// SyntheticIDPrefix marks ids minted from AI recommendations rather than
// from a metadata provider.
const SyntheticIDPrefix = "ai_"

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lower-cases the name and collapses every run of characters outside
// [a-z0-9] into a single underscore.
func Slug(name string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "_")
}

// SyntheticID builds the `ai_{type}_{slug}` identifier for a recommended title.
func SyntheticID(t MediaType, name string) string {
	return fmt.Sprintf("%s%s_%s", SyntheticIDPrefix, t, Slug(name))
}

// ParseSyntheticID reverses SyntheticID as far as the slug allows: the type
// is recovered exactly, the name comes back lower-cased with underscores
// turned into spaces.
func ParseSyntheticID(id string) (t MediaType, name string, ok bool) {
	rest, found := strings.CutPrefix(id, SyntheticIDPrefix)
	if !found {
		return "", "", false
	}
	typePart, slug, found := strings.Cut(rest, "_")
	if !found {
		return "", "", false
	}
	t, err := ParseMediaType(typePart)
	if err != nil {
		return "", "", false
	}
	name = strings.TrimSpace(strings.ReplaceAll(slug, "_", " "))
	if name == "" {
		return "", "", false
	}
	return t, name, true
}

// Candidate is an unverified, AI suggested title awaiting enrichment.
// Candidates are immutable once built by NewCandidate.
type Candidate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"` // 0 when the provider's year could not be parsed.
	Type        MediaType `json:"type"`
	Description string    `json:"description,omitempty"`
	Relevance   string    `json:"relevance,omitempty"`
}

// NewCandidate builds a Candidate and derives its synthetic id.
func NewCandidate(t MediaType, name string, year int, description string, relevance string) Candidate {
	return Candidate{
		ID:          SyntheticID(t, name),
		Name:        name,
		Year:        year,
		Type:        t,
		Description: description,
		Relevance:   relevance,
	}
}

// PosterShapeRegular is the only layout hint the pipeline emits.
const PosterShapeRegular = "regular"

// EnrichedMeta is a display-ready catalog entry. It is only ever produced for
// titles that have both a poster and an IMDb cross reference id.
type EnrichedMeta struct {
	ID          string    `json:"id"` // IMDb id, e.g. "tt0133093".
	Type        MediaType `json:"type"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Year        int       `json:"year"`
	Poster      string    `json:"poster"`
	Background  string    `json:"background,omitempty"`
	Genres      []string  `json:"genres,omitempty"`
	PosterShape string    `json:"posterShape"`
	ImdbRating  string    `json:"imdbRating,omitempty"`
	Cast        []string  `json:"cast,omitempty"`
}

// Notification is a user facing message attached to a degraded response.
type Notification struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// CatalogResponse is the body returned for a catalog (search) request.
type CatalogResponse struct {
	Metas        []*EnrichedMeta `json:"metas"`
	Loading      bool            `json:"loading"`
	Notification *Notification   `json:"notification,omitempty"`
}

// EmptyCatalog returns a well formed response with no entries.
func EmptyCatalog() *CatalogResponse {
	return &CatalogResponse{Metas: make([]*EnrichedMeta, 0)}
}

// MetaResponse is the body returned for a detail request. Meta is nil when
// the id could not be resolved.
type MetaResponse struct {
	Meta *EnrichedMeta `json:"meta"`
}
