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

package main

import "github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"

// ManifestCatalog describes one catalog the addon offers.
type ManifestCatalog struct {
	Type     model.MediaType `json:"type"`
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Extra    []ManifestExtra `json:"extra"`
	IsSearch bool            `json:"isSearch"`
}

type ManifestExtra struct {
	Name       string `json:"name"`
	IsRequired bool   `json:"isRequired"`
}

type Manifest struct {
	ID            string            `json:"id"`
	Version       string            `json:"version"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Resources     []string          `json:"resources"`
	Types         []model.MediaType `json:"types"`
	Catalogs      []ManifestCatalog `json:"catalogs"`
	BehaviorHints map[string]bool   `json:"behaviorHints"`
}

// Catalog ids. Desktop and mobile clients search "search"; Android TV
// searches "top".
const (
	CatalogSearch = "search"
	CatalogTop    = "top"
)

func searchCatalog(t model.MediaType, id string, name string) ManifestCatalog {
	return ManifestCatalog{
		Type:     t,
		ID:       id,
		Name:     name,
		Extra:    []ManifestExtra{{Name: "search", IsRequired: true}},
		IsSearch: true,
	}
}

func NewManifest() *Manifest {
	return &Manifest{
		ID:          "com.github.jaycherian.aicatalog",
		Version:     "1.0.0",
		Name:        "AI Search",
		Description: "AI-powered movie and series recommendations",
		Resources:   []string{"catalog", "meta"},
		Types:       []model.MediaType{model.MediaTypeMovie, model.MediaTypeSeries},
		Catalogs: []ManifestCatalog{
			searchCatalog(model.MediaTypeMovie, CatalogSearch, "AI Movie Search"),
			searchCatalog(model.MediaTypeMovie, CatalogTop, "AI Movie Search"),
			searchCatalog(model.MediaTypeSeries, CatalogSearch, "AI Series Search"),
			searchCatalog(model.MediaTypeSeries, CatalogTop, "AI Series Search"),
		},
		BehaviorHints: map[string]bool{"configurable": false, "searchable": true},
	}
}
