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

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderRequestID = "X-Request-ID"
	jsonSuffix      = ".json"
)

// RequestID reuses the caller's request id or assigns a new one and echoes
// it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		trace.SpanFromContext(c.Request.Context()).SetAttributes(attribute.String("request.id", id))
		c.Next()
	}
}

// CacheHeaders lets hosts and proxies keep answers for an hour.
func CacheHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=3600")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}

func NewRouter(s *StateManager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(s.config.Application.Name))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:    []string{"*"},
	}))
	r.Use(RequestID())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	Dashboard(r.Group("/api/v1"), s)

	addon := r.Group("/", CacheHeaders())
	{
		manifest := NewManifest()
		addon.GET("/manifest.json", func(c *gin.Context) {
			c.JSON(http.StatusOK, manifest)
		})
		addon.GET("/catalog/:type/:id", s.handleCatalog)
		addon.GET("/catalog/:type/:id/:extra", s.handleCatalog)
		addon.GET("/meta/:type/:id", s.handleMeta)
	}
	return r
}

func (s *StateManager) handleCatalog(c *gin.Context) {
	mediaType, err := model.ParseMediaType(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var search string
	catalogID := c.Param("id")
	if c.Param("extra") != "" {
		// Android TV puts the extras into the path: /catalog/movie/top/search=heat.json
		// gin's params are already unescaped, so "%26" would split the query.
		values, err := url.ParseQuery(strings.TrimSuffix(lastSegment(c.Request.URL.EscapedPath()), jsonSuffix))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed catalog extra"})
			return
		}
		search = values.Get("search")
	} else {
		catalogID = strings.TrimSuffix(catalogID, jsonSuffix)
		search = c.Query("search")
	}
	if catalogID != CatalogSearch && catalogID != CatalogTop {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown catalog " + catalogID})
		return
	}

	platform := s.platform.Classify(c.Request.Header, "")
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout(platform))
	defer cancel()

	resp := s.search.Search(ctx, &model.SearchQuery{Text: search, Type: mediaType, Platform: platform})
	c.JSON(http.StatusOK, resp)
}

func lastSegment(escapedPath string) string {
	return escapedPath[strings.LastIndex(escapedPath, "/")+1:]
}

func (s *StateManager) handleMeta(c *gin.Context) {
	if _, err := model.ParseMediaType(c.Param("type")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	id := strings.TrimSuffix(c.Param("id"), jsonSuffix)

	platform := s.platform.Classify(c.Request.Header, "")
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout(platform))
	defer cancel()

	c.JSON(http.StatusOK, s.meta.Resolve(ctx, id, platform))
}
