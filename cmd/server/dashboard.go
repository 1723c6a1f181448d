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
	"net/http"

	"github.com/gin-gonic/gin"
)

// CacheStats reports the number of entries each cache holds, expired
// entries included until the next sweep.
type CacheStats struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// Dashboard mounts the operational statistics routes under r.
func Dashboard(r *gin.RouterGroup, s *StateManager) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			recommendations := s.fetcher.Cache()
			records := s.enricher.Cache()
			c.JSON(http.StatusOK, gin.H{
				"caches": []CacheStats{
					{Name: recommendations.Name(), Entries: recommendations.Len()},
					{Name: records.Name(), Entries: records.Len()},
				},
			})
		})
	}
}
