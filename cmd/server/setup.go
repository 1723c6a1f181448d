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
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/cloud"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cache"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/model"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/services"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/workflow"
)

// StateManager holds everything the HTTP handlers and background jobs share.
type StateManager struct {
	config   *cloud.Config
	cloud    *cloud.ServiceClients
	platform *services.PlatformAdapter
	fetcher  *services.RecommendationFetcher
	enricher *services.MetadataEnricher
	search   *workflow.CatalogSearchWorkflow
	meta     *workflow.MetaResolverWorkflow
	warmup   *workflow.CacheWarmupWorkflow
	sweeper  *workflow.CacheSweepWorkflow
}

var state = &StateManager{}

func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, cloud.DefaultRuntime)
	}
	return err
}

func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// NewStateManager builds the catalog pipeline around generator. Each call
// gets its own caches.
func NewStateManager(config *cloud.Config, generator services.TextGenerator) (*StateManager, error) {
	catalog := config.Catalog

	recommendations := cache.New[[]model.Candidate]("recommendations", catalog.RecommendationTTL())
	records := cache.New[*model.TitleRecord]("metadata", catalog.MetadataTTL())

	fetcher, err := services.NewRecommendationFetcher(
		generator,
		recommendations,
		config.PromptTemplates.RecommendationPrompt,
		catalog.MinimumRecommendations,
		catalog.ProviderTimeout())
	if err != nil {
		return nil, err
	}

	enricher := services.NewMetadataEnricher(services.NewTMDBClient(config.MetadataProvider), records, catalog.ProviderTimeout())
	platform := services.NewPlatformAdapter(catalog.TVDescriptionLimit)
	scheduler := services.NewBatchScheduler(enricher, platform, catalog.BatchSize, catalog.ConcurrencyLimit, catalog.InterBatchDelay())

	return &StateManager{
		config:   config,
		platform: platform,
		fetcher:  fetcher,
		enricher: enricher,
		search:   workflow.NewCatalogSearchWorkflow(config, fetcher, scheduler),
		meta:     workflow.NewMetaResolverWorkflow(enricher, platform),
		warmup:   workflow.NewCacheWarmupWorkflow(fetcher),
		sweeper:  workflow.NewCacheSweepWorkflow(catalog.CacheSweepInterval(), recommendations, records),
	}, nil
}

func InitState(ctx context.Context) error {
	config := GetConfig()
	if config.MetadataProvider.APIKey == "" {
		slog.Warn("no TMDB api key configured, every title will be dropped", "env", cloud.EnvTMDBAPIKey)
	}

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}

	generator, ok := cloudClients.AgentModels[config.Catalog.Model]
	if !ok {
		return fmt.Errorf("catalog model %q is not configured", config.Catalog.Model)
	}
	s, err := NewStateManager(config, generator)
	if err != nil {
		return err
	}
	s.cloud = cloudClients
	state = s

	state.sweeper.StartTimer(ctx)
	SetupListeners(ctx, state)
	return nil
}

// requestTimeout bounds a catalog or meta request. Android TV clients wait
// longer before giving up, so they get more time.
func requestTimeout(platform model.Platform) time.Duration {
	if platform == model.PlatformAndroidTV {
		return 45 * time.Second
	}
	return 30 * time.Second
}
