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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. It provides a structured way to manage settings
// for the generative recommendation model, the TMDB metadata provider, the
// catalog pipeline's batching and caching policy, and the prompt templates.
//
// Structs:
//   - AgentModel: Configuration for a generative (LLM) model.
//   - MetadataProvider: Configuration for the TMDB REST API.
//   - Catalog: Caching, batching and timeout policy of the catalog pipeline.
//   - PromptTemplates: Holds the text templates for prompts sent to GenAI models.
//   - CacheWarmup: Pub/Sub subscription that feeds cache warm-up queries.
//   - Config: The top-level struct that aggregates all other configuration structs.
//
// Functions:
//   - NewConfig: A constructor that returns a Config populated with defaults.
package cloud

import (
	"time"

	"google.golang.org/genai"
)

// DefaultSafetySettings defines the content safety thresholds for GenAI models.
// Recommendations routinely mention violent or mature titles, so nothing is blocked.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// AgentModel represents the configuration for a generative language model.
type AgentModel struct {
	Model                 string  `toml:"model"`                    // The name of the Gemini model.
	APIKey                string  `toml:"api_key"`                  // Gemini API key; when empty the Vertex AI backend is used.
	SystemInstructions    string  `toml:"system_instructions"`      // The system instructions for the LLM.
	Temperature           float32 `toml:"temperature"`              // The temperature parameter for the LLM.
	TopP                  float32 `toml:"top_p"`                    // The top_p parameter for the LLM.
	TopK                  float32 `toml:"top_k"`                    // The top_k parameter for the LLM.
	MaxTokens             int32   `toml:"max_tokens"`               // The maximum number of tokens for the LLM output.
	OutputFormat          string  `toml:"output_format"`            // The response MIME type requested from the LLM.
	RateLimit             int     `toml:"rate_limit"`               // Requests per second allowed against the model.
	MaxRetries            int     `toml:"max_retries"`              // Retries after a failed call; 0 disables retrying.
	RetryBackoffInSeconds int     `toml:"retry_backoff_in_seconds"` // Wait between retries.
}

// MetadataProvider represents the configuration of the TMDB REST API.
type MetadataProvider struct {
	BaseURL                 string  `toml:"base_url"`                   // TMDB v3 API root.
	ImageBaseURL            string  `toml:"image_base_url"`             // TMDB image CDN root, without the size segment.
	APIKey                  string  `toml:"api_key"`                    // TMDB v3 API key.
	TimeoutInSeconds        int     `toml:"timeout_in_seconds"`         // HTTP client timeout.
	RequestsPerSecond       float64 `toml:"requests_per_second"`        // Client side rate limit.
	BreakerFailureThreshold uint32  `toml:"breaker_failure_threshold"`  // Consecutive failures that open the circuit.
	BreakerTimeoutInSeconds int     `toml:"breaker_timeout_in_seconds"` // How long the circuit stays open.
}

// Catalog holds the caching, batching and timeout policy of the pipeline.
type Catalog struct {
	Model                       string `toml:"model"`                           // Key into AgentModels used for recommendations.
	RecommendationTTLMinutes    int    `toml:"recommendation_ttl_minutes"`      // Lifetime of cached recommendations.
	MetadataTTLMinutes          int    `toml:"metadata_ttl_minutes"`            // Lifetime of cached TMDB records.
	BatchSize                   int    `toml:"batch_size"`                      // Candidates per enrichment chunk.
	ConcurrencyLimit            int    `toml:"concurrency_limit"`               // Enrichment calls in flight at once.
	InterBatchDelayMs           int    `toml:"inter_batch_delay_ms"`            // Pause between enrichment chunks.
	ProgressiveBatchSize        int    `toml:"progressive_batch_size"`          // Candidates per progressive window.
	ProviderTimeoutInSeconds    int    `toml:"provider_timeout_in_seconds"`     // Deadline applied to every provider call.
	TVDescriptionLimit          int    `toml:"tv_description_limit"`            // Description length on android-tv.
	MinimumRecommendations      int    `toml:"minimum_recommendations"`         // Items requested from the model.
	CacheSweepIntervalInSeconds int    `toml:"cache_sweep_interval_in_seconds"` // How often dead cache entries are dropped.
}

// PromptTemplates holds the templates for different types of prompts.
type PromptTemplates struct {
	RecommendationPrompt string `toml:"recommendation"` // The template for candidate generation.
}

// CacheWarmup configures the optional Pub/Sub fed cache warm-up.
type CacheWarmup struct {
	Subscription string `toml:"subscription"` // Subscription id; empty disables warm-up.
}

// Config represents the overall configuration for the application, loaded from TOML files.
// It acts as the root container for all other configuration structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name            string `toml:"name"`              // The name of the application.
		Port            int    `toml:"port"`              // HTTP listen port.
		GoogleProjectId string `toml:"google_project_id"` // The Google Cloud project ID; enables GCP exporters and Vertex AI.
		GoogleLocation  string `toml:"location"`          // The Google Cloud location.
		LogFile         string `toml:"log_file"`          // Optional file that receives a copy of the logs.
	} `toml:"application"`
	MetadataProvider MetadataProvider      `toml:"metadata_provider"` // TMDB configuration.
	Catalog          Catalog               `toml:"catalog"`           // Pipeline policy.
	PromptTemplates  PromptTemplates       `toml:"prompt_templates"`  // Prompt templates configuration.
	CacheWarmup      CacheWarmup           `toml:"cache_warmup"`      // Cache warm-up trigger.
	AgentModels      map[string]AgentModel `toml:"agent_models"`      // Generative models, keyed by a logical name (e.g., "recommendation").
}

// DefaultRecommendationPrompt is used when no template is configured.
const DefaultRecommendationPrompt = `You are a movie and TV series recommendation expert. Generate at least {{.MINIMUM}} highly rated {{.TYPE}} recommendations for "{{.QUERY}}". Only recommend movies or series that you know are related to the query.

RESPONSE FORMAT:
{{.HEADER}}
{{.FORMAT_LINE}}

EXAMPLE:
{{.HEADER}}
{{.EXAMPLE}}

RULES:
1. Use pipe (|) as separator
2. No special characters or line breaks in text
3. Year must be a number
4. Type must be "{{.TYPE}}"
5. Keep descriptions concise and factual`

// NewConfig is a constructor function that creates a new Config instance with
// working defaults. Values decoded from TOML files overwrite these.
//
// Outputs:
//   - *Config: A pointer to a new Config struct with defaults and initialized maps.
func NewConfig() *Config {
	c := &Config{
		AgentModels: map[string]AgentModel{
			"recommendation": {
				Model:                 "gemini-2.0-flash",
				Temperature:           0.7,
				TopP:                  0.95,
				TopK:                  40,
				MaxTokens:             2048,
				OutputFormat:          "text/plain",
				RateLimit:             5,
				MaxRetries:            0,
				RetryBackoffInSeconds: 5,
			},
		},
	}
	c.Application.Name = "ai-catalog-search"
	c.Application.Port = 7000
	c.Application.GoogleLocation = "us-central1"
	c.MetadataProvider = MetadataProvider{
		BaseURL:                 "https://api.themoviedb.org/3",
		ImageBaseURL:            "https://image.tmdb.org/t/p",
		TimeoutInSeconds:        10,
		RequestsPerSecond:       40,
		BreakerFailureThreshold: 5,
		BreakerTimeoutInSeconds: 30,
	}
	c.Catalog = Catalog{
		Model:                       "recommendation",
		RecommendationTTLMinutes:    60,
		MetadataTTLMinutes:          30,
		BatchSize:                   15,
		ConcurrencyLimit:            3,
		InterBatchDelayMs:           250,
		ProgressiveBatchSize:        5,
		ProviderTimeoutInSeconds:    20,
		TVDescriptionLimit:          200,
		MinimumRecommendations:      10,
		CacheSweepIntervalInSeconds: 300,
	}
	c.PromptTemplates.RecommendationPrompt = DefaultRecommendationPrompt
	return c
}

// RecommendationTTL returns the lifetime of cached recommendations.
func (c *Catalog) RecommendationTTL() time.Duration {
	return time.Duration(c.RecommendationTTLMinutes) * time.Minute
}

// MetadataTTL returns the lifetime of cached TMDB records.
func (c *Catalog) MetadataTTL() time.Duration {
	return time.Duration(c.MetadataTTLMinutes) * time.Minute
}

// InterBatchDelay returns the pause inserted between enrichment chunks.
func (c *Catalog) InterBatchDelay() time.Duration {
	return time.Duration(c.InterBatchDelayMs) * time.Millisecond
}

// ProviderTimeout returns the deadline applied to every provider call.
func (c *Catalog) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutInSeconds) * time.Second
}

// CacheSweepInterval returns how often dead cache entries are dropped.
func (c *Catalog) CacheSweepInterval() time.Duration {
	return time.Duration(c.CacheSweepIntervalInSeconds) * time.Second
}
