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

// Package cloud provides components for interacting with Google Cloud services.
// This file is responsible for initializing and holding the client objects
// needed to talk to Google services. It acts as a dependency injection
// container: one `ServiceClients` struct is created at startup and handed to
// the pipeline and the server.
//
// Logic Flow:
//  1. `NewCloudServiceClients` is called at application startup with the loaded `Config`.
//  2. It creates the GenAI client, either against the Gemini API (when an API key is
//     configured) or against Vertex AI in the configured project.
//  3. Every configured agent model is wrapped in a rate-limited `QuotaAwareGenerativeAIModel`.
//  4. When a cache warm-up subscription is configured, a Pub/Sub client and listener are created.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/genai"
)

// WarmupListenerName is the key of the cache warm-up listener in PubSubListeners.
const WarmupListenerName = "CacheWarmup"

// ServiceClients is a central container for all the clients that interact
// with external Google services.
type ServiceClients struct {
	GenAIClient     *genai.Client                           // Client for Google's Generative AI services.
	PubsubClient    *pubsub.Client                          // Client for Pub/Sub; nil when warm-up is disabled.
	PubSubListeners map[string]*PubSubListener              // Active Pub/Sub listeners, keyed by a logical name.
	AgentModels     map[string]*QuotaAwareGenerativeAIModel // Generative models, keyed by a logical name.
}

// Close releases the client connections that need explicit shutdown.
func (c *ServiceClients) Close() {
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
}

// NewGenAIClientConfig picks the Gemini API backend when an API key is
// configured and Vertex AI otherwise.
func NewGenAIClientConfig(config *Config, apiKey string) *genai.ClientConfig {
	if apiKey != "" {
		return &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		}
	}
	return &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	}
}

// NewGenerateContentConfig translates an AgentModel into genai generation parameters.
func NewGenerateContentConfig(values AgentModel) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](values.Temperature),
		TopP:             genai.Ptr[float32](values.TopP),
		TopK:             genai.Ptr[float32](values.TopK),
		MaxOutputTokens:  values.MaxTokens,
		SafetySettings:   DefaultSafetySettings,
		ResponseMIMEType: values.OutputFormat,
	}
	if values.SystemInstructions != "" {
		out.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}}
	}
	return out
}

// NewCloudServiceClients is a factory function that initializes all required
// clients based on the provided configuration.
//
// Inputs:
//   - ctx: The root context.Context for the application.
//   - config: A pointer to the loaded application configuration.
//
// Outputs:
//   - *ServiceClients: A pointer to the fully initialized ServiceClients struct.
//   - error: An error if any of the clients fail to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	catalogModel, ok := config.AgentModels[config.Catalog.Model]
	if !ok {
		return nil, fmt.Errorf("catalog model %q is not configured in agent_models", config.Catalog.Model)
	}

	gc, err := genai.NewClient(ctx, NewGenAIClientConfig(config, catalogModel.APIKey))
	if err != nil {
		return nil, fmt.Errorf("error creating genai client: %w", err)
	}

	// Wrap every configured model with its own rate limiter and retry policy.
	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey, values := range config.AgentModels {
		wrapped := NewQuotaAwareModel(NewGenerateContentConfig(values), values.Model, gc.Models, values.RateLimit)
		wrapped.MaxRetries = values.MaxRetries
		wrapped.RetryBackoff = time.Duration(values.RetryBackoffInSeconds) * time.Second
		agentModels[amKey] = wrapped
		slog.Info("configured agent model", "key", amKey, "model", values.Model, "rate_limit", values.RateLimit)
	}

	out := &ServiceClients{
		GenAIClient:     gc,
		PubSubListeners: make(map[string]*PubSubListener),
		AgentModels:     agentModels,
	}

	if config.CacheWarmup.Subscription != "" {
		pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
		if err != nil {
			return nil, fmt.Errorf("error creating pubsub client: %w", err)
		}
		listener, err := NewPubSubListener(pc, config.CacheWarmup.Subscription, nil)
		if err != nil {
			_ = pc.Close()
			return nil, err
		}
		out.PubsubClient = pc
		out.PubSubListeners[WarmupListenerName] = listener
	}

	return out, nil
}
