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
// This file contains general-purpose utility functions that support the cloud package.
// These helpers cover hierarchical configuration loading, secret overlays from
// the environment, and resilient interaction with the Generative AI API.
//
// Functions:
//   - fileExists: A simple helper to check if a file exists.
//   - LoadConfig: Implements a hierarchical configuration loader. It first reads a base
//     configuration file and then overwrites values with a second, environment-specific
//     file (e.g., .env.local.toml, .env.test.toml). The environment is determined by
//     an environment variable. Secrets are finally taken from the process environment.
//   - GenerateTextResponse: A wrapper for making text calls to the GenAI model. It includes
//     a retry mechanism and records token usage and retries with OpenTelemetry counters.
//   - StripCodeFences: Removes markdown code fences models like to wrap output in.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

// Cloud Constants define key strings and values used throughout the package,
// primarily for configuration loading.
const (
	ConfigFileBaseName  = ".env"                  // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"                 // The file extension for configuration files.
	ConfigSeparator     = "."                     // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "CATALOG_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "CATALOG_RUNTIME"       // The environment variable for specifying the runtime context (e.g., "local", "test", "prod").
	EnvGeminiAPIKey     = "GEMINI_API_KEY"        // Overrides the api_key of every agent model.
	EnvTMDBAPIKey       = "TMDB_API_KEY"          // Overrides metadata_provider.api_key.
	EnvPort             = "PORT"                  // Overrides application.port.
	DefaultRuntime      = "local"
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("generative model returned no text")

// fileExists checks if a file or directory exists at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig provides a hierarchical configuration loading mechanism. It first loads a
// base configuration file and then merges or overwrites its values with an environment-specific
// configuration file. The paths and environment are determined by environment variables.
// Missing files are skipped; malformed files are an error.
//
// Inputs:
//   - config: The configuration struct to populate, usually created by NewConfig.
//
// Outputs:
//   - error: An error if a configuration file exists but cannot be decoded.
func LoadConfig(config *Config) error {
	// Read the directory path for config files from an environment variable.
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	// Ensure the prefix ends with a path separator if it's not empty.
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = DefaultRuntime
	}

	// e.g. "configs/.env.toml" followed by "configs/.env.local.toml".
	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	for _, fileName := range []string{baseConfigFileName, envConfigFileName} {
		if !fileExists(fileName) {
			slog.Debug("configuration file not found, skipping", "file", fileName)
			continue
		}
		if _, err := toml.DecodeFile(fileName, config); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", fileName, err)
		}
		slog.Info("loaded configuration file", "file", fileName)
	}

	return applyEnvironment(config)
}

// applyEnvironment overlays secrets and deployment settings that must not live
// in checked-in TOML files.
func applyEnvironment(config *Config) error {
	if key := os.Getenv(EnvGeminiAPIKey); key != "" {
		for name, m := range config.AgentModels {
			m.APIKey = key
			config.AgentModels[name] = m
		}
	}
	if key := os.Getenv(EnvTMDBAPIKey); key != "" {
		config.MetadataProvider.APIKey = key
	}
	if port := os.Getenv(EnvPort); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, port, err)
		}
		config.Application.Port = p
	}
	return nil
}

// GenerateTextResponse is a helper function for executing text requests against
// a Generative AI model. It includes logic for retries and telemetry.
//
// Inputs:
//   - ctx: The context for the request, which controls cancellation and tracing.
//   - inputTokenCounter: An OpenTelemetry counter for prompt tokens used.
//   - outputTokenCounter: An OpenTelemetry counter for response tokens generated.
//   - retryCounter: An OpenTelemetry counter for tracking the number of retries.
//   - tryCount: The current attempt number for this request (starts at 0).
//   - model: The rate-limited, quota-aware generative model to use.
//   - content: The prompt contents.
//
// Outputs:
//   - string: The concatenated text content from the model's response.
//   - error: An error if the request fails after all retries.
func GenerateTextResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	retryCounter metric.Int64Counter,
	tryCount int,
	model *QuotaAwareGenerativeAIModel,
	content []*genai.Content) (value string, err error) {
	resp, err := model.GenerateContent(ctx, content)
	if err != nil {
		if tryCount < model.MaxRetries {
			retryCounter.Add(ctx, 1)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-time.After(model.RetryBackoff):
			}
			return GenerateTextResponse(ctx, inputTokenCounter, outputTokenCounter, retryCounter, tryCount+1, model, content)
		}
		return "", err
	}

	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	value = strings.TrimSpace(sb.String())
	if value == "" {
		return "", ErrEmptyResponse
	}
	return value, nil
}

var codeFence = regexp.MustCompile("```[a-zA-Z0-9_-]*")

// StripCodeFences removes markdown code fence markers (```, ```csv, ```json, ...)
// wherever they appear and trims the result.
func StripCodeFences(in string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(in, ""))
}

// NewTextPart is a simple factory function for creating text-only prompt content.
func NewTextPart(in string) []*genai.Content {
	return genai.Text(in)
}
