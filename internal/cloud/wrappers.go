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
// This file implements a wrapper around the Generative AI models client.
// This wrapper uses the Decorator design pattern to add rate limiting to an
// existing client without altering its code, and exposes a plain text-in /
// text-out call for the recommendation pipeline.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: Wraps a model handle, its generation config
//     and a token bucket rate limiter.
//
// Functions:
//   - NewQuotaAwareModel: A constructor to create a new instance of the wrapped model.
//   - GenerateContent: Waits for the rate limiter, then calls the model.
//   - GenerateText: Sends a single text prompt and returns the text answer.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ContentGenerator is the subset of *genai.Models used by the wrapper.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// QuotaAwareGenerativeAIModel is a decorator around a generative model handle
// that enforces a request rate and carries the retry policy.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // Generation parameters sent with every call.
	ModelName               string                       // e.g. "gemini-2.0-flash".
	ModelHandle             ContentGenerator             // Usually the *genai.Models of a genai.Client.
	RateLimit               *rate.Limiter                // Token bucket guarding the model quota.
	MaxRetries              int                          // Retries after a failed call.
	RetryBackoff            time.Duration                // Wait between retries.

	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// NewQuotaAwareModel is a constructor function that creates a new
// QuotaAwareGenerativeAIModel.
//
// Inputs:
//   - wrapped: The generation config sent with every request.
//   - name: The model name.
//   - modelHandle: The client used to reach the model.
//   - requestsPerSecond: Sustained request rate, also used as the burst size.
//
// Outputs:
//   - *QuotaAwareGenerativeAIModel: A pointer to the newly created wrapper.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, modelHandle ContentGenerator, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	meter := otel.Meter("github.com/jaycherian/gcp-go-ai-catalog")
	out := &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             modelHandle,
		RateLimit:               rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
	out.inputTokenCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.token.input", name))
	out.outputTokenCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.token.output", name))
	out.retryCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.retry", name))
	return out
}

// GenerateContent blocks until the rate limiter grants a token (or the context
// ends) and then forwards the request to the wrapped model.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait for %s: %w", q.ModelName, err)
	}
	resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
	if err != nil {
		return nil, fmt.Errorf("generate content with %s: %w", q.ModelName, err)
	}
	return resp, nil
}

// GenerateText sends a single text prompt and returns the model's text answer.
func (q *QuotaAwareGenerativeAIModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := GenerateTextResponse(ctx, q.inputTokenCounter, q.outputTokenCounter, q.retryCounter, 0, q, NewTextPart(prompt))
	slog.DebugContext(ctx, "generative model call finished", "model", q.ModelName, "duration", time.Since(start), "error", err)
	return out, err
}
