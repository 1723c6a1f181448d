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
	"log/slog"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/cloud"
)

// SetupListeners attaches the warm-up workflow to its Pub/Sub listener and
// starts it. Without a configured subscription there is nothing to do.
func SetupListeners(ctx context.Context, s *StateManager) {
	if s.cloud == nil {
		return
	}
	listener, ok := s.cloud.PubSubListeners[cloud.WarmupListenerName]
	if !ok {
		slog.Info("cache warm-up listener disabled")
		return
	}
	listener.SetCommand(s.warmup)
	listener.Listen(ctx)
}
