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

// Package main is the catalog search server. It loads the configuration,
// sets up logging and telemetry, builds the pipeline and serves the addon
// routes until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/telemetry"
)

func main() {
	config := GetConfig()

	logCloser, err := telemetry.SetupLogging(config.Application.LogFile, slog.LevelInfo)
	if err != nil {
		log.Fatal(err)
	}
	defer logCloser.Close()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Error("Failed to flush telemetry", "error", err)
		}
	}()
	slog.Info("Tracing initialized")

	if err := InitState(ctx); err != nil {
		slog.Error("Failed to initialize state", "error", err)
		log.Fatal(err)
	}
	defer state.cloud.Close()
	slog.Info("Initialized State")

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Application.Port),
		Handler:           NewRouter(state),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen", "error", err)
			cancel()
		}
	}()
	slog.Info("Server ready", "port", config.Application.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed", "error", err)
	}
	cancel()
	slog.Info("Server exiting")
}
