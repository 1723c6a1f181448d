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

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	mexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	telemetryexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/cloud"
	"go.opentelemetry.io/contrib/detectors/gcp"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// SetupOpenTelemetry installs the global propagator, tracer provider and
// meter provider. With a Google project configured, spans go to Cloud Trace
// and metrics to Cloud Monitoring; without one, spans are still created so
// logs keep their trace ids, but nothing is exported.
//
// The returned shutdown flushes and stops every provider and must be called
// before the process exits.
func SetupOpenTelemetry(ctx context.Context, config *cloud.Config) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())

	exportToGoogle := config.Application.GoogleProjectId != ""
	detectors := []resource.Option{
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceNameKey.String(config.Application.Name)),
	}
	if exportToGoogle {
		detectors = append(detectors, resource.WithDetectors(gcp.NewDetector()))
	}
	res, err := resource.New(ctx, detectors...)
	if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
		slog.Warn("partial resource detection", "error", err)
	} else if err != nil {
		return nil, fmt.Errorf("resource.New failed: %w", err)
	}

	traceOptions := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	meterOptions := []metric.Option{metric.WithResource(res)}

	if exportToGoogle {
		traceExporter, err := telemetryexporter.New(telemetryexporter.WithProjectID(config.Application.GoogleProjectId))
		if err != nil {
			return nil, fmt.Errorf("unable to set up trace exporter: %w", err)
		}
		traceOptions = append(traceOptions, sdktrace.WithBatcher(traceExporter))

		metricExporter, err := mexporter.New(mexporter.WithProjectID(config.Application.GoogleProjectId))
		if err != nil {
			return nil, fmt.Errorf("unable to set up metric exporter: %w", err)
		}
		meterOptions = append(meterOptions, metric.WithReader(metric.NewPeriodicReader(metricExporter)))
	} else {
		slog.Info("no google project configured, telemetry is not exported")
	}

	tp := sdktrace.NewTracerProvider(traceOptions...)
	shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	otel.SetTracerProvider(tp)

	mp := metric.NewMeterProvider(meterOptions...)
	shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
	otel.SetMeterProvider(mp)

	return shutdown, nil
}
