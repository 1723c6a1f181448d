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

package cor

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const meterName = "github.com/jaycherian/gcp-go-ai-catalog"

// BaseCommand carries what every command needs: a name, the context keys it
// reads and writes, a tracer and success/error counters. Concrete commands
// embed it and implement Execute.
type BaseCommand struct {
	Name            string              // Used for spans, counters and error keys.
	InputParamName  string              // Context key of the input; CtxIn when empty.
	OutputParamName string              // Context key of the output; CtxOut when empty.
	Tracer          trace.Tracer        // Tracer named after the command.
	Meter           metric.Meter        // Shared application meter.
	SuccessCounter  metric.Int64Counter // "<name>.counter.success"
	ErrorCounter    metric.Int64Counter // "<name>.counter.error"
}

func NewBaseCommand(name string) *BaseCommand {
	meter := otel.Meter(meterName)

	successCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.success", name))
	if err != nil {
		slog.Warn("error creating success counter", "command", name, "error", err)
	}
	errorCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.error", name))
	if err != nil {
		slog.Warn("error creating error counter", "command", name, "error", err)
	}

	return &BaseCommand{
		Name:           name,
		Tracer:         otel.Tracer(name),
		Meter:          meter,
		SuccessCounter: successCounter,
		ErrorCounter:   errorCounter,
	}
}

func (c *BaseCommand) GetName() string {
	return c.Name
}

// IsExecutable requires a Go context and a non-nil input value.
func (c *BaseCommand) IsExecutable(context Context) bool {
	return context != nil && context.Get(c.GetInputParam()) != nil && context.GetContext() != nil
}

func (c *BaseCommand) GetInputParam() string {
	if len(c.InputParamName) == 0 {
		return CtxIn
	}
	return c.InputParamName
}

func (c *BaseCommand) GetOutputParam() string {
	if len(c.OutputParamName) == 0 {
		return CtxOut
	}
	return c.OutputParamName
}

func (c *BaseCommand) GetTracer() trace.Tracer {
	return c.Tracer
}

func (c *BaseCommand) GetMeter() metric.Meter {
	return c.Meter
}

func (c *BaseCommand) GetSuccessCounter() metric.Int64Counter {
	return c.SuccessCounter
}

func (c *BaseCommand) GetErrorCounter() metric.Int64Counter {
	return c.ErrorCounter
}

// Fail records err for the command and bumps its error counter.
func (c *BaseCommand) Fail(context Context, err error) {
	c.ErrorCounter.Add(context.GetContext(), 1)
	context.AddError(c.GetName(), err)
}

// Succeed bumps the success counter.
func (c *BaseCommand) Succeed(context Context) {
	c.SuccessCounter.Add(context.GetContext(), 1)
}
