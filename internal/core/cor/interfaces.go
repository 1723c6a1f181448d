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

// Package cor (Chain of Responsibility) is the small workflow engine behind
// catalog search. A workflow is a Chain of Commands that share a Context; the
// chain pipes each command's CtxOut into the next command's CtxIn, opens a
// span per command and stops on the first error or when a command halts it.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CtxIn holds the primary input of a command. BaseChain fills it with the
	// output of the previous command.
	CtxIn = "__IN__"
	// CtxOut is where a command leaves its primary output for the next one.
	CtxOut = "__OUT__"
)

// Context is the property bag shared by all commands of one execution.
type Context interface {
	// SetContext sets the Go context carrying deadlines and the active span.
	SetContext(context context.Context)
	GetContext() context.Context

	// Add stores a value and returns the Context for chaining.
	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records a failure, keyed by the name of the failing command.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool

	// Halt marks the execution as finished. Chains run no further commands
	// once halted; it is not an error.
	Halt()
	IsHalted() bool
}

// Executable is anything with an Execute step.
type Executable interface {
	Execute(context Context)
}

// Command is one unit of work in a workflow.
type Command interface {
	Executable

	GetName() string

	// GetInputParam and GetOutputParam return the keys the command reads its
	// input from and writes its output to.
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable is the precondition checked by a chain before Execute.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command made of other commands, so chains nest.
type Chain interface {
	Command

	// ContinueOnFailure keeps the chain running after a command records an error.
	ContinueOnFailure(bool) Chain

	AddCommand(command Command) Chain
}
