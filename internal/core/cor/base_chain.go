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

	"go.opentelemetry.io/otel/codes"
)

// BaseChain runs its commands in order.
//
// Logic Flow:
//  1. A span is opened for the chain and a child span for every command.
//  2. Before each command the chain stops if the context was halted, or if it
//     holds errors and continueOnFailure is false.
//  3. A command whose IsExecutable returns false is skipped and its span
//     marked as an error.
//  4. After each command the value in CtxOut moves to CtxIn, so the output
//     of one command is the input of the next.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
}

func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable only needs a Go context; the first command checks its own input.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context.GetContext() != nil
}

func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()
	// Nested chains hand the caller's context back when they finish.
	defer chCtx.SetContext(parentCtx)

	for _, command := range c.commands {
		if chCtx.IsHalted() {
			break
		}
		commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())

		if chCtx.HasErrors() && !c.continueOnFailure {
			commandSpan.SetStatus(codes.Error, "previous error on chain; skipping execution")
			commandSpan.End()
			break
		}

		if command.IsExecutable(chCtx) {
			chCtx.SetContext(commandContext)
			command.Execute(chCtx)
			// Keep sibling command spans flat under the chain span.
			chCtx.SetContext(outerCtx)
		} else {
			commandSpan.SetStatus(codes.Error, fmt.Sprintf("command not executable: %s", command.GetName()))
		}

		if chCtx.HasErrors() {
			commandSpan.SetStatus(codes.Error, "error during or after command execution")
		} else {
			commandSpan.SetStatus(codes.Ok, "command completed successfully")
		}
		commandSpan.End()

		outputValue := chCtx.Get(CtxOut)
		chCtx.Remove(CtxIn)
		if outputValue != nil {
			chCtx.Add(CtxIn, outputValue)
		}
		chCtx.Remove(CtxOut)
	}

	if !chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Ok, "chain completed successfully")
	} else {
		chainSpan.SetStatus(codes.Error, "chain failed to execute")
	}
}
