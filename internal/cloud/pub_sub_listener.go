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
// This file defines a reusable Pub/Sub message listener that hands each
// message to a cor.Command. It drives cache warm-up: publishers drop search
// terms on a topic and the listener pre-fetches recommendations for them.
//
// Logic Flow:
//  1. A PubSubListener is created with a client and a subscription ID.
//  2. A Command (the warm-up workflow) is attached to it.
//  3. `Listen` starts a goroutine that receives messages until the context ends.
//  4. Each message becomes the `cor.CtxIn` input of a fresh chain context.
//  5. The message is acknowledged when the command finished without errors or
//     failed only with permanent errors (cor.ErrPermanent), which a redelivery
//     would repeat. Any other failure leaves it for redelivery.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubListener connects a Pub/Sub subscription to a processing command.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	command      cor.Command
}

// NewPubSubListener creates a listener for subscriptionID. The command may be
// nil and attached later with SetCommand.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (*PubSubListener, error) {
	return &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		command:      command,
	}, nil
}

// SetCommand attaches the command executed for each message. An already
// attached command is never replaced.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// shouldAck is true for successful executions and for failures that a
// redelivery cannot fix.
func shouldAck(chainCtx cor.Context) bool {
	if !chainCtx.HasErrors() {
		return true
	}
	if cor.OnlyPermanentErrors(chainCtx) {
		slog.WarnContext(chainCtx.GetContext(), "dropping message that cannot be processed")
		return true
	}
	return false
}

// Listen starts receiving messages in the background until ctx is cancelled.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.Info("listening for messages", "subscription", m.subscription.ID())

	go func() {
		tracer := otel.Tracer("message-listener")

		err := m.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(msgCtx, "receive-message")
			defer span.End()
			span.SetAttributes(
				attribute.String("message.id", msg.ID),
				attribute.String("msg", string(msg.Data)),
			)

			chainCtx := cor.NewBaseContext()
			chainCtx.SetContext(spanCtx)
			chainCtx.Add(cor.CtxIn, string(msg.Data))

			m.command.Execute(chainCtx)

			if !chainCtx.HasErrors() {
				span.SetStatus(codes.Ok, "success")
			} else {
				span.SetStatus(codes.Error, "failed")
				for name, e := range chainCtx.GetErrors() {
					slog.ErrorContext(spanCtx, "error executing chain", "command", name, "error", e)
				}
			}
			if shouldAck(chainCtx) {
				msg.Ack()
			}
			// Not acknowledged: Pub/Sub redelivers after the ack deadline.
		})
		if err != nil {
			slog.Error("error receiving data", "subscription", m.subscription.ID(), "error", err)
		}
	}()
}
