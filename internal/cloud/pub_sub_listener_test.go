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

package cloud

import (
	"context"
	"errors"
	"testing"

	"github.com/jaycherian/gcp-go-ai-catalog/internal/core/cor"
	"github.com/stretchr/testify/assert"
)

func newChainContext(errs map[string]error) cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	for name, err := range errs {
		ctx.AddError(name, err)
	}
	return ctx
}

func TestShouldAck(t *testing.T) {
	tests := []struct {
		name string
		errs map[string]error
		want bool
	}{
		{name: "success", want: true},
		{name: "malformed message", errs: map[string]error{"parse": cor.Permanent(errors.New("bad json"))}, want: true},
		{name: "provider outage", errs: map[string]error{"warm": errors.New("deadline exceeded")}, want: false},
		{name: "mixed", errs: map[string]error{
			"parse": cor.Permanent(errors.New("bad json")),
			"warm":  errors.New("deadline exceeded"),
		}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldAck(newChainContext(tt.errs)))
		})
	}
}
