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
	"errors"
	"fmt"
)

// ErrPermanent marks a failure that will repeat no matter how often the same
// input is executed, such as a malformed message.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so that errors.Is matches both err and ErrPermanent.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// OnlyPermanentErrors reports whether context failed and every recorded
// error is permanent. Retrying such an execution is pointless.
func OnlyPermanentErrors(context Context) bool {
	if !context.HasErrors() {
		return false
	}
	for _, err := range context.GetErrors() {
		if !errors.Is(err, ErrPermanent) {
			return false
		}
	}
	return true
}
