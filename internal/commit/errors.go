/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package commit

import (
	"errors"
	"fmt"
)

var (
	// ErrCommitPending is returned while an earlier commit has not resolved.
	ErrCommitPending = errors.New("commit: another commit is still in flight")
	// ErrInvalidPayload marks payloads rejected before they leave the process.
	ErrInvalidPayload = errors.New("commit: invalid payload")
)

// Error is a failed commit. Detail carries the human-readable message from
// the asset service, or the transport error when no response arrived.
type Error struct {
	Op         string // "crop" or "trim"
	StatusCode int    // 0 when no HTTP response was received
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s commit failed: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("%s commit failed: HTTP %d: %s", e.Op, e.StatusCode, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable is true for server errors and transport failures.
// Client errors (4xx) and rejected payloads are permanent.
func (e *Error) IsRetryable() bool {
	if errors.Is(e.Err, ErrInvalidPayload) {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode >= 500
}
