/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"errors"
	"sync"
)

// ErrListenersHeld is returned when a session tries to acquire a surface that
// another session has not released yet.
var ErrListenersHeld = errors.New("gesture: move/up listeners already held")

// Surface owns the global pointer-move/pointer-up listener pair. Only one
// session may hold it at a time.
type Surface interface {
	Acquire(owner *Session) error
	Release(owner *Session)
}

// Hub is the in-process Surface. Attach and Detach are invoked when the
// listener pair changes hands so front ends can bind real event handlers.
type Hub struct {
	Attach func()
	Detach func()

	mu    sync.Mutex
	owner *Session
}

func (h *Hub) Acquire(owner *Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.owner != nil {
		return ErrListenersHeld
	}
	h.owner = owner
	if h.Attach != nil {
		h.Attach()
	}
	return nil
}

// Release detaches the listeners if owner holds them; otherwise it is a no-op.
func (h *Hub) Release(owner *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.owner == nil || h.owner != owner {
		return
	}
	h.owner = nil
	if h.Detach != nil {
		h.Detach()
	}
}

// Held reports whether some session currently owns the listeners.
func (h *Hub) Held() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.owner != nil
}
