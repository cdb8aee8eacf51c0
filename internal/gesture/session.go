/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"contentstudio/internal/geom"
)

// Mode is the controller state. Idle means no session is active.
type Mode int

const (
	Idle Mode = iota
	Moving
	Resizing
	SeekingPlayhead
	DraggingStartHandle
	DraggingEndHandle
)

func (m Mode) String() string {
	switch m {
	case Moving:
		return "moving"
	case Resizing:
		return "resizing"
	case SeekingPlayhead:
		return "seeking"
	case DraggingStartHandle:
		return "handle-start"
	case DraggingEndHandle:
		return "handle-end"
	default:
		return "idle"
	}
}

// Session is one pointer-down to pointer-up interaction. It snapshots the
// model at pointer-down so every move is applied to the start state with the
// total delta, which keeps long drags free of accumulated rounding.
type Session struct {
	Mode    Mode
	Area    Area
	Pointer Pointer
	// Anchor is the pointer position at pointer-down, in natural units.
	Anchor geom.NaturalPt

	StartRect  geom.NaturalRect
	StartStart float64
	StartEnd   float64

	surface  Surface
	released bool
}

// open acquires the surface listeners for the new session.
func open(surface Surface, s *Session) (*Session, error) {
	if surface != nil {
		if err := surface.Acquire(s); err != nil {
			return nil, err
		}
	}
	s.surface = surface
	return s, nil
}

// End releases the listeners. It is safe to call more than once.
func (s *Session) End() {
	if s == nil || s.released {
		return
	}
	s.released = true
	if s.surface != nil {
		s.surface.Release(s)
	}
}

// Released reports whether End has run.
func (s *Session) Released() bool { return s.released }
