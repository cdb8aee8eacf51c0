/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package timeline owns the trim interval of a video in natural time.
//
// A Range is the 1-D analogue of region.Region: start and end are clamped on
// every mutation so that 0 <= start, end <= duration and the interval is never
// shorter than MinDuration.
package timeline

import (
	"fmt"
	"math"
	"strings"

	"contentstudio/internal/geom"
)

// MinDuration is the shortest trim interval in seconds.
const MinDuration = 0.1

// HandleThreshold is the fraction of the duration within which a pointer
// grabs a handle instead of seeking.
const HandleThreshold = 0.02

// Handle identifies a range boundary.
type Handle int

const (
	HandleNone Handle = iota
	HandleStart
	HandleEnd
)

func (h Handle) String() string {
	switch h {
	case HandleStart:
		return "start"
	case HandleEnd:
		return "end"
	default:
		return "none"
	}
}

// ParseHandle accepts "start"/"in" and "end"/"out".
func ParseHandle(s string) (Handle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start", "in":
		return HandleStart, nil
	case "end", "out":
		return HandleEnd, nil
	}
	return HandleNone, fmt.Errorf("timeline: unknown handle %q", s)
}

// Range is a trim interval. The zero value has no duration and ignores all
// mutations until Initialize is called.
type Range struct {
	duration float64
	start    float64
	end      float64
}

// New returns a range covering [0, duration].
func New(duration float64) *Range {
	r := &Range{}
	r.Initialize(duration)
	return r
}

// Initialize sets the media duration and resets to the full interval.
func (r *Range) Initialize(duration float64) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		*r = Range{}
		return
	}
	r.duration = duration
	r.Reset()
}

// Reset restores [0, duration].
func (r *Range) Reset() {
	r.start = 0
	r.end = r.duration
}

// SetStart moves the start boundary, clamped to [0, end-MinDuration].
func (r *Range) SetStart(t float64) {
	if !r.Loaded() {
		return
	}
	r.start = geom.Clamp(t, 0, math.Max(0, r.end-r.minDuration()))
}

// SetEnd moves the end boundary, clamped to [start+MinDuration, duration].
func (r *Range) SetEnd(t float64) {
	if !r.Loaded() {
		return
	}
	r.end = geom.Clamp(t, math.Min(r.duration, r.start+r.minDuration()), r.duration)
}

// Restore replaces both boundaries (from history or a draft). The end is
// applied first so an inverted pair collapses onto end-MinDuration.
func (r *Range) Restore(start, end float64) {
	if !r.Loaded() {
		return
	}
	r.Reset()
	r.SetEnd(end)
	r.SetStart(start)
}

// HitTest classifies a pointer time. The nearer boundary is grabbed when it
// lies within HandleThreshold*duration; ties go to the start handle. Anything
// else is HandleNone, which callers treat as a seek.
func (r *Range) HitTest(t float64) Handle {
	if !r.Loaded() {
		return HandleNone
	}
	threshold := HandleThreshold * r.duration
	distStart := math.Abs(t - r.start)
	distEnd := math.Abs(t - r.end)
	if distStart <= distEnd {
		if distStart <= threshold {
			return HandleStart
		}
		return HandleNone
	}
	if distEnd <= threshold {
		return HandleEnd
	}
	return HandleNone
}

// Contains reports whether t lies inside [start, end].
func (r *Range) Contains(t float64) bool { return t >= r.start && t <= r.end }

func (r *Range) Start() float64    { return r.start }
func (r *Range) End() float64      { return r.end }
func (r *Range) Duration() float64 { return r.duration }
func (r *Range) Length() float64   { return r.end - r.start }
func (r *Range) Loaded() bool      { return r.duration > 0 }

// minDuration shrinks MinDuration for clips that are shorter than it.
func (r *Range) minDuration() float64 { return math.Min(MinDuration, r.duration) }
