/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package region owns the crop rectangle in natural space.
//
// A Region is always valid: every mutation clamps its input so that the
// rectangle stays inside Bounds, keeps at least MinSize on each side and, when
// an AspectRatio is set, keeps that ratio. Nothing here ever returns an error
// for a drag that goes too far; the rectangle simply stops at the limit.
package region

import (
	"fmt"

	"contentstudio/internal/geom"
)

// Region is the crop rectangle plus the constraints it lives under.
// The zero value is an unloaded region on which all mutations are no-ops.
type Region struct {
	bounds Bounds
	ratio  AspectRatio
	rect   geom.NaturalRect
}

// New creates a region initialized for bounds and ratio.
func New(bounds Bounds, ratio AspectRatio) *Region {
	r := &Region{}
	r.Initialize(bounds, ratio)
	return r
}

// Initialize resets the region to the largest centered rectangle of ratio
// inside bounds (the full media when ratio is free). A ratio that is not
// Valid is treated as free.
func (r *Region) Initialize(bounds Bounds, ratio AspectRatio) {
	if !ratio.Valid() {
		ratio = Free
	}
	r.bounds = bounds
	r.ratio = ratio
	if !bounds.Valid() {
		r.rect = geom.NaturalRect{}
		return
	}
	r.rect = FitCentered(bounds, ratio)
}

// SetRatio selects a new ratio and re-solves the region from scratch.
func (r *Region) SetRatio(ratio AspectRatio) { r.Initialize(r.bounds, ratio) }

// Move translates the region, clamping x and y independently. Size is kept.
func (r *Region) Move(dx, dy float64) {
	if !r.bounds.Valid() || !finite(dx) || !finite(dy) {
		return
	}
	r.rect.X = geom.Clamp(r.rect.X+dx, 0, r.bounds.Width-r.rect.Width)
	r.rect.Y = geom.Clamp(r.rect.Y+dy, 0, r.bounds.Height-r.rect.Height)
}

// Resize grows or shrinks the region with its top-left corner fixed.
func (r *Region) Resize(dw, dh float64) {
	if !r.bounds.Valid() || !finite(dw) || !finite(dh) {
		return
	}
	r.rect.Width, r.rect.Height = SolveResize(r.bounds, r.ratio, r.rect.X, r.rect.Y, r.rect.Width+dw, r.rect.Height+dh)
}

// Restore replaces the rectangle (from history or a saved draft), coercing it
// into the current constraints.
func (r *Region) Restore(rc geom.NaturalRect) {
	if !r.bounds.Valid() {
		return
	}
	r.rect = Normalize(r.bounds, r.ratio, rc)
}

func (r *Region) Rect() geom.NaturalRect { return r.rect }
func (r *Region) Bounds() Bounds         { return r.bounds }
func (r *Region) Ratio() AspectRatio     { return r.ratio }
func (r *Region) Loaded() bool           { return r.bounds.Valid() }

// Validate checks every region invariant; it exists for tests and for
// auditing restored drafts.
func (r *Region) Validate() error {
	if !r.bounds.Valid() {
		return nil
	}
	return Check(r.bounds, r.ratio, r.rect)
}

type InvariantError struct {
	Reason string
	Rect   geom.NaturalRect
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("region invariant: %s (%+v)", e.Reason, e.Rect)
}

func errInvariant(reason string, rc geom.NaturalRect) error {
	return &InvariantError{Reason: reason, Rect: rc}
}
