/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package region

// Aspect constraint solving. These helpers are pure and deterministic so the
// interactive code paths and the tests share the exact same math.

import (
	"math"

	"contentstudio/internal/geom"
)

// MinSize is the smallest allowed crop side in natural units.
const MinSize = 50.0

// Epsilon is the tolerance used when checking the ratio invariant.
const Epsilon = 1e-6

// Bounds are the natural dimensions of the media being cropped.
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b Bounds) Valid() bool {
	return b.Width > 0 && b.Height > 0 && finite(b.Width) && finite(b.Height)
}

// MinDims returns the minimum width and height for a region inside b.
// With a ratio the minimum is widened so that the derived side still honours
// MinSize. Media smaller than the minimum shrinks the minimum to the bound.
func MinDims(b Bounds, ratio AspectRatio) (minW, minH float64) {
	minW, minH = MinSize, MinSize
	if r := ratio.Value(); r > 0 {
		if r >= 1 {
			minW = MinSize * r
		} else {
			minH = MinSize / r
		}
		if minW > b.Width || minH > b.Height {
			k := math.Min(b.Width/minW, b.Height/minH)
			minW *= k
			minH *= k
		}
		return minW, minH
	}
	return math.Min(minW, b.Width), math.Min(minH, b.Height)
}

// FitCentered returns the largest rectangle of ratio that fits b, centered.
// For free-form it is the full bounds. The limiting dimension is height when
// the media is relatively wider than the ratio, width otherwise.
func FitCentered(b Bounds, ratio AspectRatio) geom.NaturalRect {
	w, h := b.Width, b.Height
	if r := ratio.Value(); r > 0 {
		if b.Width/b.Height > r {
			h = b.Height
			w = h * r
		} else {
			w = b.Width
			h = w / r
		}
	}
	return geom.NR((b.Width-w)/2, (b.Height-h)/2, w, h)
}

// SolveResize resolves a proposed top-left anchored resize. The proposal is
// raised to the minimum, then clamped to the space right of x and below y.
// With a ratio, height is derived from the clamped width; when that height
// does not fit, it is clamped and width is derived back from it. Width is
// therefore the side that gives way near an edge.
func SolveResize(b Bounds, ratio AspectRatio, x, y, w, h float64) (float64, float64) {
	minW, minH := MinDims(b, ratio)
	availW := b.Width - x
	availH := b.Height - y

	w = math.Min(math.Max(minW, w), availW)
	h = math.Min(math.Max(minH, h), availH)
	if r := ratio.Value(); r > 0 {
		h = w / r
		if h > availH {
			h = availH
			w = h * r
		}
	}
	return w, h
}

// Normalize coerces an arbitrary rectangle into a valid region for b and
// ratio, keeping its position where possible.
func Normalize(b Bounds, ratio AspectRatio, rc geom.NaturalRect) geom.NaturalRect {
	minW, minH := MinDims(b, ratio)
	w := geom.Clamp(rc.Width, minW, b.Width)
	h := geom.Clamp(rc.Height, minH, b.Height)
	if r := ratio.Value(); r > 0 {
		h = w / r
		if h > b.Height {
			h = b.Height
			w = h * r
		}
	}
	x := geom.Clamp(rc.X, 0, b.Width-w)
	y := geom.Clamp(rc.Y, 0, b.Height-h)
	return geom.NR(x, y, w, h)
}

// Check reports the first invariant violated by rc, or nil.
func Check(b Bounds, ratio AspectRatio, rc geom.NaturalRect) error {
	const tol = 1e-9
	minW, minH := MinDims(b, ratio)
	switch {
	case !finite(rc.X) || !finite(rc.Y) || !finite(rc.Width) || !finite(rc.Height):
		return errInvariant("non-finite coordinate", rc)
	case rc.X < -tol || rc.Y < -tol:
		return errInvariant("origin outside bounds", rc)
	case rc.X+rc.Width > b.Width+tol || rc.Y+rc.Height > b.Height+tol:
		return errInvariant("extent outside bounds", rc)
	case rc.Width < minW-tol || rc.Height < minH-tol:
		return errInvariant("below minimum size", rc)
	}
	if r := ratio.Value(); r > 0 && math.Abs(rc.Width/rc.Height-r) > Epsilon {
		return errInvariant("ratio not preserved", rc)
	}
	return nil
}
