/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom holds the two coordinate spaces of the editor and the only
// conversions between them.
//
// Natural space is the media's own unit system (source pixels for images,
// seconds for video). Display space is what the user sees after the preview
// has been scaled into a viewport. The two spaces use distinct types so that
// a natural value cannot be added to or compared with a display value without
// passing through a Scale.
package geom

import "math"

// Size is a width/height pair in natural units.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// NaturalPt is a point in media space.
type NaturalPt struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DisplayPt is a point in on-screen space.
type DisplayPt struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NaturalRect is an axis-aligned rectangle in media space.
type NaturalRect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// DisplayRect is an axis-aligned rectangle in on-screen space.
type DisplayRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func NR(x, y, w, h float64) NaturalRect { return NaturalRect{X: x, Y: y, Width: w, Height: h} }
func DR(x, y, w, h float64) DisplayRect { return DisplayRect{X: x, Y: y, Width: w, Height: h} }

func (p NaturalPt) Sub(o NaturalPt) NaturalPt { return NaturalPt{X: p.X - o.X, Y: p.Y - o.Y} }

func (r NaturalRect) Max() NaturalPt { return NaturalPt{X: r.X + r.Width, Y: r.Y + r.Height} }
func (r DisplayRect) Max() DisplayPt { return DisplayPt{X: r.X + r.Width, Y: r.Y + r.Height} }

// Contains reports whether p lies inside r, edges included.
func (r DisplayRect) Contains(p DisplayPt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.Width && p.Y <= r.Y+r.Height
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

// Clamp limits v to [lo, hi]. When lo > hi, lo wins. NaN becomes lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
