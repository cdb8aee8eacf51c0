/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "math"

// Scale is the display/natural ratio of a preview. The zero value is not
// usable; check Valid before converting.
type Scale struct {
	Factor float64
}

// Identity maps natural units 1:1 onto display units.
var Identity = Scale{Factor: 1}

// FitScale computes the factor that fits natural inside container without
// upscaling: min(cw/nw, ch/nh, 1). A container with a non-positive side places
// no limit on that axis.
func FitScale(container, natural Size) Scale {
	if natural.W <= 0 || natural.H <= 0 {
		return Scale{}
	}
	f := 1.0
	if container.W > 0 {
		f = math.Min(f, container.W/natural.W)
	}
	if container.H > 0 {
		f = math.Min(f, container.H/natural.H)
	}
	return Scale{Factor: f}
}

// TimelineScale maps a duration in seconds onto a track that is trackWidth
// pixels wide. Unlike FitScale the factor may exceed 1.
func TimelineScale(trackWidth, duration float64) Scale {
	if trackWidth <= 0 || duration <= 0 {
		return Scale{}
	}
	return Scale{Factor: trackWidth / duration}
}

// Valid reports whether the scale can be used for conversions.
func (s Scale) Valid() bool {
	return s.Factor > 0 && !math.IsInf(s.Factor, 0) && !math.IsNaN(s.Factor)
}

func (s Scale) ToDisplay(v float64) float64 { return v * s.Factor }
func (s Scale) ToNatural(v float64) float64 { return v / s.Factor }

func (s Scale) PtToNatural(p DisplayPt) NaturalPt {
	return NaturalPt{X: s.ToNatural(p.X), Y: s.ToNatural(p.Y)}
}

// DeriveOverlay computes the on-screen rectangle for a natural-space region.
// It is a pure function, called once per render from the current model.
func DeriveOverlay(r NaturalRect, s Scale) DisplayRect {
	return DisplayRect{
		X:      s.ToDisplay(r.X),
		Y:      s.ToDisplay(r.Y),
		Width:  s.ToDisplay(r.Width),
		Height: s.ToDisplay(r.Height),
	}
}
