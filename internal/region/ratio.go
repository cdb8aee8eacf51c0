/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package region

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AspectRatio is a width:height ratio. The zero value means free-form.
type AspectRatio struct {
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// Free is the free-form (unconstrained) ratio.
var Free = AspectRatio{}

var ErrBadRatio = errors.New("invalid aspect ratio")

// MinRatio and MaxRatio bound the accepted width/height value. Anything more
// extreme would collapse the minimum size of the short side.
const (
	MinRatio = 1.0 / 20
	MaxRatio = 20.0
)

// Ratio builds a ratio from two positive numbers.
func Ratio(w, h float64) AspectRatio { return AspectRatio{W: w, H: h} }

func (a AspectRatio) IsFree() bool { return a.W <= 0 || a.H <= 0 }

// Value returns width/height, or 0 for free-form.
func (a AspectRatio) Value() float64 {
	if a.IsFree() {
		return 0
	}
	return a.W / a.H
}

// Valid reports whether a is free-form or a finite ratio within
// [MinRatio, MaxRatio].
func (a AspectRatio) Valid() bool {
	if a == Free {
		return true
	}
	if !finite(a.W) || !finite(a.H) || a.W <= 0 || a.H <= 0 {
		return false
	}
	v := a.W / a.H
	return finite(v) && v >= MinRatio && v <= MaxRatio
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (a AspectRatio) String() string {
	if a.IsFree() {
		return "free"
	}
	return strconv.FormatFloat(a.W, 'f', -1, 64) + ":" + strconv.FormatFloat(a.H, 'f', -1, 64)
}

// ParseAspectRatio accepts "w:h" (e.g. "16:9", "1.91:1"), a plain decimal
// ("1.5") or "free"/"" for free-form.
func ParseAspectRatio(s string) (AspectRatio, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "free" || s == "custom" || s == "none" {
		return Free, nil
	}
	parts := strings.Split(s, ":")
	var a AspectRatio
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return Free, fmt.Errorf("%w: %q", ErrBadRatio, s)
		}
		a = AspectRatio{W: v, H: 1}
	case 2:
		w, errW := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		h, errH := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errW != nil || errH != nil {
			return Free, fmt.Errorf("%w: %q", ErrBadRatio, s)
		}
		a = AspectRatio{W: w, H: h}
	default:
		return Free, fmt.Errorf("%w: %q", ErrBadRatio, s)
	}
	if a.IsFree() || !a.Valid() {
		return Free, fmt.Errorf("%w: %q", ErrBadRatio, s)
	}
	return a, nil
}

// Preset is a named ratio offered by the crop dialog.
type Preset struct {
	Name  string
	Ratio AspectRatio
}

// Presets returns the built-in ratio choices used for social posts.
func Presets() []Preset {
	return []Preset{
		{Name: "Free", Ratio: Free},
		{Name: "Square 1:1", Ratio: Ratio(1, 1)},
		{Name: "Portrait 4:5", Ratio: Ratio(4, 5)},
		{Name: "Story 9:16", Ratio: Ratio(9, 16)},
		{Name: "Landscape 16:9", Ratio: Ratio(16, 9)},
		{Name: "Classic 4:3", Ratio: Ratio(4, 3)},
		{Name: "Cinema 21:9", Ratio: Ratio(21, 9)},
	}
}

// PresetFor returns the built-in preset with ratio a, if there is one.
func PresetFor(a AspectRatio) (Preset, bool) {
	for _, p := range Presets() {
		if p.Ratio == a || (p.Ratio.IsFree() && a.IsFree()) {
			return p, true
		}
	}
	return Preset{}, false
}
