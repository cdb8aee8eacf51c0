/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"math"
	"testing"
)

func TestFitScale_NeverUpscales(t *testing.T) {
	s := FitScale(Size{W: 4000, H: 4000}, Size{W: 800, H: 600})
	if s.Factor != 1 {
		t.Fatalf("small media must not be upscaled, factor=%v", s.Factor)
	}
}

func TestFitScale_LimitingAxis(t *testing.T) {
	s := FitScale(Size{W: 1000, H: 1000}, Size{W: 2000, H: 1000})
	if s.Factor != 0.5 {
		t.Fatalf("factor = %v, want 0.5", s.Factor)
	}
	s = FitScale(Size{W: 1000, H: 250}, Size{W: 2000, H: 1000})
	if s.Factor != 0.25 {
		t.Fatalf("factor = %v, want 0.25 (height limited)", s.Factor)
	}
}

func TestFitScale_InvalidNatural(t *testing.T) {
	if FitScale(Size{W: 100, H: 100}, Size{}).Valid() {
		t.Fatalf("zero natural size must give an invalid scale")
	}
}

func TestTimelineScale(t *testing.T) {
	s := TimelineScale(600, 120)
	if s.Factor != 5 {
		t.Fatalf("factor = %v, want 5 px/s", s.Factor)
	}
	if TimelineScale(0, 120).Valid() {
		t.Fatalf("zero track width must give an invalid scale")
	}
}

func TestRoundTrip(t *testing.T) {
	factors := []float64{1, 0.5, 0.333333, 0.01, 0.7071, 3.2}
	values := []float64{0, 1, 17.25, 1999.999, 1e6, -42.5}
	for _, f := range factors {
		s := Scale{Factor: f}
		for _, v := range values {
			got := s.ToNatural(s.ToDisplay(v))
			if math.Abs(got-v) > 1e-9*math.Max(1, math.Abs(v)) {
				t.Fatalf("round trip factor=%v v=%v got %v", f, v, got)
			}
		}
	}
}

func TestDeriveOverlay(t *testing.T) {
	got := DeriveOverlay(NR(500, 0, 1000, 1000), Scale{Factor: 0.5})
	want := DR(250, 0, 500, 500)
	if got != want {
		t.Fatalf("overlay = %+v, want %+v", got, want)
	}
}

func TestFloatRoundAndClamp(t *testing.T) {
	if got := FloatRound(119.996, 2); got != 120 {
		t.Fatalf("FloatRound = %v, want 120", got)
	}
	if got := FloatRound(12.345678, 3); got != 12.346 {
		t.Fatalf("FloatRound = %v, want 12.346", got)
	}
	if got := Clamp(5, 10, 1); got != 10 {
		t.Fatalf("Clamp with inverted bounds = %v, want lo", got)
	}
	if got := Clamp(-1, 0, 3); got != 0 {
		t.Fatalf("Clamp = %v, want 0", got)
	}
	if got := Clamp(math.NaN(), 2, 3); got != 2 {
		t.Fatalf("Clamp(NaN) = %v, want lo", got)
	}
}
