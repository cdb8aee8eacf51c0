/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package region

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"contentstudio/internal/geom"
)

func TestInitialize_SquareOnWideImage(t *testing.T) {
	r := New(Bounds{Width: 2000, Height: 1000}, Ratio(1, 1))
	want := geom.NR(500, 0, 1000, 1000)
	if diff := cmp.Diff(want, r.Rect()); diff != "" {
		t.Fatalf("initial region mismatch (-want +got):\n%s", diff)
	}
}

func TestInitialize_WideRatioOnTallImage(t *testing.T) {
	r := New(Bounds{Width: 1080, Height: 1920}, Ratio(16, 9))
	got := r.Rect()
	if got.Width != 1080 || math.Abs(got.Height-607.5) > 1e-9 {
		t.Fatalf("width should be limiting: %+v", got)
	}
	if math.Abs(got.Y-(1920-607.5)/2) > 1e-9 || got.X != 0 {
		t.Fatalf("region not centered: %+v", got)
	}
}

func TestInitialize_FreeIsFullMedia(t *testing.T) {
	r := New(Bounds{Width: 640, Height: 480}, Free)
	if diff := cmp.Diff(geom.NR(0, 0, 640, 480), r.Rect()); diff != "" {
		t.Fatalf("free region mismatch (-want +got):\n%s", diff)
	}
}

func TestResize_HeightLimitedKeepsRatio(t *testing.T) {
	// 2000x1000 with 1:1 starts at full height; growing by 100 natural units
	// has no room below, so the ratio pass pulls width back to the height.
	r := New(Bounds{Width: 2000, Height: 1000}, Ratio(1, 1))
	r.Resize(100, 100)
	if diff := cmp.Diff(geom.NR(500, 0, 1000, 1000), r.Rect()); diff != "" {
		t.Fatalf("resize mismatch (-want +got):\n%s", diff)
	}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestResize_WithRoomGrowsBothSides(t *testing.T) {
	r := New(Bounds{Width: 2000, Height: 2000}, Ratio(1, 1))
	r.Restore(geom.NR(500, 0, 1000, 1000))
	r.Resize(100, 100)
	if diff := cmp.Diff(geom.NR(500, 0, 1100, 1100), r.Rect()); diff != "" {
		t.Fatalf("resize mismatch (-want +got):\n%s", diff)
	}
}

func TestResize_HeightDerivedFromWidth(t *testing.T) {
	r := New(Bounds{Width: 2000, Height: 2000}, Ratio(1, 1))
	r.Restore(geom.NR(0, 0, 400, 400))
	r.Resize(100, -300) // dh ignored under a ratio
	got := r.Rect()
	if got.Width != 500 || got.Height != 500 {
		t.Fatalf("got %+v, want 500x500", got)
	}
}

func TestResize_TwoPassShrinksWidthNearBottomEdge(t *testing.T) {
	r := New(Bounds{Width: 2000, Height: 1000}, Ratio(2, 1))
	r.Restore(geom.NR(0, 600, 400, 200))
	r.Resize(1000, 0)
	got := r.Rect()
	if got.Height != 400 || got.Width != 800 {
		t.Fatalf("got %+v, want 800x400 (height clamped, width re-derived)", got)
	}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestResize_ClampedByRightEdge(t *testing.T) {
	r := New(Bounds{Width: 2000, Height: 2000}, Ratio(1, 1))
	r.Restore(geom.NR(1400, 0, 500, 500))
	r.Resize(200, 200)
	got := r.Rect()
	if got.Width != 600 || got.Height != 600 {
		t.Fatalf("got %+v, want 600x600", got)
	}
}

func TestResize_MinSize(t *testing.T) {
	r := New(Bounds{Width: 1000, Height: 1000}, Free)
	r.Resize(-5000, -5000)
	if got := r.Rect(); got.Width != MinSize || got.Height != MinSize {
		t.Fatalf("got %+v, want %vx%v", got, MinSize, MinSize)
	}

	r = New(Bounds{Width: 1920, Height: 1080}, Ratio(16, 9))
	r.Resize(-5000, -5000)
	got := r.Rect()
	if got.Height < MinSize-1e-9 || got.Width < MinSize-1e-9 {
		t.Fatalf("ratio region fell below minimum: %+v", got)
	}
	if math.Abs(got.Height-MinSize) > 1e-9 {
		t.Fatalf("short side should sit at MinSize, got %+v", got)
	}
}

func TestMinDims_TinyMedia(t *testing.T) {
	r := New(Bounds{Width: 30, Height: 20}, Free)
	r.Resize(-100, -100)
	if got := r.Rect(); got.Width != 30 || got.Height != 20 {
		t.Fatalf("tiny media must keep full size, got %+v", got)
	}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestMove_ClampsIndependently(t *testing.T) {
	r := New(Bounds{Width: 1000, Height: 800}, Free)
	r.Restore(geom.NR(100, 100, 200, 200))
	r.Move(5000, -30)
	if diff := cmp.Diff(geom.NR(800, 70, 200, 200), r.Rect()); diff != "" {
		t.Fatalf("move mismatch (-want +got):\n%s", diff)
	}
	r.Move(-5000, -5000)
	if diff := cmp.Diff(geom.NR(0, 0, 200, 200), r.Rect()); diff != "" {
		t.Fatalf("move mismatch (-want +got):\n%s", diff)
	}
}

func TestSetRatio_ReinitializesCentered(t *testing.T) {
	r := New(Bounds{Width: 1200, Height: 1200}, Free)
	r.Restore(geom.NR(10, 10, 100, 100))
	r.SetRatio(Ratio(9, 16))
	got := r.Rect()
	if math.Abs(got.Width-675) > 1e-9 || got.Height != 1200 || math.Abs(got.X-262.5) > 1e-9 {
		t.Fatalf("got %+v", got)
	}
}

func TestUnloadedRegionIgnoresMutations(t *testing.T) {
	var r Region
	r.Move(10, 10)
	r.Resize(10, 10)
	r.Restore(geom.NR(1, 2, 3, 4))
	if r.Loaded() || r.Rect() != (geom.NaturalRect{}) {
		t.Fatalf("unloaded region changed: %+v", r.Rect())
	}
}

// TestRandomGestures drives long random sequences and checks the invariants
// after every single step.
func TestRandomGestures(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ratios := []AspectRatio{Free, Ratio(1, 1), Ratio(4, 5), Ratio(16, 9), Ratio(9, 16), Ratio(21, 9)}
	for run := 0; run < 200; run++ {
		b := Bounds{Width: 60 + rng.Float64()*3000, Height: 60 + rng.Float64()*3000}
		ratio := ratios[rng.Intn(len(ratios))]
		r := New(b, ratio)
		for step := 0; step < 100; step++ {
			dx := (rng.Float64() - 0.5) * 2 * b.Width
			dy := (rng.Float64() - 0.5) * 2 * b.Height
			before := r.Rect()
			if rng.Intn(2) == 0 {
				r.Move(dx, dy)
				after := r.Rect()
				if after.Width != before.Width || after.Height != before.Height {
					t.Fatalf("move changed size: %+v -> %+v", before, after)
				}
			} else {
				r.Resize(dx, dy)
			}
			if err := r.Validate(); err != nil {
				t.Fatalf("run %d step %d bounds %+v ratio %s: %v", run, step, b, ratio, err)
			}
		}
	}
}

func TestParseAspectRatio(t *testing.T) {
	cases := []struct {
		in   string
		want AspectRatio
		err  bool
	}{
		{"16:9", Ratio(16, 9), false},
		{" 1.91 : 1 ", Ratio(1.91, 1), false},
		{"1.5", Ratio(1.5, 1), false},
		{"free", Free, false},
		{"", Free, false},
		{"0:1", Free, true},
		{"a:b", Free, true},
		{"1:2:3", Free, true},
		{"inf:1", Free, true},
		{"1:inf", Free, true},
		{"nan", Free, true},
		{"nan:1", Free, true},
		{"1e300:1", Free, true},
		{"1e-300:1", Free, true},
		{"-4:5", Free, true},
		{"20:1", Ratio(20, 1), false},
		{"1:20", Ratio(1, 20), false},
		{"21:1", Free, true},
	}
	for _, c := range cases {
		got, err := ParseAspectRatio(c.in)
		if (err != nil) != c.err {
			t.Fatalf("ParseAspectRatio(%q) err = %v, want err %v", c.in, err, c.err)
		}
		if got != c.want {
			t.Fatalf("ParseAspectRatio(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
	if s := Ratio(4, 5).String(); s != "4:5" {
		t.Fatalf("String() = %q", s)
	}
}

func TestInvalidRatioTreatedAsFree(t *testing.T) {
	for _, ratio := range []AspectRatio{
		{W: math.Inf(1), H: 1},
		{W: math.NaN(), H: 1},
		{W: 1e-300, H: 1},
	} {
		if ratio.Valid() {
			t.Fatalf("%+v reported valid", ratio)
		}
		r := New(Bounds{Width: 2000, Height: 1000}, ratio)
		r.Resize(100, 100)
		if !r.Ratio().IsFree() {
			t.Fatalf("ratio %+v kept, want free", r.Ratio())
		}
		if err := r.Validate(); err != nil {
			t.Fatalf("ratio %+v: %v", ratio, err)
		}
		if diff := cmp.Diff(geom.NR(0, 0, 2000, 1000), r.Rect()); diff != "" {
			t.Fatalf("region mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestCheck_NonFinite(t *testing.T) {
	b := Bounds{Width: 2000, Height: 1000}
	for _, rc := range []geom.NaturalRect{
		geom.NR(0, 500, math.NaN(), math.NaN()),
		geom.NR(math.NaN(), 0, 100, 100),
		geom.NR(0, 0, math.Inf(1), 100),
	} {
		if err := Check(b, Free, rc); err == nil {
			t.Fatalf("Check(%+v) = nil, want invariant error", rc)
		}
	}
	if (Bounds{Width: math.Inf(1), Height: 10}).Valid() {
		t.Fatalf("infinite bounds reported valid")
	}
}

func TestNonFiniteDeltasIgnored(t *testing.T) {
	r := New(Bounds{Width: 2000, Height: 1000}, Ratio(1, 1))
	want := r.Rect()
	r.Move(math.NaN(), 10)
	r.Resize(math.Inf(1), 0)
	r.Resize(10, math.NaN())
	if diff := cmp.Diff(want, r.Rect()); diff != "" {
		t.Fatalf("non-finite delta changed the region (-want +got):\n%s", diff)
	}
	r.Restore(geom.NR(math.NaN(), 0, 400, 400))
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestPresets(t *testing.T) {
	ps := Presets()
	if len(ps) == 0 || !ps[0].Ratio.IsFree() {
		t.Fatalf("first preset must be free-form: %+v", ps)
	}
	for _, p := range ps {
		if !p.Ratio.Valid() {
			t.Fatalf("preset %q has invalid ratio %+v", p.Name, p.Ratio)
		}
		got, err := ParseAspectRatio(p.Ratio.String())
		if err != nil || got != p.Ratio {
			t.Fatalf("preset %q does not round trip: %+v, %v", p.Name, got, err)
		}
		if q, ok := PresetFor(got); !ok || q.Name != p.Name {
			t.Fatalf("PresetFor(%s) = %q, %v; want %q", got, q.Name, ok, p.Name)
		}
	}
	if _, ok := PresetFor(Ratio(3, 2)); ok {
		t.Fatalf("3:2 is not a built-in preset")
	}
}
