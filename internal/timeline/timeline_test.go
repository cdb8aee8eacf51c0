/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package timeline

import (
	"math"
	"math/rand"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNewCoversFullDuration(t *testing.T) {
	r := New(120)
	if r.Start() != 0 || r.End() != 120 {
		t.Fatalf("got [%v,%v], want [0,120]", r.Start(), r.End())
	}
}

func TestClampScenario(t *testing.T) {
	r := New(120)
	r.SetEnd(200)
	if r.End() != 120 {
		t.Fatalf("end = %v, want 120", r.End())
	}
	r.SetStart(125)
	if !near(r.Start(), 119.9) {
		t.Fatalf("start = %v, want 119.9", r.Start())
	}
	if r.Length() < MinDuration-1e-9 {
		t.Fatalf("length %v below minimum", r.Length())
	}
}

func TestSetEndBelowStart(t *testing.T) {
	r := New(60)
	r.SetStart(30)
	r.SetEnd(10)
	if !near(r.End(), 30.1) {
		t.Fatalf("end = %v, want 30.1", r.End())
	}
	r.SetStart(-5)
	if r.Start() != 0 {
		t.Fatalf("start = %v, want 0", r.Start())
	}
}

func TestResetIdempotent(t *testing.T) {
	r := New(42.5)
	r.SetStart(10)
	r.SetEnd(20)
	r.Reset()
	r.Reset()
	if r.Start() != 0 || r.End() != 42.5 {
		t.Fatalf("reset gave [%v,%v]", r.Start(), r.End())
	}
}

func TestRestoreInvertedPair(t *testing.T) {
	r := New(100)
	r.Restore(50, 40)
	if r.End() != 40 || !near(r.Start(), 39.9) {
		t.Fatalf("got [%v,%v]", r.Start(), r.End())
	}
}

func TestHitTest(t *testing.T) {
	r := New(100)
	r.SetStart(10)
	r.SetEnd(90)
	cases := []struct {
		t    float64
		want Handle
	}{
		{9.5, HandleStart},
		{12, HandleStart},
		{12.01, HandleNone},
		{50, HandleNone},
		{88, HandleEnd},
		{91.9, HandleEnd},
		{92.5, HandleNone},
	}
	for _, c := range cases {
		if got := r.HitTest(c.t); got != c.want {
			t.Fatalf("HitTest(%v) = %v, want %v", c.t, got, c.want)
		}
	}
}

func TestHitTestTieFavorsStart(t *testing.T) {
	r := New(100)
	r.SetStart(50)
	r.SetEnd(51)
	if got := r.HitTest(50.5); got != HandleStart {
		t.Fatalf("tie = %v, want start", got)
	}
}

func TestUnloadedRangeIgnoresMutations(t *testing.T) {
	var r Range
	r.SetStart(3)
	r.SetEnd(4)
	if r.Loaded() || r.Start() != 0 || r.End() != 0 || r.HitTest(0) != HandleNone {
		t.Fatalf("unloaded range changed")
	}
	r.Initialize(math.NaN())
	if r.Loaded() {
		t.Fatalf("NaN duration must not load")
	}
}

func TestShortClip(t *testing.T) {
	r := New(0.05)
	r.SetStart(1)
	if r.Start() != 0 || r.End() != 0.05 {
		t.Fatalf("short clip got [%v,%v]", r.Start(), r.End())
	}
}

func TestRandomBoundaryDrags(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for run := 0; run < 100; run++ {
		d := 0.2 + rng.Float64()*600
		r := New(d)
		for i := 0; i < 200; i++ {
			v := (rng.Float64()*1.4 - 0.2) * d
			if rng.Intn(2) == 0 {
				r.SetStart(v)
			} else {
				r.SetEnd(v)
			}
			if r.Start() < 0 || r.End() > d || r.Length() < MinDuration-1e-9 {
				t.Fatalf("invariant broken d=%v [%v,%v]", d, r.Start(), r.End())
			}
		}
	}
}

func TestParseHandle(t *testing.T) {
	for in, want := range map[string]Handle{"start": HandleStart, " In ": HandleStart, "END": HandleEnd, "out": HandleEnd} {
		got, err := ParseHandle(in)
		if err != nil || got != want {
			t.Fatalf("ParseHandle(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseHandle("middle"); err == nil {
		t.Fatalf("expected error")
	}
}
