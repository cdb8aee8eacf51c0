/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"contentstudio/internal/geom"
	"contentstudio/internal/region"
	"contentstudio/internal/timeline"
)

type seekRecorder struct{ seeks []float64 }

func (s *seekRecorder) Seek(t float64) { s.seeks = append(s.seeks, t) }

func cropController(b region.Bounds, ratio region.AspectRatio, factor float64) (*Controller, *Hub) {
	hub := &Hub{}
	c := NewController(hub)
	c.Region = region.New(b, ratio)
	c.SetCropScale(geom.Scale{Factor: factor})
	return c, hub
}

func timelineController(duration, track float64) (*Controller, *seekRecorder) {
	c := NewController(&Hub{})
	c.Range = timeline.New(duration)
	rec := &seekRecorder{}
	c.Seeker = rec
	c.SetTrackScale(geom.TimelineScale(track, duration))
	return c, rec
}

func ev(k Kind, a Area, x, y float64) Event {
	return Event{Kind: k, Area: a, Pos: geom.DisplayPt{X: x, Y: y}}
}

func mustHandle(t *testing.T, c *Controller, e Event) Result {
	t.Helper()
	res, err := c.Handle(e)
	if err != nil {
		t.Fatalf("Handle(%v): %v", e.Kind, err)
	}
	return res
}

func TestResizeGrip_DisplayDeltaConvertedToNatural(t *testing.T) {
	// 2000x2000 at factor 0.5: region {500,0,1000,1000} shows as {250,0,500,500}.
	c, _ := cropController(region.Bounds{Width: 2000, Height: 2000}, region.Ratio(1, 1), 0.5)
	c.Region.Restore(geom.NR(500, 0, 1000, 1000))

	res := mustHandle(t, c, ev(Down, AreaCrop, 750, 500))
	if res.Mode != Resizing {
		t.Fatalf("mode = %v, want resizing", res.Mode)
	}
	mustHandle(t, c, ev(Move, AreaCrop, 800, 550))
	res = mustHandle(t, c, ev(Up, AreaCrop, 800, 550))
	if !res.Ended || c.Mode() != Idle {
		t.Fatalf("session not ended: %+v mode=%v", res, c.Mode())
	}
	if diff := cmp.Diff(geom.NR(500, 0, 1100, 1100), c.Region.Rect()); diff != "" {
		t.Fatalf("region mismatch (-want +got):\n%s", diff)
	}
}

func TestResizeGrip_HeightLimitedWideImage(t *testing.T) {
	c, _ := cropController(region.Bounds{Width: 2000, Height: 1000}, region.Ratio(1, 1), 0.5)
	mustHandle(t, c, ev(Down, AreaCrop, 750, 500))
	mustHandle(t, c, ev(Move, AreaCrop, 800, 550))
	mustHandle(t, c, ev(Up, AreaCrop, 800, 550))
	if diff := cmp.Diff(geom.NR(500, 0, 1000, 1000), c.Region.Rect()); diff != "" {
		t.Fatalf("region mismatch (-want +got):\n%s", diff)
	}
	if err := c.Region.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestMove_InteriorDragClamps(t *testing.T) {
	c, _ := cropController(region.Bounds{Width: 2000, Height: 1000}, region.Ratio(1, 1), 0.5)
	if res := mustHandle(t, c, ev(Down, AreaCrop, 400, 200)); res.Mode != Moving {
		t.Fatalf("mode = %v, want moving", res.Mode)
	}
	mustHandle(t, c, ev(Move, AreaCrop, 500, 200))
	if got := c.Region.Rect().X; got != 700 {
		t.Fatalf("x = %v, want 700", got)
	}
	mustHandle(t, c, ev(Move, AreaCrop, 5000, -300))
	got := c.Region.Rect()
	if got.X != 1000 || got.Y != 0 || got.Width != 1000 {
		t.Fatalf("move not clamped: %+v", got)
	}
}

func TestMove_NoDriftAfterManySteps(t *testing.T) {
	c, _ := cropController(region.Bounds{Width: 3000, Height: 2000}, region.Free, 0.3333)
	c.Region.Restore(geom.NR(100, 100, 900, 700))
	start := c.Region.Rect()
	ov, _ := c.Overlay()
	x0, y0 := ov.X+10, ov.Y+10
	mustHandle(t, c, ev(Down, AreaCrop, x0, y0))
	for i := 0; i < 500; i++ {
		mustHandle(t, c, ev(Move, AreaCrop, x0+math.Sin(float64(i))*40, y0+math.Cos(float64(i))*40))
	}
	mustHandle(t, c, ev(Up, AreaCrop, x0, y0))
	if got := c.Region.Rect(); math.Abs(got.X-start.X) > 1e-9 || math.Abs(got.Y-start.Y) > 1e-9 {
		t.Fatalf("returning to the anchor must restore the start rect: %+v vs %+v", got, start)
	}
}

func TestDownOutsideOverlayIsIgnored(t *testing.T) {
	c, hub := cropController(region.Bounds{Width: 1000, Height: 1000}, region.Ratio(1, 1), 0.5)
	c.Region.Restore(geom.NR(0, 0, 200, 200))
	res := mustHandle(t, c, ev(Down, AreaCrop, 400, 400))
	if res.Handled || c.Mode() != Idle || hub.Held() {
		t.Fatalf("down outside overlay started a session: %+v", res)
	}
}

func TestSingleActiveSession(t *testing.T) {
	attached, detached := 0, 0
	hub := &Hub{Attach: func() { attached++ }, Detach: func() { detached++ }}
	c := NewController(hub)
	c.Region = region.New(region.Bounds{Width: 1000, Height: 1000}, region.Free)
	c.SetCropScale(geom.Identity)

	mustHandle(t, c, ev(Down, AreaCrop, 500, 500))
	if _, err := c.Handle(ev(Down, AreaCrop, 10, 10)); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second down err = %v, want ErrSessionActive", err)
	}
	if attached != 1 || !hub.Held() {
		t.Fatalf("listeners attached %d times, held=%v", attached, hub.Held())
	}
	sess := c.Session()
	mustHandle(t, c, ev(Cancel, AreaCrop, 0, 0))
	sess.End()
	if detached != 1 || hub.Held() || !sess.Released() {
		t.Fatalf("listeners must be released exactly once on cancel: detached=%d", detached)
	}

	// a fresh session can acquire again
	mustHandle(t, c, ev(Down, AreaCrop, 500, 500))
	c.Abort()
	if attached != 2 || detached != 2 {
		t.Fatalf("attach/detach = %d/%d, want 2/2", attached, detached)
	}
}

func TestCancelKeepsModelAndIgnoresPosition(t *testing.T) {
	c, _ := cropController(region.Bounds{Width: 1000, Height: 1000}, region.Free, 1)
	c.Region.Restore(geom.NR(100, 100, 300, 300))
	mustHandle(t, c, ev(Down, AreaCrop, 200, 200))
	mustHandle(t, c, ev(Move, AreaCrop, 250, 200))
	mustHandle(t, c, ev(Cancel, AreaCrop, 900, 900))
	if got := c.Region.Rect().X; got != 150 {
		t.Fatalf("x = %v, want 150", got)
	}
}

func TestNotReadyBeforeLoad(t *testing.T) {
	hub := &Hub{}
	c := NewController(hub)
	c.Region = &region.Region{}
	c.SetCropScale(geom.Identity)
	if _, err := c.Handle(ev(Down, AreaCrop, 1, 1)); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
	c.Range = &timeline.Range{}
	c.SetTrackScale(geom.Identity)
	if _, err := c.Handle(ev(Down, AreaTimeline, 1, 0)); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
	if hub.Held() {
		t.Fatalf("listeners acquired while not ready")
	}
	if res, err := c.Handle(ev(Move, AreaCrop, 5, 5)); err != nil || res.Handled {
		t.Fatalf("move without session: %+v %v", res, err)
	}
}

func TestTouchPreventsDefault(t *testing.T) {
	c, _ := cropController(region.Bounds{Width: 1000, Height: 1000}, region.Free, 1)
	c.Region.Restore(geom.NR(100, 100, 300, 300))
	e := ev(Down, AreaCrop, 200, 200)
	e.Pointer = Touch
	res := mustHandle(t, c, e)
	if !res.PreventDefault {
		t.Fatalf("touch down must prevent default")
	}
	res = mustHandle(t, c, Event{Kind: Move, Area: AreaCrop, Pos: geom.DisplayPt{X: 210, Y: 200}, Pointer: Touch})
	if !res.PreventDefault || !res.Changed {
		t.Fatalf("touch move: %+v", res)
	}
	mustHandle(t, c, ev(Up, AreaCrop, 210, 200))

	res = mustHandle(t, c, ev(Down, AreaCrop, 200, 200))
	if res.PreventDefault {
		t.Fatalf("mouse down must not prevent default")
	}
}

func TestScaleChangeMidDrag(t *testing.T) {
	c, _ := cropController(region.Bounds{Width: 4000, Height: 2000}, region.Free, 0.5)
	c.Region.Restore(geom.NR(0, 0, 2000, 1000))
	mustHandle(t, c, ev(Down, AreaCrop, 400, 200)) // natural (800,400)
	c.SetCropScale(geom.Scale{Factor: 0.25})
	mustHandle(t, c, ev(Move, AreaCrop, 250, 100)) // natural (1000,400)
	if got := c.Region.Rect(); got.X != 200 || got.Y != 0 {
		t.Fatalf("region = %+v, want x=200 y=0", got)
	}
}

func TestTimeline_EndThenStartHandleClamp(t *testing.T) {
	c, _ := timelineController(120, 600) // 5 px per second

	if res := mustHandle(t, c, ev(Down, AreaTimeline, 600, 0)); res.Mode != DraggingEndHandle {
		t.Fatalf("mode = %v, want handle-end", res.Mode)
	}
	mustHandle(t, c, ev(Move, AreaTimeline, 1000, 0)) // t=200
	mustHandle(t, c, ev(Up, AreaTimeline, 1000, 0))
	if got := c.Range.End(); got != 120 {
		t.Fatalf("end = %v, want 120", got)
	}

	if res := mustHandle(t, c, ev(Down, AreaTimeline, 0, 0)); res.Mode != DraggingStartHandle {
		t.Fatalf("mode = %v, want handle-start", res.Mode)
	}
	mustHandle(t, c, ev(Move, AreaTimeline, 625, 0)) // t=125
	mustHandle(t, c, ev(Up, AreaTimeline, 625, 0))
	if got := c.Range.Start(); math.Abs(got-119.9) > 1e-9 {
		t.Fatalf("start = %v, want 119.9", got)
	}
}

func TestTimeline_HandleDragUsesGrabOffset(t *testing.T) {
	c, _ := timelineController(100, 1000) // 10 px per second
	c.Range.Restore(10, 90)
	mustHandle(t, c, ev(Down, AreaTimeline, 95, 0)) // t=9.5 grabs start
	if c.Mode() != DraggingStartHandle {
		t.Fatalf("mode = %v, want handle-start", c.Mode())
	}
	mustHandle(t, c, ev(Move, AreaTimeline, 195, 0)) // +10s
	if got := c.Range.Start(); math.Abs(got-20) > 1e-9 {
		t.Fatalf("start = %v, want 20", got)
	}
}

func TestTimeline_SeekAwayFromHandles(t *testing.T) {
	c, rec := timelineController(100, 1000)
	c.Range.Restore(10, 90)
	res := mustHandle(t, c, ev(Down, AreaTimeline, 500, 0))
	if res.Mode != SeekingPlayhead {
		t.Fatalf("mode = %v, want seeking", res.Mode)
	}
	mustHandle(t, c, ev(Move, AreaTimeline, 1500, 0))
	mustHandle(t, c, ev(Up, AreaTimeline, -20, 0))
	if diff := cmp.Diff([]float64{50, 100, 0}, rec.seeks); diff != "" {
		t.Fatalf("seeks mismatch (-want +got):\n%s", diff)
	}
	if c.Range.Start() != 10 || c.Range.End() != 90 {
		t.Fatalf("seeking must not edit the range: [%v,%v]", c.Range.Start(), c.Range.End())
	}
}

func TestParseHelpers(t *testing.T) {
	if k, err := ParseKind("pointerdown"); err != nil || k != Down {
		t.Fatalf("ParseKind = %v, %v", k, err)
	}
	if _, err := ParseKind("wheel"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if a, err := ParseArea("timeline"); err != nil || a != AreaTimeline {
		t.Fatalf("ParseArea = %v, %v", a, err)
	}
	if ParsePointer("TOUCH") != Touch || ParsePointer("pen") != Mouse {
		t.Fatalf("ParsePointer mismatch")
	}
}
