/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gesture turns a raw pointer stream into edits of the crop region
// and the trim range.
//
// A pointer-down picks one of the interaction modes by hit-testing in display
// space; until the matching pointer-up or pointer-cancel every move is
// converted to natural units and applied to the model. Only one session can
// be active at a time and it holds the surface's move/up listeners for its
// whole lifetime.
package gesture

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"contentstudio/internal/geom"
	applog "contentstudio/internal/log"
	"contentstudio/internal/region"
	"contentstudio/internal/timeline"
)

var (
	ErrSessionActive = errors.New("gesture: a session is already active")
	ErrNotReady      = errors.New("gesture: media bounds not known yet")
)

// DefaultGripSize is the side of the resize grip square in display pixels.
const DefaultGripSize = 16.0

// Kind is the pointer event type.
type Kind int

const (
	Down Kind = iota
	Move
	Up
	Cancel
)

func (k Kind) String() string {
	switch k {
	case Down:
		return "down"
	case Move:
		return "move"
	case Up:
		return "up"
	case Cancel:
		return "cancel"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the DOM-ish names used by front ends and replay scripts.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "down", "pointerdown", "mousedown", "touchstart":
		return Down, nil
	case "move", "pointermove", "mousemove", "touchmove":
		return Move, nil
	case "up", "pointerup", "mouseup", "touchend":
		return Up, nil
	case "cancel", "pointercancel", "touchcancel":
		return Cancel, nil
	}
	return 0, fmt.Errorf("gesture: unknown event kind %q", s)
}

// Pointer is the input device. Touch and mouse share the same handling.
type Pointer int

const (
	Mouse Pointer = iota
	Touch
)

func (p Pointer) String() string {
	if p == Touch {
		return "touch"
	}
	return "mouse"
}

func ParsePointer(s string) Pointer {
	if strings.EqualFold(strings.TrimSpace(s), "touch") {
		return Touch
	}
	return Mouse
}

// Area is the surface an event was delivered to. Positions are relative to
// the top-left of that surface: the scaled media preview for AreaCrop and
// the timeline track for AreaTimeline (only X is used there).
type Area int

const (
	AreaCrop Area = iota
	AreaTimeline
)

func (a Area) String() string {
	if a == AreaTimeline {
		return "timeline"
	}
	return "crop"
}

func ParseArea(s string) (Area, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "crop", "image", "preview":
		return AreaCrop, nil
	case "timeline", "track", "trim":
		return AreaTimeline, nil
	}
	return 0, fmt.Errorf("gesture: unknown area %q", s)
}

// Event is one pointer event in display space.
type Event struct {
	Kind    Kind
	Area    Area
	Pos     geom.DisplayPt
	Pointer Pointer
}

// Result describes what an event did.
type Result struct {
	Mode    Mode // mode of the session the event belonged to
	Handled bool
	Changed bool // region or range changed
	Ended   bool
	// PreventDefault asks the front end to suppress scrolling for touch drags.
	PreventDefault bool
}

// Seeker moves the playhead. playback.Media satisfies it.
type Seeker interface {
	Seek(t float64)
}

// Controller is the gesture state machine. It is not safe for concurrent use;
// callers serialize events the way a UI thread would.
type Controller struct {
	Region   *region.Region
	Range    *timeline.Range
	Seeker   Seeker
	GripSize float64

	surface    Surface
	cropScale  geom.Scale
	trackScale geom.Scale
	session    *Session
	log        *slog.Logger
}

// NewController returns an idle controller. A nil surface is allowed for
// headless use.
func NewController(surface Surface) *Controller {
	return &Controller{
		GripSize: DefaultGripSize,
		surface:  surface,
		log:      applog.WithComponent("gesture"),
	}
}

// SetCropScale installs the preview scale. Anchors are kept in natural units
// so a scale change mid-drag takes effect on the next move without a jump.
func (c *Controller) SetCropScale(s geom.Scale)  { c.cropScale = s }
func (c *Controller) SetTrackScale(s geom.Scale) { c.trackScale = s }
func (c *Controller) CropScale() geom.Scale      { return c.cropScale }
func (c *Controller) TrackScale() geom.Scale     { return c.trackScale }

// Mode returns the active mode, Idle when no session is open.
func (c *Controller) Mode() Mode {
	if c.session == nil {
		return Idle
	}
	return c.session.Mode
}

// Session returns the active session or nil.
func (c *Controller) Session() *Session { return c.session }

// Overlay is the on-screen crop rectangle for the current region.
func (c *Controller) Overlay() (geom.DisplayRect, bool) {
	if c.Region == nil || !c.Region.Loaded() || !c.cropScale.Valid() {
		return geom.DisplayRect{}, false
	}
	return geom.DeriveOverlay(c.Region.Rect(), c.cropScale), true
}

// Grip is the resize grip: a square centered on the overlay's bottom-right corner.
func (c *Controller) Grip(overlay geom.DisplayRect) geom.DisplayRect {
	g := c.GripSize
	if g <= 0 {
		g = DefaultGripSize
	}
	m := overlay.Max()
	return geom.DR(m.X-g/2, m.Y-g/2, g, g)
}

// Handle feeds one event through the state machine.
func (c *Controller) Handle(ev Event) (Result, error) {
	switch ev.Kind {
	case Down:
		return c.down(ev)
	case Move:
		if c.session == nil {
			return Result{}, nil
		}
		return c.move(ev), nil
	case Up, Cancel:
		if c.session == nil {
			return Result{}, nil
		}
		res := Result{Mode: c.session.Mode, Handled: true}
		if ev.Kind == Up {
			res = c.move(ev)
		}
		c.end()
		res.Ended = true
		return res, nil
	}
	return Result{}, fmt.Errorf("gesture: unsupported event %v", ev.Kind)
}

// Abort ends the active session, if any, keeping the model as it is.
func (c *Controller) Abort() {
	if c.session != nil {
		c.end()
	}
}

func (c *Controller) end() {
	s := c.session
	c.session = nil
	s.End()
	c.log.Debug("session ended", slog.String("mode", s.Mode.String()))
}

func (c *Controller) down(ev Event) (Result, error) {
	if c.session != nil {
		return Result{}, ErrSessionActive
	}
	s := &Session{Area: ev.Area, Pointer: ev.Pointer}
	switch ev.Area {
	case AreaCrop:
		overlay, ok := c.Overlay()
		if !ok {
			return Result{}, ErrNotReady
		}
		switch {
		case c.Grip(overlay).Contains(ev.Pos):
			s.Mode = Resizing
		case overlay.Contains(ev.Pos):
			s.Mode = Moving
		default:
			return Result{}, nil
		}
		s.Anchor = c.cropScale.PtToNatural(ev.Pos)
		s.StartRect = c.Region.Rect()
	case AreaTimeline:
		if c.Range == nil || !c.Range.Loaded() || !c.trackScale.Valid() {
			return Result{}, ErrNotReady
		}
		t := c.trackScale.ToNatural(ev.Pos.X)
		switch c.Range.HitTest(t) {
		case timeline.HandleStart:
			s.Mode = DraggingStartHandle
		case timeline.HandleEnd:
			s.Mode = DraggingEndHandle
		default:
			s.Mode = SeekingPlayhead
		}
		s.Anchor = geom.NaturalPt{X: t}
		s.StartStart, s.StartEnd = c.Range.Start(), c.Range.End()
	default:
		return Result{}, fmt.Errorf("gesture: unknown area %v", ev.Area)
	}

	sess, err := open(c.surface, s)
	if err != nil {
		return Result{}, err
	}
	c.session = sess
	c.log.Debug("session started", slog.String("mode", s.Mode.String()), slog.String("pointer", s.Pointer.String()))

	if s.Mode == SeekingPlayhead {
		c.seek(s.Anchor.X)
	}
	return Result{Mode: s.Mode, Handled: true, PreventDefault: ev.Pointer == Touch}, nil
}

func (c *Controller) move(ev Event) Result {
	s := c.session
	res := Result{Mode: s.Mode, Handled: true, PreventDefault: s.Pointer == Touch || ev.Pointer == Touch}
	switch s.Area {
	case AreaCrop:
		if !c.cropScale.Valid() {
			return res
		}
		d := c.cropScale.PtToNatural(ev.Pos).Sub(s.Anchor)
		before := c.Region.Rect()
		c.Region.Restore(s.StartRect)
		if s.Mode == Resizing {
			c.Region.Resize(d.X, d.Y)
		} else {
			c.Region.Move(d.X, d.Y)
		}
		res.Changed = c.Region.Rect() != before
	case AreaTimeline:
		if !c.trackScale.Valid() {
			return res
		}
		t := c.trackScale.ToNatural(ev.Pos.X)
		beforeStart, beforeEnd := c.Range.Start(), c.Range.End()
		switch s.Mode {
		case SeekingPlayhead:
			c.seek(t)
		case DraggingStartHandle:
			c.Range.SetStart(s.StartStart + (t - s.Anchor.X))
		case DraggingEndHandle:
			c.Range.SetEnd(s.StartEnd + (t - s.Anchor.X))
		}
		res.Changed = c.Range.Start() != beforeStart || c.Range.End() != beforeEnd
	}
	return res
}

func (c *Controller) seek(t float64) {
	if c.Seeker == nil || c.Range == nil {
		return
	}
	c.Seeker.Seek(geom.Clamp(t, 0, c.Range.Duration()))
}
