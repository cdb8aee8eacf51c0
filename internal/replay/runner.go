/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"contentstudio/internal/commit"
	"contentstudio/internal/editor"
	"contentstudio/internal/geom"
	"contentstudio/internal/gesture"
	applog "contentstudio/internal/log"
	"contentstudio/internal/media"
	"contentstudio/internal/region"
	"contentstudio/internal/timeline"
)

const tolerance = 1e-6

// ErrExpectation marks a failed expect step.
var ErrExpectation = errors.New("expectation failed")

// Report summarizes a finished replay.
type Report struct {
	Steps   int
	Commits []commit.Asset
	Final   editor.State
}

// Runner executes scripts against editor sessions.
type Runner struct {
	Prober media.Prober // used when a trim script names a video file
	log    *slog.Logger
}

func NewRunner(prober media.Prober) *Runner {
	return &Runner{Prober: prober, log: applog.WithComponent("replay")}
}

// Options returns the session options a script asks for. The caller adds
// the collaborator, store and history.
func (sc *Script) Options(base editor.Options) (editor.Options, error) {
	kind, err := editor.ParseKind(sc.Kind)
	if err != nil {
		return base, err
	}
	ratio, err := region.ParseAspectRatio(sc.Ratio)
	if err != nil {
		return base, err
	}
	base.Kind = kind
	base.Asset = sc.Asset
	base.Ratio = ratio
	if sc.Viewport.Width > 0 && sc.Viewport.Height > 0 {
		base.Viewport = geom.Size{W: sc.Viewport.Width, H: sc.Viewport.Height}
	}
	if sc.TrackWidth > 0 {
		base.TrackWidth = sc.TrackWidth
	}
	if base.Surface == nil {
		base.Surface = &gesture.Hub{}
	}
	return base, nil
}

// Run loads the script's media into s and executes every step in order. It
// stops at the first failing step.
func (r *Runner) Run(ctx context.Context, s *editor.Session, sc *Script) (Report, error) {
	var rep Report
	if err := r.load(ctx, s, sc); err != nil {
		return rep, &Error{Line: 1, Op: "load", Err: err}
	}
	for _, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		asset, err := r.step(ctx, s, st)
		if err != nil {
			return rep, &Error{Line: st.Line, Op: st.Op, Err: err}
		}
		if asset != nil {
			rep.Commits = append(rep.Commits, *asset)
		}
		rep.Steps++
	}
	rep.Final = s.State()
	r.log.Info("replay finished", slog.String("session", s.ID()), slog.Int("steps", rep.Steps), slog.Int("commits", len(rep.Commits)))
	return rep, nil
}

func (r *Runner) load(ctx context.Context, s *editor.Session, sc *Script) error {
	switch s.Kind() {
	case editor.KindCrop:
		if sc.Media != "" {
			info, err := media.LoadImage(sc.Media)
			if err != nil {
				return err
			}
			return s.LoadImage(ctx, info)
		}
		if sc.Asset.Width > 0 && sc.Asset.Height > 0 {
			return s.LoadBounds(ctx, region.Bounds{Width: float64(sc.Asset.Width), Height: float64(sc.Asset.Height)})
		}
	case editor.KindTrim:
		if sc.Media != "" {
			if r.Prober == nil {
				return fmt.Errorf("no prober for %s", sc.Media)
			}
			info, err := r.Prober.Probe(ctx, sc.Media)
			if err != nil {
				return err
			}
			return s.LoadVideo(ctx, info)
		}
		if sc.Asset.Duration > 0 {
			return s.LoadDuration(ctx, sc.Asset.Duration)
		}
	}
	// left unloaded; the script is expected to contain a load step
	return nil
}

func (r *Runner) step(ctx context.Context, s *editor.Session, st Step) (*commit.Asset, error) {
	r.log.Debug("step", slog.Int("line", st.Line), slog.String("op", st.Op))
	switch st.Op {
	case "pointer":
		ev, err := pointerEvent(s, st.Pointer)
		if err != nil {
			return nil, err
		}
		_, err = s.Pointer(ev)
		return nil, err
	case "ratio":
		ratio, err := region.ParseAspectRatio(st.Ratio)
		if err != nil {
			return nil, err
		}
		return nil, s.SetRatio(ratio)
	case "viewport":
		return nil, s.SetViewport(st.Viewport.Width, st.Viewport.Height)
	case "timeupdate":
		_, err := s.TimeUpdate(st.TimeUpdate.Current, st.TimeUpdate.Playing)
		return nil, err
	case "play":
		return nil, s.Play()
	case "pause":
		return nil, s.Pause()
	case "boundary":
		h, err := timeline.ParseHandle(st.Boundary.Handle)
		if err != nil {
			return nil, err
		}
		if st.Boundary.Time != nil {
			return nil, s.SetBoundary(h, *st.Boundary.Time)
		}
		return nil, s.SetBoundaryAtPlayhead(h)
	case "undo":
		_, err := s.Undo()
		return nil, err
	case "redo":
		_, err := s.Redo()
		return nil, err
	case "reset":
		return nil, s.Reset()
	case "load":
		return nil, loadStep(ctx, s, st.Load)
	case "commit":
		asset, err := s.Commit(ctx, st.Commit.SaveAsNew)
		if st.Commit.ExpectError {
			if err == nil {
				return nil, fmt.Errorf("%w: commit succeeded, expected an error", ErrExpectation)
			}
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &asset, nil
	case "expect":
		return nil, check(s.State(), st.Expect)
	}
	return nil, fmt.Errorf("unknown operation %q", st.Op)
}

func pointerEvent(s *editor.Session, p *PointerArgs) (gesture.Event, error) {
	kind, err := gesture.ParseKind(p.Kind)
	if err != nil {
		return gesture.Event{}, err
	}
	area := gesture.AreaCrop
	if s.Kind() == editor.KindTrim {
		area = gesture.AreaTimeline
	}
	if p.Area != "" {
		if area, err = gesture.ParseArea(p.Area); err != nil {
			return gesture.Event{}, err
		}
	}
	return gesture.Event{Kind: kind, Area: area, Pos: geom.DisplayPt{X: p.X, Y: p.Y}, Pointer: gesture.ParsePointer(p.Pointer)}, nil
}

func loadStep(ctx context.Context, s *editor.Session, l *LoadArgs) error {
	switch {
	case l.Error != "":
		s.FailLoad(errors.New(l.Error))
		return nil
	case s.Kind() == editor.KindCrop:
		return s.LoadBounds(ctx, region.Bounds{Width: l.Width, Height: l.Height})
	default:
		return s.LoadDuration(ctx, l.Duration)
	}
}

func check(st editor.State, e *Expect) error {
	var fails []string
	fail := func(format string, args ...any) { fails = append(fails, fmt.Sprintf(format, args...)) }
	near := func(a, b float64) bool { return math.Abs(a-b) <= tolerance }

	if e.Loaded != nil && st.Loaded != *e.Loaded {
		fail("loaded = %v, want %v", st.Loaded, *e.Loaded)
	}
	if e.Mode != nil && st.Mode != *e.Mode {
		fail("mode = %s, want %s", st.Mode, *e.Mode)
	}
	if e.CanUndo != nil && st.CanUndo != *e.CanUndo {
		fail("can_undo = %v, want %v", st.CanUndo, *e.CanUndo)
	}
	if e.CanRedo != nil && st.CanRedo != *e.CanRedo {
		fail("can_redo = %v, want %v", st.CanRedo, *e.CanRedo)
	}
	if e.Asset != nil && st.Asset.ID != *e.Asset {
		fail("asset = %s, want %s", st.Asset.ID, *e.Asset)
	}
	if st.Crop != nil {
		if w := e.Region; w != nil {
			g := st.Crop.Region
			if !near(g.X, w.X) || !near(g.Y, w.Y) || !near(g.Width, w.Width) || !near(g.Height, w.Height) {
				fail("region = %+v, want %+v", g, *w)
			}
		}
		if e.Ratio != nil && st.Crop.Ratio != *e.Ratio {
			fail("ratio = %s, want %s", st.Crop.Ratio, *e.Ratio)
		}
	} else if e.Region != nil || e.Ratio != nil {
		fail("region asserted on a %s session", st.Kind)
	}
	if st.Trim != nil {
		if e.Start != nil && !near(st.Trim.Start, *e.Start) {
			fail("start = %v, want %v", st.Trim.Start, *e.Start)
		}
		if e.End != nil && !near(st.Trim.End, *e.End) {
			fail("end = %v, want %v", st.Trim.End, *e.End)
		}
		if e.Playhead != nil && !near(st.Trim.Playhead, *e.Playhead) {
			fail("playhead = %v, want %v", st.Trim.Playhead, *e.Playhead)
		}
	} else if e.Start != nil || e.End != nil || e.Playhead != nil {
		fail("range asserted on a %s session", st.Kind)
	}
	if len(fails) > 0 {
		return fmt.Errorf("%w: %v", ErrExpectation, fails)
	}
	return nil
}
