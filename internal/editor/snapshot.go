/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"contentstudio/internal/commit"
	"contentstudio/internal/geom"
	"contentstudio/internal/region"
	"contentstudio/internal/store"
)

// Snapshot is the serialized model. It is the blob kept by the history
// manager and the state column of a draft.
type Snapshot struct {
	Kind  Kind               `json:"kind"`
	Ratio region.AspectRatio `json:"ratio"`
	Rect  geom.NaturalRect   `json:"rect"`
	Start float64            `json:"start"`
	End   float64            `json:"end"`
}

func (s *Session) snapshotLocked() Snapshot {
	sn := Snapshot{Kind: s.kind}
	if s.kind == KindCrop {
		sn.Ratio = s.ratio
		sn.Rect = s.region.Rect()
	} else {
		sn.Start, sn.End = s.rng.Start(), s.rng.End()
	}
	return sn
}

// encodeLocked returns nil when the model cannot be serialized; callers skip
// recording history or drafts in that case.
func (s *Session) encodeLocked() []byte {
	b, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		s.log.Error("encode snapshot failed", slog.Any("err", err))
		return nil
	}
	return b
}

// applyLocked restores a snapshot through the models' own clamping, so a
// stale or hand-edited snapshot can never break an invariant.
func (s *Session) applyLocked(sn Snapshot) {
	if sn.Kind != s.kind {
		return
	}
	if s.kind == KindCrop {
		if sn.Ratio != s.ratio && sn.Ratio.Valid() {
			s.ratio = sn.Ratio
			s.region.SetRatio(sn.Ratio)
		}
		s.region.Restore(sn.Rect)
		return
	}
	s.rng.Restore(sn.Start, sn.End)
}

func (s *Session) restoreDraftLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	d, ok, err := s.store.LoadDraft(ctx, s.key())
	if err != nil {
		s.log.Warn("load draft failed", slog.Any("err", err))
		return
	}
	if !ok || d.Kind != string(s.kind) {
		return
	}
	var sn Snapshot
	if err := json.Unmarshal(d.State, &sn); err != nil {
		s.log.Warn("discarding unreadable draft", slog.Any("err", err))
		return
	}
	s.applyLocked(sn)
	s.log.Info("draft restored", slog.Time("saved", d.UpdatedAt))
}

func (s *Session) saveDraftLocked(state []byte) {
	if s.store == nil || state == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d := store.Draft{AssetID: s.key(), Kind: string(s.kind), State: state}
	if err := s.store.SaveDraft(ctx, d); err != nil {
		s.log.Warn("save draft failed", slog.Any("err", err))
	}
}

func (s *Session) deleteDraftLocked(assetID string) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.store.DeleteDraft(ctx, assetID); err != nil {
		s.log.Warn("delete draft failed", slog.Any("err", err))
	}
}

// State is a read-only view of a session for rendering.
type State struct {
	ID        string       `json:"id"`
	Kind      Kind         `json:"kind"`
	Asset     commit.Asset `json:"asset"`
	Loaded    bool         `json:"loaded"`
	LoadError string       `json:"load_error,omitempty"`
	Mode      string       `json:"mode"`
	Pending   bool         `json:"pending"`
	CanUndo   bool         `json:"can_undo"`
	CanRedo   bool         `json:"can_redo"`
	Crop      *CropState   `json:"crop,omitempty"`
	Trim      *TrimState   `json:"trim,omitempty"`
}

type CropState struct {
	Bounds  region.Bounds    `json:"bounds"`
	Ratio   string           `json:"ratio"`
	Scale   float64          `json:"scale"`
	Region  geom.NaturalRect `json:"region"`
	Overlay geom.DisplayRect `json:"overlay"`
	Grip    geom.DisplayRect `json:"grip"`
	Preview geom.Size        `json:"preview"`
}

type TrimState struct {
	Duration   float64 `json:"duration"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Playhead   float64 `json:"playhead"`
	Playing    bool    `json:"playing"`
	TrackWidth float64 `json:"track_width"`
	Scale      float64 `json:"scale"`
	StartX     float64 `json:"start_x"`
	EndX       float64 `json:"end_x"`
	PlayheadX  float64 `json:"playhead_x"`
}

// State returns the current view of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		ID:      s.id,
		Kind:    s.kind,
		Asset:   s.pipeline.Asset(),
		Loaded:  s.loaded(),
		Mode:    s.ctrl.Mode().String(),
		Pending: s.committing,
		CanUndo: s.history.CanUndo(s.key()),
		CanRedo: s.history.CanRedo(s.key()),
	}
	if s.loadErr != nil {
		st.LoadError = s.loadErr.Error()
	}
	if s.kind == KindCrop {
		sc := s.ctrl.CropScale()
		b := s.region.Bounds()
		cs := &CropState{
			Bounds: b,
			Ratio:  s.ratio.String(),
			Scale:  sc.Factor,
			Region: s.region.Rect(),
		}
		if ov, ok := s.ctrl.Overlay(); ok {
			cs.Overlay = ov
			cs.Grip = s.ctrl.Grip(ov)
			cs.Preview = geom.Size{W: sc.ToDisplay(b.Width), H: sc.ToDisplay(b.Height)}
		}
		st.Crop = cs
		return st
	}
	sc := s.ctrl.TrackScale()
	ts := &TrimState{
		Duration:   s.rng.Duration(),
		Start:      s.rng.Start(),
		End:        s.rng.End(),
		TrackWidth: s.trackWidth,
		Scale:      sc.Factor,
		StartX:     sc.ToDisplay(s.rng.Start()),
		EndX:       sc.ToDisplay(s.rng.End()),
	}
	if s.media != nil {
		ts.Playhead = s.media.CurrentTime()
		ts.Playing = s.media.Playing()
		ts.PlayheadX = sc.ToDisplay(ts.Playhead)
	}
	st.Trim = ts
	return st
}
