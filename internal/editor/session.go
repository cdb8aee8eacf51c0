/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor ties the crop and trim models, the gesture controller, the
// playback loop, edit history, drafts and the commit pipeline into one
// editing session per asset.
//
// A Session serializes every call with a mutex so callers on different
// goroutines (HTTP handlers, a replay driver) see the same single-threaded
// model a UI thread would.
package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"contentstudio/internal/commit"
	"contentstudio/internal/geom"
	"contentstudio/internal/gesture"
	"contentstudio/internal/history"
	applog "contentstudio/internal/log"
	"contentstudio/internal/media"
	"contentstudio/internal/playback"
	"contentstudio/internal/region"
	"contentstudio/internal/store"
	"contentstudio/internal/timeline"
)

var (
	ErrWrongKind = errors.New("editor: operation not available for this session kind")
	ErrClosed    = errors.New("editor: session closed")
)

// Kind selects what a session edits.
type Kind string

const (
	KindCrop Kind = "crop"
	KindTrim Kind = "trim"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCrop, KindTrim:
		return Kind(s), nil
	}
	return "", fmt.Errorf("editor: unknown kind %q", s)
}

// Persistence is the part of the local store a session uses.
type Persistence interface {
	SaveDraft(ctx context.Context, d store.Draft) error
	LoadDraft(ctx context.Context, assetID string) (store.Draft, bool, error)
	DeleteDraft(ctx context.Context, assetID string) error
	RecordCommit(ctx context.Context, r store.CommitRecord) (int64, error)
}

// EventSink receives anonymous usage events. telemetry.Client satisfies it.
type EventSink interface {
	Event(name string, props map[string]any)
}

// Options configure a new session.
type Options struct {
	ID           string
	Kind         Kind
	Asset        commit.Asset
	Ratio        region.AspectRatio
	Viewport     geom.Size // maximum preview size for crops
	TrackWidth   float64   // timeline track width in pixels for trims
	GripSize     float64
	Collaborator commit.Collaborator
	History      *history.Manager
	Store        Persistence
	Events       EventSink
	Surface      gesture.Surface
}

// Session is one open editor.
type Session struct {
	id   string
	kind Kind
	log  *slog.Logger

	history  *history.Manager
	store    Persistence
	events   EventSink
	pipeline *commit.Pipeline

	mu         sync.Mutex
	ratio      region.AspectRatio
	viewport   geom.Size
	trackWidth float64
	region     *region.Region
	rng        *timeline.Range
	media      *playback.Element
	loop       *playback.Loop
	ctrl       *gesture.Controller
	pre        []byte // model at pointer-down, nil when no gesture is open
	committing bool
	loadErr    error
	closed     bool
}

// New creates an unloaded session. Gestures are rejected until one of the
// Load methods succeeds.
func New(opts Options) (*Session, error) {
	if opts.Kind != KindCrop && opts.Kind != KindTrim {
		return nil, fmt.Errorf("editor: unknown kind %q", opts.Kind)
	}
	if opts.Asset.ID == "" {
		return nil, errors.New("editor: asset id is required")
	}
	if opts.Collaborator == nil {
		return nil, errors.New("editor: commit collaborator is required")
	}
	if !opts.Ratio.Valid() {
		return nil, fmt.Errorf("editor: %w: %s", region.ErrBadRatio, opts.Ratio)
	}
	h := opts.History
	if h == nil {
		h = history.NewManager(history.Config{MaxPerKey: 100, MinInterval: 500 * time.Millisecond})
	}
	s := &Session{
		id:         opts.ID,
		kind:       opts.Kind,
		history:    h,
		store:      opts.Store,
		events:     opts.Events,
		pipeline:   commit.NewPipeline(opts.Collaborator, opts.Asset),
		ratio:      opts.Ratio,
		viewport:   opts.Viewport,
		trackWidth: opts.TrackWidth,
		region:     &region.Region{},
		rng:        &timeline.Range{},
		ctrl:       gesture.NewController(opts.Surface),
	}
	s.log = applog.WithComponent("editor").With(slog.String("session", s.id), slog.String("kind", string(s.kind)))
	if opts.GripSize > 0 {
		s.ctrl.GripSize = opts.GripSize
	}
	s.pipeline.Observe = s.observeCommit
	if s.kind == KindCrop {
		s.ctrl.Region = s.region
	} else {
		s.ctrl.Range = s.rng
	}
	return s, nil
}

func (s *Session) ID() string   { return s.id }
func (s *Session) Kind() Kind   { return s.kind }
func (s *Session) key() string  { return s.pipeline.Asset().ID }
func (s *Session) loaded() bool { return s.region.Loaded() || s.rng.Loaded() }

// LoadImage installs the natural size of a decoded image header.
func (s *Session) LoadImage(ctx context.Context, info media.ImageInfo) error {
	return s.LoadBounds(ctx, info.Bounds())
}

// LoadBounds installs the natural crop bounds and restores a saved draft.
func (s *Session) LoadBounds(ctx context.Context, b region.Bounds) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(KindCrop); err != nil {
		return err
	}
	if !b.Valid() {
		return s.failLoadLocked(fmt.Errorf("%w: invalid bounds %vx%v", media.ErrLoad, b.Width, b.Height))
	}
	s.ctrl.Abort()
	s.pre = nil
	s.region.Initialize(b, s.ratio)
	s.loadErr = nil
	s.rescaleLocked()
	s.restoreDraftLocked(ctx)
	s.log.Info("media loaded", slog.Float64("width", b.Width), slog.Float64("height", b.Height), slog.String("ratio", s.ratio.String()))
	return nil
}

// LoadVideo installs the clip duration and restores a saved draft.
func (s *Session) LoadVideo(ctx context.Context, info media.VideoInfo) error {
	return s.LoadDuration(ctx, info.Duration)
}

func (s *Session) LoadDuration(ctx context.Context, d float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(KindTrim); err != nil {
		return err
	}
	rng := timeline.New(d)
	if !rng.Loaded() {
		return s.failLoadLocked(fmt.Errorf("%w: invalid duration %v", media.ErrLoad, d))
	}
	s.ctrl.Abort()
	s.pre = nil
	s.installRangeLocked(rng)
	s.loadErr = nil
	s.restoreDraftLocked(ctx)
	s.log.Info("media loaded", slog.Float64("duration", d))
	return nil
}

// FailLoad records a media load failure reported by the front end.
func (s *Session) FailLoad(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.failLoadLocked(err)
}

func (s *Session) failLoadLocked(err error) error {
	if !errors.Is(err, media.ErrLoad) {
		err = fmt.Errorf("%w: %v", media.ErrLoad, err)
	}
	s.loadErr = err
	s.log.Warn("media load failed", slog.Any("err", err))
	return err
}

func (s *Session) installRangeLocked(rng *timeline.Range) {
	s.rng = rng
	s.media = playback.NewElement(rng.Duration())
	s.loop = playback.NewLoop(s.media, s.rng)
	s.ctrl.Range = s.rng
	s.ctrl.Seeker = s.media
	s.rescaleLocked()
}

// SetViewport updates the preview container. The crop scale is recomputed
// before the next pointer event is interpreted.
func (s *Session) SetViewport(w, h float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.kind == KindCrop {
		s.viewport = geom.Size{W: w, H: h}
	} else {
		s.trackWidth = w
	}
	s.rescaleLocked()
	return nil
}

func (s *Session) rescaleLocked() {
	if s.kind == KindCrop {
		b := s.region.Bounds()
		s.ctrl.SetCropScale(geom.FitScale(s.viewport, geom.Size{W: b.Width, H: b.Height}))
		return
	}
	s.ctrl.SetTrackScale(geom.TimelineScale(s.trackWidth, s.rng.Duration()))
}

// Pointer feeds one pointer event to the gesture controller.
func (s *Session) Pointer(ev gesture.Event) (gesture.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return gesture.Result{}, ErrClosed
	}
	if (ev.Area == gesture.AreaCrop) != (s.kind == KindCrop) {
		return gesture.Result{}, ErrWrongKind
	}
	var pre []byte
	if ev.Kind == gesture.Down {
		if s.committing {
			return gesture.Result{}, commit.ErrCommitPending
		}
		pre = s.encodeLocked()
	}
	res, err := s.ctrl.Handle(ev)
	if err != nil {
		return res, err
	}
	if ev.Kind == gesture.Down && res.Handled {
		s.pre = pre
	}
	if res.Ended {
		s.finishGestureLocked()
	}
	return res, nil
}

// finishGestureLocked records one undo step for the gesture that just ended.
func (s *Session) finishGestureLocked() {
	pre := s.pre
	s.pre = nil
	if pre == nil {
		return
	}
	if cur := s.encodeLocked(); cur != nil && !bytes.Equal(pre, cur) {
		s.history.Record(s.key(), pre)
		s.saveDraftLocked(cur)
	}
}

// abortGestureLocked closes any open gesture, keeping what it did so far.
func (s *Session) abortGestureLocked() {
	if s.ctrl.Mode() != gesture.Idle {
		s.ctrl.Abort()
		s.finishGestureLocked()
	}
}

// mutateLocked applies fn as one undoable edit.
func (s *Session) mutateLocked(fn func()) {
	s.abortGestureLocked()
	pre := s.encodeLocked()
	fn()
	if cur := s.encodeLocked(); pre != nil && cur != nil && !bytes.Equal(pre, cur) {
		s.history.Record(s.key(), pre)
		s.saveDraftLocked(cur)
	}
}

// usableLocked rejects calls on closed sessions, sessions of the wrong kind
// and, for edits, sessions with a commit in flight.
func (s *Session) usableLocked(kind Kind) error {
	if s.closed {
		return ErrClosed
	}
	if kind != "" && kind != s.kind {
		return ErrWrongKind
	}
	if s.committing {
		return commit.ErrCommitPending
	}
	return nil
}

func (s *Session) editableLocked(kind Kind) error {
	if err := s.usableLocked(kind); err != nil {
		return err
	}
	if !s.loaded() {
		return gesture.ErrNotReady
	}
	return nil
}

// SetRatio selects an aspect ratio and re-solves the region centered.
func (s *Session) SetRatio(r region.AspectRatio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(KindCrop); err != nil {
		return err
	}
	if !r.Valid() {
		return fmt.Errorf("editor: %w: %s", region.ErrBadRatio, r)
	}
	if !s.region.Loaded() {
		s.ratio = r
		return nil
	}
	s.mutateLocked(func() {
		s.ratio = r
		s.region.SetRatio(r)
	})
	return nil
}

// Reset returns the region or range to its initial state.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(""); err != nil {
		return err
	}
	s.mutateLocked(func() {
		if s.kind == KindCrop {
			s.region.Initialize(s.region.Bounds(), s.ratio)
		} else {
			s.rng.Reset()
		}
	})
	return nil
}

func (s *Session) Undo() (bool, error) { return s.step(s.history.Undo) }
func (s *Session) Redo() (bool, error) { return s.step(s.history.Redo) }

func (s *Session) step(fn func(string, []byte) (history.Snapshot, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(""); err != nil {
		return false, err
	}
	s.abortGestureLocked()
	cur := s.encodeLocked()
	if cur == nil {
		return false, errors.New("editor: current state cannot be encoded")
	}
	snap, ok := fn(s.key(), cur)
	if !ok {
		return false, nil
	}
	var sn Snapshot
	if err := json.Unmarshal(snap.Blob, &sn); err != nil {
		return false, fmt.Errorf("editor: corrupt history entry: %w", err)
	}
	s.applyLocked(sn)
	s.saveDraftLocked(s.encodeLocked())
	return true, nil
}

// TimeUpdate reports a timeupdate tick from the player. It returns whether
// the playhead was wrapped to the range start.
func (s *Session) TimeUpdate(current float64, playing bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(KindTrim); err != nil {
		return false, err
	}
	s.media.Report(current, playing)
	return s.loop.OnTimeUpdate(), nil
}

// Play starts preview playback inside the range.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(KindTrim); err != nil {
		return err
	}
	s.loop.Play()
	return nil
}

func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(KindTrim); err != nil {
		return err
	}
	s.media.Pause()
	return nil
}

// SetBoundaryAtPlayhead moves the start or end of the range to the playhead.
func (s *Session) SetBoundaryAtPlayhead(h timeline.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(KindTrim); err != nil {
		return err
	}
	switch h {
	case timeline.HandleStart:
		s.mutateLocked(s.loop.SetStartAtPlayhead)
	case timeline.HandleEnd:
		s.mutateLocked(s.loop.SetEndAtPlayhead)
	default:
		return fmt.Errorf("editor: unknown boundary %v", h)
	}
	return nil
}

// SetBoundary moves the start or end of the range to t seconds.
func (s *Session) SetBoundary(h timeline.Handle, t float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(KindTrim); err != nil {
		return err
	}
	switch h {
	case timeline.HandleStart:
		s.mutateLocked(func() { s.rng.SetStart(t) })
	case timeline.HandleEnd:
		s.mutateLocked(func() { s.rng.SetEnd(t) })
	default:
		return fmt.Errorf("editor: unknown boundary %v", h)
	}
	return nil
}

// readyLocked is the check for player calls, which are allowed while a
// commit is pending.
func (s *Session) readyLocked(kind Kind) error {
	if s.closed {
		return ErrClosed
	}
	if kind != s.kind {
		return ErrWrongKind
	}
	if !s.loaded() {
		return gesture.ErrNotReady
	}
	return nil
}

// DrainCommands returns player commands queued since the last call.
func (s *Session) DrainCommands() []playback.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.media == nil {
		return nil
	}
	return s.media.Drain()
}

// Commit rounds the current edit and sends it. On success the working asset
// is replaced and the editor re-opens on it; on failure nothing changes and
// the commit may simply be retried.
func (s *Session) Commit(ctx context.Context, saveAsNew bool) (commit.Asset, error) {
	s.mu.Lock()
	if err := s.editableLocked(""); err != nil {
		s.mu.Unlock()
		return commit.Asset{}, err
	}
	s.abortGestureLocked()
	s.committing = true
	oldKey := s.key()
	rc, b := s.region.Rect(), s.region.Bounds()
	start, end, dur := s.rng.Start(), s.rng.End(), s.rng.Duration()
	s.mu.Unlock()

	var (
		asset commit.Asset
		err   error
		crop  commit.CropPayload
		trim  commit.TrimPayload
	)
	if s.kind == KindCrop {
		crop, asset, err = s.pipeline.Crop(ctx, rc, b, saveAsNew)
	} else {
		trim, asset, err = s.pipeline.Trim(ctx, start, end, dur, saveAsNew)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.committing = false
	if err != nil {
		return commit.Asset{}, err
	}
	s.history.Clear(oldKey)
	s.deleteDraftLocked(oldKey)
	if s.closed {
		return asset, nil
	}
	s.ctrl.Abort()
	s.pre = nil
	if s.kind == KindCrop {
		nb := region.Bounds{Width: float64(asset.Width), Height: float64(asset.Height)}
		if !nb.Valid() {
			nb = region.Bounds{Width: float64(crop.Width), Height: float64(crop.Height)}
		}
		s.region.Initialize(nb, s.ratio)
		s.rescaleLocked()
	} else {
		d := asset.Duration
		if d <= 0 {
			d = trim.EndTime - trim.StartTime
		}
		s.installRangeLocked(timeline.New(d))
	}
	return asset, nil
}

func (s *Session) observeCommit(o commit.Outcome) {
	props := map[string]any{"op": o.Op, "ms": o.Duration.Milliseconds()}
	rec := store.CommitRecord{AssetID: o.AssetID, Op: o.Op, ResultID: o.Result.ID, DurationMs: o.Duration.Milliseconds()}
	rec.Payload, _ = json.Marshal(o.Payload)
	name := "commit_succeeded"
	if o.Err != nil {
		name = "commit_failed"
		rec.Error = o.Err.Error()
		var ce *commit.Error
		if errors.As(o.Err, &ce) {
			props["status"] = ce.StatusCode
		}
	}
	if s.events != nil {
		s.events.Event(name, props)
	}
	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := s.store.RecordCommit(ctx, rec); err != nil {
			s.log.Warn("journal commit failed", slog.Any("err", err))
		}
	}
}

// FlushDraft persists the current model as the asset's draft.
func (s *Session) FlushDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded() {
		s.saveDraftLocked(s.encodeLocked())
	}
}

// Close ends any gesture and releases the listeners. The draft is kept.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.abortGestureLocked()
	s.closed = true
	s.log.Debug("session closed")
}
