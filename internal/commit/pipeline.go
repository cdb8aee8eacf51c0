/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package commit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"contentstudio/internal/geom"
	applog "contentstudio/internal/log"
	"contentstudio/internal/region"
)

// Collaborator persists an edit and returns the resulting asset.
type Collaborator interface {
	CommitCrop(ctx context.Context, p CropPayload) (Asset, error)
	CommitTrim(ctx context.Context, p TrimPayload) (Asset, error)
}

// Outcome describes one finished commit attempt.
type Outcome struct {
	Op       string
	AssetID  string
	Payload  any
	Result   Asset
	Err      error
	Duration time.Duration
}

// Pipeline sends commits for one working asset. At most one commit is in
// flight; a second call while pending fails with ErrCommitPending instead of
// racing the first.
type Pipeline struct {
	collab Collaborator
	log    *slog.Logger
	// Observe is called after every attempt that reached the collaborator.
	Observe func(Outcome)

	mu      sync.Mutex
	pending bool
	asset   Asset
}

func NewPipeline(collab Collaborator, asset Asset) *Pipeline {
	return &Pipeline{collab: collab, asset: asset, log: applog.WithComponent("commit")}
}

// Asset is the current working asset. It changes only on a successful commit.
func (p *Pipeline) Asset() Asset {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.asset
}

func (p *Pipeline) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

func (p *Pipeline) begin() (Asset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending {
		return Asset{}, ErrCommitPending
	}
	p.pending = true
	return p.asset, nil
}

func (p *Pipeline) finish(res Asset, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = false
	if err == nil && res.ID != "" {
		p.asset = res
	}
}

// Crop rounds rc and commits it. The caller's model is never touched, so a
// failed commit can be retried as is.
func (p *Pipeline) Crop(ctx context.Context, rc geom.NaturalRect, b region.Bounds, saveAsNew bool) (CropPayload, Asset, error) {
	cur, err := p.begin()
	if err != nil {
		return CropPayload{}, Asset{}, err
	}
	payload := RoundCrop(cur.ID, rc, b, saveAsNew)
	start := time.Now()
	res, err := p.collab.CommitCrop(ctx, payload)
	err = normalize("crop", err)
	p.finish(res, err)
	p.report(Outcome{Op: "crop", AssetID: cur.ID, Payload: payload, Result: res, Err: err, Duration: time.Since(start)})
	if err != nil {
		return payload, Asset{}, err
	}
	return payload, res, nil
}

// Trim rounds [start, end] and commits it.
func (p *Pipeline) Trim(ctx context.Context, start, end, duration float64, saveAsNew bool) (TrimPayload, Asset, error) {
	cur, err := p.begin()
	if err != nil {
		return TrimPayload{}, Asset{}, err
	}
	payload := RoundTrim(cur.ID, start, end, duration, saveAsNew)
	t0 := time.Now()
	res, err := p.collab.CommitTrim(ctx, payload)
	err = normalize("trim", err)
	p.finish(res, err)
	p.report(Outcome{Op: "trim", AssetID: cur.ID, Payload: payload, Result: res, Err: err, Duration: time.Since(t0)})
	if err != nil {
		return payload, Asset{}, err
	}
	return payload, res, nil
}

func (p *Pipeline) report(o Outcome) {
	if o.Err != nil {
		p.log.Warn("commit failed", slog.String("op", o.Op), slog.String("asset", o.AssetID), slog.Any("err", o.Err))
	} else {
		p.log.Info("commit succeeded", slog.String("op", o.Op), slog.String("asset", o.AssetID),
			slog.String("result", o.Result.ID), slog.Int64("ms", o.Duration.Milliseconds()))
	}
	if p.Observe != nil {
		p.Observe(o)
	}
}

// normalize makes every failure a *Error so callers can read Detail.
func normalize(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Op: op, Detail: err.Error(), Err: err}
}
