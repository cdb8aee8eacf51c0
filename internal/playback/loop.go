/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package playback keeps a media element's playhead inside the active trim
// range while previewing.
//
// The check is driven by timeupdate ticks from the media element rather than
// by a timer: whenever a tick reports a playhead at or past the range end the
// loop seeks back to the start and pauses. Coarse ticks are tolerated; the
// overshoot is corrected on the next tick.
package playback

import (
	"log/slog"

	applog "contentstudio/internal/log"
	"contentstudio/internal/timeline"
)

// Media is the subset of a media element the loop drives. It is owned by the
// caller; the loop only reads it and conditionally seeks or pauses.
type Media interface {
	CurrentTime() float64
	Playing() bool
	Play()
	Pause()
	Seek(t float64)
}

// Loop binds a media element to a trim range.
type Loop struct {
	media Media
	rng   *timeline.Range
	log   *slog.Logger
}

func NewLoop(media Media, rng *timeline.Range) *Loop {
	return &Loop{media: media, rng: rng, log: applog.WithComponent("playback")}
}

// OnTimeUpdate handles one timeupdate tick. It reports whether the playhead
// was wrapped back to the range start.
func (l *Loop) OnTimeUpdate() bool {
	if l.media == nil || l.rng == nil || !l.rng.Loaded() {
		return false
	}
	if !l.media.Playing() {
		return false
	}
	if l.media.CurrentTime() < l.rng.End() {
		return false
	}
	l.log.Debug("range end reached", slog.Float64("t", l.media.CurrentTime()), slog.Float64("end", l.rng.End()))
	l.media.Seek(l.rng.Start())
	l.media.Pause()
	return true
}

// Play starts preview playback, first moving the playhead into the range
// when it sits outside [start, end].
func (l *Loop) Play() {
	if l.media == nil {
		return
	}
	if l.rng != nil && l.rng.Loaded() {
		t := l.media.CurrentTime()
		if t < l.rng.Start() || t >= l.rng.End() {
			l.media.Seek(l.rng.Start())
		}
	}
	l.media.Play()
}

// SetStartAtPlayhead moves the range start to the current playhead.
func (l *Loop) SetStartAtPlayhead() {
	if l.media == nil || l.rng == nil {
		return
	}
	l.rng.SetStart(l.media.CurrentTime())
}

// SetEndAtPlayhead moves the range end to the current playhead.
func (l *Loop) SetEndAtPlayhead() {
	if l.media == nil || l.rng == nil {
		return
	}
	l.rng.SetEnd(l.media.CurrentTime())
}
