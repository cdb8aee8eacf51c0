/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package playback

import "math"

// CommandKind is an instruction for a remote media element.
type CommandKind string

const (
	CommandSeek  CommandKind = "seek"
	CommandPause CommandKind = "pause"
	CommandPlay  CommandKind = "play"
)

// Command is queued by Element for a front end that owns the real player.
type Command struct {
	Kind CommandKind `json:"kind"`
	Time float64     `json:"time,omitempty"`
}

// Element mirrors the state of a player that lives elsewhere (a browser
// video element, a scripted replay). Front ends report ticks with Report and
// collect the resulting commands with Drain.
type Element struct {
	current  float64
	playing  bool
	duration float64
	pending  []Command
}

// NewElement returns a paused element at t=0 for a clip of duration seconds.
func NewElement(duration float64) *Element { return &Element{duration: duration} }

// Report records the player's latest state.
func (e *Element) Report(current float64, playing bool) {
	e.current = e.clamp(current)
	e.playing = playing
}

func (e *Element) CurrentTime() float64 { return e.current }
func (e *Element) Playing() bool        { return e.playing }

func (e *Element) Play() {
	e.playing = true
	e.push(Command{Kind: CommandPlay})
}

func (e *Element) Pause() {
	e.playing = false
	e.push(Command{Kind: CommandPause})
}

func (e *Element) Seek(t float64) {
	e.current = e.clamp(t)
	e.push(Command{Kind: CommandSeek, Time: e.current})
}

// MaxPending bounds the command queue between drains.
const MaxPending = 32

// push queues c. A seek replaces a seek queued right before it, so a scrub
// leaves only its final position; past MaxPending the oldest command goes.
func (e *Element) push(c Command) {
	if n := len(e.pending); n > 0 && c.Kind == CommandSeek && e.pending[n-1].Kind == CommandSeek {
		e.pending[n-1] = c
		return
	}
	if len(e.pending) >= MaxPending {
		e.pending = append(e.pending[:0], e.pending[1:]...)
	}
	e.pending = append(e.pending, c)
}

// Drain returns and clears the queued commands.
func (e *Element) Drain() []Command {
	out := e.pending
	e.pending = nil
	return out
}

func (e *Element) clamp(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if e.duration > 0 && t > e.duration {
		return e.duration
	}
	return t
}
