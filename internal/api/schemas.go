/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package api

import (
	"contentstudio/internal/commit"
	"contentstudio/internal/editor"
	"contentstudio/internal/playback"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	Sessions int    `json:"sessions"`
}

// CreateSessionRequest opens an editor. When the asset already carries its
// natural size (crop) or duration (trim) the session is loaded right away;
// Path asks the server to read the media itself.
type CreateSessionRequest struct {
	Kind  string       `json:"kind"`
	Asset commit.Asset `json:"asset"`
	Ratio string       `json:"ratio,omitempty"`
	Path  string       `json:"path,omitempty"`
}

// LoadRequest reports the outcome of loading media in the front end.
type LoadRequest struct {
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type ViewportRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type RatioRequest struct {
	Ratio string `json:"ratio"`
}

type PointerRequest struct {
	Kind    string  `json:"kind"`
	Area    string  `json:"area,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Pointer string  `json:"pointer,omitempty"`
}

type PointerResponse struct {
	Mode           string             `json:"mode"`
	Handled        bool               `json:"handled"`
	Changed        bool               `json:"changed"`
	Ended          bool               `json:"ended"`
	PreventDefault bool               `json:"prevent_default"`
	Commands       []playback.Command `json:"commands,omitempty"`
	State          editor.State       `json:"state"`
}

type TimeUpdateRequest struct {
	Current float64 `json:"current"`
	Playing bool    `json:"playing"`
}

type PlaybackResponse struct {
	Wrapped  bool               `json:"wrapped"`
	Commands []playback.Command `json:"commands"`
	State    editor.State       `json:"state"`
}

// BoundaryRequest moves a trim boundary to Time, or to the playhead when
// Time is omitted.
type BoundaryRequest struct {
	Handle string   `json:"handle"`
	Time   *float64 `json:"time,omitempty"`
}

type CommitRequest struct {
	SaveAsNew bool `json:"save_as_new"`
}

type CommitResponse struct {
	Asset commit.Asset `json:"asset"`
	State editor.State `json:"state"`
}

type SessionsResponse struct {
	Sessions []editor.State `json:"sessions"`
}

type HistoryResponse struct {
	Applied bool         `json:"applied"`
	State   editor.State `json:"state"`
}
