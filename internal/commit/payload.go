/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package commit turns the edited region or range into the payload the asset
// service expects and sends it.
//
// Values are rounded at the boundary only: pixels to integers and seconds to
// two decimals. Rounding is followed by a re-clamp so the payload never
// points outside the media even when the float model sits on an edge.
package commit

import (
	"math"

	"contentstudio/internal/geom"
	"contentstudio/internal/region"
	"contentstudio/internal/timeline"
)

// CropPayload is the crop request body.
type CropPayload struct {
	AssetID   string `json:"asset_id"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SaveAsNew bool   `json:"save_as_new"`
}

// TrimPayload is the trim request body. Times are seconds with two decimals.
type TrimPayload struct {
	AssetID   string  `json:"asset_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	SaveAsNew bool    `json:"save_as_new"`
}

// Asset is the descriptor returned by the service after a commit.
type Asset struct {
	ID       string  `json:"id"`
	FileURL  string  `json:"file_url,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// RoundCrop converts a natural-space region to integer pixels inside b.
func RoundCrop(assetID string, rc geom.NaturalRect, b region.Bounds, saveAsNew bool) CropPayload {
	bw := int(math.Floor(b.Width))
	bh := int(math.Floor(b.Height))
	w := clampInt(int(math.Round(rc.Width)), 1, bw)
	h := clampInt(int(math.Round(rc.Height)), 1, bh)
	x := clampInt(int(math.Round(rc.X)), 0, bw-w)
	y := clampInt(int(math.Round(rc.Y)), 0, bh-h)
	return CropPayload{AssetID: assetID, X: x, Y: y, Width: w, Height: h, SaveAsNew: saveAsNew}
}

// RoundTrim converts a range to two-decimal seconds inside [0, duration].
// When rounding shortens the interval below the minimum, start gives way.
func RoundTrim(assetID string, start, end, duration float64, saveAsNew bool) TrimPayload {
	maxEnd := math.Floor(duration*100) / 100
	e := math.Min(geom.FloatRound(end, 2), maxEnd)
	s := math.Max(0, geom.FloatRound(start, 2))
	if minLen := math.Min(timeline.MinDuration, maxEnd); e-s < minLen-1e-9 {
		s = math.Max(0, geom.FloatRound(e-minLen, 2))
		if e-s < minLen-1e-9 {
			e = math.Min(maxEnd, geom.FloatRound(s+minLen, 2))
		}
	}
	return TrimPayload{AssetID: assetID, StartTime: s, EndTime: e, SaveAsNew: saveAsNew}
}

func clampInt(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
