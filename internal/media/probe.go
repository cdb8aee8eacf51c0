/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// VideoInfo is the metadata a trim editor needs.
type VideoInfo struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Codec    string  `json:"codec,omitempty"`
}

// Prober resolves video metadata.
type Prober interface {
	Probe(ctx context.Context, path string) (VideoInfo, error)
}

// FFProbe runs the ffprobe binary.
type FFProbe struct {
	Binary  string        // defaults to "ffprobe" on PATH
	Timeout time.Duration // defaults to 15s
}

const maxProbeStderr = 4 << 10

func (p FFProbe) Probe(ctx context.Context, path string) (VideoInfo, error) {
	bin := p.Binary
	if bin == "" {
		bin = "ffprobe"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("%w: %s not found: %v", ErrLoad, bin, err)
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, resolved,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "format=duration:stream=width,height,codec_name",
		"-of", "json",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		tail := stderr.String()
		if len(tail) > maxProbeStderr {
			tail = tail[len(tail)-maxProbeStderr:]
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return VideoInfo{}, fmt.Errorf("%w: ffprobe exit %d: %s", ErrLoad, exitErr.ExitCode(), strings.TrimSpace(tail))
		}
		return VideoInfo{}, fmt.Errorf("%w: ffprobe: %v", ErrLoad, err)
	}
	return parseProbeJSON(stdout.Bytes())
}

type probeOutput struct {
	Streams []struct {
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbeJSON(b []byte) (VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return VideoInfo{}, fmt.Errorf("%w: parse ffprobe output: %v", ErrLoad, err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
	if err != nil || d <= 0 || math.IsInf(d, 0) || math.IsNaN(d) {
		return VideoInfo{}, fmt.Errorf("%w: no usable duration %q", ErrLoad, out.Format.Duration)
	}
	info := VideoInfo{Duration: d}
	if len(out.Streams) > 0 {
		info.Width = out.Streams[0].Width
		info.Height = out.Streams[0].Height
		info.Codec = out.Streams[0].CodecName
	}
	return info, nil
}

// StaticProber reports a fixed duration. It serves front ends that already
// know the clip length from their own player.
type StaticProber struct{ Duration float64 }

func (s StaticProber) Probe(context.Context, string) (VideoInfo, error) {
	if s.Duration <= 0 || math.IsInf(s.Duration, 0) || math.IsNaN(s.Duration) {
		return VideoInfo{}, fmt.Errorf("%w: invalid duration %v", ErrLoad, s.Duration)
	}
	return VideoInfo{Duration: s.Duration}, nil
}
