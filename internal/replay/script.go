/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package replay drives an editor session from a YAML script of gestures
// and assertions. Scripts reproduce UI bugs and serve as end-to-end tests.
//
//	kind: crop
//	asset: {id: img-1, width: 2000, height: 1000}
//	ratio: "1:1"
//	viewport: {width: 1000, height: 1000}
//	steps:
//	  - pointer: {kind: down, x: 500, y: 250}
//	  - pointer: {kind: up, x: 400, y: 250}
//	  - expect: {region: {x: 300, y: 0, width: 1000, height: 1000}}
//	  - undo
//	  - commit: {save_as_new: true}
package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"contentstudio/internal/commit"
	"contentstudio/internal/geom"
)

// Script is a parsed replay file.
type Script struct {
	Kind       string       `yaml:"kind"`
	Asset      commit.Asset `yaml:"asset"`
	Ratio      string       `yaml:"ratio"`
	Media      string       `yaml:"media"` // optional image or video path, relative to the script
	Viewport   Size         `yaml:"viewport"`
	TrackWidth float64      `yaml:"track_width"`
	Steps      []Step       `yaml:"-"`
}

type Size struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Step is one scripted action. Op names which of the argument fields is set.
type Step struct {
	Line       int
	Op         string
	Pointer    *PointerArgs
	Ratio      string
	Viewport   *Size
	TimeUpdate *TimeUpdateArgs
	Boundary   *BoundaryArgs
	Commit     *CommitArgs
	Expect     *Expect
	Load       *LoadArgs
}

type PointerArgs struct {
	Kind    string  `yaml:"kind"`
	Area    string  `yaml:"area"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Pointer string  `yaml:"pointer"`
}

type TimeUpdateArgs struct {
	Current float64 `yaml:"current"`
	Playing bool    `yaml:"playing"`
}

type BoundaryArgs struct {
	Handle string   `yaml:"handle"`
	Time   *float64 `yaml:"time"`
}

type CommitArgs struct {
	SaveAsNew bool `yaml:"save_as_new"`
	// ExpectError makes a failing commit the expected outcome.
	ExpectError bool `yaml:"expect_error"`
}

type LoadArgs struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	Duration float64 `yaml:"duration"`
	Error    string  `yaml:"error"`
}

// Expect asserts on the session state. Unset fields are not checked.
type Expect struct {
	Region   *geom.NaturalRect `yaml:"region"`
	Ratio    *string           `yaml:"ratio"`
	Start    *float64          `yaml:"start"`
	End      *float64          `yaml:"end"`
	Playhead *float64          `yaml:"playhead"`
	Mode     *string           `yaml:"mode"`
	CanUndo  *bool             `yaml:"can_undo"`
	CanRedo  *bool             `yaml:"can_redo"`
	Asset    *string           `yaml:"asset"`
	Loaded   *bool             `yaml:"loaded"`
}

// Error is a parse or replay failure with the script line it belongs to.
type Error struct {
	Line int
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ParseFile reads and parses a script. Media paths are resolved against the
// script's directory.
func ParseFile(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	sc, err := Parse(b)
	if err != nil {
		return nil, err
	}
	if sc.Media != "" && !filepath.IsAbs(sc.Media) {
		sc.Media = filepath.Join(filepath.Dir(path), sc.Media)
	}
	return sc, nil
}

// Parse decodes a script. Steps are either a bare operation name ("undo") or
// a single-key mapping from operation to its arguments.
func Parse(b []byte) (*Script, error) {
	var doc struct {
		Script `yaml:",inline"`
		Steps  yaml.Node `yaml:"steps"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	sc := doc.Script
	if sc.Kind == "" {
		return nil, &Error{Line: 1, Err: fmt.Errorf("kind is required")}
	}
	if doc.Steps.Kind == 0 {
		return &sc, nil
	}
	if doc.Steps.Kind != yaml.SequenceNode {
		return nil, &Error{Line: doc.Steps.Line, Err: fmt.Errorf("steps must be a list")}
	}
	for _, n := range doc.Steps.Content {
		st, err := parseStep(n)
		if err != nil {
			return nil, err
		}
		sc.Steps = append(sc.Steps, st)
	}
	return &sc, nil
}

func parseStep(n *yaml.Node) (Step, error) {
	st := Step{Line: n.Line}
	var args *yaml.Node
	switch n.Kind {
	case yaml.ScalarNode:
		st.Op = n.Value
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return st, &Error{Line: n.Line, Err: fmt.Errorf("a step must have exactly one operation")}
		}
		st.Op, args = n.Content[0].Value, n.Content[1]
	default:
		return st, &Error{Line: n.Line, Err: fmt.Errorf("unexpected step")}
	}
	st.Op = strings.ToLower(strings.TrimSpace(st.Op))

	var target any
	switch st.Op {
	case "undo", "redo", "reset", "play", "pause":
		return st, nil
	case "pointer":
		st.Pointer = &PointerArgs{}
		target = st.Pointer
	case "ratio":
		target = &st.Ratio
	case "viewport":
		st.Viewport = &Size{}
		target = st.Viewport
	case "timeupdate":
		st.TimeUpdate = &TimeUpdateArgs{}
		target = st.TimeUpdate
	case "boundary":
		st.Boundary = &BoundaryArgs{}
		target = st.Boundary
	case "commit":
		st.Commit = &CommitArgs{}
		if args == nil {
			return st, nil
		}
		target = st.Commit
	case "expect":
		st.Expect = &Expect{}
		target = st.Expect
	case "load":
		st.Load = &LoadArgs{}
		target = st.Load
	default:
		return st, &Error{Line: n.Line, Err: fmt.Errorf("unknown operation %q", st.Op)}
	}
	if args == nil {
		return st, &Error{Line: n.Line, Op: st.Op, Err: fmt.Errorf("missing arguments")}
	}
	if err := args.Decode(target); err != nil {
		return st, &Error{Line: n.Line, Op: st.Op, Err: err}
	}
	return st, nil
}
