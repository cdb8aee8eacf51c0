/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package history

import (
	"testing"
	"time"
)

// clocked returns a manager whose time advances by step on every call.
func clocked(cfg Config, step time.Duration) *Manager {
	m := NewManager(cfg)
	base := time.Unix(1_700_000_000, 0)
	n := 0
	m.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * step)
	}
	return m
}

func TestUndoRedoRoundTrip(t *testing.T) {
	m := clocked(Config{}, time.Second)
	m.Record("a", []byte("s0"))
	m.Record("a", []byte("s1"))

	s, ok := m.Undo("a", []byte("s2"))
	if !ok || string(s.Blob) != "s1" {
		t.Fatalf("undo = %q, %v; want s1", s.Blob, ok)
	}
	s, ok = m.Undo("a", []byte("s1"))
	if !ok || string(s.Blob) != "s0" {
		t.Fatalf("undo = %q, %v; want s0", s.Blob, ok)
	}
	if _, ok := m.Undo("a", []byte("s0")); ok {
		t.Fatalf("undo past the first entry")
	}
	s, ok = m.Redo("a", []byte("s0"))
	if !ok || string(s.Blob) != "s1" {
		t.Fatalf("redo = %q, %v; want s1", s.Blob, ok)
	}
	s, ok = m.Redo("a", []byte("s1"))
	if !ok || string(s.Blob) != "s2" {
		t.Fatalf("redo = %q, %v; want s2", s.Blob, ok)
	}
	if m.CanRedo("a") {
		t.Fatalf("redo stack should be empty")
	}
}

func TestRecordClearsRedo(t *testing.T) {
	m := clocked(Config{}, time.Second)
	m.Record("a", []byte("s0"))
	m.Undo("a", []byte("s1"))
	if !m.CanRedo("a") {
		t.Fatalf("expected redo entry")
	}
	m.Record("a", []byte("s0"))
	if m.CanRedo("a") {
		t.Fatalf("a new edit must clear redo")
	}
}

func TestCoalescingKeepsFirstState(t *testing.T) {
	m := clocked(Config{MinInterval: 500 * time.Millisecond}, 100*time.Millisecond)
	if !m.Record("a", []byte("first")) {
		t.Fatalf("first record must create a step")
	}
	for i := 0; i < 5; i++ {
		if m.Record("a", []byte("later")) {
			t.Fatalf("record %d within interval created a step", i)
		}
	}
	if _, _, depth := m.Stats(); depth != 1 {
		t.Fatalf("depth = %d, want 1", depth)
	}
	s, _ := m.Undo("a", []byte("now"))
	if string(s.Blob) != "first" {
		t.Fatalf("coalesced undo = %q, want first", s.Blob)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	m := clocked(Config{MinInterval: time.Hour}, time.Millisecond)
	m.Record("a", []byte("a0"))
	if !m.Record("b", []byte("b0")) {
		t.Fatalf("coalescing must be per key")
	}
	m.Clear("a")
	if m.CanUndo("a") || !m.CanUndo("b") {
		t.Fatalf("Clear touched the wrong key")
	}
}

func TestCaps(t *testing.T) {
	m := clocked(Config{MaxPerKey: 3}, time.Second)
	for i := 0; i < 10; i++ {
		m.Record("a", []byte{byte(i)})
	}
	if _, _, depth := m.Stats(); depth != 3 {
		t.Fatalf("depth = %d, want 3", depth)
	}
	s, _ := m.Undo("a", nil)
	if s.Blob[0] != 9 {
		t.Fatalf("newest entry lost: %v", s.Blob)
	}

	m = clocked(Config{MaxBytes: 10}, time.Second)
	m.Record("a", make([]byte, 4))
	m.Record("b", make([]byte, 4))
	m.Record("b", make([]byte, 4))
	total, _, _ := m.Stats()
	if total > 10 {
		t.Fatalf("total bytes %d exceeds cap", total)
	}
	if m.CanUndo("a") {
		t.Fatalf("oldest entry (a) should have been pruned first")
	}
}
