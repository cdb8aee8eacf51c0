/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package history keeps per-asset undo/redo stacks of editor snapshots.
//
// Snapshots are opaque byte blobs so the byte cap can be enforced without
// knowing what an editor stores. A snapshot is the state *before* an edit:
// Undo hands it back in exchange for the current state, which becomes the
// redo entry.
package history

import (
	"sync"
	"time"
)

// Snapshot is a reversible state blob for one asset.
type Snapshot struct {
	Key  string
	Blob []byte
	TS   time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; the oldest entries across all assets are pruned when exceeded.
	MaxBytes int
	// MaxPerKey limits the undo depth per asset (0 means unlimited).
	MaxPerKey int
	// MinInterval coalesces edits of the same asset: a Record within the interval of the
	// previous one is dropped so a burst of edits undoes in one step.
	MinInterval time.Duration
}

// Manager is safe for concurrent use.
type Manager struct {
	cfg Config
	now func() time.Time

	mu         sync.Mutex
	undo       map[string][]Snapshot
	redo       map[string][]Snapshot
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 4 * 1024 * 1024
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{
		cfg:  cfg,
		now:  time.Now,
		undo: make(map[string][]Snapshot),
		redo: make(map[string][]Snapshot),
	}
}

// Record stores the pre-edit state of key and clears its redo stack.
// It reports whether a new undo step was created (false when coalesced).
func (m *Manager) Record(key string, before []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.now()
	m.dropRedoLocked(key)
	stack := m.undo[key]
	if n := len(stack); n > 0 && m.cfg.MinInterval > 0 && ts.Sub(stack[n-1].TS) < m.cfg.MinInterval {
		// keep the older pre-edit state, just extend the window
		stack[n-1].TS = ts
		return false
	}
	m.undo[key] = append(stack, Snapshot{Key: key, Blob: clone(before), TS: ts})
	m.totalBytes += len(before)
	m.enforceCapsLocked(key)
	return true
}

// Undo returns the state to restore for key and parks current on the redo stack.
func (m *Manager) Undo(key string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[key]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[key] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[key] = append(m.redo[key], Snapshot{Key: key, Blob: clone(current), TS: m.now()})
	m.totalBytes += len(current)
	return s, true
}

// Redo returns the state undone last and pushes current back onto the undo stack.
func (m *Manager) Redo(key string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[key]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[key] = r[:len(r)-1]
	m.totalBytes -= len(s.Blob)
	// a redo is an edit of its own; it must not coalesce with the previous entry
	m.undo[key] = append(m.undo[key], Snapshot{Key: key, Blob: clone(current), TS: time.Time{}})
	m.totalBytes += len(current)
	m.enforceCapsLocked(key)
	return s, true
}

func (m *Manager) CanUndo(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[key]) > 0
}

func (m *Manager) CanRedo(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[key]) > 0
}

// Clear drops both stacks of key.
func (m *Manager) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[key] {
		m.totalBytes -= len(s.Blob)
	}
	m.dropRedoLocked(key)
	delete(m.undo, key)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, keys int, undoDepth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys = len(m.undo)
	for _, v := range m.undo {
		undoDepth += len(v)
	}
	return m.totalBytes, keys, undoDepth
}

func (m *Manager) dropRedoLocked(key string) {
	for _, s := range m.redo[key] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.redo, key)
}

func (m *Manager) enforceCapsLocked(key string) {
	if m.cfg.MaxPerKey > 0 {
		stack := m.undo[key]
		if len(stack) > m.cfg.MaxPerKey {
			toDrop := len(stack) - m.cfg.MaxPerKey
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[key] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// global cap: prune the oldest undo entry across all assets, never the newest of key
	for m.totalBytes > m.cfg.MaxBytes {
		oldestKey := ""
		var oldestTS time.Time
		found := false
		for k, stack := range m.undo {
			if len(stack) == 0 || (k == key && len(stack) == 1) {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestKey, oldestTS, found = k, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestKey]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestKey] = stack[1:]
		if len(m.undo[oldestKey]) == 0 {
			delete(m.undo, oldestKey)
		}
	}
}

func clone(b []byte) []byte { return append([]byte(nil), b...) }
