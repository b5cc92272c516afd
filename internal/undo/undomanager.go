/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-scene undo/redo history for loot notes.
package undo

import (
	"sync"
	"time"
)

// Entry is one remembered version of a scene's loot notes.
// Size is estimated as len(Text). TS is when the version was replaced.
type Entry struct {
	Scene int
	Text  string
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerScene limits number of entries per scene kept in memory (0 means unlimited).
	MaxPerScene int
	// MinInterval coalesces edits recorded within the interval for the same scene,
	// keeping the earlier version instead of pushing a new entry. Zero selects
	// the default; a negative value disables coalescing.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack per scene with memory safeguards.
// It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	now func() time.Time
	// per-scene stacks
	undo map[int][]Entry
	redo map[int][]Entry
	// last Record per scene, for coalescing
	last map[int]time.Time
	// accounting
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 1 << 20 // 1 MiB
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	m := &Manager{cfg: cfg, now: time.Now}
	m.Reset()
	return m
}

// Record remembers prev, the text about to be replaced in scene, and clears
// the scene's redo stack.
func (m *Manager) Record(scene int, prev string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.now()
	m.redo[scene] = nil
	if last, ok := m.last[scene]; ok && m.cfg.MinInterval > 0 && ts.Sub(last) < m.cfg.MinInterval && len(m.undo[scene]) > 0 {
		// Coalesce: the version before the burst of edits stays on top.
		m.last[scene] = ts
		return
	}
	m.undo[scene] = append(m.undo[scene], Entry{Scene: scene, Text: prev, TS: ts})
	m.last[scene] = ts
	m.totalBytes += len(prev)
	m.enforceCapsLocked(scene)
}

// Undo returns the previous version of the scene's notes and remembers
// current for Redo.
func (m *Manager) Undo(scene int, current string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[scene]
	if len(stack) == 0 {
		return "", false
	}
	e := stack[len(stack)-1]
	m.undo[scene] = stack[:len(stack)-1]
	m.totalBytes -= len(e.Text)
	m.redo[scene] = append(m.redo[scene], Entry{Scene: scene, Text: current, TS: m.now()})
	delete(m.last, scene)
	return e.Text, true
}

// Redo returns the version undone last and remembers current for Undo.
func (m *Manager) Redo(scene int, current string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[scene]
	if len(r) == 0 {
		return "", false
	}
	e := r[len(r)-1]
	m.redo[scene] = r[:len(r)-1]
	m.undo[scene] = append(m.undo[scene], Entry{Scene: scene, Text: current, TS: m.now()})
	m.totalBytes += len(current)
	delete(m.last, scene)
	m.enforceCapsLocked(scene)
	return e.Text, true
}

// ClearScene clears undo/redo stacks for a scene to free memory.
func (m *Manager) ClearScene(scene int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.undo[scene] {
		m.totalBytes -= len(e.Text)
	}
	delete(m.undo, scene)
	delete(m.redo, scene)
	delete(m.last, scene)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Reset drops all history, e.g. when a new document is loaded.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = make(map[int][]Entry)
	m.redo = make(map[int][]Entry)
	m.last = make(map[int]time.Time)
	m.totalBytes = 0
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, scenes int, totalEntries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.undo {
		if len(v) > 0 {
			scenes++
		}
		totalEntries += len(v)
	}
	return m.totalBytes, scenes, totalEntries
}

func (m *Manager) enforceCapsLocked(scene int) {
	// Per-scene depth cap
	if m.cfg.MaxPerScene > 0 {
		stack := m.undo[scene]
		if len(stack) > m.cfg.MaxPerScene {
			// drop the oldest extras
			toDrop := len(stack) - m.cfg.MaxPerScene
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Text)
			}
			m.undo[scene] = append([]Entry{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all scenes
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestScene := 0
		found := false
		var oldestTS time.Time
		for sc, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestScene = sc
				oldestTS = stack[0].TS
				found = true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestScene]
		m.totalBytes -= len(stack[0].Text)
		m.undo[oldestScene] = stack[1:]
		if len(m.undo[oldestScene]) == 0 {
			delete(m.undo, oldestScene)
		}
	}
}
