/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

// clock returns a manager whose clock advances by step on every reading.
func clock(cfg Config, step time.Duration) *Manager {
	m := NewManager(cfg)
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		t = t.Add(step)
		return t
	}
	return m
}

func TestUndoRedoBasic(t *testing.T) {
	m := clock(Config{MaxPerScene: 10, MinInterval: 10 * time.Millisecond}, time.Second)
	sc := 1
	m.Record(sc, "")  // "" -> "a"
	m.Record(sc, "a") // "a" -> "b"
	if _, scenes, total := m.Stats(); scenes != 1 || total != 2 {
		t.Fatalf("expected 1 scene and 2 entries, got scenes=%d total=%d", scenes, total)
	}
	prev, ok := m.Undo(sc, "b")
	if !ok || prev != "a" {
		t.Fatalf("undo expected 'a', got ok=%v text=%q", ok, prev)
	}
	next, ok := m.Redo(sc, prev)
	if !ok || next != "b" {
		t.Fatalf("redo expected 'b', got ok=%v text=%q", ok, next)
	}
	if _, ok := m.Redo(sc, next); ok {
		t.Fatalf("redo stack should be empty")
	}
}

func TestRecordClearsRedo(t *testing.T) {
	m := clock(Config{MinInterval: -1}, 0)
	m.Record(0, "a")
	_, _ = m.Undo(0, "b")
	m.Record(0, "a")
	if _, ok := m.Redo(0, "c"); ok {
		t.Fatalf("redo survived a new edit")
	}
}

func TestCoalesce(t *testing.T) {
	m := clock(Config{MaxPerScene: 10, MinInterval: 50 * time.Millisecond}, 10*time.Millisecond)
	sc := 2
	m.Record(sc, "1")
	m.Record(sc, "2") // coalesce
	_, _, total := m.Stats()
	if total != 1 {
		t.Fatalf("expected coalesced to 1 entry, got %d", total)
	}
	prev, ok := m.Undo(sc, "3")
	if !ok || prev != "1" {
		t.Fatalf("expected the version before the burst '1', got ok=%v text=%q", ok, prev)
	}
}

func TestNegativeIntervalDisablesCoalescing(t *testing.T) {
	m := clock(Config{MinInterval: -1}, 0)
	m.Record(0, "a")
	m.Record(0, "b")
	if _, _, total := m.Stats(); total != 2 {
		t.Fatalf("expected 2 entries, got %d", total)
	}
}

func TestCaps(t *testing.T) {
	m := clock(Config{MaxBytes: 20, MaxPerScene: 2, MinInterval: time.Millisecond}, time.Second)
	for i := 0; i < 10; i++ {
		m.Record(3, "xxxxx")
	}
	_, _, total := m.Stats()
	if total > 2 {
		t.Fatalf("expected MaxPerScene cap to limit to 2, got %d", total)
	}

	m = clock(Config{MaxBytes: 12, MinInterval: -1}, time.Second)
	m.Record(1, "aaaaa")
	m.Record(2, "bbbbb")
	m.Record(3, "ccccc")
	if bytes, scenes, _ := m.Stats(); bytes > 12 || scenes != 2 {
		t.Fatalf("memory cap not enforced: bytes=%d scenes=%d", bytes, scenes)
	}
	if _, ok := m.Undo(1, ""); ok {
		t.Fatalf("oldest scene history should have been pruned")
	}
}

func TestClearSceneAndReset(t *testing.T) {
	m := clock(Config{MinInterval: -1}, time.Second)
	m.Record(0, "a")
	m.Record(1, "b")
	m.ClearScene(0)
	if _, ok := m.Undo(0, ""); ok {
		t.Fatalf("cleared scene still has history")
	}
	m.Reset()
	if bytes, scenes, total := m.Stats(); bytes != 0 || scenes != 0 || total != 0 {
		t.Fatalf("after reset: %d %d %d", bytes, scenes, total)
	}
}
