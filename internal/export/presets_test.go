/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBatch_TablePreset(t *testing.T) {
	dir := t.TempDir()
	got, err := Batch(sampleProjection(), BatchOptions{Preset: PresetTable, OutDir: dir})
	if err != nil {
		t.Fatalf("batch export table: %v", err)
	}
	want := []string{
		filepath.Join(dir, "session-summary.md"),
		filepath.Join(dir, "session-summary.json"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("written paths (-want +got):\n%s", diff)
	}
	for _, p := range got {
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("empty file: %s", p)
		}
	}
}

func TestBatch_PrintPreset(t *testing.T) {
	dir := t.TempDir()
	got, err := Batch(sampleProjection(), BatchOptions{Preset: PresetPrint, OutDir: dir, PageSize: "A4"})
	if err != nil {
		t.Fatalf("batch export print: %v", err)
	}
	if len(got) != 1 || got[0] != filepath.Join(dir, "session-summary.pdf") {
		t.Fatalf("written = %v", got)
	}
}

func TestBatch_ExplicitFormats(t *testing.T) {
	dir := t.TempDir()
	got, err := Batch(sampleProjection(), BatchOptions{Formats: []string{" JSON", "json", "markdown"}, OutDir: dir})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("duplicate formats not collapsed: %v", got)
	}
}

func TestBatch_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	got, err := Batch(sampleProjection(), BatchOptions{Formats: []string{"md", "cbz"}, OutDir: dir})
	if err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if len(got) != 1 {
		t.Fatalf("formats before the failure should be reported: %v", got)
	}
}
