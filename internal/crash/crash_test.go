/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hjhudsonwriter/DM-session-hub/internal/docsource"
	"github.com/hjhudsonwriter/DM-session-hub/internal/session"
	"github.com/hjhudsonwriter/DM-session-hub/internal/summary"
)

func activeMachine(t *testing.T) *session.Machine {
	t.Helper()
	doc, err := docsource.Decode([]byte(`
page_count: 2
outline:
  - {title: Scene 1, dest: 1}
  - {title: Scene 2, dest: 2}
pages:
  - {number: 1, fragments: ["Roll Arcana check (DC 12)", "SUCCESS: The sigil is a ward."]}
`), docsource.FormatYAML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m := session.New()
	if err := m.Load(context.Background(), doc); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = old
		_, _ = io.Copy(io.Discard, r)
	})
}

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "20250101-000000", "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	defer os.Remove(path)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "DM Session Hub Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestDumpSummarySkipsIdleSession(t *testing.T) {
	dir := t.TempDir()
	path, err := dumpSummary(&Target{Dir: dir, Machine: session.New()}, "x")
	if err != nil || path != "" {
		t.Fatalf("dumpSummary on idle session = %q, %v", path, err)
	}
}

// TestRecover_SavesReportAndSummary panics with an active session and
// expects both files in the target directory and an intercepted exit code 2.
func TestRecover_SavesReportAndSummary(t *testing.T) {
	silenceStderr(t)
	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	m := activeMachine(t)
	if err := m.Decide(0, session.OutcomeSuccess); err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "crash")
	target := &Target{Dir: dir, Document: "crypt.yaml", Machine: m}

	func() {
		defer Recover(target)
		panic("boom")
	}()

	if called != 2 {
		t.Fatalf("exit code = %d, want 2", called)
	}
	reports, _ := filepath.Glob(filepath.Join(dir, "crash-*.log"))
	dumps, _ := filepath.Glob(filepath.Join(dir, "crash-*-summary.json"))
	if len(reports) != 1 || len(dumps) != 1 {
		t.Fatalf("reports %v, dumps %v", reports, dumps)
	}
	b, _ := os.ReadFile(reports[0])
	if !strings.Contains(string(b), "Document: crypt.yaml") || !strings.Contains(string(b), "Session: viewing, scene 1 of 2") {
		t.Fatalf("report:\n%s", b)
	}
	data, err := os.ReadFile(dumps[0])
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	p, err := summary.Unmarshal(data)
	if err != nil {
		t.Fatalf("dump is not a valid projection: %v", err)
	}
	if r := p.Scenes[0].Reveals; len(r) != 1 || r[0].RevealText != "The sigil is a ward." {
		t.Fatalf("dumped reveals = %+v", r)
	}
}

func TestRecover_NoPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(nil)
	}()
	if called {
		t.Fatalf("exit called without panic")
	}
}
