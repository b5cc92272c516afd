/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a top-level panic into a report file, a dump of the
// session summary collected so far, and exit code 2.
package crash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "github.com/hjhudsonwriter/DM-session-hub/internal/log"
	"github.com/hjhudsonwriter/DM-session-hub/internal/session"
	"github.com/hjhudsonwriter/DM-session-hub/internal/summary"
	"github.com/hjhudsonwriter/DM-session-hub/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Target names what Recover saves. Fields may be filled in after the
// deferred call is set up, e.g. once a document has loaded.
type Target struct {
	// Dir receives the report; os.TempDir() when empty.
	Dir      string
	Document string
	Machine  *session.Machine
}

// Recover captures a panic, logs it with its stack, writes an error report
// and, when a session is active, dumps its summary projection as JSON next
// to the report so the notes taken so far survive.
//
// Usage: defer crash.Recover(target)
func Recover(t *Target) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		stamp := time.Now().Format("20060102-150405")
		reportPath, err := writeReport(t, stamp, r, stack)
		if err != nil {
			l.Error("write crash report failed", slog.Any("err", err))
		}
		if path, err := dumpSummary(t, stamp); err != nil {
			l.Error("summary dump failed", slog.Any("err", err))
		} else if path != "" {
			l.Info("summary dump written", slog.String("path", path))
			_, _ = fmt.Fprintf(os.Stderr, "Session notes were saved to: %s\n", path)
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

func reportDir(t *Target) string {
	if t != nil && t.Dir != "" {
		_ = os.MkdirAll(t.Dir, 0o755)
		return t.Dir
	}
	return os.TempDir()
}

func writeReport(t *Target, stamp string, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(reportDir(t), fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "DM Session Hub Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if t != nil {
		if t.Document != "" {
			_, _ = fmt.Fprintf(&buf, "Document: %s\n", t.Document)
		}
		if t.Machine != nil {
			_, _ = fmt.Fprintf(&buf, "Session: %s, scene %d of %d\n", t.Machine.State(), t.Machine.CurrentIndex()+1, len(t.Machine.Scenes()))
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	return path, nil
}

// dumpSummary writes the projection of an active session. It returns an empty
// path when there is nothing to save.
func dumpSummary(t *Target, stamp string) (path string, err error) {
	if t == nil || t.Machine == nil || t.Machine.State() == session.StateIdle {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("project summary: %v", r)
		}
	}()
	p := t.Machine.Projection()
	data, err := summary.Marshal(p)
	if err != nil {
		// Keep the notes even when they do not pass the schema.
		if data, err = json.MarshalIndent(p, "", "  "); err != nil {
			return "", err
		}
	}
	path = filepath.Join(reportDir(t), fmt.Sprintf("crash-%s-summary.json", stamp))
	return path, os.WriteFile(path, data, 0o644)
}
