/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hjhudsonwriter/DM-session-hub/internal/summary"
)

// WriteJSON writes the validated JSON projection to outPath.
func WriteJSON(p summary.Projection, outPath string) error {
	data, err := summary.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// RenderMarkdown writes a Markdown summary sheet to w.
func RenderMarkdown(w io.Writer, p summary.Projection) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", projectionTitle(p))
	for _, sc := range p.Scenes {
		fmt.Fprintf(&b, "\n## %s\n\n_%s_\n", sc.Title, pageLabel(sc.StartPage, sc.EndPage))
		if sc.Empty {
			fmt.Fprintf(&b, "\n_%s_\n", EmptySceneNote)
			continue
		}
		if len(sc.Reveals) > 0 {
			b.WriteString("\n### Reveals\n\n")
			for _, r := range sc.Reveals {
				fmt.Fprintf(&b, "- **%s**: %s\n", r.RollText, oneLine(r.RevealText))
			}
		}
		if len(sc.Loot) > 0 {
			b.WriteString("\n### Loot\n\n")
			for _, l := range sc.Loot {
				fmt.Fprintf(&b, "- %s\n", oneLine(l))
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteMarkdown writes the Markdown summary sheet to outPath.
func WriteMarkdown(p summary.Projection, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create markdown: %w", err)
	}
	if err := RenderMarkdown(f, p); err != nil {
		_ = f.Close()
		return fmt.Errorf("write markdown: %w", err)
	}
	return f.Close()
}

// oneLine keeps multi-line loot inside its list item.
func oneLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n  ")
}
