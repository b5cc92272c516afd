/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strings"
)

var reBreakRun = regexp.MustCompile(`\n{3,}`)

// ExtractLines turns one page's raw text fragments into ordered, trimmed,
// non-empty lines. Fragments are joined with line breaks and runs of three or
// more breaks collapse to a single blank separator before splitting.
// This is a best-effort reconstruction; unusual extraction order can merge or
// split lines.
func ExtractLines(fragments []string) []string {
	kept := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if strings.TrimSpace(f) == "" {
			continue
		}
		kept = append(kept, f)
	}
	return splitLines(strings.Join(kept, "\n"))
}

// JoinPages concatenates per-page lines in page order with one blank line
// between pages. Blank lines are dropped on the way out, so a page boundary
// never produces a block and never shortens the reveal lookahead window.
func JoinPages(pages [][]string) []string {
	var b strings.Builder
	for i, lines := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.Join(lines, "\n"))
	}
	return splitLines(b.String())
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = reBreakRun.ReplaceAllString(text, "\n\n")
	out := []string{}
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
