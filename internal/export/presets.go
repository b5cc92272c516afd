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
	"path/filepath"
	"strings"

	"github.com/hjhudsonwriter/DM-session-hub/internal/summary"
)

// PresetName represents a named export preset.
type PresetName string

const (
	// PresetTable is for reading at the table: Markdown plus the JSON projection.
	PresetTable PresetName = "table"
	// PresetPrint is a single printable PDF.
	PresetPrint PresetName = "print"
)

// BaseName is the file stem of every batch output.
const BaseName = "session-summary"

// BatchOptions controls batch export across formats.
//
// Outputs are written as <OutDir>/session-summary.<ext>. An empty OutDir
// means the preset name, relative to the working directory.
type BatchOptions struct {
	Preset   PresetName
	Formats  []string // allowed: pdf, json, md; empty means preset defaults
	OutDir   string
	PageSize string
}

// Batch writes p in every requested format and returns the written paths in
// format order.
func Batch(p summary.Projection, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	outDir := opt.OutDir
	if outDir == "" {
		outDir = string(opt.Preset)
		if outDir == "" {
			outDir = "exports"
		}
	}

	var written []string
	seen := map[string]bool{}
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "markdown" {
			f = "md"
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out := filepath.Join(outDir, BaseName+"."+f)
		var err error
		switch f {
		case "pdf":
			err = WritePDF(p, out, PDFOptions{PageSize: opt.PageSize})
		case "json":
			err = WriteJSON(p, out)
		case "md":
			err = WriteMarkdown(p, out)
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
		if err != nil {
			return written, fmt.Errorf("%s: %w", f, err)
		}
		written = append(written, out)
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetTable:
		return []string{"md", "json"}
	case PresetPrint:
		return []string{"pdf"}
	default:
		return []string{"pdf"}
	}
}
