/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a session summary projection to files: a printable
// PDF, the schema-conformant JSON projection, and a Markdown sheet.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hjhudsonwriter/DM-session-hub/internal/summary"
)

// DefaultTitle heads a summary whose projection carries no document title.
const DefaultTitle = "Session Summary"

// EmptySceneNote marks a scene without reveals or loot.
const EmptySceneNote = "No reveals or loot recorded."

// PDFOptions controls PDF export. Units are millimetres.
// Text uses the built-in Helvetica so nothing has to be embedded.
type PDFOptions struct {
	// PageSize is "A4" (default) or "Letter".
	PageSize string
	Margin   float64
	// Author is written to the document info dictionary.
	Author string
}

func (o PDFOptions) withDefaults() PDFOptions {
	switch strings.ToLower(strings.TrimSpace(o.PageSize)) {
	case "letter":
		o.PageSize = "Letter"
	default:
		o.PageSize = "A4"
	}
	if o.Margin <= 0 {
		o.Margin = 18
	}
	if o.Author == "" {
		o.Author = "DM Session Hub"
	}
	return o
}

// WritePDF renders p to a single PDF at outPath, creating parent directories.
func WritePDF(p summary.Projection, outPath string, opt PDFOptions) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	pdf := buildPDF(p, opt)
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// RenderPDF streams the rendered PDF to w.
func RenderPDF(w io.Writer, p summary.Projection, opt PDFOptions) error {
	pdf := buildPDF(p, opt)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func buildPDF(p summary.Projection, opt PDFOptions) *gofpdf.Fpdf {
	opt = opt.withDefaults()
	title := projectionTitle(p)

	pdf := gofpdf.New("P", "mm", opt.PageSize, "")
	pdf.SetMargins(opt.Margin, opt.Margin, opt.Margin)
	pdf.SetAutoPageBreak(true, opt.Margin)
	pdf.SetTitle(title, true)
	pdf.SetAuthor(opt.Author, true)
	pdf.AliasNbPages("")
	// Core fonts are cp1252; UTF-8 notes are translated on the way in.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-opt.Margin + 6)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, fmt.Sprintf("%s  |  page %d/{nb}", tr(title), pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 9, tr(title), "", "L", false)
	reveals, loot := p.Counts()
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 6, fmt.Sprintf("%d scenes, %d reveals, %d loot entries", len(p.Scenes), reveals, loot), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, sc := range p.Scenes {
		pdf.SetDrawColor(180, 180, 180)
		pdf.SetLineWidth(0.2)
		w, _ := pdf.GetPageSize()
		pdf.Line(opt.Margin, pdf.GetY(), w-opt.Margin, pdf.GetY())
		pdf.Ln(2)

		pdf.SetFont("Helvetica", "B", 13)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, 7, tr(sc.Title), "", "L", false)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 5, pageLabel(sc.StartPage, sc.EndPage), "", 1, "L", false, 0, "")
		pdf.Ln(1)

		if sc.Empty {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(110, 110, 110)
			pdf.MultiCell(0, 6, EmptySceneNote, "", "L", false)
			pdf.Ln(3)
			continue
		}
		pdf.SetTextColor(0, 0, 0)
		if len(sc.Reveals) > 0 {
			sectionHeading(pdf, "Reveals")
			for _, r := range sc.Reveals {
				pdf.SetFont("Helvetica", "B", 10)
				pdf.MultiCell(0, 5, tr(r.RollText), "", "L", false)
				pdf.SetFont("Helvetica", "", 10)
				pdf.SetX(opt.Margin + 4)
				pdf.MultiCell(0, 5, tr(r.RevealText), "", "L", false)
				pdf.Ln(1)
			}
		}
		if len(sc.Loot) > 0 {
			sectionHeading(pdf, "Loot")
			pdf.SetFont("Helvetica", "", 10)
			for _, l := range sc.Loot {
				pdf.MultiCell(0, 5, tr(l), "", "L", false)
				pdf.Ln(1)
			}
		}
		pdf.Ln(3)
	}
	return pdf
}

func sectionHeading(pdf *gofpdf.Fpdf, label string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, label, "", 1, "L", false, 0, "")
}

func projectionTitle(p summary.Projection) string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	return DefaultTitle
}

func pageLabel(start, end int) string {
	if start == end {
		return fmt.Sprintf("p. %d", start)
	}
	return fmt.Sprintf("pp. %d-%d", start, end)
}
