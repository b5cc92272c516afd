/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package docsource

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed document.schema.json
var documentSchema []byte

// ErrInvalidDocument is returned when an extracted document fails validation.
var ErrInvalidDocument = errors.New("invalid document")

// Format selects the decoder for Decode.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Page holds the raw text fragments of one page.
type Page struct {
	Number    int      `yaml:"number" json:"number"`
	Fragments []string `yaml:"fragments" json:"fragments"`
}

// Document is an extracted session document. It implements Service and is
// also convenient to build by hand in tests.
type Document struct {
	Title       string         `yaml:"title" json:"title"`
	Pages       int            `yaml:"page_count" json:"page_count"`
	Bookmarks   []OutlineItem  `yaml:"outline" json:"outline"`
	NamedDests  map[string]int `yaml:"named_destinations" json:"named_destinations"`
	PageContent []Page         `yaml:"pages" json:"pages"`

	// Source is the file the document was read from, if any.
	Source string `yaml:"-" json:"-"`

	byNumber map[int][]string
}

var _ Service = (*Document)(nil)

// FormatFor picks a decoder from the file extension; YAML is the default.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Open reads, validates and decodes an extracted document file.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	doc, err := Decode(data, FormatFor(path))
	if err != nil {
		return nil, err
	}
	doc.Source = path
	return doc, nil
}

// Decode validates data against the embedded document schema and decodes it.
func Decode(data []byte, format Format) (*Document, error) {
	var raw any
	var doc Document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: parse json: %v", ErrInvalidDocument, err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidDocument, err)
		}
	}
	if err := validate(raw); err != nil {
		return nil, err
	}
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: decode json: %v", ErrInvalidDocument, err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %v", ErrInvalidDocument, err)
		}
	}
	if err := doc.index(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func validate(raw any) error {
	if raw == nil {
		return fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(documentSchema),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}
	return nil
}

// index checks page numbers against the page count and builds the lookup table.
func (d *Document) index() error {
	if d.Pages < 1 {
		return fmt.Errorf("%w: page_count must be at least 1", ErrInvalidDocument)
	}
	d.byNumber = make(map[int][]string, len(d.PageContent))
	for _, p := range d.PageContent {
		if p.Number < 1 || p.Number > d.Pages {
			return fmt.Errorf("%w: page %d outside 1..%d", ErrInvalidDocument, p.Number, d.Pages)
		}
		if _, dup := d.byNumber[p.Number]; dup {
			return fmt.Errorf("%w: page %d listed twice", ErrInvalidDocument, p.Number)
		}
		d.byNumber[p.Number] = p.Fragments
	}
	return nil
}

// PageCount implements Service.
func (d *Document) PageCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return d.Pages, nil
}

// Outline implements Service.
func (d *Document) Outline(ctx context.Context) ([]OutlineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Bookmarks, nil
}

// ResolveDestination implements Service. Integer destinations are page
// numbers; string destinations are looked up in named_destinations first
// and fall back to a numeric page.
func (d *Document) ResolveDestination(ctx context.Context, dest any) (int, bool) {
	if ctx.Err() != nil {
		return 0, false
	}
	switch v := dest.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		if v > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		if p, ok := d.NamedDests[v]; ok {
			return p, true
		}
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n, true
		}
	}
	return 0, false
}

// PageFragments implements Service. Pages without content return no fragments.
func (d *Document) PageFragments(ctx context.Context, page int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 || page > d.Pages {
		return nil, fmt.Errorf("page %d outside 1..%d", page, d.Pages)
	}
	if d.byNumber == nil {
		if err := d.index(); err != nil {
			return nil, err
		}
	}
	return d.byNumber[page], nil
}
