/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package docsource defines the document service the session core reads
// from, plus a file-backed implementation for extracted session documents.
//
// The core never parses PDF itself. An extracted document is a YAML or JSON
// file holding the page count, the bookmark outline and the raw text
// fragments of every page:
//
//	title: The Sunken Crypt
//	page_count: 4
//	named_destinations: {crypt: 3}
//	outline:
//	  - title: Scene 1 - Arrival
//	    dest: 1
//	  - title: Scene 2
//	    dest: crypt
//	pages:
//	  - number: 1
//	    fragments: ["The road ends at a ", "flooded stair."]
package docsource

import (
	"context"
)

// OutlineItem is one bookmark of the document's navigation tree.
// Dest is opaque to the core; only the service knows how to resolve it.
type OutlineItem struct {
	Title    string        `yaml:"title" json:"title"`
	Dest     any           `yaml:"dest" json:"dest"`
	Children []OutlineItem `yaml:"children,omitempty" json:"children,omitempty"`
}

// Service is the contract the session core consumes.
type Service interface {
	PageCount(ctx context.Context) (int, error)
	Outline(ctx context.Context) ([]OutlineItem, error)
	// ResolveDestination maps a bookmark destination to a 1-based page.
	// ok is false when the destination cannot be resolved.
	ResolveDestination(ctx context.Context, dest any) (page int, ok bool)
	// PageFragments returns the page's raw text fragments in reading order.
	// Fragments may be empty or whitespace-only.
	PageFragments(ctx context.Context, page int) ([]string, error)
}
