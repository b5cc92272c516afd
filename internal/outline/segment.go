/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package outline turns a document's bookmark tree into an ordered list of
// scenes covering contiguous page ranges.
package outline

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/hjhudsonwriter/DM-session-hub/internal/docsource"
	"github.com/hjhudsonwriter/DM-session-hub/internal/domain"
	applog "github.com/hjhudsonwriter/DM-session-hub/internal/log"
)

// FallbackTitle names the single scene produced when no bookmark qualifies.
const FallbackTitle = "Scene 1"

var reSceneTitle = regexp.MustCompile(`(?i)^scene\s*\d+`)

// Resolver maps a bookmark destination to a 1-based page number.
type Resolver func(dest any) (int, bool)

// IsSceneTitle reports whether a bookmark title marks a scene boundary.
func IsSceneTitle(title string) bool {
	return reSceneTitle.MatchString(strings.TrimSpace(title))
}

// Flatten returns the outline items in pre-order, parents before children.
func Flatten(items []docsource.OutlineItem) []docsource.OutlineItem {
	var out []docsource.OutlineItem
	var walk func([]docsource.OutlineItem)
	walk = func(level []docsource.OutlineItem) {
		for _, it := range level {
			out = append(out, it)
			walk(it.Children)
		}
	}
	walk(items)
	return out
}

type boundary struct {
	title string
	page  int
}

// Segment builds the scene list for a document of pageCount pages.
//
// Only bookmarks whose trimmed title starts with "scene" and a number qualify.
// Destinations that do not resolve to a page within the document are dropped.
// Boundaries are ordered by page; bookmarks sharing a page keep outline order.
// When nothing qualifies a single "Scene 1" spans the whole document.
// Pages before the first boundary (front matter) belong to no scene, so the
// scenes cover [first boundary, pageCount] rather than all of [1, pageCount].
// Returned scenes have no blocks yet.
func Segment(items []docsource.OutlineItem, pageCount int, resolve Resolver) []domain.Scene {
	l := applog.WithOperation(applog.WithComponent("outline"), "segment")
	if pageCount < 1 {
		pageCount = 1
	}

	var bounds []boundary
	for _, it := range Flatten(items) {
		if !IsSceneTitle(it.Title) {
			continue
		}
		page, ok := resolve(it.Dest)
		if !ok || page < 1 || page > pageCount {
			l.Debug("dropping unresolvable scene bookmark", slog.String("title", it.Title), slog.Any("dest", it.Dest))
			continue
		}
		bounds = append(bounds, boundary{title: strings.TrimSpace(it.Title), page: page})
	}
	if len(bounds) == 0 {
		return []domain.Scene{{Title: FallbackTitle, StartPage: 1, EndPage: pageCount}}
	}

	sort.SliceStable(bounds, func(i, j int) bool { return bounds[i].page < bounds[j].page })

	scenes := make([]domain.Scene, len(bounds))
	for i, b := range bounds {
		end := pageCount
		if i+1 < len(bounds) {
			end = max(b.page, bounds[i+1].page-1)
		}
		scenes[i] = domain.Scene{Title: b.title, StartPage: b.page, EndPage: end}
	}
	return scenes
}

// SegmentDocument reads the outline and page count from svc and segments it.
func SegmentDocument(ctx context.Context, svc docsource.Service) ([]domain.Scene, int, error) {
	pageCount, err := svc.PageCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	items, err := svc.Outline(ctx)
	if err != nil {
		return nil, 0, err
	}
	resolve := func(dest any) (int, bool) { return svc.ResolveDestination(ctx, dest) }
	return Segment(items, pageCount, resolve), pageCount, nil
}
