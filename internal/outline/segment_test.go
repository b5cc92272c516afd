/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package outline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hjhudsonwriter/DM-session-hub/internal/docsource"
	"github.com/hjhudsonwriter/DM-session-hub/internal/domain"
)

func pageDest(dest any) (int, bool) {
	p, ok := dest.(int)
	return p, ok
}

func item(title string, dest any, children ...docsource.OutlineItem) docsource.OutlineItem {
	return docsource.OutlineItem{Title: title, Dest: dest, Children: children}
}

func TestIsSceneTitle(t *testing.T) {
	tests := map[string]bool{
		"Scene 1":             true,
		"  scene12 - Docks  ": true,
		"SCENE 3: Ambush":     true,
		"Scene":               false,
		"Scene One":           false,
		"Prologue Scene 1":    false,
		"Chapter 1":           false,
	}
	for title, want := range tests {
		if got := IsSceneTitle(title); got != want {
			t.Errorf("IsSceneTitle(%q) = %v, want %v", title, got, want)
		}
	}
}

func TestFlattenPreOrder(t *testing.T) {
	items := []docsource.OutlineItem{
		item("A", 1, item("A.1", 2, item("A.1.a", 3)), item("A.2", 4)),
		item("B", 5),
	}
	var got []string
	for _, it := range Flatten(items) {
		got = append(got, it.Title)
	}
	want := []string{"A", "A.1", "A.1.a", "A.2", "B"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Flatten order mismatch (-want +got):\n%s", diff)
	}
}

func TestSegmentContiguousRanges(t *testing.T) {
	items := []docsource.OutlineItem{
		item("Chapter 1", 1,
			item("Scene 1 - Gate", 1),
			item("Scene 2 - Hall", 4),
		),
		item("Scene 3 - Vault", 9),
		item("Appendix", 11),
	}
	got := Segment(items, 12, pageDest)
	want := []domain.Scene{
		{Title: "Scene 1 - Gate", StartPage: 1, EndPage: 3},
		{Title: "Scene 2 - Hall", StartPage: 4, EndPage: 8},
		{Title: "Scene 3 - Vault", StartPage: 9, EndPage: 12},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Segment mismatch (-want +got):\n%s", diff)
	}
	assertPartition(t, got, 12)
}

func TestSegmentSortsByPageNotTitleNumber(t *testing.T) {
	items := []docsource.OutlineItem{
		item("Scene 3", 7),
		item("Scene 1", 1),
		item("Scene 2", 4),
	}
	got := Segment(items, 10, pageDest)
	var titles []string
	for _, s := range got {
		titles = append(titles, s.Title)
	}
	if diff := cmp.Diff([]string{"Scene 1", "Scene 2", "Scene 3"}, titles); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	assertPartition(t, got, 10)
}

func TestSegmentFallbackWhenNoSceneBookmarks(t *testing.T) {
	for name, items := range map[string][]docsource.OutlineItem{
		"nil outline":      nil,
		"no scene titles":  {item("Intro", 1), item("Chapter 2", 3)},
		"all unresolvable": {item("Scene 1", "nowhere"), item("Scene 2", 99)},
	} {
		t.Run(name, func(t *testing.T) {
			got := Segment(items, 6, pageDest)
			want := []domain.Scene{{Title: FallbackTitle, StartPage: 1, EndPage: 6}}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("fallback mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSegmentDropsUnresolvable(t *testing.T) {
	items := []docsource.OutlineItem{
		item("Scene 1", 1),
		item("Scene 2", "broken"),
		item("Scene 3", 5),
	}
	got := Segment(items, 8, pageDest)
	want := []domain.Scene{
		{Title: "Scene 1", StartPage: 1, EndPage: 4},
		{Title: "Scene 3", StartPage: 5, EndPage: 8},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Segment mismatch (-want +got):\n%s", diff)
	}
}

func TestSegmentSamePageKeepsOutlineOrder(t *testing.T) {
	items := []docsource.OutlineItem{
		item("Scene 2", 3),
		item("Scene 1", 3),
		item("Scene 1", 5), // duplicate titles stay separate scenes
	}
	got := Segment(items, 6, pageDest)
	want := []domain.Scene{
		{Title: "Scene 2", StartPage: 3, EndPage: 3},
		{Title: "Scene 1", StartPage: 3, EndPage: 4},
		{Title: "Scene 1", StartPage: 5, EndPage: 6},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Segment mismatch (-want +got):\n%s", diff)
	}
	for _, s := range got {
		if s.EndPage < s.StartPage {
			t.Fatalf("inverted range: %+v", s)
		}
	}
}

func TestSegmentFrontMatterBeforeFirstScene(t *testing.T) {
	got := Segment([]docsource.OutlineItem{item("Scene 1", 3)}, 5, pageDest)
	want := []domain.Scene{{Title: "Scene 1", StartPage: 3, EndPage: 5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Segment mismatch (-want +got):\n%s", diff)
	}
}

type failingService struct {
	docsource.Document
	err error
}

func (f *failingService) Outline(context.Context) ([]docsource.OutlineItem, error) {
	return nil, f.err
}

func TestSegmentDocument(t *testing.T) {
	ctx := context.Background()
	doc := &docsource.Document{
		Pages:      4,
		Bookmarks:  []docsource.OutlineItem{item("Scene 1", 1), item("Scene 2", "two")},
		NamedDests: map[string]int{"two": 3},
	}
	scenes, n, err := SegmentDocument(ctx, doc)
	if err != nil {
		t.Fatalf("SegmentDocument error: %v", err)
	}
	if n != 4 || len(scenes) != 2 || scenes[1].StartPage != 3 {
		t.Fatalf("unexpected result: n=%d scenes=%+v", n, scenes)
	}

	boom := errors.New("outline unavailable")
	if _, _, err := SegmentDocument(ctx, &failingService{Document: docsource.Document{Pages: 1}, err: boom}); !errors.Is(err, boom) {
		t.Fatalf("SegmentDocument error = %v, want %v", err, boom)
	}
}

// assertPartition checks that scenes tile [1, pageCount] without gaps or overlaps.
func assertPartition(t *testing.T, scenes []domain.Scene, pageCount int) {
	t.Helper()
	next := 1
	for i, s := range scenes {
		if s.StartPage != next {
			t.Fatalf("scene %d starts at %d, want %d", i, s.StartPage, next)
		}
		if s.EndPage < s.StartPage {
			t.Fatalf("scene %d has inverted range %d..%d", i, s.StartPage, s.EndPage)
		}
		next = s.EndPage + 1
	}
	if next != pageCount+1 {
		t.Fatalf("scenes end at %d, want %d", next-1, pageCount)
	}
}
