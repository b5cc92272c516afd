/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hjhudsonwriter/DM-session-hub/internal/summary"

	_ "modernc.org/sqlite"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "dmhub", "archive.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func projection(loot string) summary.Projection {
	return summary.Projection{
		Title: "Road to Harrow",
		Scenes: []summary.SceneSummary{
			{
				Index: 0, Title: "Scene 1", StartPage: 1, EndPage: 2,
				Reveals: []summary.Reveal{{RollText: "Roll Arcana check (DC 12)", RevealText: "The runes are fake."}},
				Loot:    []string{loot},
			},
			{Index: 1, Title: "Scene 2", StartPage: 3, EndPage: 3, Reveals: []summary.Reveal{}, Loot: []string{}, Empty: true},
		},
	}
}

func TestRecordAndGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	p := projection("a silver ring")
	e, err := s.Record(ctx, "harrow.yaml", p)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if e.Scenes != 2 || e.Reveals != 1 || e.Loot != 1 {
		t.Fatalf("counts = %+v", e)
	}
	got, gp, err := s.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(p, gp); diff != "" {
		t.Fatalf("projection round trip (-want +got):\n%s", diff)
	}
	if !got.CreatedAt.Equal(e.CreatedAt) || got.Document != "harrow.yaml" {
		t.Fatalf("entry = %+v, want %+v", got, e)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return at }
		e, err := s.Record(ctx, fmt.Sprintf("doc-%d.yaml", i), projection("gold"))
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
		ids = append(ids, e.ID)
	}
	list, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != ids[2] || list[1].ID != ids[1] {
		t.Fatalf("List order = %+v", list)
	}
	if !list[0].CreatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("created_at = %v", list[0].CreatedAt)
	}
}

func TestListEmpty(t *testing.T) {
	s := openTemp(t)
	list, err := s.List(context.Background(), 0)
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("List on empty archive = %v, %v", list, err)
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTemp(t)
	for _, id := range []string{"not-a-uuid", "1b4e28ba-2fa1-11d2-883f-0016d3cca427"} {
		if _, _, err := s.Get(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Get(%q) = %v, want ErrNotFound", id, err)
		}
	}
}

func TestRecordRejectsInvalidProjection(t *testing.T) {
	s := openTemp(t)
	bad := projection("")
	if _, err := s.Record(context.Background(), "x.yaml", bad); err == nil {
		t.Fatalf("expected schema error for empty loot text")
	}
	if list, _ := s.List(context.Background(), 0); len(list) != 0 {
		t.Fatalf("invalid summary was stored")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

// TestMigrations_UpgradeFromV1 opens a schema-1 archive and expects the
// document index and a searchable backfill afterwards.
func TestMigrations_UpgradeFromV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.sqlite")
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE summaries (id TEXT PRIMARY KEY, document TEXT NOT NULL, created_at TEXT NOT NULL, scenes INTEGER NOT NULL, reveals INTEGER NOT NULL, loot INTEGER NOT NULL, payload BLOB NOT NULL);`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	payload, err := summary.Marshal(projection("an obsidian idol"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	const oldID = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	if _, err := db.ExecContext(ctx, `INSERT INTO summaries VALUES (?, 'old.yaml', '2020-01-01T00:00:00Z', 2, 1, 1, ?)`, oldID, payload); err != nil {
		t.Fatalf("seed summary: %v", err)
	}
	_ = db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	var schema int
	if err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("schema = %d, want %d", schema, schemaVersion)
	}
	var cnt int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_summaries_document'`).Scan(&cnt); err != nil {
		t.Fatalf("query indexes: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected idx_summaries_document after migration, got %d", cnt)
	}
	hits, err := s.Search(ctx, SearchQuery{Text: "obsidian"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].SummaryID != oldID || hits[0].Kind != KindLoot {
		t.Fatalf("backfilled hits = %+v", hits)
	}
}

func TestSearch(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	s.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	first, _ := s.Record(ctx, "a.yaml", projection("a silver ring"))
	s.now = func() time.Time { return time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC) }
	second, _ := s.Record(ctx, "b.yaml", projection("silver coins"))

	hits, err := s.Search(ctx, SearchQuery{Text: "silver"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 || hits[0].SummaryID != second.ID || hits[1].SummaryID != first.ID {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[1].Snippet != "a [silver] ring" || hits[1].SceneTitle != "Scene 1" {
		t.Fatalf("snippet = %+v", hits[1])
	}

	hits, _ = s.Search(ctx, SearchQuery{Text: "runes", Kind: KindReveal, Document: "a.yaml"})
	if len(hits) != 1 || hits[0].Kind != KindReveal || hits[0].Document != "a.yaml" {
		t.Fatalf("filtered hits = %+v", hits)
	}

	all, _ := s.Search(ctx, SearchQuery{Kind: KindLoot})
	if len(all) != 2 || all[0].Snippet != "silver coins" {
		t.Fatalf("unfiltered loot = %+v", all)
	}
	if none, _ := s.Search(ctx, SearchQuery{Text: "dragon"}); len(none) != 0 {
		t.Fatalf("unexpected hits %+v", none)
	}
}
