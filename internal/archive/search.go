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
	"fmt"
	"strings"

	"github.com/hjhudsonwriter/DM-session-hub/internal/summary"
)

// Note kinds stored in the notes table.
const (
	KindReveal = "reveal"
	KindLoot   = "loot"
)

// language=SQL
// dialect=SQLite
const insertNoteSQL = `INSERT INTO notes(summary_id, scene_index, scene_title, kind, text) VALUES (?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectUnindexedSQL = `SELECT id, payload FROM summaries WHERE id NOT IN (SELECT DISTINCT summary_id FROM notes)`

// SearchQuery describes a search over archived reveals and loot.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Kind restricts to KindReveal or KindLoot; Document to one source file.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text     string
	Kind     string
	Document string
	Limit    int
	Offset   int
}

// SearchResult is one matching note. Snippet marks matches with [ ] when
// Text was given, and is the whole note otherwise.
type SearchResult struct {
	SummaryID  string `json:"summaryId"`
	Document   string `json:"document"`
	SceneIndex int    `json:"sceneIndex"`
	SceneTitle string `json:"sceneTitle"`
	Kind       string `json:"kind"`
	Snippet    string `json:"snippet"`
}

// Search finds archived notes, newest summary first.
func (s *Store) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT n.summary_id, s.document, n.scene_index, n.scene_title, n.kind, snippet(fts_notes, 0, '[', ']', '...', 12)\n")
		sb.WriteString("FROM fts_notes JOIN notes n ON fts_notes.rowid = n.note_id\n")
		sb.WriteString("JOIN summaries s ON s.id = n.summary_id\n")
		sb.WriteString("WHERE fts_notes MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT n.summary_id, s.document, n.scene_index, n.scene_title, n.kind, n.text\n")
		sb.WriteString("FROM notes n JOIN summaries s ON s.id = n.summary_id\n")
		sb.WriteString("WHERE 1=1\n")
	}
	if k := strings.TrimSpace(q.Kind); k != "" {
		sb.WriteString(" AND n.kind = ?\n")
		args = append(args, strings.ToLower(k))
	}
	if d := strings.TrimSpace(q.Document); d != "" {
		sb.WriteString(" AND s.document = ?\n")
		args = append(args, d)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY s.created_at DESC, n.note_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.SummaryID, &r.Document, &r.SceneIndex, &r.SceneTitle, &r.Kind, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// insertNotes indexes every reveal and loot entry of p under summary id.
func insertNotes(ctx context.Context, tx *sql.Tx, id string, p summary.Projection) error {
	for _, sc := range p.Scenes {
		for _, r := range sc.Reveals {
			text := r.RollText + "\n" + r.RevealText
			if _, err := tx.ExecContext(ctx, insertNoteSQL, id, sc.Index, sc.Title, KindReveal, text); err != nil {
				return fmt.Errorf("insert note: %w", err)
			}
		}
		for _, l := range sc.Loot {
			if _, err := tx.ExecContext(ctx, insertNoteSQL, id, sc.Index, sc.Title, KindLoot, l); err != nil {
				return fmt.Errorf("insert note: %w", err)
			}
		}
	}
	return nil
}

// backfillNotes indexes summaries that have no notes yet.
func backfillNotes(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, selectUnindexedSQL)
	if err != nil {
		return err
	}
	type pending struct {
		id      string
		payload []byte
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.payload); err != nil {
			_ = rows.Close()
			return err
		}
		todo = append(todo, p)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, p := range todo {
		proj, err := summary.Unmarshal(p.payload)
		if err != nil {
			// Unreadable payloads stay listed but unsearchable.
			continue
		}
		if err := insertNotes(ctx, tx, p.id, proj); err != nil {
			return err
		}
	}
	return nil
}
