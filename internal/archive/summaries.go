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
	"log/slog"
	"time"

	"github.com/google/uuid"

	applog "github.com/hjhudsonwriter/DM-session-hub/internal/log"
	"github.com/hjhudsonwriter/DM-session-hub/internal/summary"
)

// language=SQL
// dialect=SQLite
const insertSummarySQL = `INSERT INTO summaries(id, document, created_at, scenes, reveals, loot, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listSummariesSQL = `SELECT id, document, created_at, scenes, reveals, loot FROM summaries ORDER BY created_at DESC, rowid DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const selectSummarySQL = `SELECT id, document, created_at, scenes, reveals, loot, payload FROM summaries WHERE id = ?`

// Entry describes one archived summary.
type Entry struct {
	ID        string    `json:"id"`
	Document  string    `json:"document"`
	CreatedAt time.Time `json:"createdAt"`
	Scenes    int       `json:"scenes"`
	Reveals   int       `json:"reveals"`
	Loot      int       `json:"loot"`
}

// Record stores p under a fresh id. document names the source file.
func (s *Store) Record(ctx context.Context, document string, p summary.Projection) (Entry, error) {
	payload, err := summary.Marshal(p)
	if err != nil {
		return Entry{}, fmt.Errorf("encode summary: %w", err)
	}
	reveals, loot := p.Counts()
	e := Entry{
		ID:        uuid.NewString(),
		Document:  document,
		CreatedAt: s.now().UTC(),
		Scenes:    len(p.Scenes),
		Reveals:   reveals,
		Loot:      loot,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("begin record: %w", err)
	}
	_, err = tx.ExecContext(ctx, insertSummarySQL,
		e.ID, e.Document, e.CreatedAt.Format(time.RFC3339Nano), e.Scenes, e.Reveals, e.Loot, payload)
	if err != nil {
		_ = tx.Rollback()
		return Entry{}, fmt.Errorf("insert summary: %w", err)
	}
	if err := insertNotes(ctx, tx, e.ID, p); err != nil {
		_ = tx.Rollback()
		return Entry{}, err
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit record: %w", err)
	}
	applog.WithOperation(s.log, "record").Info("summary archived",
		slog.String("id", e.ID),
		slog.String("document", document),
	)
	return e, nil
}

// List returns up to limit entries, newest first. A non-positive limit means 50.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, listSummariesSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []Entry{}
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &e.Document, &ts, &e.Scenes, &e.Reveals, &e.Loot); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get loads one archived summary and its projection.
func (s *Store) Get(ctx context.Context, id string) (Entry, summary.Projection, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Entry{}, summary.Projection{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	var e Entry
	var ts string
	var payload []byte
	err := s.db.QueryRowContext(ctx, selectSummarySQL, id).
		Scan(&e.ID, &e.Document, &ts, &e.Scenes, &e.Reveals, &e.Loot, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, summary.Projection{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, summary.Projection{}, err
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	p, err := summary.Unmarshal(payload)
	if err != nil {
		return e, summary.Projection{}, fmt.Errorf("decode summary %s: %w", id, err)
	}
	return e, p, nil
}
