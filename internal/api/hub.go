/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package api serves a session over HTTP with gin. Every request runs
// against one Hub, which serializes access to the session machine.
package api

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hjhudsonwriter/DM-session-hub/internal/archive"
	"github.com/hjhudsonwriter/DM-session-hub/internal/docsource"
	"github.com/hjhudsonwriter/DM-session-hub/internal/domain"
	"github.com/hjhudsonwriter/DM-session-hub/internal/export"
	applog "github.com/hjhudsonwriter/DM-session-hub/internal/log"
	"github.com/hjhudsonwriter/DM-session-hub/internal/session"
	"github.com/hjhudsonwriter/DM-session-hub/internal/summary"
)

// Options configures a Hub. Zero values are usable.
type Options struct {
	// Open reads a document file; defaults to docsource.Open.
	Open func(path string) (*docsource.Document, error)
	// PDF controls GET /api/summary.pdf.
	PDF export.PDFOptions
	// Archive, when set, receives every finished summary.
	Archive *archive.Store
}

// Hub owns the session machine shared by all requests.
type Hub struct {
	mu      sync.Mutex
	m       *session.Machine
	path    string
	title   string
	loading bool

	open    func(path string) (*docsource.Document, error)
	pdf     export.PDFOptions
	archive *archive.Store
	log     *slog.Logger
}

// NewHub returns a hub with an idle session.
func NewHub(opt Options) *Hub {
	h := &Hub{
		m:       session.New(),
		open:    opt.Open,
		pdf:     opt.PDF,
		archive: opt.Archive,
		log:     applog.WithComponent("api"),
	}
	if h.open == nil {
		h.open = docsource.Open
	}
	return h
}

// StateView is the session state returned by mutating endpoints.
type StateView struct {
	session.Snapshot
	Document  string        `json:"document,omitempty"`
	Title     string        `json:"title,omitempty"`
	Scene     *domain.Scene `json:"scene,omitempty"`
	ArchiveID string        `json:"archiveId,omitempty"`
}

// Load opens the document at path and replaces the session with a fresh one.
// Hydration runs outside the lock; a second Load while one is running fails
// with a conflict, and a failed Load leaves the current session in place.
func (h *Hub) Load(ctx context.Context, path string) error {
	h.mu.Lock()
	if h.loading {
		h.mu.Unlock()
		return errLoadInProgress
	}
	h.loading = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.loading = false
		h.mu.Unlock()
	}()

	l := applog.WithOperation(h.log, "load").With(slog.String("path", path))
	doc, err := h.open(path)
	if err != nil {
		l.Warn("open document failed", slog.Any("err", err))
		return &session.LoadError{Err: err}
	}
	next := session.New()
	if err := next.Load(ctx, doc); err != nil {
		return err
	}

	h.mu.Lock()
	h.m = next
	h.path = path
	h.title = doc.Title
	h.mu.Unlock()
	return nil
}

// Do runs fn with exclusive access to the machine and returns the resulting state.
func (h *Hub) Do(fn func(m *session.Machine) error) (StateView, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := fn(h.m); err != nil {
		return StateView{}, err
	}
	return h.viewLocked(), nil
}

// State returns the current state.
func (h *Hub) State() StateView {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewLocked()
}

// Next completes the current scene and archives the summary once the last
// scene is done.
func (h *Hub) Next(ctx context.Context) (StateView, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.m.Next(); err != nil {
		return StateView{}, err
	}
	v := h.viewLocked()
	if h.m.State() == session.StateSummarized && h.archive != nil {
		e, err := h.archive.Record(ctx, h.path, h.projectionLocked())
		if err != nil {
			applog.WithOperation(h.log, "archive").Warn("archive summary failed", slog.Any("err", err))
		} else {
			v.ArchiveID = e.ID
		}
	}
	return v, nil
}

// Scenes returns the hydrated scenes.
func (h *Hub) Scenes() ([]domain.Scene, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m.State() == session.StateIdle {
		return nil, session.ErrNoDocument
	}
	return h.m.Scenes(), nil
}

// Projection returns the per-scene summary of the loaded session.
func (h *Hub) Projection() (summary.Projection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m.State() == session.StateIdle {
		return summary.Projection{}, session.ErrNoDocument
	}
	return h.projectionLocked(), nil
}

func (h *Hub) projectionLocked() summary.Projection {
	p := h.m.Projection()
	p.Title = h.title
	return p
}

func (h *Hub) viewLocked() StateView {
	v := StateView{Snapshot: h.m.Snapshot()}
	if h.m.State() == session.StateIdle {
		return v
	}
	v.Document = h.path
	v.Title = h.title
	if sc, err := h.m.Current(); err == nil {
		v.Scene = &sc
	}
	return v
}
