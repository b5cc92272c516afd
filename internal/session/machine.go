/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session owns the scene-progression state machine: the current
// scene, per-scene loot drafts and the cumulative session summary.
//
// A Machine is not safe for concurrent use. Adapters that serve several
// goroutines must serialize access, and must not start a second Load while
// one is in flight.
package session

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hjhudsonwriter/DM-session-hub/internal/docsource"
	"github.com/hjhudsonwriter/DM-session-hub/internal/domain"
	applog "github.com/hjhudsonwriter/DM-session-hub/internal/log"
	"github.com/hjhudsonwriter/DM-session-hub/internal/summary"
)

// Outcome is the game master's decision on a roll block.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFail    Outcome = "fail"
)

type rollKey struct{ scene, roll int }

// Machine is the session state machine.
type Machine struct {
	log *slog.Logger

	state   State
	doc     docsource.Service
	scenes  []domain.Scene
	current int

	// drafts holds the persisted loot draft of every scene that was left or completed.
	drafts map[int]string
	// draft is the live, unsaved loot text of the current scene.
	draft string

	summary   domain.SessionSummary
	lootByIdx map[int]bool
	decisions map[rollKey]Outcome
}

// New returns an idle machine.
func New() *Machine {
	m := &Machine{log: applog.WithComponent("session")}
	m.clear()
	return m
}

func (m *Machine) clear() {
	m.state = StateIdle
	m.doc = nil
	m.scenes = nil
	m.current = 0
	m.drafts = map[int]string{}
	m.draft = ""
	m.summary = domain.SessionSummary{Reveals: []domain.RevealEntry{}, Loot: []domain.LootEntry{}}
	m.lootByIdx = map[int]bool{}
	m.decisions = map[rollKey]Outcome{}
}

// Load hydrates the document behind svc and starts a new session at the
// first scene. Loading is all-or-nothing: on failure a *LoadError is returned
// and the previous session, whatever its state, is left untouched.
func (m *Machine) Load(ctx context.Context, svc docsource.Service) error {
	l := applog.WithOperation(m.log, "load")
	if svc == nil {
		l.Error("load failed", slog.Any("err", ErrNoDocumentService))
		return &LoadError{Err: ErrNoDocumentService}
	}
	scenes, err := Hydrate(ctx, svc)
	if err != nil {
		l.Error("load failed", slog.Any("err", err))
		return &LoadError{Err: err}
	}
	m.clear()
	m.doc = svc
	m.scenes = scenes
	m.state = StateViewing
	l.Info("session started", slog.Int("scenes", len(scenes)))
	return nil
}

// Reset drops the document and every piece of session state.
func (m *Machine) Reset() {
	m.clear()
	applog.WithOperation(m.log, "reset").Info("session reset")
}

// Prev persists the current draft and steps back one scene.
// It is a no-op on the first scene.
func (m *Machine) Prev() error {
	if err := m.requireViewing(); err != nil {
		return err
	}
	if m.current == 0 {
		return nil
	}
	m.drafts[m.current] = m.draft
	m.show(m.current - 1)
	return nil
}

// Next completes the current scene: the draft is persisted, its trimmed text
// becomes the scene's loot entry when non-empty, and the session moves to the
// next scene or, after the last one, to StateSummarized.
// A scene contributes at most one loot entry over the whole session.
func (m *Machine) Next() error {
	if err := m.requireViewing(); err != nil {
		return err
	}
	l := applog.WithOperation(m.log, "complete_scene")
	m.drafts[m.current] = m.draft
	if loot := strings.TrimSpace(m.draft); loot != "" && !m.lootByIdx[m.current] {
		m.summary.Loot = append(m.summary.Loot, domain.LootEntry{
			SceneIndex: m.current,
			SceneTitle: m.scenes[m.current].Title,
			LootText:   loot,
		})
		m.lootByIdx[m.current] = true
		l.Debug("loot recorded", slog.Int("scene", m.current))
	}
	if m.current == len(m.scenes)-1 {
		m.state = StateSummarized
		l.Info("session summarized",
			slog.Int("reveals", len(m.summary.Reveals)),
			slog.Int("loot", len(m.summary.Loot)),
		)
		return nil
	}
	m.show(m.current + 1)
	return nil
}

// CompleteScene is Next under the name used by the summary workflow.
func (m *Machine) CompleteScene() error { return m.Next() }

func (m *Machine) show(idx int) {
	m.current = idx
	m.draft = m.drafts[idx]
}

// SetDraft replaces the live loot draft of the current scene.
func (m *Machine) SetDraft(text string) error {
	if err := m.requireViewing(); err != nil {
		return err
	}
	m.draft = text
	return nil
}

// Draft returns the live loot draft of the current scene, verbatim.
func (m *Machine) Draft() string { return m.draft }

// MarkRollSuccess appends one reveal for the current scene. An empty reveal
// is stored as domain.RevealPlaceholder. Repeated calls append repeatedly;
// use Decide for at-most-once semantics per roll block.
func (m *Machine) MarkRollSuccess(rollText, revealText string) error {
	if err := m.requireViewing(); err != nil {
		return err
	}
	if revealText == "" {
		revealText = domain.RevealPlaceholder
	}
	m.summary.Reveals = append(m.summary.Reveals, domain.RevealEntry{
		SceneIndex: m.current,
		SceneTitle: m.scenes[m.current].Title,
		RollText:   rollText,
		RevealText: revealText,
	})
	return nil
}

// MarkRollFail records nothing; it only checks that a scene is current.
func (m *Machine) MarkRollFail(rollText, _ string) error {
	if err := m.requireViewing(); err != nil {
		return err
	}
	m.log.Debug("roll failed", slog.Int("scene", m.current), slog.String("roll", rollText))
	return nil
}

// Decide applies a decision to the rollIndex-th roll of the current scene,
// the way a disabled-after-use control would: each roll block accepts one
// decision per session.
func (m *Machine) Decide(rollIndex int, o Outcome) error {
	if err := m.requireViewing(); err != nil {
		return err
	}
	rolls := m.scenes[m.current].Rolls
	if rollIndex < 0 || rollIndex >= len(rolls) {
		return ErrRollNotFound
	}
	key := rollKey{scene: m.current, roll: rollIndex}
	if _, done := m.decisions[key]; done {
		return ErrAlreadyDecided
	}
	r := rolls[rollIndex]
	var err error
	switch o {
	case OutcomeSuccess:
		err = m.MarkRollSuccess(r.RollText, r.RevealText)
	case OutcomeFail:
		err = m.MarkRollFail(r.RollText, r.RevealText)
	default:
		return ErrUnknownOutcome
	}
	if err != nil {
		return err
	}
	m.decisions[key] = o
	return nil
}

// Decision returns the recorded decision for a roll of the current scene.
func (m *Machine) Decision(rollIndex int) (Outcome, bool) {
	o, ok := m.decisions[rollKey{scene: m.current, roll: rollIndex}]
	return o, ok
}

func (m *Machine) requireViewing() error {
	switch m.state {
	case StateIdle:
		return ErrNoDocument
	case StateViewing:
		return nil
	default:
		return ErrNotViewing
	}
}

// State returns the current phase.
func (m *Machine) State() State { return m.state }

// Document returns the document service of the active session, or nil.
func (m *Machine) Document() docsource.Service { return m.doc }

// Scenes returns the hydrated scenes. The slice is a copy; scene contents are shared and must not be modified.
func (m *Machine) Scenes() []domain.Scene { return append([]domain.Scene(nil), m.scenes...) }

// CurrentIndex returns the index of the current scene (the last scene once summarized).
func (m *Machine) CurrentIndex() int { return m.current }

// Current returns the current scene.
func (m *Machine) Current() (domain.Scene, error) {
	if err := m.requireViewing(); err != nil {
		return domain.Scene{}, err
	}
	return m.scenes[m.current], nil
}

// Summary returns a copy of the accumulated summary.
func (m *Machine) Summary() domain.SessionSummary { return m.summary.Clone() }

// Projection groups the summary by scene.
func (m *Machine) Projection() summary.Projection { return summary.Project(m.scenes, m.summary) }

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	State        State                 `json:"state"`
	SceneCount   int                   `json:"sceneCount"`
	CurrentIndex int                   `json:"currentIndex"`
	Draft        string                `json:"draft"`
	LootDrafts   map[int]string        `json:"lootDrafts"`
	Decisions    map[int]Outcome       `json:"decisions"`
	Summary      domain.SessionSummary `json:"summary"`
}

// Snapshot copies the current state. Decisions holds the current scene's roll decisions.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		State:        m.state,
		SceneCount:   len(m.scenes),
		CurrentIndex: m.current,
		Draft:        m.draft,
		LootDrafts:   make(map[int]string, len(m.drafts)),
		Decisions:    map[int]Outcome{},
		Summary:      m.summary.Clone(),
	}
	for k, v := range m.drafts {
		s.LootDrafts[k] = v
	}
	for k, v := range m.decisions {
		if k.scene == m.current {
			s.Decisions[k.roll] = v
		}
	}
	return s
}
