/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package summary projects the accumulated session summary onto the scene
// list for presentation and export.
package summary

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"github.com/hjhudsonwriter/DM-session-hub/internal/domain"
)

//go:embed projection.schema.json
var projectionSchema []byte

// Reveal is one successful roll as shown in the summary.
type Reveal struct {
	RollText   string `json:"rollText"`
	RevealText string `json:"revealText"`
}

// SceneSummary groups the reveals and loot of one scene.
// Empty is set when the scene has neither.
type SceneSummary struct {
	Index     int      `json:"index"`
	Title     string   `json:"title"`
	StartPage int      `json:"startPage"`
	EndPage   int      `json:"endPage"`
	Reveals   []Reveal `json:"reveals"`
	Loot      []string `json:"loot"`
	Empty     bool     `json:"empty"`
}

// Projection is the serializable per-scene view handed to exporters.
type Projection struct {
	Title  string         `json:"title,omitempty"`
	Scenes []SceneSummary `json:"scenes"`
}

// Counts returns the total number of reveals and loot entries.
func (p Projection) Counts() (reveals, loot int) {
	for _, s := range p.Scenes {
		reveals += len(s.Reveals)
		loot += len(s.Loot)
	}
	return reveals, loot
}

// Project lists every scene exactly once, in scene order, with its reveals
// and loot in insertion order. It has no side effects.
//
// Entries are matched to scenes by SceneIndex; an entry whose index does not
// point at a scene with the same title falls back to the first scene carrying
// that title, and is dropped if there is none.
func Project(scenes []domain.Scene, s domain.SessionSummary) Projection {
	out := Projection{Scenes: make([]SceneSummary, len(scenes))}
	for i, sc := range scenes {
		out.Scenes[i] = SceneSummary{
			Index:     i,
			Title:     sc.Title,
			StartPage: sc.StartPage,
			EndPage:   sc.EndPage,
			Reveals:   []Reveal{},
			Loot:      []string{},
		}
	}
	for _, r := range s.Reveals {
		if i, ok := sceneFor(scenes, r.SceneIndex, r.SceneTitle); ok {
			out.Scenes[i].Reveals = append(out.Scenes[i].Reveals, Reveal{RollText: r.RollText, RevealText: r.RevealText})
		}
	}
	for _, l := range s.Loot {
		if i, ok := sceneFor(scenes, l.SceneIndex, l.SceneTitle); ok {
			out.Scenes[i].Loot = append(out.Scenes[i].Loot, l.LootText)
		}
	}
	for i := range out.Scenes {
		out.Scenes[i].Empty = len(out.Scenes[i].Reveals) == 0 && len(out.Scenes[i].Loot) == 0
	}
	return out
}

func sceneFor(scenes []domain.Scene, idx int, title string) (int, bool) {
	if idx >= 0 && idx < len(scenes) && scenes[idx].Title == title {
		return idx, true
	}
	for i, sc := range scenes {
		if sc.Title == title {
			return i, true
		}
	}
	return 0, false
}

// Validate checks a serialized projection against the projection schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(projectionSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validate projection: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("projection does not match schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// Marshal serializes p as indented JSON and checks it against the schema.
func Marshal(p Projection) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal projection: %w", err)
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Unmarshal checks data against the schema and decodes it.
func Unmarshal(data []byte) (Projection, error) {
	if err := Validate(data); err != nil {
		return Projection{}, err
	}
	var p Projection
	if err := json.Unmarshal(data, &p); err != nil {
		return Projection{}, fmt.Errorf("unmarshal projection: %w", err)
	}
	return p, nil
}
