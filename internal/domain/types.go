/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model shared by the segmenter, the script
// parser, the session state machine and the summary projector.

// RevealPlaceholder replaces an absent reveal when a successful roll is
// appended to the session summary.
const RevealPlaceholder = "(No reveal text found)"

// Scene is a contiguous, inclusive page range of the source document.
// Blocks and Rolls are filled once during hydration and are read-only afterwards.
type Scene struct {
	Title     string       `json:"title"`
	StartPage int          `json:"startPage"`
	EndPage   int          `json:"endPage"`
	Blocks    []Block      `json:"blocks"`
	Rolls     []RollPrompt `json:"rolls"`
}

// PageCount returns the number of pages covered by the scene.
func (s Scene) PageCount() int { return s.EndPage - s.StartPage + 1 }

// BlockKind tags a Block.
type BlockKind string

const (
	BlockProse BlockKind = "prose"
	BlockRoll  BlockKind = "roll"
)

// Block is one logical line of scene content in reading order.
// Prose blocks carry Text; roll blocks carry Roll.
type Block struct {
	Kind BlockKind   `json:"kind"`
	Text string      `json:"text,omitempty"`
	Roll *RollPrompt `json:"roll,omitempty"`
}

// Prose returns a prose block.
func Prose(text string) Block { return Block{Kind: BlockProse, Text: text} }

// Roll returns a roll-prompt block.
func Roll(r RollPrompt) Block { return Block{Kind: BlockRoll, Roll: &r} }

// RollPrompt is a detected dice-roll instruction.
// RevealText is empty when no reveal line was found; empty means absent.
type RollPrompt struct {
	RollText   string `json:"rollText"`
	RevealText string `json:"revealText"`
	Skill      string `json:"skill,omitempty"`
	Kind       string `json:"kind,omitempty"` // check, save or test
	DC         int    `json:"dc,omitempty"`
}

// HasReveal reports whether a reveal line was attached at hydration time.
func (r RollPrompt) HasReveal() bool { return r.RevealText != "" }

// RevealEntry records a successful roll in the session summary.
type RevealEntry struct {
	SceneIndex int    `json:"sceneIndex"`
	SceneTitle string `json:"sceneTitle"`
	RollText   string `json:"rollText"`
	RevealText string `json:"revealText"`
}

// LootEntry records the committed loot note of a completed scene.
type LootEntry struct {
	SceneIndex int    `json:"sceneIndex"`
	SceneTitle string `json:"sceneTitle"`
	LootText   string `json:"lootText"`
}

// SessionSummary is the append-only record built while stepping through scenes.
type SessionSummary struct {
	Reveals []RevealEntry `json:"reveals"`
	Loot    []LootEntry   `json:"loot"`
}

// Clone returns a deep copy so callers cannot alias the machine's slices.
func (s SessionSummary) Clone() SessionSummary {
	return SessionSummary{
		Reveals: append([]RevealEntry{}, s.Reveals...),
		Loot:    append([]LootEntry{}, s.Loot...),
	}
}
