/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"reflect"
	"testing"
)

func TestExtractLines(t *testing.T) {
	tests := []struct {
		name  string
		frags []string
		want  []string
	}{
		{"empty", nil, []string{}},
		{"whitespace fragments dropped", []string{"  ", "\t", ""}, []string{}},
		{"trim and order", []string{"  The gate ", "creaks open.  "}, []string{"The gate", "creaks open."}},
		{"embedded breaks", []string{"line one\n\n\n\nline two", "line three"}, []string{"line one", "line two", "line three"}},
		{"crlf", []string{"a\r\nb"}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractLines(tt.frags); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ExtractLines(%q) = %q, want %q", tt.frags, got, tt.want)
			}
		})
	}
}

func TestJoinPagesDropsSeparator(t *testing.T) {
	got := JoinPages([][]string{{"end of page one"}, {}, {"start of page three"}})
	want := []string{"end of page one", "start of page three"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("JoinPages = %q, want %q", got, want)
	}
}

func TestClassifyRoll(t *testing.T) {
	tests := []struct {
		line string
		want RollMatch
	}{
		{"Roll Persuasion check (DC 12)", RollMatch{Matched: true, Skill: "Persuasion", Kind: "check", DC: 12}},
		{"The party must Roll Animal Handling CHECK (dc 10) to calm it.", RollMatch{Matched: true, Skill: "Animal Handling", Kind: "check", DC: 10}},
		{"roll dexterity save ( DC 15 )", RollMatch{Matched: true, Skill: "dexterity", Kind: "save", DC: 15}},
		{"Roll Constitution test (DC 8)", RollMatch{Matched: true, Skill: "Constitution", Kind: "test", DC: 8}},
		{"Roll Perception check", RollMatch{}},
		{"Roll Perception check (DC high)", RollMatch{}},
		{"Enroll Stealth check (DC 3)", RollMatch{}},
		{"REVEAL: nothing to roll here", RollMatch{}},
	}
	for _, tt := range tests {
		if got := ClassifyRoll(tt.line); got != tt.want {
			t.Errorf("ClassifyRoll(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestClassifyReveal(t *testing.T) {
	tests := []struct {
		line string
		want RevealMatch
	}{
		{"REVEAL: The guard looks away.", RevealMatch{Matched: true, Label: "REVEAL", Text: "The guard looks away."}},
		{"success:   a hidden door  ", RevealMatch{Matched: true, Label: "SUCCESS", Text: "a hidden door"}},
		{"On  Success : the lock clicks", RevealMatch{Matched: true, Label: "ON SUCCESS", Text: "the lock clicks"}},
		{"REVEAL:", RevealMatch{}},
		{"The REVEAL: is mid-line", RevealMatch{}},
		{"Revealed: nope", RevealMatch{}},
	}
	for _, tt := range tests {
		if got := ClassifyReveal(tt.line); got != tt.want {
			t.Errorf("ClassifyReveal(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestParseRollWithReveal(t *testing.T) {
	lines := []string{
		"The guard blocks the door.",
		"Roll Persuasion check (DC 12)",
		"He squints at you.",
		"REVEAL: The guard looks away.",
	}
	res := Parse(lines)
	if len(res.Blocks) != len(lines) {
		t.Fatalf("expected one block per line, got %d", len(res.Blocks))
	}
	if res.Blocks[0].Kind != "prose" || res.Blocks[0].Text != lines[0] {
		t.Fatalf("block 0 = %+v", res.Blocks[0])
	}
	rb := res.Blocks[1]
	if rb.Kind != "roll" || rb.Roll == nil {
		t.Fatalf("block 1 should be a roll: %+v", rb)
	}
	if rb.Roll.RollText != lines[1] || rb.Roll.RevealText != "The guard looks away." {
		t.Fatalf("roll = %+v", *rb.Roll)
	}
	// the reveal line itself stays in the flow as prose
	if res.Blocks[3].Kind != "prose" || res.Blocks[3].Text != lines[3] {
		t.Fatalf("reveal line should remain prose: %+v", res.Blocks[3])
	}
	if len(res.Rolls) != 1 || res.Rolls[0] != *rb.Roll {
		t.Fatalf("rolls = %+v", res.Rolls)
	}
}

func TestParseRevealOutsideWindowIsEmpty(t *testing.T) {
	lines := []string{"Roll Persuasion check (DC 12)"}
	for i := 0; i < RevealWindow; i++ {
		lines = append(lines, "filler")
	}
	lines = append(lines, "REVEAL: too late")
	res := Parse(lines)
	if len(res.Rolls) != 1 {
		t.Fatalf("expected 1 roll, got %d", len(res.Rolls))
	}
	if res.Rolls[0].RevealText != "" {
		t.Fatalf("RevealText = %q, want empty", res.Rolls[0].RevealText)
	}
}

func TestParseRevealAtWindowEdge(t *testing.T) {
	lines := []string{"Roll Stealth check (DC 9)"}
	for i := 0; i < RevealWindow-1; i++ {
		lines = append(lines, "filler")
	}
	lines = append(lines, "SUCCESS: unseen")
	if got := Parse(lines).Rolls[0].RevealText; got != "unseen" {
		t.Fatalf("RevealText = %q, want %q", got, "unseen")
	}
}

func TestParseFirstMatchWins(t *testing.T) {
	res := Parse([]string{
		"Roll Insight check (DC 11)",
		"REVEAL: first",
		"REVEAL: second",
	})
	if got := res.Rolls[0].RevealText; got != "first" {
		t.Fatalf("RevealText = %q, want first", got)
	}
}

func TestParseRevealIsSingleUse(t *testing.T) {
	res := Parse([]string{
		"Roll Insight check (DC 11)",
		"Roll Arcana check (DC 13)",
		"REVEAL: she is lying",
		"REVEAL: the runes are old",
	})
	if len(res.Rolls) != 2 {
		t.Fatalf("expected 2 rolls, got %d", len(res.Rolls))
	}
	if res.Rolls[0].RevealText != "she is lying" || res.Rolls[1].RevealText != "the runes are old" {
		t.Fatalf("rolls = %+v", res.Rolls)
	}
}

func TestParseClaimedRevealLeavesLaterRollEmpty(t *testing.T) {
	res := Parse([]string{
		"Roll Insight check (DC 11)",
		"Roll Arcana check (DC 13)",
		"REVEAL: only one",
	})
	if res.Rolls[0].RevealText != "only one" || res.Rolls[1].RevealText != "" {
		t.Fatalf("rolls = %+v", res.Rolls)
	}
}

func TestParseEmpty(t *testing.T) {
	res := Parse(nil)
	if len(res.Blocks) != 0 || res.Rolls == nil || len(res.Rolls) != 0 {
		t.Fatalf("unexpected result for empty input: %+v", res)
	}
}
