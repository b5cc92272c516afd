/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hjhudsonwriter/DM-session-hub/internal/domain"
)

// RevealWindow is how many lines after a roll prompt are searched for its reveal.
const RevealWindow = 7

var (
	reRoll   = regexp.MustCompile(`(?i)\bRoll\s+([A-Za-z][A-Za-z ]*?)\s+(check|save|test)\s*\(\s*DC\s*(\d+)\s*\)`)
	reReveal = regexp.MustCompile(`(?i)^(ON\s+SUCCESS|SUCCESS|REVEAL)\s*:\s*(.*\S)`)
)

// RollMatch is the result of ClassifyRoll. Matched is false for ordinary lines.
type RollMatch struct {
	Matched bool
	Skill   string
	Kind    string // check, save or test (lower-cased)
	DC      int
}

// RevealMatch is the result of ClassifyReveal. Text is the trimmed content after the label.
type RevealMatch struct {
	Matched bool
	Label   string
	Text    string
}

// ClassifyRoll reports whether line contains a roll prompt such as
// "Roll Persuasion check (DC 12)". The pattern may appear anywhere in the line.
func ClassifyRoll(line string) RollMatch {
	m := reRoll.FindStringSubmatch(line)
	if m == nil {
		return RollMatch{}
	}
	dc, err := strconv.Atoi(m[3])
	if err != nil {
		// digits that overflow int are still a roll prompt; DC stays unknown
		dc = 0
	}
	return RollMatch{
		Matched: true,
		Skill:   strings.Join(strings.Fields(m[1]), " "),
		Kind:    strings.ToLower(m[2]),
		DC:      dc,
	}
}

// ClassifyReveal reports whether line is a reveal line: REVEAL, SUCCESS or
// ON SUCCESS followed by a colon and text, anchored at the start of the line.
func ClassifyReveal(line string) RevealMatch {
	m := reReveal.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return RevealMatch{}
	}
	return RevealMatch{Matched: true, Label: strings.ToUpper(strings.Join(strings.Fields(m[1]), " ")), Text: strings.TrimSpace(m[2])}
}

// Result is the hydrated content of one scene.
type Result struct {
	Blocks []domain.Block
	Rolls  []domain.RollPrompt
}

// Parse turns a scene's ordered lines into content blocks.
//
// Every line yields exactly one block in original order. Roll lines become
// roll blocks; everything else, reveal lines included, becomes prose. For each
// roll line the next RevealWindow lines are scanned and the first reveal line
// not already attached to an earlier roll becomes its reveal. Documents that
// interleave several rolls and reveals inside one window may pair them
// differently than the author intended.
func Parse(lines []string) Result {
	res := Result{Blocks: make([]domain.Block, 0, len(lines)), Rolls: []domain.RollPrompt{}}
	claimed := map[int]bool{}

	for i, line := range lines {
		rm := ClassifyRoll(line)
		if !rm.Matched {
			res.Blocks = append(res.Blocks, domain.Prose(line))
			continue
		}
		rp := domain.RollPrompt{RollText: line, Skill: rm.Skill, Kind: rm.Kind, DC: rm.DC}
		end := min(i+RevealWindow, len(lines)-1)
		for j := i + 1; j <= end; j++ {
			if claimed[j] {
				continue
			}
			if rv := ClassifyReveal(lines[j]); rv.Matched {
				rp.RevealText = rv.Text
				claimed[j] = true
				break
			}
		}
		res.Blocks = append(res.Blocks, domain.Roll(rp))
		res.Rolls = append(res.Rolls, rp)
	}
	return res
}
