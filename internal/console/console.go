/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package console runs a session as a line-oriented prompt over any
// reader/writer pair.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hjhudsonwriter/DM-session-hub/internal/archive"
	"github.com/hjhudsonwriter/DM-session-hub/internal/domain"
	"github.com/hjhudsonwriter/DM-session-hub/internal/export"
	applog "github.com/hjhudsonwriter/DM-session-hub/internal/log"
	"github.com/hjhudsonwriter/DM-session-hub/internal/session"
	"github.com/hjhudsonwriter/DM-session-hub/internal/undo"
)

// Options configures Run.
type Options struct {
	// Title heads summaries; usually the document title.
	Title string
	// Document names the source file in archive records.
	Document string
	Export   export.BatchOptions
	Archive  *archive.Store
	Prompt   string
}

const helpText = `commands:
  show            print the current scene
  next            complete the scene and move on
  prev            go back one scene
  success <n>     mark roll n of this scene as passed
  fail <n>        mark roll n of this scene as failed
  loot <text>     replace this scene's loot notes (empty clears)
  draft           print this scene's loot notes
  undo            restore the previous loot notes of this scene
  redo            reapply loot notes undone last
  summary         print the session summary
  export [dir]    write the summary files
  help            this text
  quit            leave
`

type repl struct {
	ctx  context.Context
	out  io.Writer
	m    *session.Machine
	opt  Options
	log  *slog.Logger
	hist *undo.Manager
	done bool
}

// Run reads commands from in until quit, EOF or ctx is canceled. m must
// already hold a loaded session. Command errors are printed and the prompt
// continues; only read errors are returned.
func Run(ctx context.Context, in io.Reader, out io.Writer, m *session.Machine, opt Options) error {
	if opt.Prompt == "" {
		opt.Prompt = "> "
	}
	r := &repl{ctx: ctx, out: out, m: m, opt: opt, log: applog.WithComponent("console")}
	r.hist = undo.NewManager(undo.Config{MaxPerScene: 50, MinInterval: -1})
	r.show()

	sc := bufio.NewScanner(in)
	for !r.done {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, opt.Prompt)
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		if err := r.exec(sc.Text()); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
	return nil
}

func (r *repl) exec(line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	applog.WithOperation(r.log, cmd).Debug("command")
	switch strings.ToLower(cmd) {
	case "":
		return nil
	case "show", "s":
		r.show()
	case "next", "n":
		if err := r.m.Next(); err != nil {
			return err
		}
		if r.m.State() == session.StateSummarized {
			return r.finish()
		}
		r.show()
	case "prev", "p":
		if err := r.m.Prev(); err != nil {
			return err
		}
		r.show()
	case "success", "fail":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("%s needs a roll number", cmd)
		}
		o := session.OutcomeSuccess
		if strings.EqualFold(cmd, "fail") {
			o = session.OutcomeFail
		}
		if err := r.m.Decide(n, o); err != nil {
			return err
		}
		r.showRoll(n)
	case "loot":
		prev := r.m.Draft()
		if err := r.m.SetDraft(arg); err != nil {
			return err
		}
		if prev != arg {
			r.hist.Record(r.m.CurrentIndex(), prev)
		}
		fmt.Fprintln(r.out, "loot notes saved")
	case "undo", "redo":
		return r.history(strings.ToLower(cmd))
	case "draft":
		if d := r.m.Draft(); d != "" {
			fmt.Fprintln(r.out, d)
		} else {
			fmt.Fprintln(r.out, "(no loot notes)")
		}
	case "summary":
		return r.printSummary()
	case "export":
		return r.export(arg)
	case "help", "?":
		fmt.Fprint(r.out, helpText)
	case "quit", "exit", "q":
		r.done = true
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (r *repl) history(cmd string) error {
	if _, err := r.m.Current(); err != nil {
		return err
	}
	step := r.hist.Undo
	if cmd == "redo" {
		step = r.hist.Redo
	}
	text, ok := step(r.m.CurrentIndex(), r.m.Draft())
	if !ok {
		fmt.Fprintf(r.out, "nothing to %s\n", cmd)
		return nil
	}
	if err := r.m.SetDraft(text); err != nil {
		return err
	}
	if text == "" {
		fmt.Fprintln(r.out, "(no loot notes)")
	} else {
		fmt.Fprintln(r.out, text)
	}
	return nil
}

func (r *repl) show() {
	sc, err := r.m.Current()
	if err != nil {
		fmt.Fprintf(r.out, "(%v)\n", err)
		return
	}
	total := len(r.m.Scenes())
	pages := fmt.Sprintf("p. %d", sc.StartPage)
	if sc.EndPage != sc.StartPage {
		pages = fmt.Sprintf("pp. %d-%d", sc.StartPage, sc.EndPage)
	}
	fmt.Fprintf(r.out, "== %s (%s) [%d/%d] ==\n", sc.Title, pages, r.m.CurrentIndex()+1, total)
	roll := 0
	for _, b := range sc.Blocks {
		if b.Roll == nil {
			fmt.Fprintln(r.out, b.Text)
			continue
		}
		fmt.Fprintf(r.out, "[%d] %s%s\n", roll, b.Roll.RollText, r.decisionSuffix(roll))
		roll++
	}
	if d := r.m.Draft(); d != "" {
		fmt.Fprintf(r.out, "loot: %s\n", d)
	}
}

func (r *repl) decisionSuffix(n int) string {
	if o, ok := r.m.Decision(n); ok {
		return "  (" + string(o) + ")"
	}
	return ""
}

func (r *repl) showRoll(n int) {
	sc, err := r.m.Current()
	if err != nil {
		return
	}
	roll := sc.Rolls[n]
	fmt.Fprintf(r.out, "[%d] %s%s\n", n, roll.RollText, r.decisionSuffix(n))
	if o, _ := r.m.Decision(n); o == session.OutcomeSuccess {
		reveal := roll.RevealText
		if !roll.HasReveal() {
			reveal = domain.RevealPlaceholder
		}
		fmt.Fprintf(r.out, "    %s\n", reveal)
	}
}

func (r *repl) finish() error {
	fmt.Fprintln(r.out, "session complete")
	if err := r.printSummary(); err != nil {
		return err
	}
	if r.opt.Archive == nil {
		return nil
	}
	p := r.m.Projection()
	p.Title = r.opt.Title
	e, err := r.opt.Archive.Record(r.ctx, r.opt.Document, p)
	if err != nil {
		return fmt.Errorf("archive summary: %w", err)
	}
	fmt.Fprintf(r.out, "archived as %s\n", e.ID)
	return nil
}

func (r *repl) printSummary() error {
	if r.m.State() == session.StateIdle {
		return session.ErrNoDocument
	}
	p := r.m.Projection()
	p.Title = r.opt.Title
	return export.RenderMarkdown(r.out, p)
}

func (r *repl) export(dir string) error {
	if r.m.State() == session.StateIdle {
		return session.ErrNoDocument
	}
	opt := r.opt.Export
	if dir != "" {
		opt.OutDir = dir
	}
	p := r.m.Projection()
	p.Title = r.opt.Title
	written, err := export.Batch(p, opt)
	for _, w := range written {
		fmt.Fprintf(r.out, "wrote %s\n", w)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
