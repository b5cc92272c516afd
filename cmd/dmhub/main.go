/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/hjhudsonwriter/DM-session-hub/internal/api"
	"github.com/hjhudsonwriter/DM-session-hub/internal/archive"
	"github.com/hjhudsonwriter/DM-session-hub/internal/config"
	"github.com/hjhudsonwriter/DM-session-hub/internal/console"
	"github.com/hjhudsonwriter/DM-session-hub/internal/crash"
	"github.com/hjhudsonwriter/DM-session-hub/internal/docsource"
	"github.com/hjhudsonwriter/DM-session-hub/internal/export"
	applog "github.com/hjhudsonwriter/DM-session-hub/internal/log"
	"github.com/hjhudsonwriter/DM-session-hub/internal/session"
	"github.com/hjhudsonwriter/DM-session-hub/internal/version"
)

func usage() {
	fmt.Println("DM Session Hub")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dmhub version|-v|--version        Show version")
	fmt.Println("  dmhub scenes <doc>                 List the scenes of an extracted document")
	fmt.Println("  dmhub blocks <doc> [scene#]        Print the content blocks of one or all scenes")
	fmt.Println("  dmhub run <doc>                    Run a session at the terminal")
	fmt.Println("  dmhub serve [addr]                 Serve the session HTTP API")
	fmt.Println("  dmhub history [id]                 List archived summaries or print one")
	fmt.Println("  dmhub history search <terms>       Search archived reveals and loot")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Log from env until the config file has been read.
	applog.Init(applog.FromEnv())
	target := &crash.Target{}
	defer crash.Recover(target)

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error: config:", err)
		return 1
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	l.Debug("start", slog.Int("args", len(args)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(args) == 0 {
		usage()
		return 0
	}
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Println("DM Session Hub")
		fmt.Println(version.String())
		return 0
	case "scenes":
		if len(args) < 2 {
			fmt.Println("scenes requires <doc>")
			usage()
			return 2
		}
		return cmdScenes(ctx, args[1])
	case "blocks":
		if len(args) < 2 {
			fmt.Println("blocks requires <doc>")
			usage()
			return 2
		}
		scene := 0
		if len(args) >= 3 {
			n, err := strconv.Atoi(args[2])
			if err != nil || n < 1 {
				fmt.Println("scene# must be a positive number")
				return 2
			}
			scene = n
		}
		return cmdBlocks(ctx, args[1], scene)
	case "run":
		if len(args) < 2 {
			fmt.Println("run requires <doc>")
			usage()
			return 2
		}
		return cmdRun(ctx, cfg, args[1], target)
	case "serve":
		addr := cfg.Server.Addr
		if len(args) >= 2 {
			addr = args[1]
		}
		return cmdServe(ctx, cfg, addr)
	case "history":
		if len(args) >= 2 && args[1] == "search" {
			if len(args) < 3 {
				fmt.Println("history search requires <terms>")
				return 2
			}
			return cmdSearch(ctx, cfg, strings.Join(args[2:], " "))
		}
		id := ""
		if len(args) >= 2 {
			id = args[1]
		}
		return cmdHistory(ctx, cfg, id)
	}
	usage()
	return 2
}

func fail(l *slog.Logger, msg string, err error) int {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	return 1
}

func hydrate(ctx context.Context, path string) (*docsource.Document, *session.Machine, error) {
	doc, err := docsource.Open(path)
	if err != nil {
		return nil, nil, err
	}
	m := session.New()
	if err := m.Load(ctx, doc); err != nil {
		return nil, nil, err
	}
	return doc, m, nil
}

func cmdScenes(ctx context.Context, path string) int {
	l := applog.WithOperation(applog.WithComponent("cli"), "scenes")
	doc, m, err := hydrate(ctx, path)
	if err != nil {
		return fail(l, "load failed", err)
	}
	if doc.Title != "" {
		fmt.Println(doc.Title)
	}
	for i, sc := range m.Scenes() {
		fmt.Printf("%3d  %-40s  pages %d-%d  rolls %d\n", i+1, sc.Title, sc.StartPage, sc.EndPage, len(sc.Rolls))
	}
	return 0
}

func cmdBlocks(ctx context.Context, path string, scene int) int {
	l := applog.WithOperation(applog.WithComponent("cli"), "blocks")
	_, m, err := hydrate(ctx, path)
	if err != nil {
		return fail(l, "load failed", err)
	}
	scenes := m.Scenes()
	if scene > len(scenes) {
		fmt.Printf("scene# out of range (document has %d scenes)\n", len(scenes))
		return 2
	}
	for i, sc := range scenes {
		if scene != 0 && i != scene-1 {
			continue
		}
		fmt.Printf("== %s ==\n", sc.Title)
		for _, b := range sc.Blocks {
			if b.Roll == nil {
				fmt.Printf("  %s\n", b.Text)
				continue
			}
			fmt.Printf("  [roll] %s\n", b.Roll.RollText)
			if b.Roll.HasReveal() {
				fmt.Printf("         -> %s\n", b.Roll.RevealText)
			}
		}
	}
	return 0
}

func openArchive(cfg config.AppConfig, always bool) (*archive.Store, error) {
	if !cfg.Archive.Enabled && !always {
		return nil, nil
	}
	path := cfg.Archive.Path
	if path == "" {
		p, err := config.DefaultArchivePath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return archive.Open(path)
}

func exportOptions(cfg config.AppConfig) export.BatchOptions {
	return export.BatchOptions{
		Formats:  cfg.Export.Formats,
		OutDir:   cfg.Export.Dir,
		PageSize: cfg.Export.PageSize,
	}
}

func cmdRun(ctx context.Context, cfg config.AppConfig, path string, target *crash.Target) int {
	l := applog.WithOperation(applog.WithComponent("cli"), "run")
	abs, _ := filepath.Abs(path)
	target.Document = abs
	doc, m, err := hydrate(ctx, abs)
	if err != nil {
		return fail(l, "load failed", err)
	}
	target.Machine = m

	store, err := openArchive(cfg, false)
	if err != nil {
		return fail(l, "open archive failed", err)
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}
	err = console.Run(ctx, os.Stdin, os.Stdout, m, console.Options{
		Title:    doc.Title,
		Document: abs,
		Export:   exportOptions(cfg),
		Archive:  store,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fail(l, "console failed", err)
	}
	return 0
}

func cmdServe(ctx context.Context, cfg config.AppConfig, addr string) int {
	l := applog.WithOperation(applog.WithComponent("cli"), "serve")
	switch cfg.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		l.Warn("unknown server mode, using release", slog.String("mode", cfg.Server.Mode))
		gin.SetMode(gin.ReleaseMode)
	}
	store, err := openArchive(cfg, false)
	if err != nil {
		return fail(l, "open archive failed", err)
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}
	hub := api.NewHub(api.Options{
		PDF:     export.PDFOptions{PageSize: cfg.Export.PageSize},
		Archive: store,
	})
	fmt.Printf("Serving on http://%s\n", addr)
	if err := api.Serve(ctx, addr, api.NewRouter(hub)); err != nil {
		return fail(l, "server failed", err)
	}
	return 0
}

func cmdHistory(ctx context.Context, cfg config.AppConfig, id string) int {
	l := applog.WithOperation(applog.WithComponent("cli"), "history")
	store, err := openArchive(cfg, true)
	if err != nil {
		return fail(l, "open archive failed", err)
	}
	defer func() { _ = store.Close() }()

	if id != "" {
		_, p, err := store.Get(ctx, id)
		if err != nil {
			return fail(l, "get summary failed", err)
		}
		if err := export.RenderMarkdown(os.Stdout, p); err != nil {
			return fail(l, "render summary failed", err)
		}
		return 0
	}
	entries, err := store.List(ctx, 0)
	if err != nil {
		return fail(l, "list summaries failed", err)
	}
	if len(entries) == 0 {
		fmt.Println("No archived summaries.")
		return 0
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  scenes %d  reveals %d  loot %d  %s\n",
			e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Scenes, e.Reveals, e.Loot, e.Document)
	}
	return 0
}

func cmdSearch(ctx context.Context, cfg config.AppConfig, terms string) int {
	l := applog.WithOperation(applog.WithComponent("cli"), "search")
	store, err := openArchive(cfg, true)
	if err != nil {
		return fail(l, "open archive failed", err)
	}
	defer func() { _ = store.Close() }()
	hits, err := store.Search(ctx, archive.SearchQuery{Text: terms})
	if err != nil {
		return fail(l, "search failed", err)
	}
	if len(hits) == 0 {
		fmt.Println("No matches.")
		return 0
	}
	for _, h := range hits {
		fmt.Printf("%s  %-6s  %s\n    %s\n", h.SummaryID, h.Kind, h.SceneTitle, strings.ReplaceAll(h.Snippet, "\n", " / "))
	}
	return 0
}
