/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hjhudsonwriter/DM-session-hub/internal/docsource"
	"github.com/hjhudsonwriter/DM-session-hub/internal/domain"
	applog "github.com/hjhudsonwriter/DM-session-hub/internal/log"
	"github.com/hjhudsonwriter/DM-session-hub/internal/outline"
	"github.com/hjhudsonwriter/DM-session-hub/internal/script"
)

// Hydrate segments the document into scenes and fills each scene's blocks.
// Scenes and their pages are fetched strictly in order; page order matters
// because reveal lookahead crosses page boundaries.
func Hydrate(ctx context.Context, svc docsource.Service) ([]domain.Scene, error) {
	if svc == nil {
		return nil, ErrNoDocumentService
	}
	l := applog.WithOperation(applog.WithComponent("session"), "hydrate")

	scenes, pageCount, err := outline.SegmentDocument(ctx, svc)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	for i := range scenes {
		sc := &scenes[i]
		pages := make([][]string, 0, sc.PageCount())
		for p := sc.StartPage; p <= sc.EndPage; p++ {
			frags, err := svc.PageFragments(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", p, err)
			}
			pages = append(pages, script.ExtractLines(frags))
		}
		res := script.Parse(script.JoinPages(pages))
		sc.Blocks = res.Blocks
		sc.Rolls = res.Rolls
		l.Debug("scene hydrated",
			slog.Int("scene", i),
			slog.String("title", sc.Title),
			slog.Int("blocks", len(sc.Blocks)),
			slog.Int("rolls", len(sc.Rolls)),
		)
	}
	l.Info("document hydrated", slog.Int("pages", pageCount), slog.Int("scenes", len(scenes)))
	return scenes, nil
}
