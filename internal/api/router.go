/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hjhudsonwriter/DM-session-hub/internal/archive"
	"github.com/hjhudsonwriter/DM-session-hub/internal/export"
	applog "github.com/hjhudsonwriter/DM-session-hub/internal/log"
	"github.com/hjhudsonwriter/DM-session-hub/internal/session"
	"github.com/hjhudsonwriter/DM-session-hub/internal/summary"
	"github.com/hjhudsonwriter/DM-session-hub/internal/version"
)

type loadRequest struct {
	Path string `json:"path" binding:"required"`
}

type draftRequest struct {
	Text *string `json:"text" binding:"required"`
}

// NewRouter wires every endpoint to h.
func NewRouter(h *Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": version.String()})
	})

	g := r.Group("/api")
	g.POST("/document", h.handleLoad)
	g.GET("/scenes", h.handleScenes)
	g.GET("/state", func(c *gin.Context) { c.JSON(http.StatusOK, h.State()) })
	g.PUT("/draft", h.handleDraft)
	g.POST("/prev", h.mutate(func(m *session.Machine) error { return m.Prev() }))
	g.POST("/next", h.handleNext)
	g.POST("/rolls/:index/success", h.handleRoll(session.OutcomeSuccess))
	g.POST("/rolls/:index/fail", h.handleRoll(session.OutcomeFail))
	g.POST("/reset", h.mutate(func(m *session.Machine) error { m.Reset(); return nil }))
	g.GET("/summary", h.handleSummary)
	g.GET("/summary.pdf", h.handleSummaryPDF)
	g.GET("/history", h.handleHistory)
	g.GET("/history/search", h.handleHistorySearch)
	return r
}

func (h *Hub) mutate(fn func(m *session.Machine) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := h.Do(fn)
		if err != nil {
			abortWith(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

func (h *Hub) handleLoad(c *gin.Context) {
	var req loadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body must be {\"path\": \"<document file>\"}")
		return
	}
	if err := h.Load(c.Request.Context(), req.Path); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, h.State())
}

func (h *Hub) handleScenes(c *gin.Context) {
	scenes, err := h.Scenes()
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenes": scenes})
}

func (h *Hub) handleDraft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body must be {\"text\": \"<loot notes>\"}")
		return
	}
	h.mutate(func(m *session.Machine) error { return m.SetDraft(*req.Text) })(c)
}

func (h *Hub) handleNext(c *gin.Context) {
	v, err := h.Next(c.Request.Context())
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Hub) handleRoll(o session.Outcome) gin.HandlerFunc {
	return func(c *gin.Context) {
		idx, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			badRequest(c, "roll index must be an integer")
			return
		}
		h.mutate(func(m *session.Machine) error { return m.Decide(idx, o) })(c)
	}
}

func (h *Hub) handleSummary(c *gin.Context) {
	p, err := h.Projection()
	if err != nil {
		abortWith(c, err)
		return
	}
	data, err := summary.Marshal(p)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: ErrorExportFailed})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *Hub) handleSummaryPDF(c *gin.Context) {
	p, err := h.Projection()
	if err != nil {
		abortWith(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.RenderPDF(&buf, p, h.pdf); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: ErrorExportFailed})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.BaseName+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Hub) handleHistory(c *gin.Context) {
	if h.archive == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "archive is disabled", Code: ErrorArchiveDisabled})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.archive.List(c.Request.Context(), limit)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": entries})
}

func (h *Hub) handleHistorySearch(c *gin.Context) {
	if h.archive == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "archive is disabled", Code: ErrorArchiveDisabled})
		return
	}
	q := archive.SearchQuery{Text: c.Query("q"), Kind: c.Query("kind"), Document: c.Query("document")}
	q.Limit, _ = strconv.Atoi(c.Query("limit"))
	q.Offset, _ = strconv.Atoi(c.Query("offset"))
	hits, err := h.archive.Search(c.Request.Context(), q)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}

func requestLogger() gin.HandlerFunc {
	l := applog.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("dur", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("err", c.Errors.String()))
		}
		l.Debug("request", attrs...)
	}
}
