/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/hjhudsonwriter/DM-session-hub/internal/docsource"
	"github.com/hjhudsonwriter/DM-session-hub/internal/session"
)

// Error codes carried in the "code" field of error responses.
const (
	ErrorBadRequest      = "BAD_REQUEST"
	ErrorNotFound        = "NOT_FOUND"
	ErrorInternalError   = "INTERNAL_ERROR"
	ErrorNoDocument      = "NO_DOCUMENT"
	ErrorNotViewing      = "NOT_VIEWING"
	ErrorRollNotFound    = "ROLL_NOT_FOUND"
	ErrorRollDecided     = "ROLL_ALREADY_DECIDED"
	ErrorDocumentInvalid = "DOCUMENT_INVALID"
	ErrorLoadFailed      = "LOAD_FAILED"
	ErrorLoadInProgress  = "LOAD_IN_PROGRESS"
	ErrorExportFailed    = "EXPORT_FAILED"
	ErrorArchiveDisabled = "ARCHIVE_DISABLED"
)

var errLoadInProgress = errors.New("a document load is already in progress")

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps a session or document error to an HTTP status and code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errLoadInProgress):
		return http.StatusConflict, ErrorLoadInProgress
	case errors.Is(err, session.ErrNoDocument):
		return http.StatusConflict, ErrorNoDocument
	case errors.Is(err, session.ErrNotViewing):
		return http.StatusConflict, ErrorNotViewing
	case errors.Is(err, session.ErrAlreadyDecided):
		return http.StatusConflict, ErrorRollDecided
	case errors.Is(err, session.ErrRollNotFound):
		return http.StatusNotFound, ErrorRollNotFound
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound, ErrorNotFound
	case errors.Is(err, docsource.ErrInvalidDocument):
		return http.StatusUnprocessableEntity, ErrorDocumentInvalid
	}
	var le *session.LoadError
	if errors.As(err, &le) {
		return http.StatusUnprocessableEntity, ErrorLoadFailed
	}
	return http.StatusInternalServerError, ErrorInternalError
}

func abortWith(c *gin.Context, err error) {
	status, code := statusFor(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: ErrorBadRequest})
}
