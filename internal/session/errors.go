/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"errors"
	"fmt"
)

// State is the phase of a session.
type State int

const (
	// StateIdle means no document is loaded.
	StateIdle State = iota
	// StateViewing means a scene is current and can be edited.
	StateViewing
	// StateSummarized is terminal: the last scene was completed.
	StateSummarized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateViewing:
		return "viewing"
	case StateSummarized:
		return "summarized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var (
	ErrNoDocumentService = errors.New("no document service")
	ErrNoDocument        = errors.New("no document loaded")
	ErrNotViewing        = errors.New("no current scene")
	ErrRollNotFound      = errors.New("roll not found in current scene")
	ErrAlreadyDecided    = errors.New("roll already decided")
	ErrUnknownOutcome    = errors.New("unknown roll outcome")
)

// LoadError reports a failed document load. The previous session, if any,
// is left exactly as it was.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return "load document: " + e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }
