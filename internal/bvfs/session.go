// Copyright 2024 BVFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bvfs

import (
	"bvfs/internal/catalog"
)

// DefaultLimit is the session's default pagination limit.
const DefaultLimit = 1000

// Session is a stateful view carrying the current directory, job scope,
// and pagination for one client. It is owned by the caller and mutated
// by SetJobIds, ChDir, and ClearState, and by the listers (which advance
// prevDir for dedup).
type Session struct {
	Cat *catalog.Session

	JobIds  []int64
	PwdId   int64 // 0 = none
	Pattern string

	Limit  int
	Offset int

	SeeCopies      bool
	SeeAllVersions bool

	prevDir string // last emitted directory path, reset per listing call
}

// NewSession wraps cat in a BvfsSession with spec-default pagination.
func NewSession(cat *catalog.Session) *Session {
	return &Session{Cat: cat, Limit: DefaultLimit}
}

// SetJobIds parses a comma-separated job id list and scopes all
// subsequent listings to it.
func (s *Session) SetJobIds(csv string) error {
	ids, err := ParseIdList(csv)
	if err != nil {
		return err
	}
	s.JobIds = ids
	return nil
}

// ChDir sets the current directory PathId.
func (s *Session) ChDir(pathID int64) {
	s.PwdId = pathID
}

// ClearState resets the session to its zero-scope defaults: no job
// scope, no current directory, no pattern, default pagination. This is
// a session-local reset distinct from bvfs.ClearCache, which resets
// catalog state.
func (s *Session) ClearState() {
	s.JobIds = nil
	s.PwdId = 0
	s.Pattern = ""
	s.Limit = DefaultLimit
	s.Offset = 0
	s.prevDir = ""
}

func (s *Session) resetDedup() {
	s.prevDir = ""
}

func (s *Session) limit() int {
	if s.Limit <= 0 {
		return DefaultLimit
	}
	return s.Limit
}
