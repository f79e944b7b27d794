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
	"strconv"
	"strings"

	"bvfs/internal/common"
)

// maxIdDigits bounds each id-list component's digit count.
const maxIdDigits = 30

// HardlinkPair is a (JobId, FileIndex) pair from a hardlink id list.
type HardlinkPair struct {
	JobId     int64
	FileIndex int64
}

// IdListParser parses an ASCII comma-separated list of decimal integers,
// one component at a time: each call to Next returns the next id,
// end-of-list, or an error.
type IdListParser struct {
	s   string
	pos int
}

// NewIdListParser returns a parser over s.
func NewIdListParser(s string) *IdListParser {
	return &IdListParser{s: s}
}

// Next returns the next id in the list. more is false once the list is
// exhausted; a non-nil err means s is malformed and the caller should
// stop iterating (the parser does not attempt to resynchronise).
func (p *IdListParser) Next() (id int64, more bool, err error) {
	if p.pos >= len(p.s) {
		if p.pos > 0 && p.s[p.pos-1] == ',' {
			// A trailing comma leaves an empty final component.
			return 0, false, common.InvalidArgument("idlist", "empty id component")
		}
		return 0, false, nil
	}

	rest := p.s[p.pos:]
	token := rest
	if idx := strings.IndexByte(rest, ','); idx >= 0 {
		token = rest[:idx]
		p.pos += idx + 1
	} else {
		p.pos = len(p.s)
	}

	v, err := parseIdComponent(token)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func parseIdComponent(token string) (int64, error) {
	if token == "" {
		return 0, common.InvalidArgument("idlist", "empty id component")
	}
	if len(token) > maxIdDigits {
		return 0, common.InvalidArgument("idlist", "id component %q exceeds %d digits", token, maxIdDigits)
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return 0, common.InvalidArgument("idlist", "non-numeric id component %q", token)
		}
	}
	v, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, common.InvalidArgument("idlist", "id component %q out of range", token)
	}
	return v, nil
}

// ParseIdList parses all of s into a slice, for callers that want the
// whole list rather than a streaming iterator. An empty or whitespace-
// only s yields a nil slice and no error (an absent selection, not a
// malformed one).
func ParseIdList(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	p := NewIdListParser(s)
	var ids []int64
	for {
		id, more, err := p.Next()
		if err != nil {
			return nil, err
		}
		if !more {
			return ids, nil
		}
		ids = append(ids, id)
	}
}

// ParseHardlinkPairs parses s as a flat list of (JobId, FileIndex) pairs.
// An odd count of ids is an error, distinct from a plain malformed
// component.
func ParseHardlinkPairs(s string) ([]HardlinkPair, error) {
	ids, err := ParseIdList(s)
	if err != nil {
		return nil, err
	}
	if len(ids)%2 != 0 {
		return nil, common.InvalidArgument("idlist", "hardlink id list has odd length %d, expected (jobId,fileIndex) pairs", len(ids))
	}

	pairs := make([]HardlinkPair, 0, len(ids)/2)
	for i := 0; i < len(ids); i += 2 {
		pairs = append(pairs, HardlinkPair{JobId: ids[i], FileIndex: ids[i+1]})
	}
	return pairs, nil
}
