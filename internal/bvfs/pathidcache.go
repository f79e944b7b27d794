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
	"math"

	"github.com/RoaringBitmap/roaring"
)

// PathIdCache is the process-local, per-refresh-batch memoisation of
// PathIds already known to have a PathHierarchy row. It is positive-only:
// Contains reports "already present" on a hit, but
// a miss means nothing more than "not yet proven present" — callers must
// still probe the catalog before concluding absence.
//
// PathId is a dense catalog surrogate key, so membership is tracked with
// a Roaring bitmap rather than a map[string]struct{} of decimal strings:
// this is the same structure the reference corpus reaches for whenever a
// large set of small integer ids needs compressed, amortised-O(1)
// membership tests (see DESIGN.md). IDs that do not fit in a uint32
// (pathological catalogs with >4B paths) spill into an overflow set so
// correctness never depends on the id range.
type PathIdCache struct {
	bitmap   *roaring.Bitmap
	overflow map[int64]struct{}
}

// NewPathIdCache creates an empty cache. One instance is created per
// refresh batch across all jobs in it, and discarded on completion — it
// must never be promoted to process scope.
func NewPathIdCache() *PathIdCache {
	return &PathIdCache{bitmap: roaring.New()}
}

// Contains reports whether pathID is already known to have a
// PathHierarchy row.
func (c *PathIdCache) Contains(pathID int64) bool {
	if fitsUint32(pathID) {
		return c.bitmap.Contains(uint32(pathID))
	}
	if c.overflow == nil {
		return false
	}
	_, ok := c.overflow[pathID]
	return ok
}

// Insert records pathID as known-present. Insert never removes a prior
// entry and is safe to call redundantly.
func (c *PathIdCache) Insert(pathID int64) {
	if fitsUint32(pathID) {
		c.bitmap.Add(uint32(pathID))
		return
	}
	if c.overflow == nil {
		c.overflow = make(map[int64]struct{})
	}
	c.overflow[pathID] = struct{}{}
}

// Len reports the number of distinct PathIds recorded.
func (c *PathIdCache) Len() int {
	return int(c.bitmap.GetCardinality()) + len(c.overflow)
}

func fitsUint32(id int64) bool {
	return id >= 0 && id <= math.MaxUint32
}
