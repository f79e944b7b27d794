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
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLsFilesListsDirectFiles(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	pathID := insertPath(t, cat, "/a/")
	insertFile(t, cat, 1, pathID, "one.txt", 1)
	insertFile(t, cat, 1, pathID, "two.txt", 2)

	sess := NewSession(cat)
	sess.JobIds = []int64{1}
	sess.PwdId = pathID

	var rows []FileRow
	hasMore, err := LsFiles(ctx, sess, func(row FileRow) bool {
		rows = append(rows, row)
		return false
	})
	require.NoError(t, err)
	require.False(t, hasMore)
	require.Len(t, rows, 2)
	require.Equal(t, "one.txt", rows[0].Name)
	require.Equal(t, "two.txt", rows[1].Name)
}

// TestLsFilesBaseJobInheritanceShadowedByDirectFile pins the central
// LsFiles property: a file inherited from a base job is shadowed once
// the current job overrides it with its own File row of the same name.
func TestLsFilesBaseJobInheritanceShadowedByDirectFile(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0) // base job
	insertJob(t, cat, 2, "Backup", "T", 1001, 0) // incremental, inherits from 1

	pathID := insertPath(t, cat, "/a/")
	baseFileID := insertFile(t, cat, 1, pathID, "unchanged.txt", 1)
	insertFile(t, cat, 1, pathID, "overridden.txt", 2)
	overrideFileID := insertFile(t, cat, 2, pathID, "overridden.txt", 2)

	_, err := cat.Exec(ctx, "INSERT INTO basefiles (jobid, basejobid, fileid, fileindex) VALUES (?, ?, ?, ?)",
		2, 1, baseFileID, 1)
	require.NoError(t, err)
	_, err = cat.Exec(ctx, "INSERT INTO basefiles (jobid, basejobid, fileid, fileindex) VALUES (?, ?, ?, ?)",
		2, 1, overrideFileID, 2)
	require.NoError(t, err)

	sess := NewSession(cat)
	sess.JobIds = []int64{2}
	sess.PwdId = pathID

	var names []string
	var jobIds []int64
	_, err = LsFiles(ctx, sess, func(row FileRow) bool {
		names = append(names, row.Name)
		jobIds = append(jobIds, row.JobId)
		return false
	})
	require.NoError(t, err)
	require.Len(t, names, 2) // inherited "unchanged.txt" plus the direct override, never a duplicate
	require.ElementsMatch(t, []string{"unchanged.txt", "overridden.txt"}, names)

	for i, name := range names {
		if name == "overridden.txt" {
			require.Equal(t, int64(2), jobIds[i]) // the direct row wins, not the inherited one
		}
		if name == "unchanged.txt" {
			require.Equal(t, int64(1), jobIds[i]) // inherited row keeps its original owning jobid
		}
	}
}

func TestLsFilesPatternFilter(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	pathID := insertPath(t, cat, "/a/")
	insertFile(t, cat, 1, pathID, "keep.log", 1)
	insertFile(t, cat, 1, pathID, "skip.txt", 2)

	sess := NewSession(cat)
	sess.JobIds = []int64{1}
	sess.PwdId = pathID
	sess.Pattern = "%.log"

	var names []string
	_, err := LsFiles(ctx, sess, func(row FileRow) bool {
		names = append(names, row.Name)
		return false
	})
	require.NoError(t, err)
	require.Equal(t, []string{"keep.log"}, names)
}

func TestLsFilesPaginationReportsHasMore(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	pathID := insertPath(t, cat, "/a/")
	insertFile(t, cat, 1, pathID, "a.txt", 1)
	insertFile(t, cat, 1, pathID, "b.txt", 2)
	insertFile(t, cat, 1, pathID, "c.txt", 3)

	sess := NewSession(cat)
	sess.JobIds = []int64{1}
	sess.PwdId = pathID
	sess.Limit = 2

	var names []string
	hasMore, err := LsFiles(ctx, sess, func(row FileRow) bool {
		names = append(names, row.Name)
		return false
	})
	require.NoError(t, err)
	require.True(t, hasMore)
	require.Equal(t, []string{"a.txt", "b.txt"}, names)
}

func TestLsFilesRejectsEmptyJobScope(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	sess := NewSession(cat)
	_, err := LsFiles(ctx, sess, func(row FileRow) bool { return false })
	require.Error(t, err)
}
