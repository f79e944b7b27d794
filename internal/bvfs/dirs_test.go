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

func TestLsDirsListsChildrenOnce(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	insertJob(t, cat, 2, "Backup", "T", 1001, 0)

	rootID := insertPath(t, cat, "")
	aID := insertPath(t, cat, "/a/")
	bID := insertPath(t, cat, "/a/b/")

	_, err := cat.Exec(ctx, "INSERT INTO pathhierarchy (pathid, ppathid) VALUES (?, ?)", aID, rootID)
	require.NoError(t, err)
	_, err = cat.Exec(ctx, "INSERT INTO pathhierarchy (pathid, ppathid) VALUES (?, ?)", bID, aID)
	require.NoError(t, err)

	for _, jobID := range []int64{1, 2} {
		_, err = cat.Exec(ctx, "INSERT INTO pathvisibility (pathid, jobid) VALUES (?, ?)", aID, jobID)
		require.NoError(t, err)
	}
	insertFile(t, cat, 1, aID, "", 0)
	insertFile(t, cat, 2, aID, "", 0)

	sess := NewSession(cat)
	sess.JobIds = []int64{1, 2}
	sess.PwdId = rootID

	var rows []DirRow
	hasMore, err := LsDirs(ctx, sess, func(row DirRow) bool {
		rows = append(rows, row)
		return false
	})
	require.NoError(t, err)
	require.False(t, hasMore)
	require.Len(t, rows, 1) // /a/ appears once despite two contributing jobs
	require.Equal(t, "/a/", rows[0].Path)
	require.Equal(t, int64(2), rows[0].JobId) // highest JobId wins the dedup
}

func TestLsSpecialDirsEmitsDotAndDotDot(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)

	rootID := insertPath(t, cat, "")
	aID := insertPath(t, cat, "/a/")

	_, err := cat.Exec(ctx, "INSERT INTO pathhierarchy (pathid, ppathid) VALUES (?, ?)", aID, rootID)
	require.NoError(t, err)
	_, err = cat.Exec(ctx, "INSERT INTO pathvisibility (pathid, jobid) VALUES (?, ?)", aID, 1)
	require.NoError(t, err)
	_, err = cat.Exec(ctx, "INSERT INTO pathvisibility (pathid, jobid) VALUES (?, ?)", rootID, 1)
	require.NoError(t, err)

	sess := NewSession(cat)
	sess.JobIds = []int64{1}
	sess.PwdId = aID

	var rows []DirRow
	err = LsSpecialDirs(ctx, sess, func(row DirRow) bool {
		rows = append(rows, row)
		return false
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, ".", rows[0].Path)
	require.Equal(t, "..", rows[1].Path)
}

func TestLsSpecialDirsAtRootEmitsOnlyDot(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	rootID := insertPath(t, cat, "")
	_, err := cat.Exec(ctx, "INSERT INTO pathvisibility (pathid, jobid) VALUES (?, ?)", rootID, 1)
	require.NoError(t, err)

	sess := NewSession(cat)
	sess.JobIds = []int64{1}
	sess.PwdId = rootID

	var rows []DirRow
	err = LsSpecialDirs(ctx, sess, func(row DirRow) bool {
		rows = append(rows, row)
		return false
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, ".", rows[0].Path)
}
