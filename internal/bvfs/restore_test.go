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
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"bvfs/internal/common"
)

func countRows(t *testing.T, sess *Session, ctx context.Context, table string) int {
	t.Helper()
	var count int
	row := sess.Cat.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
	require.NoError(t, row.Scan(&count))
	return count
}

func TestComputeRestoreListRejectsMalformedTableName(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()
	sess := NewSession(cat)

	err := ComputeRestoreList(ctx, sess, "1", "", "", "evil; DROP TABLE job")
	require.Error(t, err)
	require.True(t, common.IsInvalidArgument(err))
}

func TestComputeRestoreListRequiresAtLeastOneSelection(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()
	sess := NewSession(cat)

	err := ComputeRestoreList(ctx, sess, "", "", "", "b2100")
	require.Error(t, err)
	require.True(t, common.IsInvalidArgument(err))
}

func TestComputeRestoreListByFileId(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	pathID := insertPath(t, cat, "/a/")
	f1 := insertFile(t, cat, 1, pathID, "one.txt", 1)
	insertFile(t, cat, 1, pathID, "two.txt", 2)

	sess := NewSession(cat)
	err := ComputeRestoreList(ctx, sess, fmt.Sprintf("%d", f1), "", "", "b2101")
	require.NoError(t, err)

	require.Equal(t, 1, countRows(t, sess, ctx, "b2101"))
	var scratchTables int
	row := sess.Cat.QueryRow(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", "btempb2101")
	require.NoError(t, row.Scan(&scratchTables))
	require.Equal(t, 0, scratchTables) // scratch table dropped after success
}

func TestComputeRestoreListHardlinkOddLengthRejected(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()
	sess := NewSession(cat)

	err := ComputeRestoreList(ctx, sess, "", "", "1,2,3", "b2102")
	require.Error(t, err)
	require.True(t, common.IsInvalidArgument(err))
}

func TestComputeRestoreListHardlinkPairs(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	pathID := insertPath(t, cat, "/a/")
	insertFile(t, cat, 1, pathID, "primary.txt", 5)
	insertFile(t, cat, 1, pathID, "link.txt", 5)

	sess := NewSession(cat)
	err := ComputeRestoreList(ctx, sess, "", "", "1,5", "b2103")
	require.NoError(t, err)

	require.Equal(t, 2, countRows(t, sess, ctx, "b2103")) // both files sharing fileindex 5 selected
}

func TestComputeRestoreListByDirectory(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	rootID := insertPath(t, cat, "")
	dirID := insertPath(t, cat, "/a/")
	otherID := insertPath(t, cat, "/b/")
	_ = rootID
	insertFile(t, cat, 1, dirID, "inside.txt", 1)
	insertFile(t, cat, 1, otherID, "outside.txt", 2)

	sess := NewSession(cat)
	sess.JobIds = []int64{1}
	err := ComputeRestoreList(ctx, sess, "", fmt.Sprintf("%d", dirID), "", "b2104")
	require.NoError(t, err)

	require.Equal(t, 1, countRows(t, sess, ctx, "b2104"))
	var name string
	row := sess.Cat.QueryRow(ctx, "SELECT name FROM b2104")
	require.NoError(t, row.Scan(&name))
	require.Equal(t, "inside.txt", name)
}

func TestComputeRestoreListByDirectoryIncludesBaseJobInheritance(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	insertJob(t, cat, 2, "Backup", "T", 2000, 0)
	dirID := insertPath(t, cat, "/a/")
	baseFileID := insertFile(t, cat, 1, dirID, "inherited.txt", 1)
	_, err := cat.Exec(ctx, "INSERT INTO basefiles (jobid, basejobid, fileid, fileindex) VALUES (?, ?, ?, ?)",
		2, 1, baseFileID, 1)
	require.NoError(t, err)

	sess := NewSession(cat)
	sess.JobIds = []int64{2}
	err = ComputeRestoreList(ctx, sess, "", fmt.Sprintf("%d", dirID), "", "b2105")
	require.NoError(t, err)

	require.Equal(t, 1, countRows(t, sess, ctx, "b2105"))
	var jobID int64
	row := sess.Cat.QueryRow(ctx, "SELECT jobid FROM b2105")
	require.NoError(t, row.Scan(&jobID))
	require.Equal(t, int64(2), jobID) // attributed to the inheriting job, not the base job
}

// TestComputeRestoreListLikeEscapesMetacharacters is the S6 scenario: a
// directory path containing a literal "%" must not act as a wildcard when
// used as a LIKE prefix.
func TestComputeRestoreListLikeEscapesMetacharacters(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	literalDir := insertPath(t, cat, "/100%/")
	decoyDir := insertPath(t, cat, "/100xyz/")
	insertFile(t, cat, 1, literalDir, "real.txt", 1)
	insertFile(t, cat, 1, decoyDir, "decoy.txt", 2)

	sess := NewSession(cat)
	sess.JobIds = []int64{1}
	err := ComputeRestoreList(ctx, sess, "", fmt.Sprintf("%d", literalDir), "", "b2106")
	require.NoError(t, err)

	require.Equal(t, 1, countRows(t, sess, ctx, "b2106")) // "100xyz/" must not match a LIKE '100%%' wildcard
	var name string
	row := sess.Cat.QueryRow(ctx, "SELECT name FROM b2106")
	require.NoError(t, row.Scan(&name))
	require.Equal(t, "real.txt", name)
}

// TestComputeRestoreListApexKeepsMaxJobTDate verifies the restore-list
// uniqueness invariant: when more than one selection contributes a
// candidate for the same (PathId, Name), only the one with the maximum
// JobTDate survives.
func TestComputeRestoreListApexKeepsMaxJobTDate(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	insertJob(t, cat, 2, "Backup", "T", 2000, 0)

	pathID := insertPath(t, cat, "/a/")
	older := insertFile(t, cat, 1, pathID, "f.txt", 1)
	newer := insertFile(t, cat, 2, pathID, "f.txt", 1)

	sess := NewSession(cat)
	sess.JobIds = []int64{1, 2}
	err := ComputeRestoreList(ctx, sess, fmt.Sprintf("%d,%d", older, newer), "", "", "b2107")
	require.NoError(t, err)

	require.Equal(t, 1, countRows(t, sess, ctx, "b2107"))
	var jobID int64
	row := sess.Cat.QueryRow(ctx, "SELECT jobid FROM b2107")
	require.NoError(t, row.Scan(&jobID))
	require.Equal(t, int64(2), jobID) // the newer job's jobtdate wins the apex
}
