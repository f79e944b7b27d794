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

func TestGetAllFileVersionsHidesSupersededByDefault(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	insertJob(t, cat, 2, "Backup", "T", 2000, 0)

	pathID := insertPath(t, cat, "/a/")
	insertFile(t, cat, 1, pathID, "f.txt", 1)
	insertFile(t, cat, 2, pathID, "f.txt", 1)

	sess := NewSession(cat)

	var jobIds []int64
	_, err := GetAllFileVersions(ctx, sess, pathID, "f.txt", "client1", func(row VersionRow) bool {
		jobIds = append(jobIds, row.JobId)
		return false
	})
	require.NoError(t, err)
	require.Equal(t, []int64{2}, jobIds) // newer job's version supersedes the older one by default
}

func TestGetAllFileVersionsSeeAllVersionsIncludesSuperseded(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	insertJob(t, cat, 2, "Backup", "T", 2000, 0)

	pathID := insertPath(t, cat, "/a/")
	insertFile(t, cat, 1, pathID, "f.txt", 1)
	insertFile(t, cat, 2, pathID, "f.txt", 1)

	sess := NewSession(cat)
	sess.SeeAllVersions = true

	var jobIds []int64
	_, err := GetAllFileVersions(ctx, sess, pathID, "f.txt", "client1", func(row VersionRow) bool {
		jobIds = append(jobIds, row.JobId)
		return false
	})
	require.NoError(t, err)
	require.Equal(t, []int64{2, 1}, jobIds) // newest first, both retained
}

func TestGetAllFileVersionsExcludesCopyJobsByDefault(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	insertJob(t, cat, 2, "Copy", "T", 2000, 0)

	pathID := insertPath(t, cat, "/a/")
	insertFile(t, cat, 1, pathID, "f.txt", 1)
	insertFile(t, cat, 2, pathID, "f.txt", 1)

	sess := NewSession(cat)
	sess.SeeAllVersions = true

	var jobIds []int64
	_, err := GetAllFileVersions(ctx, sess, pathID, "f.txt", "client1", func(row VersionRow) bool {
		jobIds = append(jobIds, row.JobId)
		return false
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1}, jobIds)
}

func TestGetAllFileVersionsSeeCopiesIncludesCopyJobs(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	insertJob(t, cat, 1, "Backup", "T", 1000, 0)
	insertJob(t, cat, 2, "Copy", "T", 2000, 0)

	pathID := insertPath(t, cat, "/a/")
	insertFile(t, cat, 1, pathID, "f.txt", 1)
	insertFile(t, cat, 2, pathID, "f.txt", 1)

	sess := NewSession(cat)
	sess.SeeAllVersions = true
	sess.SeeCopies = true

	var jobIds []int64
	_, err := GetAllFileVersions(ctx, sess, pathID, "f.txt", "client1", func(row VersionRow) bool {
		jobIds = append(jobIds, row.JobId)
		return false
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 2}, jobIds)
}

func TestGetAllFileVersionsScopedToClient(t *testing.T) {
	cat := newFixtureCatalog(t)
	ctx := context.Background()

	_, err := cat.Exec(ctx, "INSERT INTO job (jobid, type, jobstatus, jobtdate, hascache, clientname) VALUES (?, ?, ?, ?, ?, ?)",
		1, "Backup", "T", 1000, 0, "other-client")
	require.NoError(t, err)

	pathID := insertPath(t, cat, "/a/")
	insertFile(t, cat, 1, pathID, "f.txt", 1)

	sess := NewSession(cat)
	var rows []VersionRow
	_, err = GetAllFileVersions(ctx, sess, pathID, "f.txt", "client1", func(row VersionRow) bool {
		rows = append(rows, row)
		return false
	})
	require.NoError(t, err)
	require.Empty(t, rows)
}
