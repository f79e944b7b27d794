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
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"bvfs/internal/catalog"
)

// newFixtureCatalog opens a fresh file-backed sqlite catalog with the
// fixture schema loaded, building a throwaway libsql-backed database per
// test.
func newFixtureCatalog(t *testing.T) *catalog.Session {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", filepath.Join(t.TempDir(), "bvfs_test.db"))
	sess, err := catalog.Open(catalog.Sqlite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	raw, err := sql.Open("libsql", dsn)
	require.NoError(t, err)
	defer raw.Close()
	require.NoError(t, catalog.InitFixtureSchema(context.Background(), raw))

	return sess
}

// insertJob inserts a Job row with the given status/type/hascache.
func insertJob(t *testing.T, cat *catalog.Session, jobID int64, jobType, status string, tdate int64, hasCache int) {
	t.Helper()
	_, err := cat.Exec(context.Background(),
		"INSERT INTO job (jobid, type, jobstatus, jobtdate, hascache, clientname) VALUES (?, ?, ?, ?, ?, ?)",
		jobID, jobType, status, tdate, hasCache, "client1")
	require.NoError(t, err)
}

// insertPath inserts a Path row and returns its PathId.
func insertPath(t *testing.T, cat *catalog.Session, path string) int64 {
	t.Helper()
	id, err := cat.CreatePathRecord(context.Background(), path)
	require.NoError(t, err)
	return id
}

// insertFile inserts a File row.
func insertFile(t *testing.T, cat *catalog.Session, jobID, pathID int64, name string, fileIndex int64) int64 {
	t.Helper()
	affected, err := cat.Exec(context.Background(),
		"INSERT INTO file (jobid, pathid, name, fileindex, lstat) VALUES (?, ?, ?, ?, ?)",
		jobID, pathID, name, fileIndex, "lstat-data")
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	var fileID int64
	row := cat.QueryRow(context.Background(), "SELECT fileid FROM file WHERE jobid = ? AND pathid = ? AND name = ?", jobID, pathID, name)
	require.NoError(t, row.Scan(&fileID))
	return fileID
}
