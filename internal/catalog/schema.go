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

package catalog

import (
	"context"
	"database/sql"
	"strings"
)

// fixtureSchema is a throwaway sqlite schema used by tests to exercise
// BVFS against a real catalog. BVFS never owns or migrates a production
// catalog schema; this exists only so the test suite has something to
// run queries against.
const fixtureSchema = `
CREATE TABLE IF NOT EXISTS job (
    jobid INTEGER PRIMARY KEY,
    type TEXT NOT NULL,
    jobstatus TEXT NOT NULL,
    jobtdate INTEGER NOT NULL,
    hascache INTEGER NOT NULL DEFAULT 0,
    clientname TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS path (
    pathid INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS file (
    fileid INTEGER PRIMARY KEY AUTOINCREMENT,
    jobid INTEGER NOT NULL,
    pathid INTEGER NOT NULL,
    name TEXT NOT NULL,
    fileindex INTEGER NOT NULL DEFAULT 0,
    lstat TEXT,
    md5 TEXT
);

CREATE INDEX IF NOT EXISTS idx_file_job_path ON file(jobid, pathid);

CREATE TABLE IF NOT EXISTS pathhierarchy (
    pathid INTEGER PRIMARY KEY,
    ppathid INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pathvisibility (
    pathid INTEGER NOT NULL,
    jobid INTEGER NOT NULL,
    PRIMARY KEY (pathid, jobid)
);

CREATE INDEX IF NOT EXISTS idx_pathvisibility_job ON pathvisibility(jobid);

CREATE TABLE IF NOT EXISTS basefiles (
    jobid INTEGER NOT NULL,
    basejobid INTEGER NOT NULL,
    fileid INTEGER NOT NULL,
    fileindex INTEGER NOT NULL,
    PRIMARY KEY (jobid, fileid)
);
`

// InitFixtureSchema creates the fixture schema on db. The libsql driver
// does not support multi-statement Exec, so the script is split and each
// statement executed individually.
func InitFixtureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range splitStatements(fixtureSchema) {
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements splits a SQL script into individual ";"-terminated
// statements, skipping blank lines and "--" comments.
func splitStatements(script string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
