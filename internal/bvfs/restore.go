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
	"regexp"

	"bvfs/internal/catalog"
	"bvfs/internal/common"
	"bvfs/internal/util"
)

// restoreTablePattern is the sole defence against SQL injection through a
// caller-supplied table name: it must match b2<digits> exactly.
var restoreTablePattern = regexp.MustCompile(`^b2[0-9]+$`)

// ComputeRestoreList translates {fileId, dirId, hardlink} id-list
// selections into a persisted table named table, containing one row per
// (PathId, Name) with the maximum JobTDate among the candidates that
// selection produced. Any step's failure drops both scratch and target
// tables and returns the error.
func ComputeRestoreList(ctx context.Context, sess *Session, fileIds, dirIds, hardlink, table string) error {
	sess.Cat.Lock()
	defer sess.Cat.Unlock()

	if !restoreTablePattern.MatchString(table) {
		return common.InvalidArgument("compute_restore_list", "table name must match b2<digits>")
	}

	fileIDs, err := ParseIdList(fileIds)
	if err != nil {
		return common.InvalidArgument("compute_restore_list", "malformed fileId list: %s", err.Error())
	}
	dirIDs, err := ParseIdList(dirIds)
	if err != nil {
		return common.InvalidArgument("compute_restore_list", "malformed dirId list: %s", err.Error())
	}
	pairs, err := ParseHardlinkPairs(hardlink)
	if err != nil {
		return common.InvalidArgument("compute_restore_list", "malformed hardlink list: %s", err.Error())
	}
	if len(fileIDs) == 0 && len(dirIDs) == 0 && len(pairs) == 0 {
		return common.InvalidArgument("compute_restore_list", "at least one of fileId, dirId, hardlink must be non-empty")
	}

	scratch := "btemp" + table

	cleanup := func() {
		_, _ = sess.Cat.Exec(ctx, "DROP TABLE IF EXISTS "+scratch)
		_, _ = sess.Cat.Exec(ctx, "DROP TABLE IF EXISTS "+table)
	}

	if _, err := sess.Cat.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return common.CatalogError("compute_restore_list", err)
	}
	if _, err := sess.Cat.Exec(ctx, "DROP TABLE IF EXISTS "+scratch); err != nil {
		return common.CatalogError("compute_restore_list", err)
	}

	if err := createScratchTable(ctx, sess, scratch); err != nil {
		cleanup()
		return common.CatalogError("compute_restore_list", err)
	}

	if err := insertFileSelection(ctx, sess, scratch, fileIDs); err != nil {
		cleanup()
		return common.CatalogError("compute_restore_list", err)
	}
	if err := insertDirectorySelection(ctx, sess, scratch, dirIDs); err != nil {
		cleanup()
		return common.CatalogError("compute_restore_list", err)
	}
	if err := insertHardlinkSelection(ctx, sess, scratch, pairs); err != nil {
		cleanup()
		return common.CatalogError("compute_restore_list", err)
	}

	if err := materialiseApex(ctx, sess, scratch, table); err != nil {
		cleanup()
		return common.CatalogError("compute_restore_list", err)
	}

	if sess.Cat.Dialect().Tag() == catalog.MySQL {
		if _, err := sess.Cat.Exec(ctx, fmt.Sprintf("CREATE INDEX idx_%s_jobid ON %s (jobid)", table, table)); err != nil {
			cleanup()
			return common.CatalogError("compute_restore_list", err)
		}
	}

	if _, err := sess.Cat.Exec(ctx, "DROP TABLE IF EXISTS "+scratch); err != nil {
		return common.CatalogError("compute_restore_list", err)
	}

	return nil
}

// createScratchTable retries on transient lock contention: concurrent
// restore-list computations use distinct b2<digits> table names but can
// still collide on a shared sqlite/mysql table-creation lock.
func createScratchTable(ctx context.Context, sess *Session, scratch string) error {
	query := fmt.Sprintf(`
		CREATE TABLE %s (
			jobid INTEGER NOT NULL,
			jobtdate INTEGER NOT NULL,
			fileindex INTEGER NOT NULL,
			name TEXT NOT NULL,
			pathid INTEGER NOT NULL,
			fileid INTEGER NOT NULL
		)`, scratch)
	return util.Retry(ctx, func() error {
		_, err := sess.Cat.Exec(ctx, query)
		return err
	}, util.CatalogRetryOptions(ctx)...)
}

// insertFileSelection adds selection (1): individual files named by id.
func insertFileSelection(ctx context.Context, sess *Session, scratch string, fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}
	d := sess.Cat.Dialect()
	p := newPlaceholderSeq(d)
	idsPh := p.bindIn(fileIDs)

	query := fmt.Sprintf(`
		INSERT INTO %s (jobid, jobtdate, fileindex, name, pathid, fileid)
		SELECT f.jobid, j.jobtdate, f.fileindex, f.name, f.pathid, f.fileid
		FROM file f
		JOIN job j ON j.jobid = f.jobid
		WHERE f.fileid IN (%s)`, scratch, idsPh)
	_, err := sess.Cat.Exec(ctx, query, p.args...)
	return err
}

// insertDirectorySelection adds selection (2): every file (direct or
// base-job inherited) whose Path starts with a selected directory's Path.
func insertDirectorySelection(ctx context.Context, sess *Session, scratch string, dirIDs []int64) error {
	if len(dirIDs) == 0 {
		return nil
	}
	d := sess.Cat.Dialect()

	for _, dirID := range dirIDs {
		var path string
		row := sess.Cat.QueryRow(ctx, fmt.Sprintf("SELECT path FROM path WHERE pathid = %s", d.Placeholder(1)), dirID)
		if err := row.Scan(&path); err != nil {
			return fmt.Errorf("resolve dirId %d: %w", dirID, err)
		}

		likePattern := d.EscapeLike(path) + "%"

		p := newPlaceholderSeq(d)
		likePh := p.bind(likePattern)
		jobsPh := p.bindIn(sess.JobIds)
		directQuery := fmt.Sprintf(`
			INSERT INTO %s (jobid, jobtdate, fileindex, name, pathid, fileid)
			SELECT f.jobid, j.jobtdate, f.fileindex, f.name, f.pathid, f.fileid
			FROM file f
			JOIN job j ON j.jobid = f.jobid
			JOIN path pt ON pt.pathid = f.pathid
			WHERE pt.path LIKE %s ESCAPE '\' AND f.jobid IN (%s)`, scratch, likePh, jobsPh)
		if _, err := sess.Cat.Exec(ctx, directQuery, p.args...); err != nil {
			return err
		}

		pb := newPlaceholderSeq(d)
		likePh2 := pb.bind(likePattern)
		jobsPh2 := pb.bindIn(sess.JobIds)
		baseQuery := fmt.Sprintf(`
			INSERT INTO %s (jobid, jobtdate, fileindex, name, pathid, fileid)
			SELECT b.jobid, j.jobtdate, f.fileindex, f.name, f.pathid, f.fileid
			FROM basefiles b
			JOIN file f ON f.fileid = b.fileid
			JOIN job j ON j.jobid = b.jobid
			JOIN path pt ON pt.pathid = f.pathid
			WHERE pt.path LIKE %s ESCAPE '\' AND b.jobid IN (%s)`, scratch, likePh2, jobsPh2)
		if _, err := sess.Cat.Exec(ctx, baseQuery, pb.args...); err != nil {
			return err
		}
	}
	return nil
}

// insertHardlinkSelection adds selection (3): (jobId, fileIndex) pairs,
// coalesced by JobId so each job contributes one IN-list query.
func insertHardlinkSelection(ctx context.Context, sess *Session, scratch string, pairs []HardlinkPair) error {
	if len(pairs) == 0 {
		return nil
	}
	d := sess.Cat.Dialect()

	byJob := make(map[int64][]int64)
	var order []int64
	for _, pr := range pairs {
		if _, seen := byJob[pr.JobId]; !seen {
			order = append(order, pr.JobId)
		}
		byJob[pr.JobId] = append(byJob[pr.JobId], pr.FileIndex)
	}

	for _, jobID := range order {
		indices := byJob[jobID]
		p := newPlaceholderSeq(d)
		jobPh := p.bind(jobID)
		idxPh := p.bindIn(indices)
		query := fmt.Sprintf(`
			INSERT INTO %s (jobid, jobtdate, fileindex, name, pathid, fileid)
			SELECT f.jobid, j.jobtdate, f.fileindex, f.name, f.pathid, f.fileid
			FROM file f
			JOIN job j ON j.jobid = f.jobid
			WHERE f.jobid = %s AND f.fileindex IN (%s)`, scratch, jobPh, idxPh)
		if _, err := sess.Cat.Exec(ctx, query, p.args...); err != nil {
			return err
		}
	}
	return nil
}

// materialiseApex enforces the restore-list-uniqueness invariant: at most
// one row per (PathId, Name), the row with the maximum JobTDate among
// btemp<T>'s candidates.
func materialiseApex(ctx context.Context, sess *Session, scratch, table string) error {
	query := fmt.Sprintf(`
		CREATE TABLE %s AS
		SELECT s.jobid, s.jobtdate, s.fileindex, s.name, s.pathid, s.fileid
		FROM %s s
		JOIN (
			SELECT pathid, name, MAX(jobtdate) AS jobtdate
			FROM %s
			GROUP BY pathid, name
		) apex ON apex.pathid = s.pathid AND apex.name = s.name AND apex.jobtdate = s.jobtdate`,
		table, scratch, scratch)
	_, err := sess.Cat.Exec(ctx, query)
	return err
}
