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

	"bvfs/internal/catalog"
	"bvfs/internal/common"
)

// LsDirs lists the directly-contained child directories of session.PwdId
// under session.JobIds, up to session.Limit rows starting at
// session.Offset. hasMore is true iff exactly Limit rows were returned.
//
// The same directory can legitimately appear once per contributing job;
// LsDirs emits only the first occurrence of each path in the ordered
// stream, so no two consecutive rows ever share the same Path.
func LsDirs(ctx context.Context, sess *Session, sink RowSink[DirRow]) (hasMore bool, err error) {
	sess.Cat.Lock()
	defer sess.Cat.Unlock()

	if len(sess.JobIds) == 0 {
		return false, common.InvalidArgument("ls_dirs", "session has no jobIds scoped")
	}
	sess.resetDedup()

	d := sess.Cat.Dialect()
	p := newPlaceholderSeq(d)

	// Bind in exactly the order the placeholders appear in the query
	// text below: jobid IN-list (inside the JOIN), then pwdId (WHERE),
	// then limit/offset.
	jobsPh := p.bindIn(sess.JobIds)
	pwdPh := p.bind(sess.PwdId)
	limitPh, offsetPh := p.bind(sess.limit()), p.bind(sess.Offset)

	query := fmt.Sprintf(`
		SELECT p.pathid, p.path, pv.jobid, f.lstat, f.fileid
		FROM pathhierarchy ph
		JOIN path p ON p.pathid = ph.pathid
		JOIN pathvisibility pv ON pv.pathid = ph.pathid AND pv.jobid IN (%s)
		LEFT JOIN file f ON f.pathid = ph.pathid AND f.jobid = pv.jobid AND f.name = ''
		WHERE ph.ppathid = %s
		ORDER BY p.path, pv.jobid DESC
		LIMIT %s OFFSET %s`,
		jobsPh, pwdPh, limitPh, offsetPh)

	count := 0
	scanErr := sess.Cat.Each(ctx, func(r *sql.Rows) (bool, error) {
		var row DirRow
		row.Type = "D"
		if err := r.Scan(&row.PathId, &row.Path, &row.JobId, &row.LStat, &row.FileId); err != nil {
			return true, err
		}

		if row.Path == sess.prevDir {
			return false, nil
		}
		sess.prevDir = row.Path
		count++

		return sink(row), nil
	}, query, p.args...)
	if scanErr != nil {
		return false, common.CatalogError("ls_dirs", scanErr)
	}

	return count == sess.limit(), nil
}

// LsSpecialDirs emits the two synthetic "." and ".." rows for
// session.PwdId. ".." at root emits nothing.
func LsSpecialDirs(ctx context.Context, sess *Session, sink RowSink[DirRow]) error {
	sess.Cat.Lock()
	defer sess.Cat.Unlock()

	if len(sess.JobIds) == 0 {
		return common.InvalidArgument("ls_special_dirs", "session has no jobIds scoped")
	}

	cur, err := lookupSpecialDir(ctx, sess, sess.PwdId)
	if err != nil {
		return err
	}
	if cur != nil {
		cur.Path = "."
		if sink(*cur) {
			return nil
		}
	}

	d := sess.Cat.Dialect()
	var parentID int64
	row := sess.Cat.QueryRow(ctx, fmt.Sprintf("SELECT ppathid FROM pathhierarchy WHERE pathid = %s", d.Placeholder(1)), sess.PwdId)
	if err := row.Scan(&parentID); err != nil {
		if err == sql.ErrNoRows {
			return nil // pwd has no parent recorded: it's root or root-adjacent
		}
		return common.CatalogError("ls_special_dirs", err)
	}

	parent, err := lookupSpecialDir(ctx, sess, parentID)
	if err != nil {
		return err
	}
	if parent != nil {
		parent.Path = ".."
		sink(*parent)
	}
	return nil
}

// lookupSpecialDir fetches the single DirRow for pathID across
// session.JobIds (highest JobId wins), or nil if pathID isn't visible to
// any of them.
func lookupSpecialDir(ctx context.Context, sess *Session, pathID int64) (*DirRow, error) {
	d := sess.Cat.Dialect()
	p := newPlaceholderSeq(d)

	jobsPh := p.bindIn(sess.JobIds)
	pathPh := p.bind(pathID)
	limitPh := p.bind(1)

	query := fmt.Sprintf(`
		SELECT p.pathid, p.path, pv.jobid, f.lstat, f.fileid
		FROM path p
		JOIN pathvisibility pv ON pv.pathid = p.pathid AND pv.jobid IN (%s)
		LEFT JOIN file f ON f.pathid = p.pathid AND f.jobid = pv.jobid AND f.name = ''
		WHERE p.pathid = %s
		ORDER BY pv.jobid DESC
		LIMIT %s`, jobsPh, pathPh, limitPh)

	var row DirRow
	row.Type = "D"
	found := false
	err := sess.Cat.Each(ctx, func(r *sql.Rows) (bool, error) {
		if err := r.Scan(&row.PathId, &row.Path, &row.JobId, &row.LStat, &row.FileId); err != nil {
			return true, err
		}
		found = true
		return true, nil
	}, query, p.args...)
	if err != nil {
		return nil, common.CatalogError("ls_special_dirs", err)
	}
	if !found {
		return nil, nil
	}
	return &row, nil
}

func idsToArgs(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// buildInClause returns a "?,?,?" (or "$2,$3,$4"-style) placeholder list
// for n values starting at 1-based positional index start, and the next
// free index after it.
func buildInClause(d catalog.Dialect, start, n int) (clause string, next int) {
	if n == 0 {
		return "NULL", start
	}
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ", "
		}
		out += d.Placeholder(start + i)
	}
	return out, start + n
}
