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

// LsFiles lists the non-directory file leaves of session.PwdId visible
// to session.JobIds, folding base-job inheritance so a file overridden
// by a later job shadows the inherited base version. hasMore is true iff
// exactly Limit rows were returned.
//
// The composed query is dialect-neutral in structure but built through a
// placeholderSeq so Dialect.ListFilesArgOrder can move the optional name
// pattern's bind position relative to the job-id list without the query
// text and argument slice ever drifting apart.
func LsFiles(ctx context.Context, sess *Session, sink RowSink[FileRow]) (hasMore bool, err error) {
	sess.Cat.Lock()
	defer sess.Cat.Unlock()

	if len(sess.JobIds) == 0 {
		return false, common.InvalidArgument("ls_files", "session has no jobIds scoped")
	}

	query, args := buildLsFilesQuery(sess.Cat.Dialect(), sess)

	count := 0
	scanErr := sess.Cat.Each(ctx, func(r *sql.Rows) (bool, error) {
		var row FileRow
		row.Type = "F"
		if err := r.Scan(&row.PathId, &row.Name, &row.JobId, &row.LStat, &row.FileId, &row.FileIndex); err != nil {
			return true, err
		}
		count++
		return sink(row), nil
	}, query, args...)
	if scanErr != nil {
		return false, common.CatalogError("ls_files", scanErr)
	}

	return count == sess.limit(), nil
}

// placeholderSeq hands out sequential 1-based dialect placeholders and
// records the argument bound to each in lockstep, so a query built by
// repeated calls to bind()/bindIn() can never drift out of sync with its
// own argument slice.
type placeholderSeq struct {
	d    catalog.Dialect
	n    int
	args []any
}

func newPlaceholderSeq(d catalog.Dialect) *placeholderSeq { return &placeholderSeq{d: d} }

func (p *placeholderSeq) bind(arg any) string {
	p.n++
	p.args = append(p.args, arg)
	return p.d.Placeholder(p.n)
}

func (p *placeholderSeq) bindIn(ids []int64) string {
	ph, _ := buildInClause(p.d, p.n+1, len(ids))
	for _, id := range ids {
		p.n++
		p.args = append(p.args, id)
	}
	return ph
}

// buildLsFilesQuery composes the union of direct-job files and
// base-job-inherited files for session.PwdId, keyed to the same
// (PathId, Name) shadowing rule: a direct row for this job's File always
// wins over an inherited BaseFiles row, expressed by excluding any
// inherited row whose (PathId, Name) already has a direct row.
func buildLsFilesQuery(d catalog.Dialect, sess *Session) (string, []any) {
	p := newPlaceholderSeq(d)
	pageThenPattern := d.ListFilesArgOrder() == catalog.PageThenPattern

	// pattern/jobs clause order within each WHERE is the one thing
	// Dialect.ListFilesArgOrder is allowed to move. The branch below
	// builds the literal clause text and binds its placeholder(s) in the
	// same statement, in the order they end up appearing in that text, so
	// the argument slice can never drift from a "?"-style dialect's
	// left-to-right positional binding.
	whereTail := func(jobCol string, jobs []int64) string {
		if pageThenPattern {
			clause := fmt.Sprintf("AND %s IN (%s)", jobCol, p.bindIn(jobs))
			if sess.Pattern != "" {
				clause += fmt.Sprintf(" AND f.name LIKE %s", p.bind(sess.Pattern))
			}
			return clause
		}
		clause := ""
		if sess.Pattern != "" {
			clause = fmt.Sprintf("AND f.name LIKE %s ", p.bind(sess.Pattern))
		}
		return clause + fmt.Sprintf("AND %s IN (%s)", jobCol, p.bindIn(jobs))
	}

	directPwd := p.bind(sess.PwdId)
	direct := fmt.Sprintf(`
		SELECT f.pathid, f.name, f.jobid, f.lstat, f.fileid, f.fileindex
		FROM file f
		WHERE f.pathid = %s %s AND f.name <> ''`,
		directPwd, whereTail("f.jobid", sess.JobIds))

	basePwd := p.bind(sess.PwdId)
	baseTail := whereTail("b.jobid", sess.JobIds)
	excludeJobsPh := p.bindIn(sess.JobIds)
	inherited := fmt.Sprintf(`
		SELECT f.pathid, f.name, f.jobid, f.lstat, f.fileid, f.fileindex
		FROM basefiles b
		JOIN file f ON f.fileid = b.fileid
		WHERE f.pathid = %s %s AND f.name <> ''
		AND NOT EXISTS (
			SELECT 1 FROM file f2
			WHERE f2.pathid = f.pathid AND f2.name = f.name AND f2.jobid IN (%s)
		)`, basePwd, baseTail, excludeJobsPh)

	limitPh, offsetPh := p.bind(sess.limit()), p.bind(sess.Offset)

	query := fmt.Sprintf(`
		SELECT pathid, name, jobid, lstat, fileid, fileindex FROM (
			%s
			UNION ALL
			%s
		) AS files
		ORDER BY name, jobid DESC
		LIMIT %s OFFSET %s`, direct, inherited, limitPh, offsetPh)

	return query, p.args
}
