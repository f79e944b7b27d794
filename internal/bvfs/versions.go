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

// GetAllFileVersions lists every catalogued version of (pathID, fname,
// client) across jobs. SeeCopies controls whether Job.Type = Copy
// contributes; SeeAllVersions controls whether versions superseded by a
// later job for the same client are still emitted. Pagination follows
// session.Limit/Offset. hasMore is true iff exactly Limit rows were
// returned.
func GetAllFileVersions(ctx context.Context, sess *Session, pathID int64, fname, client string, sink RowSink[VersionRow]) (hasMore bool, err error) {
	sess.Cat.Lock()
	defer sess.Cat.Unlock()

	d := sess.Cat.Dialect()
	p := newPlaceholderSeq(d)

	pathPh := p.bind(pathID)
	namePh := p.bind(fname)
	clientPh := p.bind(client)

	// Bound after path/name/client so placeholder order matches the
	// order these clauses appear in the query text below.
	var typeFilter string
	if sess.SeeCopies {
		typeFilter = fmt.Sprintf("j.type IN (%s, %s)", p.bind(string(catalog.JobTypeBackup)), p.bind(string(catalog.JobTypeCopy)))
	} else {
		typeFilter = "j.type = " + p.bind(string(catalog.JobTypeBackup))
	}

	supersededFilter := ""
	if !sess.SeeAllVersions {
		supersededFilter = `
		AND NOT EXISTS (
			SELECT 1 FROM file f2
			JOIN job j2 ON j2.jobid = f2.jobid
			WHERE f2.pathid = f.pathid AND f2.name = f.name AND j2.clientname = j.clientname
			AND j2.jobtdate > j.jobtdate
		)`
	}

	limitPh, offsetPh := p.bind(sess.limit()), p.bind(sess.Offset)

	query := fmt.Sprintf(`
		SELECT f.jobid, f.fileid, j.jobtdate, f.lstat, f.md5
		FROM file f
		JOIN job j ON j.jobid = f.jobid
		WHERE f.pathid = %s AND f.name = %s AND j.clientname = %s AND %s%s
		ORDER BY j.jobtdate DESC
		LIMIT %s OFFSET %s`,
		pathPh, namePh, clientPh, typeFilter, supersededFilter, limitPh, offsetPh)

	count := 0
	scanErr := sess.Cat.Each(ctx, func(r *sql.Rows) (bool, error) {
		var row VersionRow
		if err := r.Scan(&row.JobId, &row.FileId, &row.JobTDate, &row.LStat, &row.Md5); err != nil {
			return true, err
		}
		count++
		return sink(row), nil
	}, query, p.args...)
	if scanErr != nil {
		return false, common.CatalogError("get_all_file_versions", scanErr)
	}

	return count == sess.limit(), nil
}
