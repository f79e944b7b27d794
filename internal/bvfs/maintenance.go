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

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"bvfs/internal/catalog"
	"bvfs/internal/common"
	"bvfs/internal/util"
)

// terminatedJobStatuses are the JobStatus values eligible for a cache
// refresh: terminated, warning, finished-incomplete, archived.
var terminatedJobStatuses = []string{"T", "W", "f", "A"}

// RefreshBatch selects every Backup job with HasCache = 0 in a
// terminated status, ordered by JobId, and drives a refresh across them
// with one shared PathIdCache for the whole batch. Failures are
// collected per job rather than aborting the batch; one stuck job must
// not hide cache misses for the others.
//
// The batch as a whole is one BVFS operation, so the session lock is
// held across it; the per-job work below calls the unexported refreshJob
// directly rather than RefreshJob, which would try to reacquire the lock
// this function already holds.
func RefreshBatch(ctx context.Context, sess *catalog.Session) error {
	sess.Lock()
	defer sess.Unlock()

	jobIDs, err := util.RetryWithResult(ctx, func() ([]int64, error) {
		return eligibleJobs(ctx, sess)
	}, util.CatalogRetryOptions(ctx)...)
	if err != nil {
		return common.CatalogError("refresh_batch", err)
	}

	cache := NewPathIdCache()

	var result *multierror.Error
	for _, jobID := range jobIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := refreshJob(ctx, sess, cache, jobID); err != nil && !common.IsBusy(err) {
			result = multierror.Append(result, fmt.Errorf("job %d: %w", jobID, err))
		}
	}

	log.WithFields(log.Fields{
		"component":      "bvfs.maintenance",
		"jobs_in_batch":  len(jobIDs),
		"pathids_cached": cache.Len(),
	}).Info("refresh batch complete")

	return result.ErrorOrNil()
}

func eligibleJobs(ctx context.Context, sess *catalog.Session) ([]int64, error) {
	d := sess.Dialect()
	placeholders := make([]string, len(terminatedJobStatuses))
	args := make([]any, 0, len(terminatedJobStatuses)+1)
	args = append(args, catalog.JobTypeBackup)
	for i, status := range terminatedJobStatuses {
		placeholders[i] = d.Placeholder(i + 2)
		args = append(args, status)
	}

	query := fmt.Sprintf(`
		SELECT jobid FROM job
		WHERE type = %s AND hascache = 0 AND jobstatus IN (%s)
		ORDER BY jobid`, d.Placeholder(1), joinPlaceholders(placeholders))

	var ids []int64
	err := sess.Each(ctx, func(r *sql.Rows) (bool, error) {
		var id int64
		if err := r.Scan(&id); err != nil {
			return true, err
		}
		ids = append(ids, id)
		return false, nil
	}, query, args...)
	return ids, err
}

func joinPlaceholders(ps []string) string {
	out := ""
	for i, p := range ps {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// GC deletes PathVisibility rows whose JobId no longer exists in Job, in
// its own transaction, run after a refresh batch.
func GC(ctx context.Context, sess *catalog.Session) error {
	sess.Lock()
	defer sess.Unlock()

	tx, err := sess.Begin(ctx)
	if err != nil {
		return common.CatalogError("gc", err)
	}

	query := `DELETE FROM pathvisibility WHERE jobid NOT IN (SELECT jobid FROM job)`
	affected, err := tx.Exec(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return common.CatalogError("gc", err)
	}
	if err := tx.Commit(); err != nil {
		return common.CatalogError("gc", err)
	}

	log.WithFields(log.Fields{"component": "bvfs.maintenance", "rows_deleted": affected}).Info("gc complete")
	return nil
}

// ClearCache resets HasCache to 0 for every job and empties PathHierarchy
// and PathVisibility. The statement is the dialect's: sqlite has no
// TRUNCATE, so TruncateOrDeleteAll resolves to DELETE FROM there (and
// for generic/ingres) and to TRUNCATE on mysql/postgres.
func ClearCache(ctx context.Context, sess *catalog.Session) error {
	sess.Lock()
	defer sess.Unlock()

	tx, err := sess.Begin(ctx)
	if err != nil {
		return common.CatalogError("clear_cache", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE job SET hascache = 0`); err != nil {
		_ = tx.Rollback()
		return common.CatalogError("clear_cache", err)
	}
	if err := tx.Dialect().TruncateOrDeleteAll(ctx, tx, "pathhierarchy"); err != nil {
		_ = tx.Rollback()
		return common.CatalogError("clear_cache", err)
	}
	if err := tx.Dialect().TruncateOrDeleteAll(ctx, tx, "pathvisibility"); err != nil {
		_ = tx.Rollback()
		return common.CatalogError("clear_cache", err)
	}
	if err := tx.Commit(); err != nil {
		return common.CatalogError("clear_cache", err)
	}

	log.WithFields(log.Fields{"component": "bvfs.maintenance"}).Info("cleared path hierarchy and visibility caches")
	return nil
}
