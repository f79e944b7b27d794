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

	log "github.com/sirupsen/logrus"

	"bvfs/internal/catalog"
	"bvfs/internal/common"
	"bvfs/internal/util"
)

// RefreshJob ensures the hierarchy/visibility closure holds for jobID and
// transitions Job.HasCache to 1. Idempotent and safe against concurrent
// invocation — the state machine is
//
//	0 --(claim)--> -1 --(finish)--> 1
//	1 --(noop)--> 1
//	-1 --(noop, returns Busy)--> -1
//
// A non-nil, non-Busy error leaves HasCache = -1: a recognised stuck
// state cleared by ClearCache or operator intervention.
//
// This acquires sess's session lock for the duration of the refresh.
// Called standalone, refreshing one job is one BVFS operation;
// RefreshBatch instead calls the unexported refreshJob directly per job,
// since it already holds the lock for the whole batch.
func RefreshJob(ctx context.Context, sess *catalog.Session, cache *PathIdCache, jobID int64) error {
	sess.Lock()
	defer sess.Unlock()
	return refreshJob(ctx, sess, cache, jobID)
}

func refreshJob(ctx context.Context, sess *catalog.Session, cache *PathIdCache, jobID int64) error {
	entry := log.WithFields(log.Fields{"component": "bvfs.visibility", "job_id": jobID})

	claimed, err := claimJob(ctx, sess, jobID)
	if err != nil {
		return common.CatalogError("update_path_hierarchy_cache", err)
	}
	switch claimed {
	case claimAlreadyReady:
		entry.Debug("job already cached, no work")
		return nil
	case claimBusy:
		entry.Debug("job is being refreshed by another session")
		return common.BusyError("update_path_hierarchy_cache", jobID)
	}

	// Step 3: populate PathVisibility from File and BaseFiles. Runs
	// outside the claim transaction — the claim's commit (step 2) is
	// what other refreshers must observe before this session starts
	// writing PathHierarchy/PathVisibility rows for this job.
	if err := populateVisibility(ctx, sess, jobID); err != nil {
		return common.CatalogError("update_path_hierarchy_cache", err)
	}

	// Step 4: paths visible to this job that have no PathHierarchy row yet.
	unhierarchised, err := unhierarchisedPaths(ctx, sess, jobID)
	if err != nil {
		return common.CatalogError("update_path_hierarchy_cache", err)
	}

	// Step 5: materialise the hierarchy for each, sharing cache.
	for _, row := range unhierarchised {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := buildPathHierarchy(ctx, sess, cache, row.PathId, row.Path); err != nil {
			return err
		}
	}

	// Steps 6-7: expand visibility to the closure and mark HasCache=1,
	// inside one transaction.
	tx, err := sess.Begin(ctx)
	if err != nil {
		return common.CatalogError("update_path_hierarchy_cache", err)
	}
	if err := expandVisibilityClosure(ctx, tx, jobID); err != nil {
		_ = tx.Rollback()
		return common.CatalogError("update_path_hierarchy_cache", err)
	}
	if _, err := tx.Exec(ctx, setHasCacheQuery(tx), catalog.HasCacheReady, jobID); err != nil {
		_ = tx.Rollback()
		return common.CatalogError("update_path_hierarchy_cache", err)
	}
	if err := tx.Commit(); err != nil {
		return common.CatalogError("update_path_hierarchy_cache", err)
	}

	entry.Info("refreshed path hierarchy cache")
	return nil
}

type claimResult int

const (
	claimAcquired claimResult = iota
	claimAlreadyReady
	claimBusy
)

// claimJob reads HasCache, and if it is 0, claims it with a conditional
// UPDATE guarded by WHERE hascache = 0 so a race with a concurrent
// claimant is resolved by the database, not by trusting the earlier
// SELECT. The claim-commit retries on transient lock/serialization
// errors from a concurrent writer on the same job row.
func claimJob(ctx context.Context, sess *catalog.Session, jobID int64) (claimResult, error) {
	return util.RetryWithResult(ctx, func() (claimResult, error) {
		return attemptClaim(ctx, sess, jobID)
	}, util.CatalogRetryOptions(ctx)...)
}

func attemptClaim(ctx context.Context, sess *catalog.Session, jobID int64) (claimResult, error) {
	tx, err := sess.Begin(ctx)
	if err != nil {
		return claimAcquired, err
	}

	var hasCache int
	row := tx.QueryRow(ctx, fmt.Sprintf("SELECT hascache FROM job WHERE jobid = %s", tx.Dialect().Placeholder(1)), jobID)
	if err := row.Scan(&hasCache); err != nil {
		_ = tx.Rollback()
		if err == sql.ErrNoRows {
			return claimAcquired, fmt.Errorf("job %d does not exist", jobID)
		}
		return claimAcquired, err
	}

	switch hasCache {
	case catalog.HasCacheReady:
		_ = tx.Commit()
		return claimAlreadyReady, nil
	case catalog.HasCacheInProgress:
		_ = tx.Commit()
		return claimBusy, nil
	}

	d := tx.Dialect()
	query := fmt.Sprintf(
		"UPDATE job SET hascache = %s WHERE jobid = %s AND hascache = %s",
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3))
	affected, err := tx.Exec(ctx, query, catalog.HasCacheInProgress, jobID, catalog.HasCacheNone)
	if err != nil {
		_ = tx.Rollback()
		return claimAcquired, err
	}
	if err := tx.Commit(); err != nil {
		return claimAcquired, err
	}
	if affected == 0 {
		// Lost the race: another session's claim landed first. Recurse
		// once to read the now-current state rather than assume Busy.
		return claimJob(ctx, sess, jobID)
	}
	return claimAcquired, nil
}

func setHasCacheQuery(sess *catalog.Session) string {
	d := sess.Dialect()
	return fmt.Sprintf("UPDATE job SET hascache = %s WHERE jobid = %s", d.Placeholder(1), d.Placeholder(2))
}

func populateVisibility(ctx context.Context, sess *catalog.Session, jobID int64) error {
	d := sess.Dialect()
	query := fmt.Sprintf(`
		INSERT INTO pathvisibility (pathid, jobid)
		SELECT DISTINCT pathid, jobid FROM (
			SELECT pathid, jobid FROM file WHERE jobid = %s
			UNION
			SELECT f.pathid, b.jobid
			FROM basefiles b
			JOIN file f ON f.fileid = b.fileid
			WHERE b.jobid = %s
		) AS visible
		WHERE NOT EXISTS (
			SELECT 1 FROM pathvisibility pv WHERE pv.pathid = visible.pathid AND pv.jobid = visible.jobid
		)`, d.Placeholder(1), d.Placeholder(2))
	_, err := sess.Exec(ctx, query, jobID, jobID)
	return err
}

// pathRow is one (PathId, Path) pair materialised from the catalog.
type pathRow struct {
	PathId int64
	Path   string
}

func unhierarchisedPaths(ctx context.Context, sess *catalog.Session, jobID int64) ([]pathRow, error) {
	d := sess.Dialect()
	query := fmt.Sprintf(`
		SELECT p.pathid, p.path
		FROM pathvisibility pv
		JOIN path p ON p.pathid = pv.pathid
		LEFT JOIN pathhierarchy ph ON ph.pathid = pv.pathid
		WHERE pv.jobid = %s AND ph.pathid IS NULL
		ORDER BY p.path`, d.Placeholder(1))

	var rows []pathRow
	err := sess.Each(ctx, func(r *sql.Rows) (bool, error) {
		var row pathRow
		if err := r.Scan(&row.PathId, &row.Path); err != nil {
			return true, err
		}
		rows = append(rows, row)
		return false, nil
	}, query, jobID)
	return rows, err
}

// expandVisibilityClosure repeatedly inserts (PPathId, JobId) for every
// already-visible path until the insert reports zero affected rows,
// reaching the visibility-closure fixed point. Termination is guaranteed
// because PathHierarchy is a forest (acyclic).
func expandVisibilityClosure(ctx context.Context, tx *catalog.Session, jobID int64) error {
	d := tx.Dialect()
	query := fmt.Sprintf(`
		INSERT INTO pathvisibility (pathid, jobid)
		SELECT DISTINCT ph.ppathid, %s
		FROM pathhierarchy ph
		JOIN pathvisibility pv ON pv.pathid = ph.pathid AND pv.jobid = %s
		WHERE NOT EXISTS (
			SELECT 1 FROM pathvisibility pv2 WHERE pv2.pathid = ph.ppathid AND pv2.jobid = %s
		)`, d.Placeholder(1), d.Placeholder(2), d.Placeholder(3))

	for {
		affected, err := tx.Exec(ctx, query, jobID, jobID, jobID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
	}
}
