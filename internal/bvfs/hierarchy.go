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
)

// BuildPathHierarchy walks pathID's ancestors upward, inserting missing
// (PathId, PPathId) edges, until it meets an ancestor already
// materialised in PathHierarchy or already known to cache.
//
// Postcondition on success: every ancestor of pathID up to the first
// ancestor already in PathHierarchy has a PathHierarchy row, and every
// such ancestor is present in cache.
//
// The cache insert precedes the PathHierarchy insert so a retry
// following a transient failure still treats the path as present within
// the batch, avoiding duplicate-key storms.
//
// This acquires sess's session lock for the duration of the walk. Called
// standalone, it is one BVFS operation; RefreshJob instead calls the
// unexported buildPathHierarchy directly, since it already holds the
// lock for the whole refresh.
func BuildPathHierarchy(ctx context.Context, sess *catalog.Session, cache *PathIdCache, pathID int64, path string) error {
	sess.Lock()
	defer sess.Unlock()
	return buildPathHierarchy(ctx, sess, cache, pathID, path)
}

func buildPathHierarchy(ctx context.Context, sess *catalog.Session, cache *PathIdCache, pathID int64, path string) error {
	pid := pathID
	p := path

	for p != "" {
		if err := ctx.Err(); err != nil {
			return err
		}

		if cache.Contains(pid) {
			return nil
		}

		ppid, found, err := lookupPPathId(ctx, sess, pid)
		if err != nil {
			return common.CatalogError("build_path_hierarchy", err)
		}
		if found {
			// Catalog hit: the hierarchy/visibility closure guarantees the
			// chain above pid is already present.
			cache.Insert(pid)
			return nil
		}

		parentPath := Parent(p)
		ppid, err = sess.CreatePathRecord(ctx, parentPath)
		if err != nil {
			return common.CatalogError("build_path_hierarchy", fmt.Errorf("upsert path %q: %w", parentPath, err))
		}

		cache.Insert(pid)

		if _, err := sess.Exec(ctx, insertPathHierarchyQuery(sess), pid, ppid); err != nil {
			return common.CatalogError("build_path_hierarchy", fmt.Errorf("insert hierarchy edge (%d -> %d): %w", pid, ppid, err))
		}

		log.WithFields(log.Fields{
			"component": "bvfs.hierarchy",
			"path_id":   pid,
			"ppath_id":  ppid,
		}).Debug("inserted path hierarchy edge")

		pid = ppid
		p = parentPath
	}

	return nil
}

func lookupPPathId(ctx context.Context, sess *catalog.Session, pathID int64) (ppid int64, found bool, err error) {
	row := sess.QueryRow(ctx, selectPPathIdQuery(sess), pathID)
	err = row.Scan(&ppid)
	switch {
	case err == nil:
		return ppid, true, nil
	case err == sql.ErrNoRows:
		return 0, false, nil
	default:
		return 0, false, err
	}
}

func selectPPathIdQuery(sess *catalog.Session) string {
	return fmt.Sprintf("SELECT ppathid FROM pathhierarchy WHERE pathid = %s", sess.Dialect().Placeholder(1))
}

func insertPathHierarchyQuery(sess *catalog.Session) string {
	d := sess.Dialect()
	return fmt.Sprintf(
		"INSERT INTO pathhierarchy(pathid, ppathid) VALUES(%s, %s)",
		d.Placeholder(1), d.Placeholder(2))
}
