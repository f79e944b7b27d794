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

import "github.com/uptrace/bun"

// Bun ORM models mirroring the catalog entities BVFS treats as external:
// owned by the catalog, BVFS only reads/writes rows. They are available
// for typed queries through Session.Bun; the bvfs package itself issues
// all of its reads and writes as raw SQL through Session.

// JobType enumerates the Job.Type values BVFS cares about.
type JobType string

const (
	JobTypeBackup JobType = "Backup"
	JobTypeCopy   JobType = "Copy"
)

// HasCache values for Job.HasCache: the cache-refresh state machine.
const (
	HasCacheNone       = 0
	HasCacheInProgress = -1
	HasCacheReady      = 1
)

// JobModel represents the Job table.
type JobModel struct {
	bun.BaseModel `bun:"table:job,alias:job"`

	JobId      int64   `bun:"jobid,pk"`
	Type       JobType `bun:"type,notnull"`
	JobStatus  string  `bun:"jobstatus,notnull"`
	JobTDate   int64   `bun:"jobtdate,notnull"`
	HasCache   int     `bun:"hascache,notnull"`
	ClientName string  `bun:"clientname,notnull"`
}

// PathModel represents the Path table. Root is the empty string.
type PathModel struct {
	bun.BaseModel `bun:"table:path,alias:path"`

	PathId int64  `bun:"pathid,pk,autoincrement"`
	Path   string `bun:"path,notnull,unique"`
}

// FileModel represents the File table. Name="" denotes the directory
// entry itself; a non-empty Name denotes a file leaf.
type FileModel struct {
	bun.BaseModel `bun:"table:file,alias:file"`

	FileId    int64  `bun:"fileid,pk,autoincrement"`
	JobId     int64  `bun:"jobid,notnull"`
	PathId    int64  `bun:"pathid,notnull"`
	Name      string `bun:"name,notnull"`
	FileIndex int64  `bun:"fileindex,notnull"`
	LStat     string `bun:"lstat"`
	Md5       string `bun:"md5"`
}

// PathHierarchyModel represents the PathHierarchy table: a functional
// edge from a path to its parent path, keyed by PathId.
type PathHierarchyModel struct {
	bun.BaseModel `bun:"table:pathhierarchy,alias:pathhierarchy"`

	PathId  int64 `bun:"pathid,pk"`
	PPathId int64 `bun:"ppathid,notnull"`
}

// PathVisibilityModel represents the PathVisibility table.
type PathVisibilityModel struct {
	bun.BaseModel `bun:"table:pathvisibility,alias:pathvisibility"`

	PathId int64 `bun:"pathid,pk"`
	JobId  int64 `bun:"jobid,pk"`
}

// BaseFilesModel represents the BaseFiles table: files a job inherits
// from an incremental base job.
type BaseFilesModel struct {
	bun.BaseModel `bun:"table:basefiles,alias:basefiles"`

	JobId     int64 `bun:"jobid,pk"`
	BaseJobId int64 `bun:"basejobid,notnull"`
	FileId    int64 `bun:"fileid,pk"`
	FileIndex int64 `bun:"fileindex,notnull"`
}
