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

import "database/sql"

// DirRow is the directory row schema emitted to row sinks. LStat and
// FileId are nil when no directory File row exists for this path.
type DirRow struct {
	Type   string // always "D"
	PathId int64
	Path   string
	JobId  int64
	LStat  sql.NullString
	FileId sql.NullInt64
}

// FileRow is the file row schema emitted to row sinks.
type FileRow struct {
	Type      string // always "F"
	PathId    int64
	Name      string
	JobId     int64
	LStat     sql.NullString
	FileId    int64
	FileIndex int64
}

// VersionRow is the version row schema emitted by GetAllFileVersions.
// Fields beyond JobId/FileId/JobTDate/LStat are optional.
type VersionRow struct {
	JobId    int64
	FileId   int64
	JobTDate int64
	LStat    sql.NullString
	Md5      sql.NullString
	VolName  sql.NullString
}

// RowSink consumes one row of a listing. Returning stop=true ends the
// listing early, making it a lazy finite sequence of rows until the
// listener signals stop; cancellation flows back through this return
// value rather than a separate channel.
type RowSink[T any] func(row T) (stop bool)
