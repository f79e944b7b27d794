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

import "context"

// sqliteDialect targets modern SQLite via the libsql driver. SQLite has
// no TRUNCATE statement, so "clear all" is a plain DELETE FROM.
type sqliteDialect struct{}

func (sqliteDialect) Tag() Tag                    { return Sqlite }
func (sqliteDialect) Placeholder(int) string      { return questionPlaceholder(0) }
func (sqliteDialect) EscapeLike(s string) string  { return escapeLikeGeneric(s) }
func (sqliteDialect) ListFilesArgOrder() ArgOrder { return PatternThenPage }

func (sqliteDialect) TruncateOrDeleteAll(ctx context.Context, db Execer, table string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM "+table)
	return err
}
