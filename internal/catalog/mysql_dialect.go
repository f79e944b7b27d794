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

// mysqlDialect targets MySQL/MariaDB via go-sql-driver/mysql. MySQL
// supports a real TRUNCATE TABLE, which is faster than a row-by-row
// DELETE on the PathHierarchy/PathVisibility tables ClearCache empties.
type mysqlDialect struct{}

func (mysqlDialect) Tag() Tag                    { return MySQL }
func (mysqlDialect) Placeholder(int) string      { return questionPlaceholder(0) }
func (mysqlDialect) EscapeLike(s string) string  { return escapeLikeGeneric(s) }
func (mysqlDialect) ListFilesArgOrder() ArgOrder { return PageThenPattern }

func (mysqlDialect) TruncateOrDeleteAll(ctx context.Context, db Execer, table string) error {
	_, err := db.ExecContext(ctx, "TRUNCATE TABLE "+table)
	return err
}
