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

// postgresDialect targets PostgreSQL via pgx. Postgres binds positional
// arguments as $1, $2, ... rather than "?", and supports TRUNCATE.
type postgresDialect struct{}

func (postgresDialect) Tag() Tag                    { return Postgres }
func (postgresDialect) Placeholder(n int) string    { return dollarPlaceholder(n) }
func (postgresDialect) EscapeLike(s string) string  { return escapeLikeGeneric(s) }
func (postgresDialect) ListFilesArgOrder() ArgOrder { return PatternThenPage }

func (postgresDialect) TruncateOrDeleteAll(ctx context.Context, db Execer, table string) error {
	_, err := db.ExecContext(ctx, "TRUNCATE TABLE "+table)
	return err
}
