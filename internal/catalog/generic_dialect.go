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

// genericDialect is the conservative fallback used for "generic" and for
// dialects bvfs has no driver for (Ingres). It assumes the lowest common
// denominator: "?" placeholders and DELETE FROM for a full wipe.
type genericDialect struct{ tag Tag }

func (d genericDialect) Tag() Tag                    { return d.tag }
func (genericDialect) Placeholder(int) string        { return questionPlaceholder(0) }
func (genericDialect) EscapeLike(s string) string    { return escapeLikeGeneric(s) }
func (genericDialect) ListFilesArgOrder() ArgOrder   { return PatternThenPage }

func (genericDialect) TruncateOrDeleteAll(ctx context.Context, db Execer, table string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM "+table)
	return err
}
