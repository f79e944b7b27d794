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

// Package catalog wires the relational store BVFS treats as an external
// collaborator: a thin session over Bun, plus one dialect-polymorphism
// seam that abstracts the handful of catalog behaviours that differ by
// database rather than scattering dialect branches through the listers.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Tag names the catalog dialect a Session was opened against.
type Tag string

const (
	Sqlite   Tag = "sqlite"
	MySQL    Tag = "mysql"
	Postgres Tag = "postgres"
	Ingres   Tag = "ingres"
	Generic  Tag = "generic"
)

// Dialect is the small set of database-specific behaviours BVFS needs:
// escape, truncate-or-delete-all, the argument order a composed listing
// query needs, and the positional placeholder syntax for textually-built
// SQL.
type Dialect interface {
	Tag() Tag

	// Placeholder returns the bind-parameter marker for the n-th
	// (1-based) positional argument in a query this dialect will execute.
	Placeholder(n int) string

	// EscapeLike escapes the LIKE metacharacters %, _ and \ in s so it can
	// be used as a literal prefix in a `LIKE '<escaped>%' ESCAPE '\'`
	// clause.
	EscapeLike(s string) string

	// TruncateOrDeleteAll empties table using whichever statement this
	// dialect supports for a full-table wipe.
	TruncateOrDeleteAll(ctx context.Context, db Execer, table string) error

	// ListFilesArgOrder reports the order of the two dialect-sensitive
	// filters in each WHERE clause of the composed file listing query:
	// the optional name pattern and the job-id list. LIMIT/OFFSET are
	// bound last in every dialect.
	ListFilesArgOrder() ArgOrder
}

// ArgOrder distinguishes the two argument orderings the composed file
// listing query can be built in, per dialect.
type ArgOrder int

const (
	// PatternThenPage binds the (optional) name pattern before the job-id list.
	PatternThenPage ArgOrder = iota
	// PageThenPattern binds the job-id list before the (optional) name pattern.
	PageThenPattern
)

// Execer is the minimal surface TruncateOrDeleteAll needs; satisfied by
// both *bun.DB and *bun.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewDialect returns the Dialect implementation for tag. Ingres has no Go
// driver represented anywhere in bvfs's dependency set; it is routed
// through the generic implementation, the fallback for dialects bvfs
// does not special-case.
func NewDialect(tag Tag) (Dialect, error) {
	switch tag {
	case Sqlite:
		return sqliteDialect{}, nil
	case MySQL:
		return mysqlDialect{}, nil
	case Postgres:
		return postgresDialect{}, nil
	case Ingres, Generic:
		return genericDialect{tag: tag}, nil
	default:
		return nil, fmt.Errorf("catalog: unknown dialect tag %q", tag)
	}
}

// escapeLikeGeneric implements ANSI-ish LIKE escaping shared by every
// dialect bvfs supports: backslash is the escape character, and %, _ and
// the backslash itself are escaped before the caller appends a trailing
// "%" wildcard.
func escapeLikeGeneric(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		switch r {
		case '\\', '%', '_':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// questionPlaceholder is shared by sqlite and mysql, which both bind
// positional arguments with a bare "?".
func questionPlaceholder(int) string { return "?" }

// dollarPlaceholder is postgres's $1, $2, ... convention.
func dollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }
