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

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/go-libsql"
)

// RowFunc consumes one row of a streamed query result. Returning
// stop=true ends the stream early as a lazy finite sequence of rows
// until the listener signals stop; returning a non-nil error aborts the
// stream and propagates as a CatalogError.
type RowFunc func(rows *sql.Rows) (stop bool, err error)

// Session is the catalog interface BVFS consumes: a parameterised-
// query-with-row-callback executor, scalar affected-rows, dialect-aware
// escaping, a declared dialect tag, transaction scoping, and
// create_path_record. It wraps a Bun handle so the typed model layer
// (catalog.*Model) and the raw, textually-composed SQL the hot paths
// need share one connection/transaction.
//
// The mutex models the catalog session object being single-threaded:
// callers acquire it with Lock/Unlock around the entirety of one BVFS
// operation. It is shared across Begin/Commit/Rollback so a transaction
// scope never looks like a second session.
type Session struct {
	idb     bun.IDB
	root    *bun.DB
	dialect Dialect
	mu      *sync.Mutex
}

// Open opens a catalog connection for tag against dsn and wraps it in a
// Session. The caller owns the returned Session's lifetime; Close
// releases the underlying *sql.DB.
func Open(tag Tag, dsn string) (*Session, error) {
	dialect, err := NewDialect(tag)
	if err != nil {
		return nil, err
	}

	driverName, bunDialect, err := driverFor(tag)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", tag, err)
	}

	db := bun.NewDB(sqlDB, bunDialect)
	return &Session{idb: db, root: db, dialect: dialect, mu: &sync.Mutex{}}, nil
}

func driverFor(tag Tag) (string, schema.Dialect, error) {
	switch tag {
	case Sqlite:
		return "libsql", sqlitedialect.New(), nil
	case MySQL:
		return "mysql", mysqldialect.New(), nil
	case Postgres:
		return "pgx", pgdialect.New(), nil
	case Ingres, Generic:
		// No Go driver exists for Ingres in bvfs's dependency set; a
		// generic deployment is expected to configure sqlite or postgres
		// and only use the Generic/Ingres tag for dialect behaviour
		// (escaping, truncate-vs-delete), not for connection driving.
		return "", nil, fmt.Errorf("catalog: %s has no registered sql.Driver, open sqlite or postgres instead", tag)
	default:
		return "", nil, fmt.Errorf("catalog: unknown dialect tag %q", tag)
	}
}

// Close releases the underlying database connection.
func (s *Session) Close() error {
	if s.root == nil {
		return nil
	}
	return s.root.Close()
}

// Dialect returns the dialect capability this Session was opened with.
func (s *Session) Dialect() Dialect { return s.dialect }

// SetBusyTimeout configures how long a write waits on a lock held by
// another session before giving up: PRAGMA busy_timeout on sqlite,
// innodb_lock_wait_timeout on mysql, lock_timeout on postgres. go-libsql
// ignores DSN-based _pragma parameters, so this must run as an explicit
// statement against the open connection rather than be folded into the
// DSN at Open time.
func (s *Session) SetBusyTimeout(ctx context.Context, ms int) error {
	switch s.dialect.Tag() {
	case Sqlite:
		// libsql returns rows for PRAGMA statements; drain and close them.
		rows, err := s.idb.QueryContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
		if err != nil {
			return err
		}
		return rows.Close()
	case MySQL:
		_, err := s.idb.ExecContext(ctx, fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", max(1, ms/1000)))
		return err
	case Postgres:
		_, err := s.idb.ExecContext(ctx, fmt.Sprintf("SET lock_timeout = %d", ms))
		return err
	default:
		return nil
	}
}

// Lock acquires the session mutex for the duration of one BVFS operation.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session mutex.
func (s *Session) Unlock() { s.mu.Unlock() }

// Query runs query and returns its result rows; the caller must close
// them. Each is the row-callback form.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.idb.QueryContext(ctx, query, args...)
}

// Each runs query and invokes fn once per row, honouring fn's stop signal.
func (s *Session) Each(ctx context.Context, fn RowFunc, query string, args ...any) error {
	rows, err := s.idb.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		stop, err := fn(rows)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return rows.Err()
}

// Exec runs query and returns the number of affected rows.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.idb.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExecContext satisfies catalog.Execer for Dialect.TruncateOrDeleteAll.
func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.idb.ExecContext(ctx, query, args...)
}

// QueryRow runs query and returns a single row.
func (s *Session) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.idb.QueryRowContext(ctx, query, args...)
}

// Bun exposes the underlying typed query builder for queries against the
// catalog.*Model structs. The bvfs package does not call it: its reads
// and writes, including Job.HasCache transitions, are raw SQL.
func (s *Session) Bun() bun.IDB { return s.idb }

// InTx reports whether this Session wraps an open transaction.
func (s *Session) InTx() bool {
	_, ok := s.idb.(bun.Tx)
	return ok
}

// Begin starts a transaction and returns a Session scoped to it. The
// returned Session shares this Session's mutex: Begin/Commit/Rollback
// never release/reacquire it, so retries and transaction scopes stay
// inside one mutex hold.
func (s *Session) Begin(ctx context.Context) (*Session, error) {
	tx, err := s.root.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Session{idb: tx, root: s.root, dialect: s.dialect, mu: s.mu}, nil
}

// Commit commits the transaction this Session wraps.
func (s *Session) Commit() error {
	tx, ok := s.idb.(bun.Tx)
	if !ok {
		return fmt.Errorf("catalog: Commit called on a non-transaction Session")
	}
	return tx.Commit()
}

// Rollback rolls back the transaction this Session wraps.
func (s *Session) Rollback() error {
	tx, ok := s.idb.(bun.Tx)
	if !ok {
		return fmt.Errorf("catalog: Rollback called on a non-transaction Session")
	}
	return tx.Rollback()
}

// CreatePathRecord upserts a Path row for path and returns its PathId.
// sqlite and postgres support INSERT ... ON CONFLICT ... RETURNING;
// mysql has no RETURNING clause, so it uses the LAST_INSERT_ID(pathid)
// trick on ON DUPLICATE KEY UPDATE. Ingres/generic fall back to a
// select-or-insert sequence, which is race-prone under true concurrency
// but matches the dialect's lowest common feature set.
func (s *Session) CreatePathRecord(ctx context.Context, path string) (int64, error) {
	switch s.dialect.Tag() {
	case Sqlite, Postgres:
		ph1, ph2 := s.dialect.Placeholder(1), s.dialect.Placeholder(2)
		query := fmt.Sprintf(
			`INSERT INTO path(path) VALUES(%s) ON CONFLICT(path) DO UPDATE SET path = %s RETURNING pathid`,
			ph1, ph2)
		var pathID int64
		err := s.idb.QueryRowContext(ctx, query, path, path).Scan(&pathID)
		return pathID, err
	case MySQL:
		query := `INSERT INTO path(path) VALUES(?) ON DUPLICATE KEY UPDATE pathid = LAST_INSERT_ID(pathid)`
		res, err := s.idb.ExecContext(ctx, query, path)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	default:
		return s.selectOrInsertPath(ctx, path)
	}
}

func (s *Session) selectOrInsertPath(ctx context.Context, path string) (int64, error) {
	var pathID int64
	err := s.idb.QueryRowContext(ctx, `SELECT pathid FROM path WHERE path = ?`, path).Scan(&pathID)
	if err == nil {
		return pathID, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := s.idb.ExecContext(ctx, `INSERT INTO path(path) VALUES(?)`, path)
	if err != nil {
		// Lost the race to a concurrent insert; read back the winner.
		if err2 := s.idb.QueryRowContext(ctx, `SELECT pathid FROM path WHERE path = ?`, path).Scan(&pathID); err2 == nil {
			return pathID, nil
		}
		return 0, err
	}
	return res.LastInsertId()
}
