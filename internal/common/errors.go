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

// Package common holds the error taxonomy shared by every bvfs package.
package common

import (
	"errors"
	"fmt"
)

// Kind classifies the error kinds bvfs operations can return.
type Kind int

const (
	// KindCatalog marks an I/O or SQL failure against the catalog.
	KindCatalog Kind = iota
	// KindInvalidArgument marks a caller contract violation (malformed id
	// list, bad table name, missing selection).
	KindInvalidArgument
	// KindBusy marks a job already being refreshed by another session.
	KindBusy
	// KindNotFound marks a path/selection that does not resolve.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindCatalog:
		return "catalog"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindBusy:
		return "busy"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every bvfs operation.
// It carries the operation name (for logging) and the offending Kind so
// callers can branch with errors.Is/errors.As instead of string matching.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, common.ErrBusy) style checks work against wrapped errors.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Sentinels for errors.Is comparisons where only the Kind matters.
var (
	ErrBusy            = &Error{Kind: KindBusy}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrCatalog         = &Error{Kind: KindCatalog}
)

// CatalogError wraps a catalog I/O/SQL failure encountered during op.
func CatalogError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: KindCatalog, Err: err}
}

// InvalidArgument reports a malformed caller input encountered during op.
func InvalidArgument(op string, format string, args ...any) error {
	return &Error{Op: op, Kind: KindInvalidArgument, Err: fmt.Errorf(format, args...)}
}

// BusyError reports that jobID is already being refreshed.
func BusyError(op string, jobID int64) error {
	return &Error{Op: op, Kind: KindBusy, Err: fmt.Errorf("job %d is already being refreshed", jobID)}
}

// NotFoundError reports that the requested entity does not resolve.
func NotFoundError(op string, format string, args ...any) error {
	return &Error{Op: op, Kind: KindNotFound, Err: fmt.Errorf(format, args...)}
}

// IsBusy reports whether err is (or wraps) a KindBusy error.
func IsBusy(err error) bool { return hasKind(err, KindBusy) }

// IsInvalidArgument reports whether err is (or wraps) a KindInvalidArgument error.
func IsInvalidArgument(err error) bool { return hasKind(err, KindInvalidArgument) }

// IsNotFound reports whether err is (or wraps) a KindNotFound error.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsCatalog reports whether err is (or wraps) a KindCatalog error.
func IsCatalog(err error) bool { return hasKind(err, KindCatalog) }

func hasKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
