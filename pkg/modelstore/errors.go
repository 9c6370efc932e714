package modelstore

import (
	"errors"
	"fmt"
)

// Kind categorizes operation failures.
type Kind string

const (
	// KindSchema marks a table whose live definition cannot be reconciled
	// with its descriptor. The table stays unresolved and every dependent
	// operation fails until the conflict is corrected.
	KindSchema Kind = "SCHEMA"

	// KindQuery marks a malformed predicate fragment or a constraint
	// violation. Scoped to the failing operation.
	KindQuery Kind = "QUERY"

	// KindConnection marks an unavailable storage engine. Never retried.
	KindConnection Kind = "CONNECTION"

	// KindMisuse marks an operation rejected before submission, such as a
	// keyed read on a table whose primary key is not the single column "id".
	KindMisuse Kind = "MISUSE"
)

// Error is the failure type every operation reports through its completion.
type Error struct {
	Kind  Kind
	Table string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op, table string, err error) *Error {
	return &Error{Kind: kind, Table: table, Op: op, Err: err}
}

func errKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsSchemaError reports whether err is a schema reconciliation failure.
func IsSchemaError(err error) bool { return errKind(err, KindSchema) }

// IsQueryError reports whether err is a query-level failure.
func IsQueryError(err error) bool { return errKind(err, KindQuery) }

// IsConnectionError reports whether err is a storage-engine availability failure.
func IsConnectionError(err error) bool { return errKind(err, KindConnection) }

// IsMisuseError reports whether err is a contract violation caught before
// submission.
func IsMisuseError(err error) bool { return errKind(err, KindMisuse) }
