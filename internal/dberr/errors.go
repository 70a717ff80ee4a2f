// Package dberr defines the tagged error taxonomy shared by storage and the
// query executor.
package dberr

import (
	"errors"
	"fmt"
)

// Kind tags the category of a database error so callers can branch on it
// with errors.Is/errors.As instead of matching message strings.
type Kind string

const (
	KindNotImplemented          Kind = "not-implemented"
	KindDatabaseExists          Kind = "database-exists"
	KindDatabaseNotFound        Kind = "database-not-found"
	KindNoDatabaseSelected      Kind = "no-database-selected"
	KindTableExists             Kind = "table-exists"
	KindTableNotFound           Kind = "table-not-found"
	KindColumnNotFound          Kind = "column-not-found"
	KindConstraintNotFound      Kind = "constraint-not-found"
	KindInexactColumn           Kind = "inexact-column"
	KindIndexNotFound           Kind = "index-not-found"
	KindDuplicateColumn         Kind = "duplicate-column"
	KindDuplicateIndex          Kind = "duplicate-index"
	KindMultiplePrimaryKeys     Kind = "multiple-primary-keys"
	KindNoPrimaryKey            Kind = "no-primary-key"
	KindFieldCountMismatch      Kind = "field-count-mismatch"
	KindTypeMismatch            Kind = "type-mismatch"
	KindNotNullable             Kind = "not-nullable"
	KindFKTypeMismatch          Kind = "fk-type-mismatch"
	KindFKNotPrimaryKey         Kind = "fk-not-primary-key"
	KindDuplicateValue          Kind = "duplicate-value"
	KindReferencedColumnsNotPK  Kind = "referenced-columns-not-pk"
	KindReferencedFieldsNotExist Kind = "referenced-fields-not-exist"
	KindRowReferencedByFK       Kind = "row-referenced-by-fk"
	KindTableReferencedByFK     Kind = "table-referenced-by-fk"
	KindJoinConditionCount      Kind = "join-condition-count"
	KindJoinOperation           Kind = "join-operation"
	KindMixedAggregate          Kind = "mixed-aggregate"
	KindIO                      Kind = "io"
	KindParse                   Kind = "parse"
	KindRegex                   Kind = "regex"
)

// Error is the concrete type behind every taxonomy entry in spec.md §7.
type Error struct {
	Kind    Kind
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is lets errors.Is match on Kind alone, e.g. errors.Is(err, dberr.New(dberr.KindTableNotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a taxonomy error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying error (I/O, parse, regex) to a taxonomy kind.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// Of returns the *Error behind err, if any, via errors.As.
func Of(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
