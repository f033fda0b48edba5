package core

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable classification carried by every ledger error.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindOverdraft  ErrorKind = "overdraft"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindStorage    ErrorKind = "storage"
)

// LedgerError pairs a stable kind with a human-readable message. Callers
// branch on the kind, never on the message text.
type LedgerError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

func NewValidationError(msg string, err error) error {
	return &LedgerError{Kind: KindValidation, Msg: msg, Err: err}
}

func NewOverdraftError(msg string) error {
	return &LedgerError{Kind: KindOverdraft, Msg: msg}
}

func NewNotFoundError(msg string) error {
	return &LedgerError{Kind: KindNotFound, Msg: msg}
}

func NewConflictError(msg string, err error) error {
	return &LedgerError{Kind: KindConflict, Msg: msg, Err: err}
}

func NewStorageError(msg string, err error) error {
	return &LedgerError{Kind: KindStorage, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or the empty string for errors outside the
// ledger taxonomy.
func KindOf(err error) ErrorKind {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsOverdraft(err error) bool  { return KindOf(err) == KindOverdraft }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsStorage(err error) bool    { return KindOf(err) == KindStorage }
