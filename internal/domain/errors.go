// Package domain holds the quote model, the merge rules and the errors of the
// quote service. Errors here describe what went wrong in quote terms; the HTTP
// and CLI adapters decide how to present them.
package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is. Every typed error below unwraps to one.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrParse      = errors.New("parse failed")
	ErrFetch      = errors.New("fetch failed")
	ErrStorage    = errors.New("storage failure")
)

// Kind classifies an error by the sentinel in its chain.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindParse
	KindFetch
	KindStorage
)

var kindSentinels = []struct {
	kind     Kind
	sentinel error
}{
	{KindNotFound, ErrNotFound},
	{KindConflict, ErrConflict},
	{KindValidation, ErrValidation},
	{KindParse, ErrParse},
	{KindFetch, ErrFetch},
	{KindStorage, ErrStorage},
}

// KindOf returns the kind of the first sentinel found in err's chain, checked
// in declaration order. nil and foreign errors are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	for _, ks := range kindSentinels {
		if errors.Is(err, ks.sentinel) {
			return ks.kind
		}
	}

	return KindUnknown
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is an ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsValidation reports whether err is an ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsParse reports whether err is an ErrParse.
func IsParse(err error) bool { return errors.Is(err, ErrParse) }

// IsFetch reports whether err is an ErrFetch.
func IsFetch(err error) bool { return errors.Is(err, ErrFetch) }

// IsStorage reports whether err is an ErrStorage.
func IsStorage(err error) bool { return errors.Is(err, ErrStorage) }

// NotFoundError names a missing entity: an unknown intent, a conflict index
// that is no longer pending.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}

	return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError returns a *NotFoundError.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports state that changed under the caller, such as a
// resolution whose recorded store position is gone.
type ConflictError struct {
	Entity  string
	Reason  string
	Details string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}

	return msg
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NewConflictError returns a *ConflictError.
func NewConflictError(entity, reason string) error {
	return &ConflictError{Entity: entity, Reason: reason}
}

// NewConflictErrorWithDetails returns a *ConflictError carrying details,
// usually the underlying error text.
func NewConflictErrorWithDetails(entity, reason, details string) error {
	return &ConflictError{Entity: entity, Reason: reason, Details: details}
}

// ValidationError rejects one input field.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}

	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError returns a *ValidationError.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue also records the rejected value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// ParseError reports a malformed JSON document: a stored collection, an
// import file or a server snapshot.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string { return fmt.Sprintf("parsing %s: %s", e.Input, e.Reason) }

func (e *ParseError) Unwrap() error { return ErrParse }

// NewParseError returns a *ParseError for the named input.
func NewParseError(input, reason string) error {
	return &ParseError{Input: input, Reason: reason}
}

// FetchError reports that a remote quote endpoint could not be used. Status
// is the HTTP status when the endpoint answered, zero otherwise.
type FetchError struct {
	Source string
	Reason string
	Status int
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetching from %q: %s", e.Source, e.Reason)
	if e.Status > 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}

	return msg
}

func (e *FetchError) Unwrap() error { return ErrFetch }

// NewFetchError returns a *FetchError without a status.
func NewFetchError(source, reason string) error {
	return &FetchError{Source: source, Reason: reason}
}

// NewFetchErrorWithStatus returns a *FetchError for a non-2xx answer.
func NewFetchErrorWithStatus(source, reason string, status int) error {
	return &FetchError{Source: source, Reason: reason, Status: status}
}

// StorageError reports a failed key-value read or write. It unwraps to both
// ErrStorage and the cause.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage %s %q failed", e.Op, e.Key)
	}

	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStorage}
	}

	return []error{ErrStorage, e.Err}
}

// NewStorageError returns a *StorageError for op on key.
func NewStorageError(op, key string, err error) error {
	return &StorageError{Op: op, Key: key, Err: err}
}
