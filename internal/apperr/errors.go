// Package apperr holds the error taxonomy shared by services and the HTTP
// surface.
package apperr

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
)

// PublicError pairs a sentinel kind with the message shown to clients.
type PublicError struct {
	Kind error
	Msg  string
}

func New(kind error, msg string) *PublicError {
	return &PublicError{Kind: kind, Msg: msg}
}

func (e *PublicError) Error() string { return e.Msg }
func (e *PublicError) Unwrap() error { return e.Kind }

// ValidationError collects per-field messages. Field names are the wire
// names clients send (name, category_id, ...).
type ValidationError struct {
	Fields map[string][]string
}

func NewValidation() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Field is a shorthand for a single-field failure.
func Field(field, msg string) *ValidationError {
	v := NewValidation()
	v.Add(field, msg)
	return v
}

func (v *ValidationError) Add(field, msg string) {
	v.Fields[field] = append(v.Fields[field], msg)
}

func (v *ValidationError) Has(field string) bool {
	return len(v.Fields[field]) > 0
}

func (v *ValidationError) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// OrNil returns nil when nothing was collected so callers can return it
// directly as an error.
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

// Merge copies every message of o into v.
func (v *ValidationError) Merge(o *ValidationError) {
	if o == nil {
		return
	}
	for f, msgs := range o.Fields {
		v.Fields[f] = append(v.Fields[f], msgs...)
	}
}

// Message mirrors the first error and counts the remaining ones, e.g.
// "The name field is required. (and 2 more errors)".
func (v *ValidationError) Message() string {
	if v.Empty() {
		return "The given data was invalid."
	}
	keys := v.keys()
	first := v.Fields[keys[0]][0]
	rest := -1
	for _, k := range keys {
		rest += len(v.Fields[k])
	}
	switch rest {
	case 0:
		return first
	case 1:
		return first + " (and 1 more error)"
	default:
		return first + " (and " + strconv.Itoa(rest) + " more errors)"
	}
}

func (v *ValidationError) Error() string {
	if v.Empty() {
		return "validation failed"
	}
	parts := make([]string, 0, len(v.Fields))
	for _, k := range v.keys() {
		parts = append(parts, k+": "+strings.Join(v.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) keys() []string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReferenceError reports a foreign key that points at a missing row.
type ReferenceError struct {
	Field string
}

func (e *ReferenceError) Error() string {
	return "referenced record for " + e.Field + " does not exist"
}

// Validation folds a ReferenceError into the field error clients see.
func (e *ReferenceError) Validation() *ValidationError {
	return Field(e.Field, "The selected "+strings.ReplaceAll(e.Field, "_", " ")+" is invalid.")
}
