package store

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/matthewbaird/sitecontent/internal/types"
)

var (
	// ErrNotFound matches any NotFoundError via errors.Is.
	ErrNotFound = errors.New("element not found")
	// ErrConflict is returned when a bulk reorder does not describe a dense
	// permutation of the current collection. Nothing is applied.
	ErrConflict = errors.New("reorder conflict")
)

// NotFoundError reports an id that does not exist in its kind's collection.
type NotFoundError struct {
	Kind types.Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError carries the field-level messages of a rejected create or
// update. Fields maps a field key to its message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	return "validation failed: " + strings.Join(keys, ", ")
}

// StoreError wraps a transport or backend failure.
type StoreError struct {
	Op   string
	Kind types.Kind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// wrap classifies err for op. NotFound and validation errors pass through
// unchanged; everything else becomes a StoreError.
func wrap(op string, k types.Kind, err error) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	var ve *ValidationError
	var se *StoreError
	if errors.As(err, &nf) || errors.As(err, &ve) || errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Kind: k, Err: err}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err is a ValidationError and returns its fields.
func IsValidation(err error) (map[string]string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, true
	}
	return nil, false
}

// IsConflict reports whether err stems from a rejected reorder.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
