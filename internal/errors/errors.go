// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrNotFound means the entity is absent or not owned by the caller. The two
// cases are deliberately indistinguishable: ownership filters are baked into
// every query, so a foreign entity simply does not exist for this caller.
type ErrNotFound struct {
	Entity string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// NewNotFound builds a not-found error for the named entity type.
func NewNotFound(entity string) error {
	return &ErrNotFound{Entity: entity}
}

// ErrValidation covers malformed or missing request fields.
type ErrValidation struct {
	Detail string
}

func (e *ErrValidation) Error() string {
	return e.Detail
}

func NewValidation(format string, args ...any) error {
	return &ErrValidation{Detail: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ErrValidation
	return errors.As(err, &ve)
}
