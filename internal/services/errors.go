package services

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound reports an identifier absent from the record store.
	ErrNotFound = errors.New("record not found")

	// ErrConflict reports a create colliding with an existing unique key.
	ErrConflict = errors.New("conflict with already-existing resource")

	// ErrNameMismatch reports a URL identifier disagreeing with the
	// identifier embedded in the request body.
	ErrNameMismatch = errors.New("mismatch between URL identifier and document ID")
)

// translateCreateError maps the store's duplicate-key violation to the
// conflict sentinel. The existence checks run first, but a concurrent
// create can still land between the check and the insert.
func translateCreateError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}
