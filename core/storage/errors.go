package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for the storage layer. Callers match them with errors.Is.
var (
	// ErrInvalidKey is returned when an object key is empty.
	ErrInvalidKey = errors.New("object key must not be empty")
	// ErrAlreadyExists is returned when overwrite is disallowed and the
	// destination object is already present.
	ErrAlreadyExists = errors.New("object already exists")
	// ErrNotFound is returned when an operation requires the object to exist
	// and it does not.
	ErrNotFound = errors.New("object not found")
	// ErrTransport wraps provider/network failures after retries are exhausted.
	ErrTransport = errors.New("storage transport failure")
	// ErrConfiguration is returned at construction time when required
	// credentials or endpoint settings are missing.
	ErrConfiguration = errors.New("invalid storage configuration")
)

// wrapTransport annotates a provider error with the failing operation and key
// while keeping both ErrTransport and the cause matchable via errors.Is.
func wrapTransport(op, key string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, key, ErrTransport, err)
}
