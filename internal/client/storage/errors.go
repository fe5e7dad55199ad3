package storage

import "errors"

// Common client storage errors
var (
	// ErrKeyNotFound indicates that no value exists for the requested key
	ErrKeyNotFound = errors.New("storage key not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
