package database

import "errors"

var (
	// ErrShortCodeExists is returned when an attempt is made to create
	// a new short link with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when no live record exists for a short code.
	ErrURLNotFound = errors.New("url not found")
)
