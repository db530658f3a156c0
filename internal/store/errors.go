// Package store persists the training corpus and assignment results
// in Postgres.
package store

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
