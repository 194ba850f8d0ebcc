package repository

import "errors"

var (
	// ErrNotFound is a cache miss or a missing journal entry.
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
)
