package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateEntry  = errors.New("entry already exists for employee, client and month")
	ErrDuplicateClient = errors.New("client already exists")
	ErrStatusConflict  = errors.New("entry status changed")
	ErrInvalidLimit    = errors.New("invalid list limit")
)
