package repository

import "errors"

// ErrNotFound is returned when a row does not exist for the requesting owner.
var ErrNotFound = errors.New("not found")
