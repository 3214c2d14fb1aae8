package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist for the user.
var ErrNotFound = errors.New("record not found")
