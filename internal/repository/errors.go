package repository

import "errors"

// Shared repository errors. Implementations map their driver errors onto
// these so the service layer can use errors.Is without knowing the store.
var (
	ErrNotFound       = errors.New("repository: record not found")
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

var (
	ErrUserNotFound      = ErrNotFound
	ErrRoomNotFound      = ErrNotFound
	ErrExecutionNotFound = ErrNotFound
)
