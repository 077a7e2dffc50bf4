package tendril

import "errors"

var (
	// ErrNotMounted is returned by operations that need a mounted engine.
	ErrNotMounted = errors.New("tendril: engine is not mounted")

	// ErrAlreadyMounted is returned by a second Mount.
	ErrAlreadyMounted = errors.New("tendril: engine is already mounted")
)
