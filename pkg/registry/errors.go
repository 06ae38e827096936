package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrClientExists is returned when creating a client whose id is taken.
	ErrClientExists = errors.New("client already exists")

	// ErrClientNotFound is returned for operations on an unknown client id.
	ErrClientNotFound = errors.New("invalid client_id")

	// ErrProxyExists is returned when a client already has a proxy with the
	// same name.
	ErrProxyExists = errors.New("proxy with this name already exists")

	// ErrProxyNotFound is returned when removing an unknown proxy.
	ErrProxyNotFound = errors.New("proxy not found")

	// ErrInvalidClient is returned for malformed client input.
	ErrInvalidClient = errors.New("invalid client")

	// ErrInvalidProxy is returned for malformed proxy input.
	ErrInvalidProxy = errors.New("invalid proxy")
)

// PersistError reports a failed write of the registry to its Store.
// The mutation named by Op was not applied.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("registry %s: persist failed: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
