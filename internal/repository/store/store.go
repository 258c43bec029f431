// Package store holds the contract shared by the Durable Store backends: a
// process-shared key-value store whose writes are observable by other processes.
package store

import "errors"

var (
	ErrNotFound = errors.New("key not found")
	ErrClosed   = errors.New("store closed")
)

// Change notifies that key was written or deleted. Watchers re-read the key;
// a change carries no value because notifications may be coalesced or dropped.
type Change struct {
	Key string
}
