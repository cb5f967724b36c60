// Package statestore provides durable persistence for RT session bookkeeping,
// so a client can resume audio sequencing and speaker labels after a
// reconnect without replaying the whole session.
package statestore

import (
	"context"
	"errors"
)

// Store defines the interface for persistent session snapshot storage.
type Store interface {
	// Load retrieves a session snapshot by session ID.
	Load(ctx context.Context, sessionID string) (*SessionSnapshot, error)

	// Save persists a session snapshot, creating or overwriting it.
	Save(ctx context.Context, snapshot *SessionSnapshot) error

	// Delete removes a session snapshot. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, sessionID string) error

	// List returns session IDs known to the store, most recently updated first.
	List(ctx context.Context, opts ListOptions) ([]string, error)
}

// ListOptions provides pagination options for listing session snapshots.
type ListOptions struct {
	Limit  int
	Offset int

	// SortBy selects the sort field: SortByCreatedAt or SortByUpdatedAt.
	SortBy string

	// SortOrder is "asc" or "desc" (default "desc").
	SortOrder string
}

// ErrNotFound is returned when a session snapshot doesn't exist in the store.
var ErrNotFound = errors.New("session snapshot not found")

// ErrInvalidID is returned when an empty session ID is provided.
var ErrInvalidID = errors.New("invalid session id")

// ErrInvalidSnapshot is returned when a snapshot fails basic validation.
var ErrInvalidSnapshot = errors.New("invalid session snapshot")
