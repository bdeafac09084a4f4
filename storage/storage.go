// Package storage persists the seen set and sync state between runs.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyExists indicates the entity already exists in storage.
	ErrAlreadyExists = errors.New("storage: already exists")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("read", "write", "mark", "lock").
	Op string
	// Entity is the entity type ("seen_video", "sync_state", "store").
	Entity string
	// ID is the entity ID if applicable.
	ID string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// Store is the storage interface used by the sync engine.
// Implementations must be safe for concurrent use.
type Store interface {
	SeenStore
	SyncStateStore

	// Close releases any resources held by the store.
	Close() error
}

// SeenStore tracks which video IDs have already been queued.
type SeenStore interface {
	// IsSeen reports whether the video ID is already in the seen set.
	IsSeen(ctx context.Context, videoID string) (bool, error)
	// MarkSeen adds a video to the seen set. Returns ErrAlreadyExists
	// (wrapped) if the video ID is already present.
	MarkSeen(ctx context.Context, video *SeenVideo) error
	// SeenCount returns the number of videos in the seen set.
	SeenCount(ctx context.Context) (int, error)
	// ListSeen returns all seen-set entries.
	ListSeen(ctx context.Context) ([]*SeenVideo, error)
}

// SyncStateStore persists the cross-run sync watermark and counters.
type SyncStateStore interface {
	// GetSyncState retrieves the current sync state.
	// Returns ErrNotFound (wrapped) if no run has completed yet.
	GetSyncState(ctx context.Context) (*SyncState, error)
	// UpdateSyncState replaces the persisted sync state.
	UpdateSyncState(ctx context.Context, state *SyncState) error
}
