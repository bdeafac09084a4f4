package watchlater

import (
	"github.com/Noahffiliation/auto-watch-later/internal/retry"
	"github.com/Noahffiliation/auto-watch-later/storage"
	"github.com/Noahffiliation/auto-watch-later/youtube"
)

// Error handling types exported for library users.
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, watchlater.ErrRateLimited) {
//		fmt.Println("Rate limited")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var apiErr *watchlater.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("%s on %s failed: %v\n", apiErr.Op, apiErr.Resource, apiErr.Err)
//	}

// Type aliases for convenient error handling.
type (
	// APIError wraps YouTube Data API call failures.
	APIError = youtube.APIError
	// ParseError indicates an API response had an unexpected shape.
	ParseError = youtube.ParseError
	// SyncError records a per-channel or per-video sync failure.
	SyncError = youtube.SyncError
	// RetryableError wraps errors that occurred after retries were exhausted.
	RetryableError = retry.RetryableError
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrAuthFailed indicates the credentials were rejected.
	ErrAuthFailed = youtube.ErrAuthFailed
	// ErrTokenNotFound indicates no cached OAuth token exists yet.
	ErrTokenNotFound = youtube.ErrTokenNotFound
	// ErrRateLimited indicates the per-key rate limit was hit.
	ErrRateLimited = youtube.ErrRateLimited
	// ErrQuotaExceeded indicates the daily API quota is exhausted.
	ErrQuotaExceeded = youtube.ErrQuotaExceeded
	// ErrNotFound indicates the requested resource does not exist or is private.
	ErrNotFound = youtube.ErrNotFound
	// ErrPlaylistForbidden indicates the playlist cannot be modified.
	ErrPlaylistForbidden = youtube.ErrPlaylistForbidden

	// Storage errors
	// ErrStateNotFound indicates an entity was not found in storage.
	ErrStateNotFound = storage.ErrNotFound
	// ErrAlreadyExists indicates an entity already exists in storage.
	ErrAlreadyExists = storage.ErrAlreadyExists
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = storage.ErrLockTimeout
)
