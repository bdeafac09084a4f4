// Package youtube wraps the YouTube Data API v3 for subscription-feed
// synchronization: listing subscriptions, discovering recent uploads, and
// queuing videos into a playlist.
package youtube

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for API operations.
var (
	// ErrAuthFailed indicates the credentials were rejected. Fatal to a run.
	ErrAuthFailed = errors.New("youtube: authentication failed")
	// ErrRateLimited indicates the per-key rate limit was hit.
	ErrRateLimited = errors.New("youtube: rate limited")
	// ErrQuotaExceeded indicates the daily API quota is exhausted.
	ErrQuotaExceeded = errors.New("youtube: quota exceeded")
	// ErrNotFound indicates the requested resource does not exist or is private.
	ErrNotFound = errors.New("youtube: not found")
	// ErrPlaylistForbidden indicates the playlist cannot be modified.
	ErrPlaylistForbidden = errors.New("youtube: playlist access forbidden")
)

// Subscription is a channel the authenticated user follows.
type Subscription struct {
	// ChannelID is the YouTube channel ID (e.g., "UCuAXFkgsw1L7xaCfnd5JJOw").
	ChannelID string `json:"channel_id"`
	// Title is the channel display name.
	Title string `json:"title"`
}

// Video is a reference to an uploaded video discovered during a sync run.
type Video struct {
	// ID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	ID string `json:"id"`
	// Title is the video title.
	Title string `json:"title"`
	// ChannelID is the uploading channel's ID.
	ChannelID string `json:"channel_id"`
	// ChannelTitle is the uploading channel's display name.
	ChannelTitle string `json:"channel_title"`
	// Published is when the video was published.
	Published time.Time `json:"published"`
}

// URL returns the full YouTube URL for this video.
func (v Video) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// APIError wraps API call errors with context about what failed.
// Use errors.As() to extract this error type and get operation details:
//
//	var apiErr *youtube.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("%s on %s failed: %v\n", apiErr.Op, apiErr.Resource, apiErr.Err)
//	}
type APIError struct {
	// Op is the API operation ("subscriptions.list", "playlistItems.insert", ...).
	Op string
	// Resource is the channel, playlist, or video ID involved.
	Resource string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the API error.
func (e *APIError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("youtube: %s %s: %v", e.Op, e.Resource, e.Err)
	}
	return fmt.Sprintf("youtube: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *APIError) Unwrap() error { return e.Err }

// ParseError indicates an API response had an unexpected shape.
// Response parsing is validated at the boundary rather than trusted.
type ParseError struct {
	// Op is the API operation whose response failed validation.
	Op string
	// Detail describes what was missing or malformed.
	Detail string
}

// Error returns a string representation of the parse error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("youtube: %s: unexpected response shape: %s", e.Op, e.Detail)
}
