package storage

import "time"

// SeenVideo records a video that has been queued into the target playlist
// (or otherwise processed), preventing duplicate inserts across runs.
type SeenVideo struct {
	VideoID     string    `json:"video_id"`               // YouTube video ID
	ChannelID   string    `json:"channel_id,omitempty"`   // YouTube channel ID (UC...)
	Title       string    `json:"title,omitempty"`        // Video title at queue time
	PublishedAt time.Time `json:"published_at,omitempty"` // Upload publish time
	QueuedAt    time.Time `json:"queued_at"`              // When the insert succeeded
	RunID       string    `json:"run_id,omitempty"`       // Sync run that queued it
}

// SyncState tracks synchronization progress across runs.
type SyncState struct {
	// LastSyncAt is the incremental watermark: uploads published after this
	// time are considered new. Only advanced by fully processed runs.
	LastSyncAt time.Time `json:"last_sync_at"`
	// LastRunID identifies the most recent run, complete or not.
	LastRunID string `json:"last_run_id,omitempty"`
	// LastRunAt is when the most recent run finished.
	LastRunAt time.Time `json:"last_run_at"`
	// Runs counts completed sync runs.
	Runs int `json:"runs"`
	// VideosQueued counts videos queued over the lifetime of the store.
	VideosQueued int `json:"videos_queued"`
	// LastError holds the most recent run-level error message, if any.
	LastError string `json:"last_error,omitempty"`
}
