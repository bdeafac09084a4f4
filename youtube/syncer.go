package youtube

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Noahffiliation/auto-watch-later/storage"
)

// DefaultWindow is how far back a first run looks for uploads when no
// last-sync watermark exists yet.
const DefaultWindow = 24 * time.Hour

// API is the subset of the Data API client the Syncer depends on.
type API interface {
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	RecentUploads(ctx context.Context, channelID string, since time.Time, maxPerChannel int64) ([]Video, error)
	PlaylistVideoIDs(ctx context.Context, playlistID string) (map[string]struct{}, error)
	InsertPlaylistItem(ctx context.Context, playlistID, videoID string) error
}

// Syncer copies newly uploaded videos from the user's subscriptions into the
// target playlist, deduplicating against the persisted seen set and the
// playlist's current contents.
type Syncer struct {
	api   API
	store storage.Store
	log   zerolog.Logger

	// PlaylistID is the target (staging) playlist.
	PlaylistID string
	// Window bounds the first sync when no watermark exists.
	Window time.Duration
	// MaxPerChannel caps uploads fetched per channel per run.
	MaxPerChannel int64
	// DryRun reports what would be inserted without mutating the playlist.
	DryRun bool
}

// NewSyncer creates a sync engine for the given playlist.
func NewSyncer(api API, store storage.Store, playlistID string, log zerolog.Logger) *Syncer {
	return &Syncer{
		api:        api,
		store:      store,
		log:        log,
		PlaylistID: playlistID,
		Window:     DefaultWindow,
	}
}

// SyncError records a per-channel or per-video failure that did not abort
// the run.
type SyncError struct {
	ChannelID string
	VideoID   string
	Err       error
}

// Error returns a string representation of the sync error.
func (e SyncError) Error() string {
	switch {
	case e.VideoID != "":
		return fmt.Sprintf("video %s: %v", e.VideoID, e.Err)
	case e.ChannelID != "":
		return fmt.Sprintf("channel %s: %v", e.ChannelID, e.Err)
	default:
		return e.Err.Error()
	}
}

// Unwrap returns the underlying error.
func (e SyncError) Unwrap() error { return e.Err }

// Report is the outcome of one sync run.
type Report struct {
	// RunID uniquely identifies this run.
	RunID string
	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
	// Since is the watermark used to filter uploads.
	Since time.Time
	// Subscriptions is how many channels were listed.
	Subscriptions int
	// Added is the number of videos inserted into the playlist.
	Added int
	// Skipped is the number of discovered videos already in the seen set.
	Skipped int
	// Errors holds non-fatal per-channel and per-video failures.
	Errors []SyncError
	// Unprocessed counts channels left unfetched after retries were
	// exhausted on a rate limit or quota error.
	Unprocessed int
	// Complete is true if every channel was fetched and every new video was
	// attempted. Only complete runs advance the last-sync watermark.
	Complete bool
}

// Sync performs one run: list subscriptions, fetch recent uploads per
// channel, deduplicate, and insert the remainder in upload order.
//
// Per-channel fetch failures are recorded and skipped. Exhausted rate-limit
// retries degrade the run to a partial result with a count of unprocessed
// channels. Authentication failures abort the run.
func (s *Syncer) Sync(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	window := s.Window
	if window <= 0 {
		window = DefaultWindow
	}

	// Watermark: last successful sync, else the configured window.
	report.Since = report.StartedAt.Add(-window)
	state, err := s.store.GetSyncState(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load sync state: %w", err)
	}
	if state != nil && !state.LastSyncAt.IsZero() {
		report.Since = state.LastSyncAt
	}

	log := s.log.With().Str("run_id", report.RunID).Logger()
	log.Info().Time("since", report.Since).Msg("sync started")

	subs, err := s.api.ListSubscriptions(ctx)
	if err != nil {
		// Nothing fetched yet, so the whole run fails here.
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	report.Subscriptions = len(subs)
	log.Info().Int("subscriptions", len(subs)).Msg("fetched subscription list")

	seen, err := s.loadSeenSet(ctx, log)
	if err != nil {
		return nil, err
	}

	// Even when the fetch loop stops early, what was collected still gets
	// queued; the seen set makes the next run's retry duplicate-free.
	videos := s.collectUploads(ctx, log, subs, report)

	// Chronological order across channels: oldest first, so the staging
	// playlist reads in upload order.
	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].Published.Before(videos[j].Published)
	})

	insertAborted := s.insertNew(ctx, log, videos, seen, report)

	report.FinishedAt = time.Now()
	report.Complete = report.Unprocessed == 0 && !insertAborted

	if err := s.persistRunState(ctx, state, report); err != nil {
		log.Warn().Err(err).Msg("failed to persist sync state")
	}

	log.Info().
		Int("added", report.Added).
		Int("skipped", report.Skipped).
		Int("errors", len(report.Errors)).
		Int("unprocessed", report.Unprocessed).
		Bool("complete", report.Complete).
		Msg("sync finished")

	return report, nil
}

// loadSeenSet unions the persisted seen set with the playlist's current
// contents. A playlist listing failure degrades to the local set alone,
// unless the quota is already gone. An empty playlist ID (a dry run against
// a playlist that does not exist yet) skips the listing entirely.
func (s *Syncer) loadSeenSet(ctx context.Context, log zerolog.Logger) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	if s.PlaylistID != "" {
		ids, err := s.api.PlaylistVideoIDs(ctx, s.PlaylistID)
		if err != nil {
			if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrAuthFailed) {
				return nil, fmt.Errorf("list playlist contents: %w", err)
			}
			log.Warn().Err(err).Msg("could not list playlist contents, deduplicating against local state only")
		} else {
			seen = ids
		}
	}

	entries, err := s.store.ListSeen(ctx)
	if err != nil {
		return nil, fmt.Errorf("load seen set: %w", err)
	}
	for _, e := range entries {
		seen[e.VideoID] = struct{}{}
	}

	return seen, nil
}

// collectUploads fetches recent uploads for each subscription. It stops
// early when a rate limit or quota error survives retries, recording how
// many channels were not processed.
func (s *Syncer) collectUploads(ctx context.Context, log zerolog.Logger, subs []Subscription, report *Report) []Video {
	var videos []Video

	for i, sub := range subs {
		if ctx.Err() != nil {
			report.Unprocessed = len(subs) - i
			return videos
		}

		uploads, err := s.api.RecentUploads(ctx, sub.ChannelID, report.Since, s.MaxPerChannel)
		if err != nil {
			if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrQuotaExceeded) {
				report.Unprocessed = len(subs) - i
				log.Warn().
					Err(err).
					Int("unprocessed", report.Unprocessed).
					Msg("stopping fetch, rate limit or quota exhausted")
				return videos
			}

			// Deleted channel, private uploads: record and move on.
			report.Errors = append(report.Errors, SyncError{ChannelID: sub.ChannelID, Err: err})
			log.Warn().Err(err).Str("channel_id", sub.ChannelID).Str("channel", sub.Title).Msg("channel fetch failed, skipping")
			continue
		}

		for _, v := range uploads {
			log.Debug().Str("video_id", v.ID).Str("title", v.Title).Str("channel", v.ChannelTitle).Msg("found new upload")
		}
		videos = append(videos, uploads...)
	}

	return videos
}

// insertNew inserts videos not yet seen into the target playlist, marking
// each one seen only after its insert succeeds. Returns true if the insert
// loop was aborted by a rate limit or quota error.
func (s *Syncer) insertNew(ctx context.Context, log zerolog.Logger, videos []Video, seen map[string]struct{}, report *Report) bool {
	for _, v := range videos {
		if _, ok := seen[v.ID]; ok {
			report.Skipped++
			continue
		}

		if s.DryRun {
			log.Info().Str("video_id", v.ID).Str("title", v.Title).Msg("dry run, would queue")
			seen[v.ID] = struct{}{}
			report.Added++
			continue
		}

		if err := s.api.InsertPlaylistItem(ctx, s.PlaylistID, v.ID); err != nil {
			if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrQuotaExceeded) {
				report.Errors = append(report.Errors, SyncError{ChannelID: v.ChannelID, VideoID: v.ID, Err: err})
				log.Warn().Err(err).Msg("stopping inserts, rate limit or quota exhausted")
				return true
			}

			// Removed video, restricted playlist item: record and move on.
			report.Errors = append(report.Errors, SyncError{ChannelID: v.ChannelID, VideoID: v.ID, Err: err})
			log.Warn().Err(err).Str("video_id", v.ID).Msg("insert failed, skipping")
			continue
		}

		// Mark seen only after a successful insert.
		seen[v.ID] = struct{}{}
		report.Added++
		err := s.store.MarkSeen(ctx, &storage.SeenVideo{
			VideoID:     v.ID,
			ChannelID:   v.ChannelID,
			Title:       v.Title,
			PublishedAt: v.Published,
			QueuedAt:    time.Now(),
			RunID:       report.RunID,
		})
		if err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
			log.Warn().Err(err).Str("video_id", v.ID).Msg("failed to persist seen entry")
		}

		log.Info().Str("video_id", v.ID).Str("title", v.Title).Str("channel", v.ChannelTitle).Msg("queued video")
	}

	return false
}

// persistRunState records run counters and, for complete runs, advances the
// last-sync watermark to the run's start time. Partial runs keep the old
// watermark so skipped channels are retried next run; the seen set keeps
// that retry duplicate-free.
func (s *Syncer) persistRunState(ctx context.Context, state *storage.SyncState, report *Report) error {
	if s.DryRun {
		return nil
	}

	if state == nil {
		state = &storage.SyncState{}
	}
	state.LastRunID = report.RunID
	state.LastRunAt = report.FinishedAt
	state.VideosQueued += report.Added
	state.LastError = ""
	if len(report.Errors) > 0 {
		state.LastError = report.Errors[0].Error()
	}

	if report.Complete {
		state.Runs++
		state.LastSyncAt = report.StartedAt
	}

	return s.store.UpdateSyncState(ctx, state)
}
