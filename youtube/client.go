package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/Noahffiliation/auto-watch-later/internal/retry"
)

const (
	pageSize   = 50
	dailyQuota = 10000

	// Approximate quota units per operation, per the API quota calculator.
	unitsList   = 1
	unitsInsert = 50
)

// Client is a typed wrapper over the YouTube Data API v3 with per-call retry
// and quota-unit tracking.
type Client struct {
	service *yt.Service
	log     zerolog.Logger

	// Retry configures backoff for transient and rate-limit errors.
	Retry retry.Config

	// Quota tracking
	mu             sync.Mutex
	estimatedQuota int
	quotaReserve   int
	lastQuotaReset time.Time
	quotaExhausted bool
}

// NewClient creates a client authenticated with the given token source.
func NewClient(ctx context.Context, ts oauth2.TokenSource, log zerolog.Logger) (*Client, error) {
	if ts == nil {
		return nil, fmt.Errorf("token source required")
	}

	service, err := yt.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &Client{
		service:        service,
		log:            log,
		Retry:          retry.DefaultConfig(),
		estimatedQuota: dailyQuota,
		lastQuotaReset: time.Now(),
	}, nil
}

// SetQuotaReserve sets the minimum quota units to keep in reserve.
func (c *Client) SetQuotaReserve(units int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotaReserve = units
}

// ListSubscriptions retrieves every channel the authenticated user follows,
// paginating until the list is exhausted.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription

	pageToken := ""
	for {
		if err := c.checkQuotaBudget(); err != nil {
			return nil, &APIError{Op: "subscriptions.list", Err: err}
		}

		err := retry.Do(ctx, c.Retry, isRetryable, func(ctx context.Context) error {
			call := c.service.Subscriptions.List([]string{"snippet"}).
				Mine(true).
				MaxResults(pageSize).
				PageToken(pageToken).
				Context(ctx)

			resp, err := call.Do()
			if err != nil {
				return translateAPIError(err)
			}
			c.trackQuotaUsage(unitsList)

			for _, item := range resp.Items {
				if item.Snippet == nil || item.Snippet.ResourceId == nil {
					return &ParseError{Op: "subscriptions.list", Detail: "item missing snippet.resourceId"}
				}
				subs = append(subs, Subscription{
					ChannelID: item.Snippet.ResourceId.ChannelId,
					Title:     item.Snippet.Title,
				})
			}

			pageToken = resp.NextPageToken
			return nil
		})
		if err != nil {
			return nil, &APIError{Op: "subscriptions.list", Err: err}
		}

		if pageToken == "" {
			break
		}
	}

	c.log.Debug().Int("count", len(subs)).Msg("fetched subscriptions")
	return subs, nil
}

// RecentUploads retrieves videos uploaded by the channel after since,
// using the activities endpoint (cheaper than search). At most maxPerChannel
// videos are returned; zero or negative means no cap.
func (c *Client) RecentUploads(ctx context.Context, channelID string, since time.Time, maxPerChannel int64) ([]Video, error) {
	var videos []Video

	perPage := int64(pageSize)
	if maxPerChannel > 0 && maxPerChannel < perPage {
		perPage = maxPerChannel
	}

	pageToken := ""
	for {
		if err := c.checkQuotaBudget(); err != nil {
			return nil, &APIError{Op: "activities.list", Resource: channelID, Err: err}
		}

		err := retry.Do(ctx, c.Retry, isRetryable, func(ctx context.Context) error {
			call := c.service.Activities.List([]string{"snippet", "contentDetails"}).
				ChannelId(channelID).
				PublishedAfter(since.UTC().Format(time.RFC3339)).
				MaxResults(perPage).
				PageToken(pageToken).
				Context(ctx)

			resp, err := call.Do()
			if err != nil {
				return translateAPIError(err)
			}
			c.trackQuotaUsage(unitsList)

			for _, item := range resp.Items {
				video, ok, verr := uploadFromActivity(channelID, item)
				if verr != nil {
					return verr
				}
				if !ok {
					continue
				}
				videos = append(videos, video)
			}

			pageToken = resp.NextPageToken
			return nil
		})
		if err != nil {
			return nil, &APIError{Op: "activities.list", Resource: channelID, Err: err}
		}

		if maxPerChannel > 0 && int64(len(videos)) >= maxPerChannel {
			videos = videos[:maxPerChannel]
			break
		}
		if pageToken == "" {
			break
		}
	}

	return videos, nil
}

// uploadFromActivity validates one activities.list item and converts it to a
// Video. Non-upload activities (likes, playlist adds) return ok=false.
// Response fields are validated at the boundary rather than trusted.
func uploadFromActivity(channelID string, item *yt.Activity) (Video, bool, error) {
	if item.Snippet == nil {
		return Video{}, false, &ParseError{Op: "activities.list", Detail: "item missing snippet"}
	}
	if item.Snippet.Type != "upload" {
		return Video{}, false, nil
	}
	if item.ContentDetails == nil || item.ContentDetails.Upload == nil {
		return Video{}, false, &ParseError{Op: "activities.list", Detail: "upload activity missing contentDetails.upload"}
	}

	published, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
	if err != nil {
		return Video{}, false, &ParseError{Op: "activities.list", Detail: "invalid snippet.publishedAt"}
	}

	return Video{
		ID:           item.ContentDetails.Upload.VideoId,
		Title:        item.Snippet.Title,
		ChannelID:    channelID,
		ChannelTitle: item.Snippet.ChannelTitle,
		Published:    published,
	}, true, nil
}

// PlaylistVideoIDs returns the set of video IDs currently in the playlist.
func (c *Client) PlaylistVideoIDs(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})

	pageToken := ""
	for {
		if err := c.checkQuotaBudget(); err != nil {
			return nil, &APIError{Op: "playlistItems.list", Resource: playlistID, Err: err}
		}

		err := retry.Do(ctx, c.Retry, isRetryable, func(ctx context.Context) error {
			call := c.service.PlaylistItems.List([]string{"contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(pageSize).
				PageToken(pageToken).
				Context(ctx)

			resp, err := call.Do()
			if err != nil {
				return translateAPIError(err)
			}
			c.trackQuotaUsage(unitsList)

			for _, item := range resp.Items {
				if item.ContentDetails == nil {
					return &ParseError{Op: "playlistItems.list", Detail: "item missing contentDetails"}
				}
				ids[item.ContentDetails.VideoId] = struct{}{}
			}

			pageToken = resp.NextPageToken
			return nil
		})
		if err != nil {
			return nil, &APIError{Op: "playlistItems.list", Resource: playlistID, Err: err}
		}

		if pageToken == "" {
			break
		}
	}

	return ids, nil
}

// InsertPlaylistItem appends the video to the end of the playlist.
func (c *Client) InsertPlaylistItem(ctx context.Context, playlistID, videoID string) error {
	if err := c.checkQuotaBudget(); err != nil {
		return &APIError{Op: "playlistItems.insert", Resource: videoID, Err: err}
	}

	err := retry.Do(ctx, c.Retry, isRetryable, func(ctx context.Context) error {
		call := c.service.PlaylistItems.Insert([]string{"snippet"}, &yt.PlaylistItem{
			Snippet: &yt.PlaylistItemSnippet{
				PlaylistId: playlistID,
				ResourceId: &yt.ResourceId{
					Kind:    "youtube#video",
					VideoId: videoID,
				},
			},
		}).Context(ctx)

		if _, err := call.Do(); err != nil {
			return translateAPIError(err)
		}
		c.trackQuotaUsage(unitsInsert)
		return nil
	})
	if err != nil {
		return &APIError{Op: "playlistItems.insert", Resource: videoID, Err: err}
	}

	return nil
}

// FindPlaylist looks up the authenticated user's playlist with the given
// title. Returns an empty ID when no such playlist exists.
func (c *Client) FindPlaylist(ctx context.Context, title string) (string, error) {
	var playlistID string

	pageToken := ""
	for {
		err := retry.Do(ctx, c.Retry, isRetryable, func(ctx context.Context) error {
			call := c.service.Playlists.List([]string{"id", "snippet"}).
				Mine(true).
				MaxResults(pageSize).
				PageToken(pageToken).
				Context(ctx)

			resp, err := call.Do()
			if err != nil {
				return translateAPIError(err)
			}
			c.trackQuotaUsage(unitsList)

			for _, item := range resp.Items {
				if item.Snippet != nil && item.Snippet.Title == title {
					playlistID = item.Id
					return nil
				}
			}

			pageToken = resp.NextPageToken
			return nil
		})
		if err != nil {
			return "", &APIError{Op: "playlists.list", Err: err}
		}

		if playlistID != "" || pageToken == "" {
			break
		}
	}

	return playlistID, nil
}

// EnsurePlaylist finds the authenticated user's playlist with the given
// title, creating it (private) if it does not exist. Returns the playlist ID.
//
// The native Watch Later playlist cannot be modified through the API, so a
// custom staging playlist is used instead.
func (c *Client) EnsurePlaylist(ctx context.Context, title string) (string, error) {
	playlistID, err := c.FindPlaylist(ctx, title)
	if err != nil {
		return "", err
	}
	if playlistID != "" {
		c.log.Debug().Str("playlist_id", playlistID).Str("title", title).Msg("found existing playlist")
		return playlistID, nil
	}

	err = retry.Do(ctx, c.Retry, isRetryable, func(ctx context.Context) error {
		call := c.service.Playlists.Insert([]string{"snippet", "status"}, &yt.Playlist{
			Snippet: &yt.PlaylistSnippet{
				Title:       title,
				Description: "Automatically updated playlist with new videos from subscriptions.",
			},
			Status: &yt.PlaylistStatus{
				PrivacyStatus: "private",
			},
		}).Context(ctx)

		resp, err := call.Do()
		if err != nil {
			return translateAPIError(err)
		}
		c.trackQuotaUsage(unitsInsert)
		playlistID = resp.Id
		return nil
	})
	if err != nil {
		return "", &APIError{Op: "playlists.insert", Err: err}
	}

	c.log.Info().Str("playlist_id", playlistID).Str("title", title).Msg("created playlist")
	return playlistID, nil
}

// CheckQuota makes a minimal API call to detect an already-exhausted quota
// before starting a run.
func (c *Client) CheckQuota(ctx context.Context) error {
	call := c.service.Channels.List([]string{"id"}).Mine(true).Context(ctx)
	if _, err := call.Do(); err != nil {
		if terr := translateAPIError(err); errors.Is(terr, ErrQuotaExceeded) || errors.Is(terr, ErrAuthFailed) {
			return &APIError{Op: "channels.list", Err: terr}
		}
		// Non-quota errors from the pre-check don't block the run.
		c.log.Warn().Err(err).Msg("quota pre-check failed, continuing")
		return nil
	}
	c.trackQuotaUsage(unitsList)
	return nil
}

// QuotaRemaining returns the estimated remaining quota units.
func (c *Client) QuotaRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.estimatedQuota
}

// checkQuotaBudget returns ErrQuotaExceeded if the tracked quota has dropped
// below the configured reserve.
func (c *Client) checkQuotaBudget() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quotaExhausted {
		return ErrQuotaExceeded
	}
	return nil
}

// trackQuotaUsage updates the estimated quota and checks if it is exhausted.
func (c *Client) trackQuotaUsage(units int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Quota resets at midnight Pacific; a day-granularity reset is close enough.
	if time.Since(c.lastQuotaReset) > 24*time.Hour {
		c.estimatedQuota = dailyQuota
		c.lastQuotaReset = time.Now()
		c.quotaExhausted = false
		c.log.Debug().Msg("quota estimate reset")
	}

	c.estimatedQuota -= units

	if c.estimatedQuota < c.quotaReserve && !c.quotaExhausted {
		c.log.Warn().
			Int("remaining", c.estimatedQuota).
			Int("reserve", c.quotaReserve).
			Msg("estimated quota exhausted")
		c.quotaExhausted = true
	}
}

// translateAPIError maps googleapi errors onto the package's sentinel errors.
func translateAPIError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	for _, item := range gerr.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded":
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, item.Reason)
		case "rateLimitExceeded", "userRateLimitExceeded":
			return fmt.Errorf("%w: %s", ErrRateLimited, item.Reason)
		case "playlistForbidden", "playlistItemsNotAccessible":
			return fmt.Errorf("%w: %s", ErrPlaylistForbidden, item.Reason)
		case "playlistNotFound", "videoNotFound", "channelNotFound":
			return fmt.Errorf("%w: %s", ErrNotFound, item.Reason)
		}
	}

	switch gerr.Code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuthFailed, gerr.Message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuthFailed, gerr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, gerr.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, gerr.Message)
	}

	return err
}

// isRetryable classifies errors for retry.Do: rate limits and transient
// network failures are retried, everything terminal is not.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrPlaylistForbidden) {
		return false
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return false
	}
	return true
}
