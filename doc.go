// Package watchlater synchronizes a YouTube subscription feed into a
// staging playlist.
//
// Each sync run lists the authenticated user's subscriptions, fetches
// uploads published since the last run (or within a configurable window on
// the first run), filters out videos already queued, and appends the rest to
// the target playlist in upload order. The native Watch Later playlist
// cannot be modified through the Data API, so a private "Automated Watch
// Later" playlist is used as a staging area the user empties by hand.
//
// Quick Start
//
// Run a sync programmatically:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	auth := youtube.NewAuthenticator(cfg.ClientSecretsFile, cfg.TokenFile)
//	ts, err := auth.TokenSource(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := youtube.NewClient(ctx, ts, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	store, err := storage.NewJSONStore(cfg.StateFile)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	syncer := youtube.NewSyncer(client, store, playlistID, logger)
//	report, err := syncer.Sync(ctx)
//
// Configuration
//
// Settings load from multiple sources, highest priority first:
//
//   1. Environment variables (AWL_*)
//   2. Config file (auto-watch-later.json or ~/.config/auto-watch-later/config.json)
//   3. Default values
//
// Environment variables:
//
//   - AWL_CLIENT_SECRETS: OAuth client secrets file path
//   - AWL_TOKEN_FILE: Cached OAuth token path
//   - AWL_STATE_FILE: Seen-set and sync-state path
//   - AWL_PLAYLIST_ID: Target playlist ID (skips find-or-create)
//   - AWL_PLAYLIST_TITLE: Target playlist title
//   - AWL_SYNC_WINDOW: First-run lookback window
//   - AWL_MAX_RETRIES: Maximum retry attempts
//   - AWL_INITIAL_BACKOFF: Initial retry backoff duration
//   - AWL_MAX_BACKOFF: Maximum retry backoff duration
//
// Error Handling
//
// All operations return errors that implement standard Go error handling:
//
//	if errors.Is(err, watchlater.ErrQuotaExceeded) {
//		fmt.Println("Daily API quota exhausted")
//	}
//
//	var apiErr *watchlater.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("%s failed: %v\n", apiErr.Op, apiErr.Err)
//	}
//
// Sub-packages:
//
//   - youtube: Data API client, OAuth setup, and the sync engine
//   - config: Configuration management
//   - storage: Persistent seen-set and sync-state storage
package watchlater
