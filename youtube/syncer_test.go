package youtube

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Noahffiliation/auto-watch-later/storage"
)

const testPlaylistID = "PLtest123"

// fakeAPI is an in-memory stand-in for the Data API client.
type fakeAPI struct {
	subs      []Subscription
	subsErr   error
	uploads   map[string][]Video
	uploadErr map[string]error
	playlist  map[string]struct{}
	insertErr map[string]error

	inserted      []string
	lastSince     time.Time
	playlistCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		uploads:   make(map[string][]Video),
		uploadErr: make(map[string]error),
		playlist:  make(map[string]struct{}),
		insertErr: make(map[string]error),
	}
}

func (f *fakeAPI) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	if f.subsErr != nil {
		return nil, f.subsErr
	}
	return f.subs, nil
}

func (f *fakeAPI) RecentUploads(ctx context.Context, channelID string, since time.Time, maxPerChannel int64) ([]Video, error) {
	f.lastSince = since
	if err := f.uploadErr[channelID]; err != nil {
		return nil, err
	}
	var recent []Video
	for _, v := range f.uploads[channelID] {
		if v.Published.After(since) {
			recent = append(recent, v)
		}
	}
	return recent, nil
}

func (f *fakeAPI) PlaylistVideoIDs(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	f.playlistCalls++
	ids := make(map[string]struct{}, len(f.playlist))
	for id := range f.playlist {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (f *fakeAPI) InsertPlaylistItem(ctx context.Context, playlistID, videoID string) error {
	if err := f.insertErr[videoID]; err != nil {
		return err
	}
	f.inserted = append(f.inserted, videoID)
	f.playlist[videoID] = struct{}{}
	return nil
}

func newTestSyncer(t *testing.T, api API) (*Syncer, storage.Store) {
	t.Helper()
	store, err := storage.NewJSONStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewSyncer(api, store, testPlaylistID, zerolog.Nop()), store
}

func upload(id, channelID string, published time.Time) Video {
	return Video{
		ID:           id,
		Title:        "Video " + id,
		ChannelID:    channelID,
		ChannelTitle: "Channel " + channelID,
		Published:    published,
	}
}

func TestSync_InsertsNewUploads(t *testing.T) {
	now := time.Now()
	api := newFakeAPI()
	api.subs = []Subscription{
		{ChannelID: "UC1", Title: "One"},
		{ChannelID: "UC2", Title: "Two"},
	}
	for i := 0; i < 3; i++ {
		api.uploads["UC1"] = append(api.uploads["UC1"],
			upload(fmt.Sprintf("a%d", i), "UC1", now.Add(-time.Duration(i+1)*time.Hour)))
		api.uploads["UC2"] = append(api.uploads["UC2"],
			upload(fmt.Sprintf("b%d", i), "UC2", now.Add(-time.Duration(i+1)*time.Minute)))
	}

	syncer, store := newTestSyncer(t, api)
	report, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if report.Added != 6 {
		t.Errorf("Added = %d, want 6", report.Added)
	}
	if !report.Complete {
		t.Error("Complete = false, want true")
	}
	if len(report.Errors) != 0 {
		t.Errorf("Errors = %v, want none", report.Errors)
	}

	count, err := store.SeenCount(context.Background())
	if err != nil {
		t.Fatalf("SeenCount() error = %v", err)
	}
	if count != 6 {
		t.Errorf("SeenCount() = %d, want 6", count)
	}
	for _, id := range []string{"a0", "a1", "a2", "b0", "b1", "b2"} {
		seen, _ := store.IsSeen(context.Background(), id)
		if !seen {
			t.Errorf("video %s not in seen set", id)
		}
	}
}

func TestSync_ChronologicalOrder(t *testing.T) {
	now := time.Now()
	api := newFakeAPI()
	api.subs = []Subscription{
		{ChannelID: "UC1"},
		{ChannelID: "UC2"},
	}
	// Interleaved publish times across the two channels.
	api.uploads["UC1"] = []Video{
		upload("a-new", "UC1", now.Add(-1*time.Hour)),
		upload("a-old", "UC1", now.Add(-10*time.Hour)),
	}
	api.uploads["UC2"] = []Video{
		upload("b-mid", "UC2", now.Add(-5*time.Hour)),
	}

	syncer, _ := newTestSyncer(t, api)
	if _, err := syncer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	want := []string{"a-old", "b-mid", "a-new"}
	if len(api.inserted) != len(want) {
		t.Fatalf("inserted %d videos, want %d", len(api.inserted), len(want))
	}
	for i, id := range want {
		if api.inserted[i] != id {
			t.Errorf("insert order[%d] = %s, want %s", i, api.inserted[i], id)
		}
	}
}

func TestSync_Idempotent(t *testing.T) {
	now := time.Now()
	api := newFakeAPI()
	api.subs = []Subscription{{ChannelID: "UC1"}}
	api.uploads["UC1"] = []Video{upload("v1", "UC1", now.Add(-time.Hour))}

	syncer, _ := newTestSyncer(t, api)
	ctx := context.Background()

	first, err := syncer.Sync(ctx)
	if err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	if first.Added != 1 {
		t.Fatalf("first run Added = %d, want 1", first.Added)
	}

	// No new uploads since; second run must insert nothing.
	second, err := syncer.Sync(ctx)
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if second.Added != 0 {
		t.Errorf("second run Added = %d, want 0", second.Added)
	}
	if len(api.inserted) != 1 {
		t.Errorf("total inserts = %d, want 1 (no duplicates)", len(api.inserted))
	}
}

func TestSync_SeenVideoNeverReinserted(t *testing.T) {
	now := time.Now()
	api := newFakeAPI()
	api.subs = []Subscription{{ChannelID: "UC1"}}
	api.uploads["UC1"] = []Video{
		upload("known", "UC1", now.Add(-time.Hour)),
		upload("fresh", "UC1", now.Add(-time.Minute)),
	}

	syncer, store := newTestSyncer(t, api)
	ctx := context.Background()
	if err := store.MarkSeen(ctx, &storage.SeenVideo{VideoID: "known"}); err != nil {
		t.Fatalf("MarkSeen() error = %v", err)
	}

	report, err := syncer.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if report.Added != 1 {
		t.Errorf("Added = %d, want 1", report.Added)
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}
	for _, id := range api.inserted {
		if id == "known" {
			t.Error("seen video was re-inserted")
		}
	}
}

func TestSync_DedupesAgainstPlaylistContents(t *testing.T) {
	now := time.Now()
	api := newFakeAPI()
	api.subs = []Subscription{{ChannelID: "UC1"}}
	api.uploads["UC1"] = []Video{upload("queued", "UC1", now.Add(-time.Hour))}
	// Already in the playlist, but not in the local store.
	api.playlist["queued"] = struct{}{}

	syncer, _ := newTestSyncer(t, api)
	report, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if report.Added != 0 {
		t.Errorf("Added = %d, want 0", report.Added)
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}
	if len(api.inserted) != 0 {
		t.Errorf("inserts = %v, want none", api.inserted)
	}
}

func TestSync_ChannelFailureIsolated(t *testing.T) {
	now := time.Now()
	api := newFakeAPI()
	api.subs = []Subscription{
		{ChannelID: "UC1"},
		{ChannelID: "UC2"},
		{ChannelID: "UC3"},
	}
	api.uploads["UC1"] = []Video{upload("v1", "UC1", now.Add(-time.Hour))}
	api.uploadErr["UC2"] = &APIError{Op: "activities.list", Resource: "UC2", Err: ErrNotFound}
	api.uploads["UC3"] = []Video{upload("v3", "UC3", now.Add(-time.Minute))}

	syncer, _ := newTestSyncer(t, api)
	report, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if report.Added != 2 {
		t.Errorf("Added = %d, want 2", report.Added)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("Errors = %d, want 1", len(report.Errors))
	}
	if report.Errors[0].ChannelID != "UC2" {
		t.Errorf("error channel = %s, want UC2", report.Errors[0].ChannelID)
	}
	if !report.Complete {
		t.Error("Complete = false, want true (per-channel failure is not fatal)")
	}
}

func TestSync_RateLimitDegradesToPartial(t *testing.T) {
	now := time.Now()
	api := newFakeAPI()
	api.subs = []Subscription{
		{ChannelID: "UC1"},
		{ChannelID: "UC2"},
		{ChannelID: "UC3"},
	}
	api.uploads["UC1"] = []Video{upload("v1", "UC1", now.Add(-time.Hour))}
	api.uploadErr["UC2"] = &APIError{Op: "activities.list", Resource: "UC2", Err: fmt.Errorf("%w: retries exhausted", ErrRateLimited)}

	syncer, store := newTestSyncer(t, api)
	ctx := context.Background()
	report, err := syncer.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if report.Unprocessed != 2 {
		t.Errorf("Unprocessed = %d, want 2 (UC2 and UC3)", report.Unprocessed)
	}
	if report.Complete {
		t.Error("Complete = true, want false")
	}
	// What was collected before the limit still gets queued.
	if report.Added != 1 {
		t.Errorf("Added = %d, want 1", report.Added)
	}

	// Watermark must not advance on a partial run.
	state, err := store.GetSyncState(ctx)
	if err != nil {
		t.Fatalf("GetSyncState() error = %v", err)
	}
	if !state.LastSyncAt.IsZero() {
		t.Errorf("LastSyncAt = %v, want zero after partial run", state.LastSyncAt)
	}
}

func TestSync_InsertFailureSkipsVideo(t *testing.T) {
	now := time.Now()
	api := newFakeAPI()
	api.subs = []Subscription{{ChannelID: "UC1"}}
	api.uploads["UC1"] = []Video{
		upload("gone", "UC1", now.Add(-2*time.Hour)),
		upload("ok", "UC1", now.Add(-time.Hour)),
	}
	api.insertErr["gone"] = &APIError{Op: "playlistItems.insert", Resource: "gone", Err: ErrNotFound}

	syncer, store := newTestSyncer(t, api)
	ctx := context.Background()
	report, err := syncer.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if report.Added != 1 {
		t.Errorf("Added = %d, want 1", report.Added)
	}
	if len(report.Errors) != 1 || report.Errors[0].VideoID != "gone" {
		t.Errorf("Errors = %v, want one for video 'gone'", report.Errors)
	}
	if !report.Complete {
		t.Error("Complete = false, want true")
	}

	// Failed insert must not enter the seen set.
	seen, _ := store.IsSeen(ctx, "gone")
	if seen {
		t.Error("video with failed insert was marked seen")
	}
}

func TestSync_WatermarkAdvancesOnCompleteRun(t *testing.T) {
	now := time.Now()
	api := newFakeAPI()
	api.subs = []Subscription{{ChannelID: "UC1"}}
	api.uploads["UC1"] = []Video{upload("v1", "UC1", now.Add(-time.Hour))}

	syncer, store := newTestSyncer(t, api)
	ctx := context.Background()

	report, err := syncer.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	state, err := store.GetSyncState(ctx)
	if err != nil {
		t.Fatalf("GetSyncState() error = %v", err)
	}
	if !state.LastSyncAt.Equal(report.StartedAt) {
		t.Errorf("LastSyncAt = %v, want run start %v", state.LastSyncAt, report.StartedAt)
	}
	if state.Runs != 1 {
		t.Errorf("Runs = %d, want 1", state.Runs)
	}
	if state.VideosQueued != 1 {
		t.Errorf("VideosQueued = %d, want 1", state.VideosQueued)
	}

	// Next run filters with the persisted watermark.
	if _, err := syncer.Sync(ctx); err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if !api.lastSince.Equal(report.StartedAt) {
		t.Errorf("second run since = %v, want %v", api.lastSince, report.StartedAt)
	}
}

func TestSync_AuthFailureIsFatal(t *testing.T) {
	api := newFakeAPI()
	api.subsErr = &APIError{Op: "subscriptions.list", Err: ErrAuthFailed}

	syncer, _ := newTestSyncer(t, api)
	_, err := syncer.Sync(context.Background())
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Sync() error = %v, want ErrAuthFailed", err)
	}
}

func TestSync_DryRun(t *testing.T) {
	now := time.Now()
	api := newFakeAPI()
	api.subs = []Subscription{{ChannelID: "UC1"}}
	api.uploads["UC1"] = []Video{upload("v1", "UC1", now.Add(-time.Hour))}

	syncer, store := newTestSyncer(t, api)
	syncer.DryRun = true
	ctx := context.Background()

	report, err := syncer.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if report.Added != 1 {
		t.Errorf("Added = %d, want 1 (reported, not performed)", report.Added)
	}
	if len(api.inserted) != 0 {
		t.Errorf("dry run performed %d inserts", len(api.inserted))
	}
	if count, _ := store.SeenCount(ctx); count != 0 {
		t.Errorf("dry run persisted %d seen entries", count)
	}
	if _, err := store.GetSyncState(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("dry run persisted sync state, err = %v", err)
	}
}

func TestSync_DryRunWithoutPlaylist(t *testing.T) {
	now := time.Now()
	api := newFakeAPI()
	api.subs = []Subscription{{ChannelID: "UC1"}}
	api.uploads["UC1"] = []Video{upload("v1", "UC1", now.Add(-time.Hour))}

	syncer, _ := newTestSyncer(t, api)
	syncer.PlaylistID = ""
	syncer.DryRun = true

	report, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if report.Added != 1 {
		t.Errorf("Added = %d, want 1", report.Added)
	}
	if len(api.inserted) != 0 {
		t.Errorf("dry run performed %d inserts", len(api.inserted))
	}
	// No playlist exists yet, so there is nothing to list.
	if api.playlistCalls != 0 {
		t.Errorf("playlist listed %d times, want 0", api.playlistCalls)
	}
}
