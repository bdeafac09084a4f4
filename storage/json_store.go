package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"time"
)

const (
	schemaVersion = "1.0"
	lockTimeout   = 5 * time.Second
)

// JSONStore implements Store using a single JSON file.
type JSONStore struct {
	path string
	lock *fileLock
	data *storeData
	mu   sync.RWMutex
}

// storeData is the top-level JSON structure.
type storeData struct {
	Version   string                `json:"version"`
	UpdatedAt time.Time             `json:"updated_at"`
	Seen      map[string]*SeenVideo `json:"seen"`       // video_id -> entry
	SyncState *SyncState            `json:"sync_state,omitempty"`
}

// NewJSONStore creates a new JSON file store at the given path.
// If the file exists, it is loaded; otherwise an empty store is created.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{
		path: path,
		lock: newFileLock(path),
	}

	if err := s.lock.Lock(lockTimeout); err != nil {
		return nil, err
	}

	if err := s.load(); err != nil {
		s.lock.Unlock()
		return nil, err
	}

	return s, nil
}

// load reads the JSON file into memory. Creates empty data if file doesn't exist.
func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = newStoreData()
			// Save immediately to catch permission errors early
			return s.save()
		}
		return &StorageError{Op: "read", Entity: "store", Err: err}
	}

	s.data = &storeData{}
	if err := json.Unmarshal(data, s.data); err != nil {
		return &StorageError{Op: "read", Entity: "store", Err: ErrStorageCorrupt}
	}

	if s.data.Seen == nil {
		s.data.Seen = make(map[string]*SeenVideo)
	}

	return nil
}

// save persists the data to disk atomically.
func (s *JSONStore) save() error {
	s.data.UpdatedAt = time.Now()

	err := writeFileAtomic(s.path, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(s.data)
	})
	if err != nil {
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}

	return nil
}

// Close releases resources held by the store.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Unlock()
}

func newStoreData() *storeData {
	return &storeData{
		Version:   schemaVersion,
		UpdatedAt: time.Now(),
		Seen:      make(map[string]*SeenVideo),
	}
}

// --- SeenStore implementation ---

func (s *JSONStore) IsSeen(ctx context.Context, videoID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if videoID == "" {
		return false, &StorageError{Op: "read", Entity: "seen_video", Err: ErrInvalidInput}
	}

	_, exists := s.data.Seen[videoID]
	return exists, nil
}

func (s *JSONStore) MarkSeen(ctx context.Context, video *SeenVideo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if video == nil || video.VideoID == "" {
		return &StorageError{Op: "mark", Entity: "seen_video", Err: ErrInvalidInput}
	}

	if _, exists := s.data.Seen[video.VideoID]; exists {
		return &StorageError{Op: "mark", Entity: "seen_video", ID: video.VideoID, Err: ErrAlreadyExists}
	}

	if video.QueuedAt.IsZero() {
		video.QueuedAt = time.Now()
	}
	s.data.Seen[video.VideoID] = video

	return s.save()
}

func (s *JSONStore) SeenCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data.Seen), nil
}

func (s *JSONStore) ListSeen(ctx context.Context) ([]*SeenVideo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make([]*SeenVideo, 0, len(s.data.Seen))
	for _, v := range s.data.Seen {
		seen = append(seen, v)
	}
	return seen, nil
}

// --- SyncStateStore implementation ---

func (s *JSONStore) GetSyncState(ctx context.Context) (*SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data.SyncState == nil {
		return nil, &StorageError{Op: "read", Entity: "sync_state", Err: ErrNotFound}
	}
	return s.data.SyncState, nil
}

func (s *JSONStore) UpdateSyncState(ctx context.Context, state *SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state == nil {
		return &StorageError{Op: "write", Entity: "sync_state", Err: ErrInvalidInput}
	}

	s.data.SyncState = state
	return s.save()
}
