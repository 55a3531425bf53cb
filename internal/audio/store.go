package audio

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an audio id is unknown or already evicted.
var ErrNotFound = errors.New("audio not found")

// Clip is one stored playback buffer.
type Clip struct {
	Data     []byte
	Format   string
	StoredAt time.Time
}

// Store holds locally produced audio in memory so fallback clips can be
// served by URL. Bounded: inserting past the limit evicts the oldest clip.
type Store struct {
	mu    sync.RWMutex
	clips map[string]Clip
	order []string
	limit int
}

// NewStore creates a playback store keeping at most limit clips.
func NewStore(limit int) *Store {
	if limit < 1 {
		limit = 1
	}
	return &Store{
		clips: make(map[string]Clip),
		limit: limit,
	}
}

// Put stores a clip and returns its generated id.
func (s *Store) Put(data []byte, format string) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.order) >= s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.clips, oldest)
	}

	s.clips[id] = Clip{Data: data, Format: format, StoredAt: time.Now().UTC()}
	s.order = append(s.order, id)
	return id
}

// Get retrieves a clip by id.
func (s *Store) Get(id string) (Clip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clip, ok := s.clips[id]
	if !ok {
		return Clip{}, ErrNotFound
	}
	return clip, nil
}

// Len reports the number of stored clips.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clips)
}
