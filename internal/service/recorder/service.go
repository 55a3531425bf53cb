package recorder

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/mlavrik/voiceloop/internal/metrics"
)

var (
	ErrNotRecording      = errors.New("no active recording")
	ErrRecordingTooLarge = errors.New("recording exceeds size limit")
	ErrEmptyRecording    = errors.New("recording is empty")
)

// recording holds one in-flight microphone capture. It exists only
// between Start and Stop.
type recording struct {
	sessionID string
	format    string
	startedAt time.Time
	buf       bytes.Buffer
}

// Service manages server-held recording sessions keyed by session id.
type Service struct {
	mu       sync.Mutex
	active   map[string]*recording
	maxBytes int
	metrics  *metrics.Metrics
}

// NewService creates the recorder. maxBytes caps a single recording
// buffer; m may be nil in tests.
func NewService(maxBytes int, m *metrics.Metrics) *Service {
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	return &Service{
		active:   make(map[string]*recording),
		maxBytes: maxBytes,
		metrics:  m,
	}
}

// Start opens a recording for the session. Starting an already-recording
// session resets its buffer: at most one capture per session, most
// recent wins.
func (s *Service) Start(sessionID, format string) {
	if format == "" {
		format = "wav"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.active[sessionID]; !exists && s.metrics != nil {
		s.metrics.ActiveRecordings.Inc()
	}

	s.active[sessionID] = &recording{
		sessionID: sessionID,
		format:    format,
		startedAt: time.Now().UTC(),
	}
}

// Append adds an audio chunk to the session's open recording.
func (s *Service) Append(sessionID string, chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.active[sessionID]
	if !ok {
		return ErrNotRecording
	}

	if rec.buf.Len()+len(chunk) > s.maxBytes {
		delete(s.active, sessionID)
		if s.metrics != nil {
			s.metrics.ActiveRecordings.Dec()
		}
		return ErrRecordingTooLarge
	}

	rec.buf.Write(chunk)
	if s.metrics != nil {
		s.metrics.RecordedBytes.Add(float64(len(chunk)))
	}
	return nil
}

// Stop closes the recording and returns the captured buffer and format.
// Empty recordings are discarded and reported as ErrEmptyRecording.
func (s *Service) Stop(sessionID string) ([]byte, string, error) {
	s.mu.Lock()
	rec, ok := s.active[sessionID]
	if ok {
		delete(s.active, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return nil, "", ErrNotRecording
	}
	if s.metrics != nil {
		s.metrics.ActiveRecordings.Dec()
	}

	if rec.buf.Len() == 0 {
		if s.metrics != nil {
			s.metrics.DiscardedRecords.Inc()
		}
		return nil, "", ErrEmptyRecording
	}

	return rec.buf.Bytes(), rec.format, nil
}

// Abort drops an open recording without returning its buffer.
func (s *Service) Abort(sessionID string) {
	s.mu.Lock()
	_, ok := s.active[sessionID]
	if ok {
		delete(s.active, sessionID)
	}
	s.mu.Unlock()

	if ok && s.metrics != nil {
		s.metrics.ActiveRecordings.Dec()
	}
}

// Recording reports whether the session has an open recording.
func (s *Service) Recording(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[sessionID]
	return ok
}
