package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	model "github.com/mlavrik/voiceloop/internal/model/session"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrRoundInProgress   = errors.New("a round is already processing")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Service is the view-state holder: one session record and one mutable
// state per session, plus subscriber channels for SSE/websocket fan-out.
// The state carries the most recent round only and is overwritten
// wholesale when a round completes or fails.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	states   map[string]model.State
	subs     map[string]map[int]chan model.State
	nextSub  int
}

// NewService bootstraps the in-memory session service.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]model.Session),
		states:   make(map[string]model.State),
		subs:     make(map[string]map[int]chan model.State),
	}
}

// Create provisions an anonymous session bound to an assistant profile.
func (s *Service) Create(_ context.Context, profileID string) (model.Session, error) {
	sess := model.Session{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.states[sess.ID] = model.State{
		SessionID: sess.ID,
		Status:    model.StatusIdle,
		UpdatedAt: sess.CreatedAt,
	}
	s.mu.Unlock()

	return sess, nil
}

// Get retrieves a session by identifier.
func (s *Service) Get(_ context.Context, sessionID string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// GetState returns the current view state for the session.
func (s *Service) GetState(_ context.Context, sessionID string) (model.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sessionID]
	if !ok {
		return model.State{}, ErrSessionNotFound
	}
	return state, nil
}

// StartRecording moves the session into the recording state. Allowed
// from any settled state; rejected while a round is processing.
func (s *Service) StartRecording(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if state.Status == model.StatusProcessing {
		return ErrRoundInProgress
	}

	s.setStateLocked(model.State{
		SessionID: sessionID,
		Status:    model.StatusRecording,
	})
	return nil
}

// StartProcessing marks the beginning of a round. A session may enter
// processing from recording (websocket stop) or from a settled state
// (direct upload); concurrent rounds are rejected.
func (s *Service) StartProcessing(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if state.Status == model.StatusProcessing {
		return ErrRoundInProgress
	}

	s.setStateLocked(model.State{
		SessionID: sessionID,
		Status:    model.StatusProcessing,
	})
	return nil
}

// CancelRecording returns a recording session to idle without a round.
func (s *Service) CancelRecording(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if state.Status != model.StatusRecording {
		return ErrInvalidTransition
	}

	s.setStateLocked(model.State{
		SessionID: sessionID,
		Status:    model.StatusIdle,
	})
	return nil
}

// CompleteTurn replaces the session state with the finished round.
func (s *Service) CompleteTurn(sessionID string, turn model.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[sessionID]; !ok {
		return ErrSessionNotFound
	}

	s.setStateLocked(model.State{
		SessionID:  sessionID,
		Status:     model.StatusReady,
		Transcript: turn.Transcript,
		Reply:      turn.Reply,
		AudioURL:   turn.AudioURL,
		TurnID:     turn.ID,
	})
	return nil
}

// FailTurn records a failed round. The transcript captured before the
// failure is kept so the client can still show what was heard.
func (s *Service) FailTurn(sessionID, transcript, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[sessionID]; !ok {
		return ErrSessionNotFound
	}

	s.setStateLocked(model.State{
		SessionID:  sessionID,
		Status:     model.StatusError,
		Transcript: transcript,
		Error:      message,
	})
	return nil
}

// Subscribe registers a state listener for the session. The returned
// cancel function must be called when the listener goes away. Slow
// listeners miss intermediate snapshots rather than blocking rounds.
func (s *Service) Subscribe(sessionID string) (<-chan model.State, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, nil, ErrSessionNotFound
	}

	ch := make(chan model.State, 8)
	id := s.nextSub
	s.nextSub++

	if s.subs[sessionID] == nil {
		s.subs[sessionID] = make(map[int]chan model.State)
	}
	s.subs[sessionID][id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if listeners, ok := s.subs[sessionID]; ok {
			if _, ok := listeners[id]; ok {
				delete(listeners, id)
				close(ch)
			}
		}
	}

	return ch, cancel, nil
}

// setStateLocked stamps and stores the state, then fans it out. Callers
// hold the write lock.
func (s *Service) setStateLocked(state model.State) {
	state.UpdatedAt = time.Now().UTC()
	s.states[state.SessionID] = state

	for _, ch := range s.subs[state.SessionID] {
		select {
		case ch <- state:
		default:
			// Listener is behind; it will catch up on the next snapshot.
		}
	}
}
