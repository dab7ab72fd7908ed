package flow

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"onboarding-service/internal/models"
)

// ErrSessionNotFound is returned when a session id has no stored record.
var ErrSessionNotFound = errors.New("flow session not found")

// SessionStore persists partial flow progress keyed by an opaque session id.
type SessionStore interface {
	Create(ctx context.Context, flow string) (*models.FlowSession, error)
	Get(ctx context.Context, id string) (*models.FlowSession, error)
	Update(ctx context.Context, session *models.FlowSession) error
}

// MemorySessionStore is an in-process SessionStore used in tests and
// single-node development runs.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.FlowSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*models.FlowSession)}
}

func (s *MemorySessionStore) Create(_ context.Context, flow string) (*models.FlowSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := models.NewFlowSession(uuid.New().String(), flow)
	s.sessions[session.ID] = session
	return session, nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*models.FlowSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *session
	copied.Fields = make(map[string]string, len(session.Fields))
	for k, v := range session.Fields {
		copied.Fields[k] = v
	}
	return &copied, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *MemorySessionStore) Update(_ context.Context, session *models.FlowSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	copied.Fields = make(map[string]string, len(session.Fields))
	for k, v := range session.Fields {
		copied.Fields[k] = v
	}
	s.sessions[session.ID] = &copied
	return nil
}
