package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"intake-backend/internal/models"
	"intake-backend/internal/quiz"
)

// SessionManager owns the live quiz sessions of the service and the
// canonical questionnaire they are reconciled against.
type SessionManager struct {
	gateway   *SnapshotGateway
	writer    SnapshotWriter
	publisher StatePublisher
	source    QuestionSource

	mu            sync.RWMutex
	sessions      map[uuid.UUID]*QuizSession
	questionnaire *models.QuizData
}

func NewSessionManager(gateway *SnapshotGateway, writer SnapshotWriter, publisher StatePublisher, source QuestionSource) *SessionManager {
	return &SessionManager{
		gateway:   gateway,
		writer:    writer,
		publisher: publisher,
		source:    source,
		sessions:  make(map[uuid.UUID]*QuizSession),
	}
}

// RefreshQuestionnaire fetches the canonical questions. On failure the
// previously loaded set is kept; if there is none, sessions start from the
// bundled questionnaire.
func (m *SessionManager) RefreshQuestionnaire(ctx context.Context) models.QuizData {
	if m.source != nil {
		if data, err := m.source.Fetch(ctx); err == nil && data != nil {
			m.mu.Lock()
			m.questionnaire = data
			m.mu.Unlock()
		}
	}
	return m.Questionnaire()
}

// Questionnaire returns the canonical questions currently in use.
func (m *SessionManager) Questionnaire() models.QuizData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.questionnaire == nil {
		return quiz.FallbackData()
	}
	return *m.questionnaire
}

func (m *SessionManager) fresh() *models.QuizData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.questionnaire
}

// Create starts a new session with a default state.
func (m *SessionManager) Create(ctx context.Context) (*QuizSession, error) {
	id := uuid.New()
	state, intact := quiz.Initialize(m.fresh(), nil)
	session := NewQuizSession(id, state, intact, m.writer, m.publisher)

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()
	return session, nil
}

// Get returns a live session or restores it from its persisted snapshot.
func (m *SessionManager) Get(ctx context.Context, id uuid.UUID) (*QuizSession, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return session, nil
	}

	snapshot, ok := m.gateway.Load(ctx, id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	state, intact := quiz.Initialize(m.fresh(), snapshot)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	session = NewQuizSession(id, state, intact, m.writer, m.publisher)
	m.sessions[id] = session
	return session, nil
}

// Evict drops a session from memory. Its snapshot stays in storage.
func (m *SessionManager) Evict(id uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// EvictIdle drops sessions with no transition since cutoff and reports how
// many were removed. Evicted sessions are restored from storage on next use.
func (m *SessionManager) EvictIdle(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, session := range m.sessions {
		if session.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close drops all live sessions and, when the writer is asynchronous, waits
// for pending snapshot writes.
func (m *SessionManager) Close() {
	m.mu.Lock()
	m.sessions = make(map[uuid.UUID]*QuizSession)
	m.mu.Unlock()

	if stopper, ok := m.writer.(interface{ Stop() }); ok {
		stopper.Stop()
	}
}
