package services

import (
	"context"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"intake-backend/internal/models"
	"intake-backend/internal/quiz"
)

// SnapshotWriter persists state changes. Implementations may write
// asynchronously but must apply operations for one session in order.
type SnapshotWriter interface {
	Save(sessionID uuid.UUID, state models.QuizState)
	Clear(sessionID uuid.UUID)
}

// StatePublisher is notified after every state change.
type StatePublisher interface {
	PublishState(ctx context.Context, sessionID uuid.UUID, state models.QuizState)
}

// DirectWriter writes through the gateway on the caller's goroutine.
type DirectWriter struct {
	Gateway *SnapshotGateway
}

func (w DirectWriter) Save(sessionID uuid.UUID, state models.QuizState) {
	w.Gateway.Save(context.Background(), sessionID, state)
}

func (w DirectWriter) Clear(sessionID uuid.UUID) {
	w.Gateway.Clear(context.Background(), sessionID)
}

// QuizSession is the facade one visitor talks to. All transitions go through
// quiz.Reduce; every resulting change is handed to the writer and publisher.
type QuizSession struct {
	id        uuid.UUID
	writer    SnapshotWriter
	publisher StatePublisher

	mu            sync.Mutex
	state         models.QuizState
	answersIntact bool
	lastActive    time.Time
}

// NewQuizSession starts a session from an initialized state and persists it.
func NewQuizSession(id uuid.UUID, state models.QuizState, answersIntact bool, writer SnapshotWriter, publisher StatePublisher) *QuizSession {
	s := &QuizSession{
		id:            id,
		writer:        writer,
		publisher:     publisher,
		state:         state,
		answersIntact: answersIntact,
		lastActive:    time.Now(),
	}
	s.persist(context.Background())
	return s
}

func (s *QuizSession) ID() uuid.UUID { return s.id }

// LastActive reports when the session last handled a transition.
func (s *QuizSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// State returns a deep copy of the current state.
func (s *QuizSession) State() models.QuizState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return quiz.CloneState(s.state)
}

func (s *QuizSession) Progress() models.Progress {
	return quiz.Progress(s.State())
}

// OpenQuiz re-validates stored answers before opening. A completed quiz whose
// answers no longer match the questions is wiped and restarted.
func (s *QuizSession) OpenQuiz(ctx context.Context) models.QuizState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quiz.NeedsReset(s.state, s.answersIntact) {
		log.Printf("Invalid quiz state detected, resetting quiz (session %s)", s.id)
		s.reset(ctx)
	}
	s.dispatch(ctx, quiz.OpenQuiz{})
	return quiz.CloneState(s.state)
}

func (s *QuizSession) CloseQuiz(ctx context.Context) models.QuizState {
	return s.Dispatch(ctx, quiz.CloseQuiz{})
}

func (s *QuizSession) AnswerQuestion(ctx context.Context, questionIndex int, option models.Option) models.QuizState {
	return s.Dispatch(ctx, quiz.AnswerQuestion{QuestionIndex: questionIndex, Option: option})
}

func (s *QuizSession) NextQuestion(ctx context.Context) models.QuizState {
	return s.Dispatch(ctx, quiz.NextQuestion{})
}

func (s *QuizSession) PreviousQuestion(ctx context.Context) models.QuizState {
	return s.Dispatch(ctx, quiz.PreviousQuestion{})
}

// ResetQuiz clears storage and returns to the default state.
func (s *QuizSession) ResetQuiz(ctx context.Context) models.QuizState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset(ctx)
	return quiz.CloneState(s.state)
}

// reset clears storage and writes the default state back even when the state
// did not change, so a session always has a stored snapshot to be restored
// from.
func (s *QuizSession) reset(ctx context.Context) {
	if s.writer != nil {
		s.writer.Clear(s.id)
	}
	s.lastActive = time.Now()
	s.state = quiz.Reduce(s.state, quiz.ResetQuiz{})
	s.answersIntact = true
	s.persist(ctx)
}

func (s *QuizSession) CurrentQuestion() (models.Question, bool) {
	return quiz.CurrentQuestion(s.State())
}

func (s *QuizSession) PreviousAnswer(questionIndex int) (models.Answer, bool) {
	return quiz.FindAnswer(s.State(), questionIndex)
}

// Dispatch applies a raw action.
func (s *QuizSession) Dispatch(ctx context.Context, action quiz.Action) models.QuizState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch(ctx, action)
	return quiz.CloneState(s.state)
}

func (s *QuizSession) dispatch(ctx context.Context, action quiz.Action) {
	s.lastActive = time.Now()
	next := quiz.Reduce(s.state, action)
	if reflect.DeepEqual(next, s.state) {
		return
	}
	s.state = next
	s.persist(ctx)
}

func (s *QuizSession) persist(ctx context.Context) {
	if s.writer != nil {
		s.writer.Save(s.id, s.state)
	}
	if s.publisher != nil {
		s.publisher.PublishState(ctx, s.id, s.state)
	}
}
