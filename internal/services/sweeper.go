package services

import (
	"context"
	"log"
	"time"
)

const sweepPollInterval = 1 * time.Minute

// SessionSweeper runs the periodic upkeep of a SessionManager: evicting idle
// sessions from memory and re-fetching the canonical questionnaire.
type SessionSweeper struct {
	manager         *SessionManager
	idleTTL         time.Duration
	refreshInterval time.Duration
	stopChan        chan struct{}
}

func NewSessionSweeper(manager *SessionManager, idleTTL, refreshInterval time.Duration) *SessionSweeper {
	return &SessionSweeper{
		manager:         manager,
		idleTTL:         idleTTL,
		refreshInterval: refreshInterval,
		stopChan:        make(chan struct{}),
	}
}

func (s *SessionSweeper) Start() {
	if s.manager == nil {
		return
	}

	if s.idleTTL > 0 {
		go s.loop(min(s.idleTTL, sweepPollInterval), func(ctx context.Context, now time.Time) {
			s.evictIdle(now)
		})
	}
	if s.refreshInterval > 0 {
		go s.loop(s.refreshInterval, func(ctx context.Context, now time.Time) {
			data := s.manager.RefreshQuestionnaire(ctx)
			log.Printf("Questionnaire refreshed (%d questions)", len(data.Questions))
		})
	}

	log.Printf("Session sweeper started")
}

func (s *SessionSweeper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *SessionSweeper) loop(interval time.Duration, runFn func(ctx context.Context, now time.Time)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			runFn(context.Background(), time.Now())
		}
	}
}

func (s *SessionSweeper) evictIdle(now time.Time) int {
	evicted := s.manager.EvictIdle(now.Add(-s.idleTTL))
	if evicted > 0 {
		log.Printf("Evicted %d idle quiz sessions", evicted)
	}
	return evicted
}
