package worker

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"intake-backend/internal/models"
)

type op struct {
	kind  string
	index int
}

type recordingPersister struct {
	mu  sync.Mutex
	ops map[uuid.UUID][]op
}

func newRecordingPersister() *recordingPersister {
	return &recordingPersister{ops: map[uuid.UUID][]op{}}
}

func (p *recordingPersister) Save(ctx context.Context, sessionID uuid.UUID, state models.QuizState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops[sessionID] = append(p.ops[sessionID], op{kind: "save", index: state.CurrentQuestionIndex})
}

func (p *recordingPersister) Clear(ctx context.Context, sessionID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops[sessionID] = append(p.ops[sessionID], op{kind: "clear"})
}

func TestPool_PreservesOrderPerSession(t *testing.T) {
	persister := newRecordingPersister()
	pool := NewPool(persister, 4, 8)
	pool.Start()

	sessions := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for i := 0; i < 50; i++ {
		for _, id := range sessions {
			pool.Save(id, models.QuizState{CurrentQuestionIndex: i})
		}
	}
	for _, id := range sessions {
		pool.Clear(id)
	}
	pool.Stop()

	for _, id := range sessions {
		ops := persister.ops[id]
		if len(ops) != 51 {
			t.Fatalf("expected 51 operations for %s, got %d", id, len(ops))
		}
		for i := 0; i < 50; i++ {
			if ops[i].kind != "save" || ops[i].index != i {
				t.Fatalf("expected save %d in order, got %+v", i, ops[i])
			}
		}
		if ops[50].kind != "clear" {
			t.Fatalf("expected clear last, got %+v", ops[50])
		}
	}
}

func TestPool_ShardIsStable(t *testing.T) {
	pool := NewPool(newRecordingPersister(), 8, 1)
	id := uuid.New()

	first := pool.shard(id)
	for i := 0; i < 10; i++ {
		if pool.shard(id) != first {
			t.Fatalf("expected the same shard for the same session")
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard out of range: %d", first)
	}
}

func TestPool_WritesAfterStopRunInline(t *testing.T) {
	persister := newRecordingPersister()
	pool := NewPool(persister, 2, 1)
	pool.Start()
	pool.Stop()
	pool.Stop()

	id := uuid.New()
	pool.Save(id, models.QuizState{CurrentQuestionIndex: 2})

	if ops := persister.ops[id]; len(ops) != 1 || ops[0].index != 2 {
		t.Fatalf("expected inline write after stop, got %+v", ops)
	}
}

func TestNewPool_Defaults(t *testing.T) {
	pool := NewPool(newRecordingPersister(), 0, 0)
	if pool.workerCount != 1 {
		t.Fatalf("expected at least one worker, got %d", pool.workerCount)
	}
	if cap(pool.queues[0]) != 64 {
		t.Fatalf("expected default queue size 64, got %d", cap(pool.queues[0]))
	}
}
