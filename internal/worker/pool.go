package worker

import (
	"context"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"intake-backend/internal/models"
)

// Persister applies snapshot jobs to storage.
type Persister interface {
	Save(ctx context.Context, sessionID uuid.UUID, state models.QuizState)
	Clear(ctx context.Context, sessionID uuid.UUID)
}

// Pool writes quiz snapshots off the request path. Jobs are sharded by
// session id, so every session is owned by exactly one worker and its saves
// and clears land in the order they were issued.
type Pool struct {
	persister   Persister
	workerCount int
	timeout     time.Duration
	queues      []chan models.SnapshotJob

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewPool(persister Persister, workerCount int, queueSize int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 64
	}
	queues := make([]chan models.SnapshotJob, workerCount)
	for i := range queues {
		queues[i] = make(chan models.SnapshotJob, queueSize)
	}
	return &Pool{
		persister:   persister,
		workerCount: workerCount,
		timeout:     5 * time.Second,
		queues:      queues,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, p.queues[i])
	}

	log.Printf("Started %d snapshot workers", p.workerCount)
}

// Stop refuses new jobs and waits for queued ones to be written.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) Save(sessionID uuid.UUID, state models.QuizState) {
	p.enqueue(models.SnapshotJob{SessionID: sessionID, Type: models.SnapshotSave, State: state})
}

func (p *Pool) Clear(sessionID uuid.UUID) {
	p.enqueue(models.SnapshotJob{SessionID: sessionID, Type: models.SnapshotClear})
}

func (p *Pool) enqueue(job models.SnapshotJob) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		// Late writes after shutdown still go through, synchronously.
		p.process(0, job)
		return
	}
	p.queues[p.shard(job.SessionID)] <- job
}

func (p *Pool) shard(sessionID uuid.UUID) int {
	h := fnv.New32a()
	h.Write(sessionID[:])
	return int(h.Sum32() % uint32(p.workerCount))
}

func (p *Pool) worker(id int, jobs <-chan models.SnapshotJob) {
	defer p.wg.Done()
	for job := range jobs {
		p.process(id, job)
	}
	log.Printf("Snapshot worker %d shutting down", id)
}

func (p *Pool) process(id int, job models.SnapshotJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	switch job.Type {
	case models.SnapshotSave:
		p.persister.Save(ctx, job.SessionID, job.State)
	case models.SnapshotClear:
		p.persister.Clear(ctx, job.SessionID)
	default:
		log.Printf("Snapshot worker %d: unknown job type: %s", id, job.Type)
	}
}
