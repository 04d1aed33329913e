package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"intake-backend/internal/models"
	"intake-backend/internal/quiz"
)

// StorageKey is the fixed key under which a quiz snapshot is stored.
const StorageKey = "quiz_state"

// KeyValueStore is a synchronous string store addressed by key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// SnapshotGateway reads and writes quiz snapshots. None of its methods fail:
// storage errors are logged and treated as "write skipped" or "no value".
// A nil store means persistence is unavailable.
type SnapshotGateway struct {
	store KeyValueStore
}

func NewSnapshotGateway(store KeyValueStore) *SnapshotGateway {
	return &SnapshotGateway{store: store}
}

// Key returns the storage key for a session. uuid.Nil maps to the bare key,
// which single-user consumers use.
func Key(sessionID uuid.UUID) string {
	if sessionID == uuid.Nil {
		return StorageKey
	}
	return StorageKey + ":" + sessionID.String()
}

// Save writes the durable subset of state. IsOpen is never written.
func (g *SnapshotGateway) Save(ctx context.Context, sessionID uuid.UUID, state models.QuizState) {
	if g == nil || g.store == nil {
		return
	}
	snapshot, err := quiz.EncodeSnapshot(state)
	if err != nil {
		log.Printf("Could not save quiz state: %v", err)
		return
	}
	serialized, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("Could not save quiz state: %v", err)
		return
	}
	if err := g.store.Set(ctx, Key(sessionID), string(serialized)); err != nil {
		log.Printf("Could not save quiz state: %v", err)
	}
}

// Load returns the stored snapshot, or false when nothing usable is stored.
func (g *SnapshotGateway) Load(ctx context.Context, sessionID uuid.UUID) (*models.Snapshot, bool) {
	if g == nil || g.store == nil {
		return nil, false
	}
	serialized, ok, err := g.store.Get(ctx, Key(sessionID))
	if err != nil {
		log.Printf("Could not load quiz state: %v", err)
		return nil, false
	}
	if !ok || serialized == "" || serialized == "null" {
		return nil, false
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal([]byte(serialized), &snapshot); err != nil {
		log.Printf("Could not load quiz state: %v", err)
		return nil, false
	}
	return &snapshot, true
}

// Clear removes the stored snapshot.
func (g *SnapshotGateway) Clear(ctx context.Context, sessionID uuid.UUID) {
	if g == nil || g.store == nil {
		return
	}
	if err := g.store.Remove(ctx, Key(sessionID)); err != nil {
		log.Printf("Could not clear quiz state: %v", err)
	}
}
