package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
)

const checkpointKeyPrefix = "oai:checkpoint"

// Checkpoint records how far a harvest stream has been written, so an
// interrupted run can resume instead of starting over. Docs mirrors the
// shared success counter at the time the checkpoint was taken.
type Checkpoint struct {
	LastIdentifier string    `json:"last_identifier"`
	Docs           int64     `json:"docs"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CheckpointStore persists harvest checkpoints in Redis, one key per
// stream.
type CheckpointStore struct {
	engine *RedisEngine
}

// NewCheckpointStore creates a store backed by the given engine.
func NewCheckpointStore(engine *RedisEngine) *CheckpointStore {
	return &CheckpointStore{engine: engine}
}

// Save writes the checkpoint for a stream. Checkpoints do not expire.
func (s *CheckpointStore) Save(ctx context.Context, stream string, cp Checkpoint) error {
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal checkpoint")
	}
	return s.engine.Set(ctx, checkpointKey(stream), data, 0)
}

// Load returns the checkpoint for a stream, or nil when none was saved.
func (s *CheckpointStore) Load(ctx context.Context, stream string) (*Checkpoint, error) {
	data, exists, err := s.engine.Get(ctx, checkpointKey(stream))
	if errors.Is(err, ErrKeyNotFound) || !exists {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to unmarshal checkpoint")
	}
	return &cp, nil
}

// Clear removes the checkpoint for a stream.
func (s *CheckpointStore) Clear(ctx context.Context, stream string) error {
	return s.engine.Delete(ctx, checkpointKey(stream))
}

func checkpointKey(stream string) string {
	return fmt.Sprintf("%s:%s", checkpointKeyPrefix, stream)
}
