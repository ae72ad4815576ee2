package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/multisig-tictactoe/internal/entity"
)

const DefaultSnapshotTTL = 10 * time.Minute

var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRepository caches the last synced view of a game. Entries expire, nothing here is durable.
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *entity.Snapshot) error
	GetByGameID(ctx context.Context, gameID entity.ObjectID) (*entity.Snapshot, error)
	DeleteByGameID(ctx context.Context, gameID entity.ObjectID) error
}

type dbSnapshot struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotRepository(client *redis.Client, ttl time.Duration) SnapshotRepository {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}

	return &dbSnapshot{
		client: client,
		ttl:    ttl,
	}
}

func snapshotKey(gameID entity.ObjectID) string {
	return "snapshot:" + gameID.String()
}

func (that *dbSnapshot) Save(ctx context.Context, snapshot *entity.Snapshot) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("could not marshal snapshot: %w", err)
	}

	if err = that.client.Set(ctx, snapshotKey(snapshot.GameID), snapshotJSON, that.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot: %w", err)
	}

	return nil
}

func (that *dbSnapshot) GetByGameID(ctx context.Context, gameID entity.ObjectID) (*entity.Snapshot, error) {
	response, err := that.client.Get(ctx, snapshotKey(gameID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, gameID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snapshot entity.Snapshot
	if err = json.Unmarshal([]byte(response), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

func (that *dbSnapshot) DeleteByGameID(ctx context.Context, gameID entity.ObjectID) error {
	if err := that.client.Del(ctx, snapshotKey(gameID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	return nil
}
