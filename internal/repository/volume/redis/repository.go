package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/syncroom/player/internal/repository/volume"
)

type repo struct {
	rc             *redis.Client
	playerId       string
	expireDuration time.Duration
}

func NewRepo(rc *redis.Client, playerId string, expireDuration time.Duration) *repo {
	return &repo{
		rc:             rc,
		playerId:       playerId,
		expireDuration: expireDuration,
	}
}

func (r repo) getVolumeKey() string {
	return "player:" + r.playerId + ":volume"
}

func (r repo) GetLevel(ctx context.Context) (int, error) {
	level, err := r.rc.Get(ctx, r.getVolumeKey()).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, volume.ErrLevelNotFound
		}
		return 0, fmt.Errorf("failed to get volume level: %w", err)
	}

	return level, nil
}

func (r repo) SetLevel(ctx context.Context, level int) error {
	if err := r.rc.Set(ctx, r.getVolumeKey(), level, r.expireDuration).Err(); err != nil {
		return fmt.Errorf("failed to set volume level: %w", err)
	}

	return nil
}
