package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncroom/player/internal/repository/volume"
)

func TestVolumeRepo(t *testing.T) {
	s, _ := miniredis.Run()
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	repo := NewRepo(rc, "player-1", time.Minute)

	ctx := context.Background()

	_, err := repo.GetLevel(ctx)
	assert.ErrorIs(t, err, volume.ErrLevelNotFound, "missing level must map to the sentinel")

	err = repo.SetLevel(ctx, 65)
	require.NoError(t, err)

	level, err := repo.GetLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 65, level)

	// the key carries the configured ttl
	s.FastForward(2 * time.Minute)
	_, err = repo.GetLevel(ctx)
	assert.ErrorIs(t, err, volume.ErrLevelNotFound, "expired level must map to the sentinel")
}

func TestVolumeRepoKeyIsolation(t *testing.T) {
	s, _ := miniredis.Run()
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	ctx := context.Background()

	repo1 := NewRepo(rc, "player-1", time.Minute)
	repo2 := NewRepo(rc, "player-2", time.Minute)

	require.NoError(t, repo1.SetLevel(ctx, 10))
	require.NoError(t, repo2.SetLevel(ctx, 90))

	level, err := repo1.GetLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, level)

	level, err = repo2.GetLevel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 90, level)
}
