package inmemory

import (
	"context"
	"sync"

	"github.com/syncroom/player/internal/repository/volume"
)

type repo struct {
	mu    sync.RWMutex
	level int
	set   bool
}

func NewRepo() *repo {
	return &repo{}
}

func (r *repo) GetLevel(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.set {
		return 0, volume.ErrLevelNotFound
	}

	return r.level, nil
}

func (r *repo) SetLevel(ctx context.Context, level int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.level = level
	r.set = true

	return nil
}
