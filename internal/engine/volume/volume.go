package volume

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/syncroom/player/internal/engine/provider"
	"github.com/syncroom/player/pkg/clamp"
)

const DefaultLevel = 80

type iStore interface {
	GetLevel(ctx context.Context) (int, error)
	SetLevel(ctx context.Context, level int) error
}

type Config struct {
	// PersistQuiet is the debounce window for store writes: rapid slider
	// drags coalesce into one write after this much quiet.
	PersistQuiet time.Duration
	// ApplyWindow throttles adapter volume calls to at most one per window;
	// adapter calls can be expensive and slider input fires at high
	// frequency.
	ApplyWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		PersistQuiet: 150 * time.Millisecond,
		ApplyWindow:  50 * time.Millisecond,
	}
}

// Controller owns the process-wide volume level. It outlives individual
// sessions; Attach rebinds it to whichever adapter is currently live.
type Controller struct {
	cfg    Config
	store  iStore
	logger *slog.Logger

	mu       sync.Mutex
	level    int
	previous int
	adapter  provider.Adapter

	persistTimer *time.Timer
	applyTimer   *time.Timer
	pendingApply int
}

func NewController(ctx context.Context, cfg Config, store iStore, logger *slog.Logger) *Controller {
	c := &Controller{
		cfg:      cfg,
		store:    store,
		logger:   logger.With("component", "volume"),
		level:    DefaultLevel,
		previous: DefaultLevel,
	}

	level, err := store.GetLevel(ctx)
	if err != nil {
		c.logger.Info("failed to load persisted volume, using default", "err", err)
	} else {
		c.level = clamp.Clamp(level, 0, 100)
	}

	return c
}

func (c *Controller) Level() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Attach rebinds the controller to the live adapter; nil detaches.
func (c *Controller) Attach(adapter provider.Adapter) {
	c.mu.Lock()
	c.adapter = adapter
	c.mu.Unlock()
}

// SetLevel clamps and applies a new level. The in-memory value updates
// immediately; the store write is debounced and the adapter apply throttled.
func (c *Controller) SetLevel(ctx context.Context, level int) {
	level = clamp.Clamp(level, 0, 100)

	c.mu.Lock()
	if c.level > 0 {
		c.previous = c.level
	}
	c.level = level

	c.schedulePersistLocked(ctx, level)
	c.scheduleApplyLocked(level)
	c.mu.Unlock()
}

// ToggleMute swaps between zero and the last nonzero level.
func (c *Controller) ToggleMute(ctx context.Context) {
	c.mu.Lock()
	level := c.level
	previous := c.previous
	c.mu.Unlock()

	if level > 0 {
		c.SetLevel(ctx, 0)
		return
	}
	if previous == 0 {
		previous = DefaultLevel
	}
	c.SetLevel(ctx, previous)
}

func (c *Controller) schedulePersistLocked(ctx context.Context, level int) {
	if c.persistTimer != nil {
		c.persistTimer.Stop()
	}
	// The write outlives the caller's request.
	ctx = context.WithoutCancel(ctx)
	c.persistTimer = time.AfterFunc(c.cfg.PersistQuiet, func() {
		c.mu.Lock()
		level := c.level
		c.mu.Unlock()

		if err := c.store.SetLevel(ctx, level); err != nil {
			c.logger.Info("failed to persist volume", "err", err)
		}
	})
}

func (c *Controller) scheduleApplyLocked(level int) {
	c.pendingApply = level
	if c.applyTimer != nil {
		// A window is already open; it will pick up the latest value.
		return
	}
	c.applyTimer = time.AfterFunc(c.cfg.ApplyWindow, func() {
		c.mu.Lock()
		adapter := c.adapter
		level := c.pendingApply
		c.applyTimer = nil
		c.mu.Unlock()

		if adapter != nil {
			adapter.Unmute()
			adapter.SetVolume(level)
		}
	})
}
