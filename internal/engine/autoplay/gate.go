package autoplay

import (
	"log/slog"
	"sync"

	"github.com/syncroom/player/internal/engine/provider"
)

type iVolumeLevel interface {
	Level() int
}

// Gate tracks whether a user gesture has arrived since startup. Until it
// has, autoplay policy forces freshly created adapters to start muted and an
// overlay prompts the user. The first qualifying gesture latches the gate,
// dismisses the overlay and performs the unmute handshake on the live
// adapter.
type Gate struct {
	volume iVolumeLevel
	logger *slog.Logger
	// onOverlay is told when the tap-to-unmute affordance should be shown
	// or hidden. Rendering it is the embedder's concern.
	onOverlay func(visible bool)

	mu         sync.Mutex
	interacted bool
	live       provider.Adapter
}

func NewGate(volume iVolumeLevel, onOverlay func(visible bool), logger *slog.Logger) *Gate {
	if onOverlay == nil {
		onOverlay = func(bool) {}
	}
	return &Gate{
		volume:    volume,
		logger:    logger.With("component", "autoplay"),
		onOverlay: onOverlay,
	}
}

func (g *Gate) HasInteracted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interacted
}

// SetLive rebinds the gate to the current adapter. startMuted raises the
// overlay when no gesture has arrived yet; a nil adapter clears the binding.
func (g *Gate) SetLive(adapter provider.Adapter, startMuted bool) {
	g.mu.Lock()
	g.live = adapter
	interacted := g.interacted
	g.mu.Unlock()

	if adapter == nil {
		g.onOverlay(false)
		return
	}

	if startMuted && !interacted {
		g.onOverlay(true)
	} else {
		g.onOverlay(false)
	}
}

// Gesture records a user gesture. The first one unmutes the live adapter,
// re-applies the volume and nudges playback; engines that silently drop the
// audio stream after an unmute are re-engaged with a seek-in-place.
func (g *Gate) Gesture() {
	g.mu.Lock()
	if g.interacted {
		g.mu.Unlock()
		return
	}
	g.interacted = true
	adapter := g.live
	g.mu.Unlock()

	g.logger.Info("first user gesture received")
	g.onOverlay(false)

	if adapter == nil {
		return
	}

	adapter.Unmute()
	adapter.SetVolume(g.volume.Level())
	adapter.Position(func(cur float64) {
		if cur > 0 {
			adapter.Seek(cur)
		}
	})
	adapter.Play()
}
