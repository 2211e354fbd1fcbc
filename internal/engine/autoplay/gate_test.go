package autoplay

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syncroom/player/internal/engine/provider"
)

type gateAdapter struct {
	provider.Adapter

	mu       sync.Mutex
	playing  bool
	muted    bool
	volume   int
	position float64
	seeks    []float64
}

func (a *gateAdapter) Play() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.playing = true
}

func (a *gateAdapter) Unmute() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.muted = false
}

func (a *gateAdapter) SetVolume(level int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.volume = level
}

func (a *gateAdapter) Seek(seconds float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seeks = append(a.seeks, seconds)
}

func (a *gateAdapter) Position(fn func(seconds float64)) {
	a.mu.Lock()
	pos := a.position
	a.mu.Unlock()
	fn(pos)
}

type fixedLevel int

func (l fixedLevel) Level() int { return int(l) }

func TestGestureUnmutesLiveAdapter(t *testing.T) {
	var overlay []bool
	g := NewGate(fixedLevel(70), func(visible bool) { overlay = append(overlay, visible) }, slog.Default())

	assert.False(t, g.HasInteracted())

	adapter := &gateAdapter{muted: true, position: 42}
	g.SetLive(adapter, true)
	assert.Equal(t, []bool{true}, overlay, "muted start without a gesture must raise the overlay")

	g.Gesture()
	assert.True(t, g.HasInteracted())
	assert.Equal(t, []bool{true, false}, overlay)

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	assert.False(t, adapter.muted)
	assert.Equal(t, 70, adapter.volume)
	assert.True(t, adapter.playing)
	// seek-in-place re-engages engines that drop audio after an unmute
	assert.Equal(t, []float64{42}, adapter.seeks)
}

func TestGestureLatchesOnce(t *testing.T) {
	g := NewGate(fixedLevel(70), nil, slog.Default())

	adapter := &gateAdapter{}
	g.SetLive(adapter, true)

	g.Gesture()
	adapter.mu.Lock()
	adapter.volume = 0
	adapter.mu.Unlock()

	// later gestures are no-ops
	g.Gesture()
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	assert.Equal(t, 0, adapter.volume, "second gesture must not touch the adapter")
}

func TestNoOverlayAfterInteraction(t *testing.T) {
	var overlay []bool
	g := NewGate(fixedLevel(70), func(visible bool) { overlay = append(overlay, visible) }, slog.Default())

	g.Gesture()
	overlay = nil

	g.SetLive(&gateAdapter{}, true)
	assert.Equal(t, []bool{false}, overlay, "an interacted gate never raises the overlay")
}

func TestZeroPositionSkipsSeek(t *testing.T) {
	g := NewGate(fixedLevel(70), nil, slog.Default())

	adapter := &gateAdapter{position: 0}
	g.SetLive(adapter, true)
	g.Gesture()

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	assert.Empty(t, adapter.seeks, "no seek-in-place at position zero")
}
