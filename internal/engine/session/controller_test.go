package session

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncroom/player/internal/engine/provider"
	"github.com/syncroom/player/internal/media"
)

type fakeAdapter struct {
	mu        sync.Mutex
	callbacks provider.Callbacks
	loaded    provider.LoadOptions
	playing   bool
	position  float64
	duration  float64
	closed    bool
	seeks     []float64
}

func (a *fakeAdapter) Load(opts provider.LoadOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loaded = opts
	return nil
}

func (a *fakeAdapter) Play() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.playing = true
}

func (a *fakeAdapter) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.playing = false
}

func (a *fakeAdapter) Seek(seconds float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seeks = append(a.seeks, seconds)
}

func (a *fakeAdapter) Position(fn func(float64)) {
	a.mu.Lock()
	pos := a.position
	a.mu.Unlock()
	fn(pos)
}

func (a *fakeAdapter) Duration(fn func(float64)) {
	a.mu.Lock()
	dur := a.duration
	a.mu.Unlock()
	fn(dur)
}

func (a *fakeAdapter) Paused(fn func(bool)) {
	a.mu.Lock()
	playing := a.playing
	a.mu.Unlock()
	fn(!playing)
}

func (a *fakeAdapter) SetVolume(level int)   {}
func (a *fakeAdapter) Mute()                 {}
func (a *fakeAdapter) Unmute()               {}
func (a *fakeAdapter) State() provider.State { return provider.StateReady }

func (a *fakeAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *fakeAdapter) seekCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seeks)
}

func (a *fakeAdapter) setPosition(pos float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.position = pos
}

type fakeFactory struct {
	mu       sync.Mutex
	adapters []*fakeAdapter
}

func (f *fakeFactory) NewAdapter(m media.Media, cb provider.Callbacks) (provider.Adapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &fakeAdapter{callbacks: cb}
	f.adapters = append(f.adapters, a)
	return a, nil
}

func (f *fakeFactory) last() *fakeAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.adapters) == 0 {
		return nil
	}
	return f.adapters[len(f.adapters)-1]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.adapters)
}

type fakeReporter struct {
	mu       sync.Mutex
	ended    int
	progress int
}

func (r *fakeReporter) ReportEnded(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended++
}

func (r *fakeReporter) ReportProgress(ctx context.Context, currentTime, duration float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress++
}

func (r *fakeReporter) ReportDuration(ctx context.Context, providerRef string, duration float64) {}

func (r *fakeReporter) endedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

func (r *fakeReporter) progressCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

type fakeGate struct{}

func (fakeGate) HasInteracted() bool                               { return true }
func (fakeGate) SetLive(adapter provider.Adapter, startMuted bool) {}

type fakeVolume struct{}

func (fakeVolume) Level() int                      { return 80 }
func (fakeVolume) Attach(adapter provider.Adapter) {}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TickInterval = 20 * time.Millisecond
	cfg.GracePeriod = 0
	cfg.ReadyReportDelay = 5 * time.Millisecond
	cfg.ErrorEndDelay = 5 * time.Millisecond
	return cfg
}

func startController(t *testing.T, cfg Config, factory *fakeFactory, reporter *fakeReporter) *Controller {
	t.Helper()
	c := NewController(cfg, factory, reporter, fakeGate{}, fakeVolume{}, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)
	return c
}

func syncEventAt(trackId string, startedAgo time.Duration, isHost bool) SyncEvent {
	now := time.Now().UnixMilli()
	return SyncEvent{
		Media: &media.Media{
			TrackId:     trackId,
			ProviderRef: "media-" + trackId,
			Kind:        media.KindVideo,
		},
		StartedAt: now - startedAgo.Milliseconds(),
		ServerNow: now,
		IsHost:    isHost,
	}
}

func TestDriftCorrection(t *testing.T) {
	factory := &fakeFactory{}
	reporter := &fakeReporter{}
	c := startController(t, testConfig(), factory, reporter)

	// track started a minute ago, adapter stuck near the beginning
	c.HandleSync(syncEventAt("t1", time.Minute, false))
	require.Eventually(t, func() bool { return factory.count() == 1 }, time.Second, 5*time.Millisecond)

	adapter := factory.last()
	adapter.setPosition(10)
	adapter.callbacks.OnReady()

	require.Eventually(t, func() bool { return adapter.seekCount() > 0 }, time.Second, 5*time.Millisecond)
	adapter.mu.Lock()
	lastSeek := adapter.seeks[len(adapter.seeks)-1]
	adapter.mu.Unlock()
	assert.InDelta(t, 60.0, lastSeek, 2.0, "corrective seek must land on the expected position")
}

func TestNoSeekWithinThreshold(t *testing.T) {
	factory := &fakeFactory{}
	reporter := &fakeReporter{}
	c := startController(t, testConfig(), factory, reporter)

	// fresh track, so ready does not re-seek either
	c.HandleSync(syncEventAt("t1", 500*time.Millisecond, false))
	require.Eventually(t, func() bool { return factory.count() == 1 }, time.Second, 5*time.Millisecond)

	adapter := factory.last()
	// within the drift threshold of the expected position
	adapter.setPosition(0.4)
	adapter.callbacks.OnReady()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, adapter.seekCount(), "drift below threshold must not trigger a seek")
}

func TestEndByKnownDuration(t *testing.T) {
	factory := &fakeFactory{}
	reporter := &fakeReporter{}
	c := startController(t, testConfig(), factory, reporter)

	c.HandleSync(syncEventAt("t1", 10*time.Second, false))
	require.Eventually(t, func() bool { return factory.count() == 1 }, time.Second, 5*time.Millisecond)

	adapter := factory.last()
	adapter.callbacks.OnReady()

	adapter.mu.Lock()
	adapter.duration = 60
	adapter.position = 59.8
	adapter.mu.Unlock()

	require.Eventually(t, func() bool { return reporter.endedCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, reporter.endedCount(), "near-duration end must be reported once")
}

func TestNeverReadyForcesAdvance(t *testing.T) {
	factory := &fakeFactory{}
	reporter := &fakeReporter{}
	cfg := testConfig()
	cfg.NeverReadyAfter = 100 * time.Millisecond
	c := startController(t, cfg, factory, reporter)

	// adapter exists but never signals ready; expected position is already
	// far past the cutoff
	c.HandleSync(syncEventAt("t1", 10*time.Second, false))

	require.Eventually(t, func() bool { return reporter.endedCount() == 1 }, time.Second, 5*time.Millisecond)

	st := c.Snapshot()
	assert.Equal(t, "ended", st.State)
}

func TestProviderErrorAdvancesQueue(t *testing.T) {
	factory := &fakeFactory{}
	reporter := &fakeReporter{}
	c := startController(t, testConfig(), factory, reporter)

	c.HandleSync(syncEventAt("t1", time.Second, false))
	require.Eventually(t, func() bool { return factory.count() == 1 }, time.Second, 5*time.Millisecond)

	adapter := factory.last()
	adapter.callbacks.OnReady()
	adapter.callbacks.OnError(assert.AnError)

	require.Eventually(t, func() bool { return reporter.endedCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHostProgressReporting(t *testing.T) {
	factory := &fakeFactory{}
	reporter := &fakeReporter{}
	c := startController(t, testConfig(), factory, reporter)

	c.HandleSync(syncEventAt("t1", 10*time.Second, true))
	require.Eventually(t, func() bool { return factory.count() == 1 }, time.Second, 5*time.Millisecond)

	adapter := factory.last()
	adapter.setPosition(10)
	adapter.callbacks.OnReady()

	require.Eventually(t, func() bool { return reporter.progressCount() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestViewerDoesNotReportProgress(t *testing.T) {
	factory := &fakeFactory{}
	reporter := &fakeReporter{}
	c := startController(t, testConfig(), factory, reporter)

	c.HandleSync(syncEventAt("t1", 10*time.Second, false))
	require.Eventually(t, func() bool { return factory.count() == 1 }, time.Second, 5*time.Millisecond)

	adapter := factory.last()
	adapter.setPosition(10)
	adapter.callbacks.OnReady()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, reporter.progressCount(), "viewer must not report progress")
}

func TestStuckPausedRecovery(t *testing.T) {
	factory := &fakeFactory{}
	reporter := &fakeReporter{}
	c := startController(t, testConfig(), factory, reporter)

	c.HandleSync(syncEventAt("t1", 10*time.Second, false))
	require.Eventually(t, func() bool { return factory.count() == 1 }, time.Second, 5*time.Millisecond)

	adapter := factory.last()
	adapter.setPosition(10)
	adapter.callbacks.OnReady()
	require.Eventually(t, func() bool {
		adapter.mu.Lock()
		defer adapter.mu.Unlock()
		return adapter.playing
	}, time.Second, 5*time.Millisecond)

	// engine auto-paused behind our back
	adapter.Pause()

	require.Eventually(t, func() bool {
		adapter.mu.Lock()
		defer adapter.mu.Unlock()
		return adapter.playing
	}, time.Second, 5*time.Millisecond)
}

func TestNilMediaTearsDown(t *testing.T) {
	factory := &fakeFactory{}
	reporter := &fakeReporter{}
	c := startController(t, testConfig(), factory, reporter)

	c.HandleSync(syncEventAt("t1", time.Second, false))
	require.Eventually(t, func() bool { return factory.count() == 1 }, time.Second, 5*time.Millisecond)
	adapter := factory.last()

	c.HandleSync(SyncEvent{Media: nil})

	require.Eventually(t, func() bool {
		adapter.mu.Lock()
		defer adapter.mu.Unlock()
		return adapter.closed
	}, time.Second, 5*time.Millisecond)

	st := c.Snapshot()
	assert.Equal(t, "empty", st.State)
}

func TestStaleAdapterSignalsDropped(t *testing.T) {
	factory := &fakeFactory{}
	reporter := &fakeReporter{}
	c := startController(t, testConfig(), factory, reporter)

	c.HandleSync(syncEventAt("t1", time.Second, false))
	require.Eventually(t, func() bool { return factory.count() == 1 }, time.Second, 5*time.Millisecond)
	first := factory.last()

	c.HandleSync(syncEventAt("t2", time.Second, false))
	require.Eventually(t, func() bool { return factory.count() == 2 }, time.Second, 5*time.Millisecond)

	// a finish signal from the replaced adapter must not end the new session
	first.callbacks.OnEnded()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, reporter.endedCount(), "stale finish signal must be dropped")

	st := c.Snapshot()
	assert.Equal(t, "t2", st.TrackId)
	assert.False(t, st.EndReported)
}
