package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/syncroom/player/internal/engine/clock"
	"github.com/syncroom/player/internal/engine/provider"
	"github.com/syncroom/player/internal/media"
)

type iAdapterFactory interface {
	NewAdapter(m media.Media, cb provider.Callbacks) (provider.Adapter, error)
}

type iReporter interface {
	ReportEnded(ctx context.Context)
	ReportProgress(ctx context.Context, currentTime, duration float64)
	ReportDuration(ctx context.Context, providerRef string, duration float64)
}

type iAutoplayGate interface {
	HasInteracted() bool
	SetLive(adapter provider.Adapter, startMuted bool)
}

type iVolumeController interface {
	Level() int
	Attach(adapter provider.Adapter)
}

type Config struct {
	// TickInterval is the sync loop period.
	TickInterval time.Duration
	// GracePeriod suppresses drift correction after session creation while
	// the engine is still buffering toward its initial position.
	GracePeriod time.Duration
	// DriftThreshold is the coarse drift beyond which a single corrective
	// seek is issued. Frequent micro-seeks are worse than occasional large
	// ones.
	DriftThreshold time.Duration
	// NearEndEpsilon treats position within this margin of a known duration
	// as ended, covering engines whose finish event fires late or never.
	NearEndEpsilon time.Duration
	// NeverReadyAfter forces an end report when a session is still not ready
	// this far into its expected playback, so a broken client never stalls
	// the shared queue.
	NeverReadyAfter time.Duration
	// ErrorEndDelay is the pause between a provider error and the end report
	// that advances the queue past the broken track.
	ErrorEndDelay time.Duration
	// ReadyReportDelay is how long after ready the host sends its one-off
	// early progress report.
	ReadyReportDelay time.Duration
	// MinReadySeek is the smallest recomputed position worth seeking to
	// when the adapter turns ready.
	MinReadySeek time.Duration
}

func DefaultConfig() Config {
	return Config{
		TickInterval:     1500 * time.Millisecond,
		GracePeriod:      2500 * time.Millisecond,
		DriftThreshold:   3 * time.Second,
		NearEndEpsilon:   500 * time.Millisecond,
		NeverReadyAfter:  200 * time.Second,
		ErrorEndDelay:    time.Second,
		ReadyReportDelay: 500 * time.Millisecond,
		MinReadySeek:     time.Second,
	}
}

// Controller owns the single live TrackSession. All state lives behind one
// run loop goroutine fed by a command channel, so adapter callbacks, channel
// events and ticker firings never race. A command arriving for a session
// that has since been replaced is a no-op: every callback closes over the
// session it belongs to and re-checks liveness inside the loop.
type Controller struct {
	cfg      Config
	factory  iAdapterFactory
	reporter iReporter
	gate     iAutoplayGate
	volume   iVolumeController
	logger   *slog.Logger

	commands chan func(ctx context.Context)
	session  *TrackSession
	now      func() time.Time
}

func NewController(cfg Config, factory iAdapterFactory, reporter iReporter, gate iAutoplayGate, volume iVolumeController, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		factory:  factory,
		reporter: reporter,
		gate:     gate,
		volume:   volume,
		logger:   logger.With("component", "session"),
		commands: make(chan func(ctx context.Context), 256),
		now:      time.Now,
	}
}

// Run drives the command loop and the sync ticker until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.teardown()
			return ctx.Err()
		case cmd := <-c.commands:
			cmd(ctx)
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// post hands a command to the run loop. Non-blocking: the loop itself posts
// follow-ups (adapter queries answered inline), and a dropped tick action is
// simply repeated on the next tick.
func (c *Controller) post(cmd func(ctx context.Context)) {
	select {
	case c.commands <- cmd:
	default:
		c.logger.Warn("command queue full, dropping command")
	}
}

// HandleSync processes one inbound sync event.
func (c *Controller) HandleSync(ev SyncEvent) {
	c.post(func(ctx context.Context) {
		c.syncPlayer(ctx, ev)
	})
}

// ForcePlay nudges a stalled live adapter back into playback.
func (c *Controller) ForcePlay() {
	c.post(func(ctx context.Context) {
		if c.session != nil && c.session.Adapter != nil && !c.session.EndReported {
			c.session.Adapter.Play()
		}
	})
}

// Snapshot returns the live session state for the control surface.
func (c *Controller) Snapshot() Status {
	result := make(chan Status, 1)
	c.post(func(ctx context.Context) {
		result <- c.snapshot()
	})

	select {
	case st := <-result:
		return st
	case <-time.After(time.Second):
		return Status{State: "unknown"}
	}
}

func (c *Controller) snapshot() Status {
	s := c.session
	if s == nil {
		return Status{State: "empty"}
	}

	st := Status{
		TrackId:     s.Media.TrackId,
		ProviderRef: s.Media.ProviderRef,
		Kind:        string(s.Media.Kind),
		Title:       s.Media.Title,
		Role:        s.Role,
		Expected:    s.Expected(c.now()),
		EndReported: s.EndReported,
	}
	switch {
	case s.EndReported:
		st.State = "ended"
	case s.Ready:
		st.State = "ready"
	default:
		st.State = "loading"
	}
	return st
}

func (c *Controller) syncPlayer(ctx context.Context, ev SyncEvent) {
	if ev.Media == nil {
		c.logger.Info("sync event with no media, tearing down")
		c.teardown()
		return
	}

	// Idempotent re-delivery guard: the exact same queue entry with its
	// adapter still attached means a duplicate event, not a new track.
	// Track identity is the queue entry id, not the provider media id, so
	// the same video queued twice is two sessions.
	if c.session != nil && c.session.Media.TrackId == ev.Media.TrackId && c.session.Adapter != nil {
		c.session.Role = roleOf(ev.IsHost)
		return
	}

	c.teardown()

	now := c.now()
	offset := clock.MeasureOffset(now, ev.ServerNow)
	initialSeek := clock.ExpectedElapsed(now, ev.StartedAt, offset).Seconds()
	startMuted := !c.gate.HasInteracted()

	s := &TrackSession{
		Media:     *ev.Media,
		StartedAt: ev.StartedAt,
		Offset:    offset,
		Role:      roleOf(ev.IsHost),
		CreatedAt: now,
	}

	c.logger.Info("starting session",
		"track_id", s.Media.TrackId,
		"kind", s.Media.Kind,
		"role", s.Role,
		"initial_seek", initialSeek,
		"start_muted", startMuted,
	)

	adapter, err := c.factory.NewAdapter(s.Media, c.callbacksFor(s))
	if err != nil {
		// A broken adapter must not block the next sync event. The
		// never-ready safeguard will end this session eventually.
		c.logger.Info("failed to construct adapter", "err", err)
		c.session = s
		return
	}
	s.Adapter = adapter

	if err := adapter.Load(provider.LoadOptions{
		InitialSeek: initialSeek,
		StartMuted:  startMuted,
		Volume:      c.volume.Level(),
	}); err != nil {
		c.logger.Info("failed to load adapter", "err", err)
	}

	c.session = s
	c.gate.SetLive(adapter, startMuted)
	c.volume.Attach(adapter)
}

// callbacksFor binds adapter callbacks to one session. Each callback posts
// into the run loop and verifies the session is still live, so signals from
// a torn-down adapter are dropped instead of mutating the replacement.
func (c *Controller) callbacksFor(s *TrackSession) provider.Callbacks {
	return provider.Callbacks{
		OnReady: func() {
			c.post(func(ctx context.Context) {
				if c.session != s {
					return
				}
				c.onReady(ctx, s)
			})
		},
		OnEnded: func() {
			c.post(func(ctx context.Context) {
				if c.session != s {
					return
				}
				c.endSession(ctx, s, "provider finish signal")
			})
		},
		OnError: func(err error) {
			c.post(func(ctx context.Context) {
				if c.session != s || s.EndReported {
					return
				}
				c.logger.Info("provider error, advancing queue shortly", "err", err)
				time.AfterFunc(c.cfg.ErrorEndDelay, func() {
					c.post(func(ctx context.Context) {
						if c.session != s {
							return
						}
						c.endSession(ctx, s, "provider error")
					})
				})
			})
		},
		OnNeedsGesture: func() {
			c.post(func(ctx context.Context) {
				if c.session != s {
					return
				}
				// Re-register as muted so the gate raises its overlay
				// and retries playback on the first gesture.
				c.gate.SetLive(s.Adapter, true)
			})
		},
		OnDuration: func(seconds float64) {
			c.post(func(ctx context.Context) {
				if c.session != s || s.Role != RoleHost {
					return
				}
				c.reporter.ReportDuration(ctx, s.Media.ProviderRef, seconds)
			})
		},
	}
}

func (c *Controller) onReady(ctx context.Context, s *TrackSession) {
	s.Ready = true

	// Time has passed since the initial seek was computed; recompute at the
	// moment the engine can actually honor it.
	livePos := s.Expected(c.now())
	if livePos > c.cfg.MinReadySeek.Seconds() {
		s.Adapter.Seek(livePos)
	}
	s.Adapter.Play()

	// The host reports early so the upstream authority can recalibrate its
	// started_at estimate from observed playback instead of a network guess.
	if s.Role == RoleHost {
		time.AfterFunc(c.cfg.ReadyReportDelay, func() {
			c.post(func(ctx context.Context) {
				if c.session != s || s.EndReported {
					return
				}
				s.Adapter.Position(func(cur float64) {
					if cur <= 0 {
						return
					}
					s.Adapter.Duration(func(dur float64) {
						c.reporter.ReportProgress(ctx, cur, dur)
					})
				})
			})
		})
	}
}

// endSession delivers the at-most-once end notification. Any of the three
// triggers (native finish, near-duration heuristic, never-ready safeguard)
// lands here; the latch makes the second and later ones no-ops.
func (c *Controller) endSession(ctx context.Context, s *TrackSession, reason string) {
	if s.EndReported {
		return
	}
	s.EndReported = true

	c.logger.Info("track ended", "track_id", s.Media.TrackId, "reason", reason)
	c.reporter.ReportEnded(ctx)
}

// teardown destroys the live adapter, best effort. Failures are swallowed so
// a broken adapter can never block the next session.
func (c *Controller) teardown() {
	s := c.session
	if s == nil {
		return
	}
	c.session = nil

	c.gate.SetLive(nil, false)
	c.volume.Attach(nil)

	if s.Adapter == nil {
		return
	}
	if err := s.Adapter.Close(); err != nil {
		c.logger.Info("failed to close adapter", "err", err)
	}
}

func roleOf(isHost bool) Role {
	if isHost {
		return RoleHost
	}
	return RoleViewer
}
