package session

import (
	"context"
	"math"
)

// tick is the sync loop body: one recurring tick shared by whatever session
// is live when it fires. Adapter answers are routed back through the command
// channel with a liveness check, so a session replaced mid-tick is skipped,
// never split-brained.
func (c *Controller) tick(ctx context.Context) {
	s := c.session
	if s == nil || s.EndReported {
		return
	}

	now := c.now()
	expected := s.Expected(now)

	if !s.Ready {
		// The engine failed to initialize at all. Once the expected
		// position is far past any plausible buffering delay, force the
		// end report so this client's queue view is not stuck forever.
		if expected > c.cfg.NeverReadyAfter.Seconds() {
			c.logger.Info("session never became ready, forcing advance", "track_id", s.Media.TrackId)
			c.endSession(ctx, s, "never ready")
		}
		return
	}

	inGrace := now.Sub(s.CreatedAt) < c.cfg.GracePeriod

	// Stuck-paused recovery: some engines auto-pause on visibility changes
	// or buffering stalls.
	s.Adapter.Paused(func(paused bool) {
		if !paused {
			return
		}
		c.post(func(ctx context.Context) {
			if c.session != s || s.EndReported {
				return
			}
			s.Adapter.Play()
		})
	})

	s.Adapter.Position(func(cur float64) {
		s.Adapter.Duration(func(dur float64) {
			c.post(func(ctx context.Context) {
				if c.session != s || s.EndReported {
					return
				}

				// End detection by duration, for engines whose native
				// finish event fires late or not at all.
				if dur > 0 && cur >= dur-c.cfg.NearEndEpsilon.Seconds() {
					c.endSession(ctx, s, "position reached known duration")
					return
				}

				// Coarse drift correction: a single seek, and only beyond
				// the threshold. The grace period suppresses it while the
				// engine is still settling on its initial position.
				if !inGrace && math.Abs(expected-cur) > c.cfg.DriftThreshold.Seconds() {
					c.logger.Debug("correcting drift", "expected", expected, "current", cur)
					s.Adapter.Seek(expected)
				}

				// Progress reporting is host-only and ignores the grace
				// period: the authority recalibrates started_at from real
				// observed playback.
				if s.Role == RoleHost && cur > 0 {
					c.reporter.ReportProgress(ctx, cur, dur)
				}
			})
		})
	})
}
