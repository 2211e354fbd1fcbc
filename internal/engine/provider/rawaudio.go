package provider

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// RawAudioAdapter wraps a directly controlled media element. Position and
// duration are synchronous reads, so the callback style collapses to an
// immediate invocation. An autoplay rejection is surfaced as a needs-gesture
// state instead of an error: the track is loaded and seekable, it just cannot
// make sound yet.
type RawAudioAdapter struct {
	element MediaElement
	cb      Callbacks
	logger  *slog.Logger

	mu           sync.Mutex
	state        State
	endFired     bool
	durationSent bool
	closed       bool
	volume       int
}

func NewRawAudioAdapter(element MediaElement, cb Callbacks, logger *slog.Logger) *RawAudioAdapter {
	return &RawAudioAdapter{
		element: element,
		cb:      cb,
		logger:  logger.With("adapter", "raw_audio"),
	}
}

func (a *RawAudioAdapter) Load(opts LoadOptions) error {
	a.mu.Lock()
	if a.state != StateUninitialized {
		a.mu.Unlock()
		return fmt.Errorf("load called twice on raw audio adapter")
	}
	a.state = StateLoading
	a.volume = opts.Volume
	a.mu.Unlock()

	a.element.OnEnded(func() {
		a.mu.Lock()
		if a.closed || a.endFired {
			a.mu.Unlock()
			return
		}
		a.endFired = true
		a.state = StateEnded
		a.mu.Unlock()

		if a.cb.OnEnded != nil {
			a.cb.OnEnded()
		}
	})

	a.element.OnError(func(err error) {
		a.mu.Lock()
		closed := a.closed
		a.mu.Unlock()
		if closed {
			return
		}

		// Refused autoplay is not a broken track; it is parked until a
		// user gesture arrives.
		if errors.Is(err, ErrAutoplayBlocked) {
			a.logger.Info("autoplay blocked, waiting for user gesture")
			if a.cb.OnNeedsGesture != nil {
				a.cb.OnNeedsGesture()
			}
			return
		}

		a.logger.Info("media element reported error", "err", err)
		if a.cb.OnError != nil {
			a.cb.OnError(err)
		}
	})

	a.element.SetMuted(opts.StartMuted)
	a.element.SetVolume(float64(opts.Volume) / 100)
	if opts.InitialSeek > 0 {
		if err := a.element.SeekTo(opts.InitialSeek); err != nil {
			a.logger.Info("failed to seek media element", "err", err)
		}
	}

	// The element buffers synchronously as far as this contract is
	// concerned; it is ready as soon as it is wired.
	a.mu.Lock()
	a.state = StateReady
	a.mu.Unlock()

	if a.cb.OnReady != nil {
		go a.cb.OnReady()
	}
	if d := a.element.Duration(); d > 0 {
		a.emitDuration(d)
	}

	return nil
}

func (a *RawAudioAdapter) emitDuration(seconds float64) {
	a.mu.Lock()
	sent := a.durationSent
	a.durationSent = true
	a.mu.Unlock()

	if !sent && a.cb.OnDuration != nil {
		go a.cb.OnDuration(seconds)
	}
}

func (a *RawAudioAdapter) Play() {
	err := a.element.Play()
	if err == nil {
		return
	}

	if errors.Is(err, ErrAutoplayBlocked) {
		a.logger.Info("autoplay blocked, waiting for user gesture")
		if a.cb.OnNeedsGesture != nil {
			a.cb.OnNeedsGesture()
		}
		return
	}

	a.logger.Info("failed to play media element", "err", err)
}

func (a *RawAudioAdapter) Pause() {
	if err := a.element.Pause(); err != nil {
		a.logger.Info("failed to pause media element", "err", err)
	}
}

func (a *RawAudioAdapter) Seek(seconds float64) {
	if err := a.element.SeekTo(seconds); err != nil {
		a.logger.Info("failed to seek media element", "err", err)
	}
}

func (a *RawAudioAdapter) Position(fn func(seconds float64)) {
	fn(a.element.Position())
}

func (a *RawAudioAdapter) Duration(fn func(seconds float64)) {
	d := a.element.Duration()
	if d > 0 {
		a.emitDuration(d)
	}
	fn(d)
}

func (a *RawAudioAdapter) Paused(fn func(paused bool)) {
	fn(a.element.IsPaused())
}

func (a *RawAudioAdapter) SetVolume(level int) {
	a.mu.Lock()
	a.volume = level
	a.mu.Unlock()
	a.element.SetVolume(float64(level) / 100)
}

func (a *RawAudioAdapter) Mute() {
	a.element.SetMuted(true)
}

func (a *RawAudioAdapter) Unmute() {
	a.mu.Lock()
	volume := a.volume
	a.mu.Unlock()
	a.element.SetMuted(false)
	a.element.SetVolume(float64(volume) / 100)
}

func (a *RawAudioAdapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *RawAudioAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	return a.element.Close()
}
