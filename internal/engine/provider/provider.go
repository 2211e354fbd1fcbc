package provider

import "errors"

var (
	ErrBridgeNotAttached = errors.New("engine bridge not attached")
	ErrAutoplayBlocked   = errors.New("autoplay blocked until user gesture")
)

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// Callbacks are the typed signals an adapter raises. Ready fires exactly once
// per adapter instance. Ended fires at most once, whatever combination of
// native finish signals and heuristics triggers it. All callbacks may fire
// from adapter-internal goroutines; receivers must hand off to their own
// loop.
type Callbacks struct {
	OnReady func()
	OnEnded func()
	OnError func(err error)
	// OnNeedsGesture fires when the engine refused unmuted autoplay and
	// playback is parked until a user gesture arrives.
	OnNeedsGesture func()
	// OnDuration fires the first time a nonzero duration is known.
	OnDuration func(seconds float64)
}

type LoadOptions struct {
	// InitialSeek is the position in seconds the engine should start from.
	InitialSeek float64
	// StartMuted starts the engine muted to satisfy autoplay policy.
	StartMuted bool
	// Volume is the 0-100 level to apply once unmuted.
	Volume int
}

// Adapter is the uniform capability set over one third-party playback
// engine. Position, Duration and Paused are callback-styled because the
// widget engine can only answer them with a frame round-trip; the other
// variants invoke the callback synchronously. Duration reports 0 while
// unknown, never an error.
type Adapter interface {
	Load(opts LoadOptions) error
	Play()
	Pause()
	Seek(seconds float64)
	Position(fn func(seconds float64))
	Duration(fn func(seconds float64))
	Paused(fn func(paused bool))
	SetVolume(level int)
	Mute()
	Unmute()
	State() State
	Close() error
}
