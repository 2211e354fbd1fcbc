package provider

// MessagePort is the frame boundary of an iframe-embedded engine: raw JSON
// messages out, raw JSON messages in. Attached reports whether the third-party
// script on the far side has finished loading; until then Send is pointless
// and adapters retry with backoff instead of failing.
type MessagePort interface {
	Send(data []byte) error
	OnMessage(fn func(data []byte))
	Attached() bool
	Close() error
}

// MediaElement is a directly controlled playback element. All reads are
// synchronous. Play may return ErrAutoplayBlocked when the environment
// refuses unmuted autoplay before a user gesture.
type MediaElement interface {
	Play() error
	Pause() error
	SeekTo(seconds float64) error
	Position() float64
	Duration() float64
	IsPaused() bool
	SetVolume(level float64)
	SetMuted(muted bool)
	OnEnded(fn func())
	OnError(fn func(err error))
	Close() error
}
