package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/syncroom/player/internal/engine/provider"
	"github.com/syncroom/player/internal/media"
	"github.com/syncroom/player/pkg/mediaembed"
	"github.com/syncroom/player/pkg/randstr"
)

// ElementState is the raw-audio element snapshot the shell pushes whenever
// the element's state changes.
type ElementState struct {
	Position        float64 `json:"position"`
	Duration        float64 `json:"duration"`
	Paused          bool    `json:"paused"`
	Ended           bool    `json:"ended"`
	AutoplayBlocked bool    `json:"autoplay_blocked"`
	Error           string  `json:"error"`
}

type loadMediaPayload struct {
	Kind      string `json:"kind"`
	EmbedURL  string `json:"embed_url,omitempty"`
	StreamURL string `json:"stream_url,omitempty"`
	FrameName string `json:"frame_name,omitempty"`
}

type elementCommandPayload struct {
	Cmd   string  `json:"cmd"`
	Value float64 `json:"value,omitempty"`
}

// Bridge relays between adapters and the thin shell that actually embeds the
// third-party engines. Exactly one bridge endpoint (iframe port or media
// element) is live at a time; inbound shell traffic is routed to it and
// traffic for a torn-down endpoint is dropped.
type Bridge struct {
	sender iSender
	logger *slog.Logger
	gen    *randstr.Generator

	mu      sync.Mutex
	port    *relayPort
	element *relayElement
}

func NewBridge(sender iSender, logger *slog.Logger) *Bridge {
	letterBytes := []byte("abcdefghijklmnopqrstuvwxyz0123456789")

	return &Bridge{
		sender: sender,
		logger: logger.With("component", "bridge"),
		gen:    randstr.New(letterBytes),
	}
}

func (b *Bridge) NewAdapter(m media.Media, cb provider.Callbacks) (provider.Adapter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.port = nil
	b.element = nil

	switch m.Kind {
	case media.KindVideo:
		embedURL := m.EmbedURL
		if embedURL == "" {
			embedURL = mediaembed.VideoEmbedURL(m.ProviderRef, 0, "")
		}
		if err := b.sender.Send("LOAD_MEDIA", loadMediaPayload{
			Kind:     string(m.Kind),
			EmbedURL: embedURL,
		}); err != nil {
			return nil, fmt.Errorf("failed to request media load: %w", err)
		}

		b.port = newRelayPort(b.sender)
		return provider.NewVideoAdapter(b.port, cb, b.logger), nil

	case media.KindAudioWidget:
		// Fresh frame name per session so re-queueing the same track never
		// reuses a cached widget.
		nonce := b.gen.GenerateRandomString(9)
		embedURL := m.EmbedURL
		if embedURL == "" {
			embedURL = mediaembed.WidgetEmbedURL(m.ProviderRef, nonce)
		}
		if err := b.sender.Send("LOAD_MEDIA", loadMediaPayload{
			Kind:      string(m.Kind),
			EmbedURL:  embedURL,
			FrameName: "widget-player-" + nonce,
		}); err != nil {
			return nil, fmt.Errorf("failed to request media load: %w", err)
		}

		b.port = newRelayPort(b.sender)
		return provider.NewWidgetAdapter(b.port, cb, b.logger), nil

	case media.KindRawAudio:
		if err := b.sender.Send("LOAD_MEDIA", loadMediaPayload{
			Kind:      string(m.Kind),
			StreamURL: m.ProviderRef,
		}); err != nil {
			return nil, fmt.Errorf("failed to request media load: %w", err)
		}

		b.element = newRelayElement(b.sender)
		return provider.NewRawAudioAdapter(b.element, cb, b.logger), nil
	}

	return nil, fmt.Errorf("%w: %q", media.ErrUnknownKind, m.Kind)
}

func (b *Bridge) HandleFrame(data []byte) {
	b.mu.Lock()
	port := b.port
	b.mu.Unlock()

	if port != nil {
		port.deliver(data)
	}
}

func (b *Bridge) HandleAttached() {
	b.mu.Lock()
	port := b.port
	b.mu.Unlock()

	if port != nil {
		port.setAttached()
	}
}

func (b *Bridge) HandleElementState(st ElementState) {
	b.mu.Lock()
	element := b.element
	b.mu.Unlock()

	if element != nil {
		element.update(st)
	}
}

// relayPort forwards engine frames over the channel in both directions.
type relayPort struct {
	sender iSender

	mu        sync.Mutex
	onMessage func(data []byte)
	attached  bool
	closed    bool
}

func newRelayPort(sender iSender) *relayPort {
	return &relayPort{sender: sender}
}

func (p *relayPort) Send(data []byte) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return errors.New("port closed")
	}

	return p.sender.Send("PLAYER_FRAME", PlayerFrameInput{Data: data})
}

func (p *relayPort) OnMessage(fn func(data []byte)) {
	p.mu.Lock()
	p.onMessage = fn
	p.mu.Unlock()
}

func (p *relayPort) Attached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attached
}

func (p *relayPort) setAttached() {
	p.mu.Lock()
	p.attached = true
	p.mu.Unlock()
}

func (p *relayPort) deliver(data []byte) {
	p.mu.Lock()
	fn := p.onMessage
	closed := p.closed
	p.mu.Unlock()

	if fn != nil && !closed {
		fn(data)
	}
}

func (p *relayPort) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	return p.sender.Send("CLEAR_MEDIA", EmptyStruct{})
}

// relayElement exposes the shell's media element behind synchronous reads
// backed by the last pushed state snapshot.
type relayElement struct {
	sender iSender

	mu         sync.Mutex
	st         ElementState
	onEnded    func()
	onError    func(err error)
	endedFired bool
	muted      bool
	closed     bool
}

func newRelayElement(sender iSender) *relayElement {
	return &relayElement{sender: sender}
}

func (e *relayElement) update(st ElementState) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.st = st
	fireEnded := st.Ended && !e.endedFired
	if fireEnded {
		e.endedFired = true
	}
	onEnded := e.onEnded
	onError := e.onError
	e.mu.Unlock()

	if fireEnded && onEnded != nil {
		onEnded()
	}
	if st.Error != "" && onError != nil {
		onError(errors.New(st.Error))
	}
	if st.AutoplayBlocked && onError != nil {
		onError(provider.ErrAutoplayBlocked)
	}
}

func (e *relayElement) cmd(name string, value float64) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return errors.New("element closed")
	}

	return e.sender.Send("ELEMENT_CMD", elementCommandPayload{Cmd: name, Value: value})
}

func (e *relayElement) Play() error {
	e.mu.Lock()
	blocked := e.st.AutoplayBlocked && !e.muted
	e.mu.Unlock()
	if blocked {
		return provider.ErrAutoplayBlocked
	}

	return e.cmd("play", 0)
}

func (e *relayElement) Pause() error {
	return e.cmd("pause", 0)
}

func (e *relayElement) SeekTo(seconds float64) error {
	return e.cmd("seek", seconds)
}

func (e *relayElement) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Position
}

func (e *relayElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Duration
}

func (e *relayElement) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.Paused
}

func (e *relayElement) SetVolume(level float64) {
	e.cmd("volume", level)
}

func (e *relayElement) SetMuted(muted bool) {
	e.mu.Lock()
	e.muted = muted
	e.mu.Unlock()

	value := 0.0
	if muted {
		value = 1
	}
	e.cmd("muted", value)
}

func (e *relayElement) OnEnded(fn func()) {
	e.mu.Lock()
	e.onEnded = fn
	e.mu.Unlock()
}

func (e *relayElement) OnError(fn func(err error)) {
	e.mu.Lock()
	e.onError = fn
	e.mu.Unlock()
}

func (e *relayElement) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	return e.sender.Send("CLEAR_MEDIA", EmptyStruct{})
}
