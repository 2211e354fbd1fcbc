package provider

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Relative position past which the widget is treated as finished. The
// widget's native finish event is unreliable near the end of a track.
const widgetNearEndRelative = 0.99

type widgetFrame struct {
	Method     string          `json:"method,omitempty"`
	Value      json.RawMessage `json:"value,omitempty"`
	CallbackId int             `json:"callbackId,omitempty"`
}

type widgetProgress struct {
	CurrentPosition  float64 `json:"currentPosition"`
	RelativePosition float64 `json:"relativePosition"`
}

// WidgetAdapter drives an iframe-embedded audio widget. Unlike the video
// engine, position and duration can only be answered by a frame round-trip,
// so reads are genuinely asynchronous and keyed by callback id. A query of a
// given kind is never double-fired: callers arriving while one is in flight
// are attached to the pending reply.
type WidgetAdapter struct {
	port   MessagePort
	cb     Callbacks
	logger *slog.Logger

	mu           sync.Mutex
	state        State
	opts         LoadOptions
	readyFired   bool
	endFired     bool
	durationSent bool
	closed       bool
	volume       int
	paused       bool

	nextCallbackId int
	// In-flight queries by kind; replies fan out to every waiter.
	pending    map[string][]func(float64)
	callbackId map[int]string
}

func NewWidgetAdapter(port MessagePort, cb Callbacks, logger *slog.Logger) *WidgetAdapter {
	return &WidgetAdapter{
		port:       port,
		cb:         cb,
		logger:     logger.With("adapter", "widget"),
		pending:    make(map[string][]func(float64)),
		callbackId: make(map[int]string),
		paused:     true,
	}
}

func (a *WidgetAdapter) Load(opts LoadOptions) error {
	a.mu.Lock()
	if a.state != StateUninitialized {
		a.mu.Unlock()
		return fmt.Errorf("load called twice on widget adapter")
	}
	a.state = StateLoading
	a.opts = opts
	a.volume = opts.Volume
	a.mu.Unlock()

	a.port.OnMessage(a.handleMessage)

	retryUntil(10, 200*time.Millisecond, 2*time.Second, func() bool {
		if !a.port.Attached() {
			return false
		}

		for _, event := range []string{"ready", "play", "pause", "finish", "playProgress", "error"} {
			a.send(widgetFrame{Method: "addEventListener", Value: mustRaw(event)})
		}
		return true
	}, func(ok bool) {
		if !ok {
			a.fail(ErrBridgeNotAttached)
		}
	})

	return nil
}

func (a *WidgetAdapter) handleMessage(data []byte) {
	var frame widgetFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}

	// Query reply.
	if frame.Method == "" && frame.CallbackId != 0 {
		kind, ok := a.callbackId[frame.CallbackId]
		if !ok {
			a.mu.Unlock()
			return
		}
		delete(a.callbackId, frame.CallbackId)
		waiters := a.pending[kind]
		delete(a.pending, kind)
		a.mu.Unlock()

		var value float64
		json.Unmarshal(frame.Value, &value)
		for _, fn := range waiters {
			fn(value)
		}
		return
	}

	switch frame.Method {
	case "ready":
		a.onReadyLocked()
	case "play":
		a.paused = false
	case "pause":
		a.paused = true
	case "finish":
		a.endLocked()
	case "playProgress":
		var progress widgetProgress
		if err := json.Unmarshal(frame.Value, &progress); err == nil &&
			progress.RelativePosition > widgetNearEndRelative {
			a.endLocked()
		}
	case "error":
		a.mu.Unlock()
		a.logger.Info("widget reported playback error")
		if a.cb.OnError != nil {
			a.cb.OnError(fmt.Errorf("widget engine error"))
		}
		return
	}
	a.mu.Unlock()
}

func (a *WidgetAdapter) onReadyLocked() {
	if a.readyFired {
		return
	}
	a.readyFired = true
	a.state = StateReady

	// The widget has no mute switch; muted playback is volume zero.
	if a.opts.StartMuted {
		a.send(widgetFrame{Method: "setVolume", Value: mustRaw(0)})
	} else {
		a.send(widgetFrame{Method: "setVolume", Value: mustRaw(a.volume)})
	}

	a.queryLocked("getDuration", func(ms float64) {
		if ms <= 0 {
			return
		}
		a.mu.Lock()
		sent := a.durationSent
		a.durationSent = true
		a.mu.Unlock()
		if !sent && a.cb.OnDuration != nil {
			a.cb.OnDuration(ms / 1000)
		}
	})

	if a.cb.OnReady != nil {
		go a.cb.OnReady()
	}
}

func (a *WidgetAdapter) endLocked() {
	if a.endFired {
		return
	}
	a.endFired = true
	a.state = StateEnded
	if a.cb.OnEnded != nil {
		go a.cb.OnEnded()
	}
}

func (a *WidgetAdapter) fail(err error) {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return
	}

	a.logger.Info("failed to initialize widget engine", "err", err)
	if a.cb.OnError != nil {
		a.cb.OnError(err)
	}
}

// queryLocked issues a callback-keyed query, coalescing with any query of the
// same kind already in flight. Caller holds a.mu.
func (a *WidgetAdapter) queryLocked(kind string, fn func(value float64)) {
	if waiters, outstanding := a.pending[kind]; outstanding {
		a.pending[kind] = append(waiters, fn)
		return
	}

	a.nextCallbackId++
	id := a.nextCallbackId
	a.pending[kind] = []func(float64){fn}
	a.callbackId[id] = kind
	a.send(widgetFrame{Method: kind, CallbackId: id})
}

func (a *WidgetAdapter) send(frame widgetFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if err := a.port.Send(data); err != nil {
		a.logger.Debug("failed to send frame to widget engine", "method", frame.Method, "err", err)
	}
}

func mustRaw(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func (a *WidgetAdapter) Play() {
	a.send(widgetFrame{Method: "play"})
}

func (a *WidgetAdapter) Pause() {
	a.send(widgetFrame{Method: "pause"})
}

func (a *WidgetAdapter) Seek(seconds float64) {
	a.send(widgetFrame{Method: "seekTo", Value: mustRaw(seconds * 1000)})
}

// Position answers in seconds; the widget speaks milliseconds.
func (a *WidgetAdapter) Position(fn func(seconds float64)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queryLocked("getPosition", func(ms float64) {
		fn(ms / 1000)
	})
}

func (a *WidgetAdapter) Duration(fn func(seconds float64)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queryLocked("getDuration", func(ms float64) {
		fn(ms / 1000)
	})
}

func (a *WidgetAdapter) Paused(fn func(paused bool)) {
	a.mu.Lock()
	paused := a.paused
	a.mu.Unlock()
	fn(paused)
}

func (a *WidgetAdapter) SetVolume(level int) {
	a.mu.Lock()
	a.volume = level
	a.mu.Unlock()
	a.send(widgetFrame{Method: "setVolume", Value: mustRaw(level)})
}

func (a *WidgetAdapter) Mute() {
	a.send(widgetFrame{Method: "setVolume", Value: mustRaw(0)})
}

func (a *WidgetAdapter) Unmute() {
	a.mu.Lock()
	volume := a.volume
	a.mu.Unlock()
	a.send(widgetFrame{Method: "setVolume", Value: mustRaw(volume)})
}

func (a *WidgetAdapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *WidgetAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.pending = make(map[string][]func(float64))
	a.callbackId = make(map[int]string)
	a.mu.Unlock()

	return a.port.Close()
}
