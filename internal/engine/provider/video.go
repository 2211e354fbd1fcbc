package provider

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Engine playback states reported by the iframe video api.
const (
	videoStateUnstarted = -1
	videoStateEnded     = 0
	videoStatePlaying   = 1
	videoStatePaused    = 2
	videoStateBuffering = 3
)

type videoCommand struct {
	Event string `json:"event"`
	Func  string `json:"func,omitempty"`
	Args  []any  `json:"args,omitempty"`
}

type videoEvent struct {
	Event string          `json:"event"`
	Info  json.RawMessage `json:"info"`
}

type videoInfo struct {
	CurrentTime *float64 `json:"currentTime"`
	Duration    *float64 `json:"duration"`
	PlayerState *int     `json:"playerState"`
}

// VideoAdapter drives an iframe-embedded video engine over its postMessage
// json protocol. Readiness and playback state arrive as asynchronous events;
// position and duration are cached from the engine's periodic infoDelivery
// frames, so reads never block. Seeking is expensive on this engine and is
// only ever issued on demand.
type VideoAdapter struct {
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
	currentTime  float64
	duration     float64
	engineState  int
	volume       int
}

func NewVideoAdapter(port MessagePort, cb Callbacks, logger *slog.Logger) *VideoAdapter {
	return &VideoAdapter{
		port:        port,
		cb:          cb,
		logger:      logger.With("adapter", "video"),
		engineState: videoStateUnstarted,
	}
}

func (a *VideoAdapter) Load(opts LoadOptions) error {
	a.mu.Lock()
	if a.state != StateUninitialized {
		a.mu.Unlock()
		return fmt.Errorf("load called twice on video adapter")
	}
	a.state = StateLoading
	a.opts = opts
	a.volume = opts.Volume
	a.mu.Unlock()

	a.port.OnMessage(a.handleMessage)

	// The third-party script may still be loading. Retry quietly with
	// backoff instead of surfacing a transient failure.
	retryUntil(10, 200*time.Millisecond, 2*time.Second, func() bool {
		if !a.port.Attached() {
			return false
		}

		a.send(videoCommand{Event: "listening"})
		a.send(videoCommand{Event: "command", Func: "addEventListener", Args: []any{"onStateChange"}})
		return true
	}, func(ok bool) {
		if !ok {
			a.fail(ErrBridgeNotAttached)
		}
	})

	return nil
}

func (a *VideoAdapter) handleMessage(data []byte) {
	var ev videoEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}

	switch ev.Event {
	case "onReady":
		a.onReadyLocked()
	case "onStateChange":
		var state int
		if err := json.Unmarshal(ev.Info, &state); err == nil {
			a.onStateChangeLocked(state)
			break
		}
		// Some engine revisions nest the state inside an info object.
		var info videoInfo
		if err := json.Unmarshal(ev.Info, &info); err == nil && info.PlayerState != nil {
			a.onStateChangeLocked(*info.PlayerState)
		}
	case "infoDelivery":
		var info videoInfo
		if err := json.Unmarshal(ev.Info, &info); err != nil {
			break
		}
		if info.CurrentTime != nil {
			a.currentTime = *info.CurrentTime
		}
		if info.PlayerState != nil {
			a.engineState = *info.PlayerState
		}
		if info.Duration != nil && *info.Duration > 0 && a.duration == 0 {
			a.duration = *info.Duration
			a.emitDurationLocked()
		}
	case "onError":
		var code int
		json.Unmarshal(ev.Info, &code)
		a.mu.Unlock()
		a.logger.Info("engine reported playback error", "code", code)
		if a.cb.OnError != nil {
			a.cb.OnError(fmt.Errorf("video engine error code %d", code))
		}
		return
	}
	a.mu.Unlock()
}

func (a *VideoAdapter) onReadyLocked() {
	if a.readyFired {
		return
	}
	a.readyFired = true
	a.state = StateReady

	if a.opts.StartMuted {
		a.send(videoCommand{Event: "command", Func: "mute"})
	} else {
		a.send(videoCommand{Event: "command", Func: "unMute"})
		a.send(videoCommand{Event: "command", Func: "setVolume", Args: []any{a.volume}})
	}

	// Keep asking for the duration until an infoDelivery frame answers.
	// Polling runs off the event goroutine; the caller holds a.mu.
	go retryUntil(10, time.Second, time.Second, func() bool {
		a.mu.Lock()
		known := a.duration > 0
		a.mu.Unlock()
		if !known {
			a.send(videoCommand{Event: "command", Func: "getDuration"})
		}
		return known
	}, func(bool) {})

	if a.cb.OnReady != nil {
		go a.cb.OnReady()
	}
}

func (a *VideoAdapter) onStateChangeLocked(state int) {
	a.engineState = state

	if state == videoStateEnded && !a.endFired {
		a.endFired = true
		a.state = StateEnded
		if a.cb.OnEnded != nil {
			go a.cb.OnEnded()
		}
	}
}

func (a *VideoAdapter) emitDurationLocked() {
	if a.durationSent {
		return
	}
	a.durationSent = true
	if a.cb.OnDuration != nil {
		duration := a.duration
		go a.cb.OnDuration(duration)
	}
}

func (a *VideoAdapter) fail(err error) {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return
	}

	a.logger.Info("failed to initialize video engine", "err", err)
	if a.cb.OnError != nil {
		a.cb.OnError(err)
	}
}

func (a *VideoAdapter) send(cmd videoCommand) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return
	}
	if err := a.port.Send(data); err != nil {
		a.logger.Debug("failed to send command to video engine", "func", cmd.Func, "err", err)
	}
}

func (a *VideoAdapter) Play() {
	a.send(videoCommand{Event: "command", Func: "playVideo"})
}

func (a *VideoAdapter) Pause() {
	a.send(videoCommand{Event: "command", Func: "pauseVideo"})
}

func (a *VideoAdapter) Seek(seconds float64) {
	a.send(videoCommand{Event: "command", Func: "seekTo", Args: []any{seconds, true}})
}

func (a *VideoAdapter) Position(fn func(seconds float64)) {
	a.mu.Lock()
	cur := a.currentTime
	a.mu.Unlock()

	// Nudge the engine so the cache stays warm for the next read.
	a.send(videoCommand{Event: "command", Func: "getCurrentTime"})
	fn(cur)
}

func (a *VideoAdapter) Duration(fn func(seconds float64)) {
	a.mu.Lock()
	duration := a.duration
	a.mu.Unlock()
	fn(duration)
}

func (a *VideoAdapter) Paused(fn func(paused bool)) {
	a.mu.Lock()
	paused := a.engineState == videoStatePaused
	a.mu.Unlock()
	fn(paused)
}

func (a *VideoAdapter) SetVolume(level int) {
	a.mu.Lock()
	a.volume = level
	a.mu.Unlock()
	a.send(videoCommand{Event: "command", Func: "setVolume", Args: []any{level}})
}

func (a *VideoAdapter) Mute() {
	a.send(videoCommand{Event: "command", Func: "mute"})
}

func (a *VideoAdapter) Unmute() {
	a.mu.Lock()
	volume := a.volume
	a.mu.Unlock()
	a.send(videoCommand{Event: "command", Func: "unMute"})
	a.send(videoCommand{Event: "command", Func: "setVolume", Args: []any{volume}})
}

func (a *VideoAdapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *VideoAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	return a.port.Close()
}
