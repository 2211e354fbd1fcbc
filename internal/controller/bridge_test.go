package controller

import (
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncroom/player/internal/engine/provider"
	"github.com/syncroom/player/internal/media"
)

type sentMessage struct {
	messageType string
	payload     any
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (s *fakeSender) Send(messageType string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{messageType: messageType, payload: payload})
	return nil
}

func (s *fakeSender) byType(messageType string) []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentMessage
	for _, m := range s.sent {
		if m.messageType == messageType {
			out = append(out, m)
		}
	}
	return out
}

func TestBridgeLoadsVideo(t *testing.T) {
	sender := &fakeSender{}
	b := NewBridge(sender, slog.Default())

	adapter, err := b.NewAdapter(media.Media{
		TrackId:     "t1",
		ProviderRef: "video-abc",
		Kind:        media.KindVideo,
	}, provider.Callbacks{})
	require.NoError(t, err)
	require.IsType(t, &provider.VideoAdapter{}, adapter)

	loads := sender.byType("LOAD_MEDIA")
	require.Len(t, loads, 1)
	payload := loads[0].payload.(loadMediaPayload)
	assert.Equal(t, "video", payload.Kind)
	assert.Contains(t, payload.EmbedURL, "video-abc")
	assert.Empty(t, payload.StreamURL)
}

func TestBridgeLoadsWidgetWithFreshFrameName(t *testing.T) {
	sender := &fakeSender{}
	b := NewBridge(sender, slog.Default())

	track := media.Media{
		TrackId:     "t1",
		ProviderRef: "https://example.com/track",
		Kind:        media.KindAudioWidget,
	}

	_, err := b.NewAdapter(track, provider.Callbacks{})
	require.NoError(t, err)
	_, err = b.NewAdapter(track, provider.Callbacks{})
	require.NoError(t, err)

	loads := sender.byType("LOAD_MEDIA")
	require.Len(t, loads, 2)
	first := loads[0].payload.(loadMediaPayload)
	second := loads[1].payload.(loadMediaPayload)

	assert.True(t, strings.HasPrefix(first.FrameName, "widget-player-"))
	assert.NotEqual(t, first.FrameName, second.FrameName, "re-queueing must never reuse a cached widget frame")
}

func TestBridgeLoadsRawAudio(t *testing.T) {
	sender := &fakeSender{}
	b := NewBridge(sender, slog.Default())

	_, err := b.NewAdapter(media.Media{
		TrackId:     "t1",
		ProviderRef: "https://example.com/stream.mp3",
		Kind:        media.KindRawAudio,
	}, provider.Callbacks{})
	require.NoError(t, err)

	loads := sender.byType("LOAD_MEDIA")
	require.Len(t, loads, 1)
	payload := loads[0].payload.(loadMediaPayload)
	assert.Equal(t, "raw_audio", payload.Kind)
	assert.Equal(t, "https://example.com/stream.mp3", payload.StreamURL)
}

func TestBridgeUnknownKind(t *testing.T) {
	sender := &fakeSender{}
	b := NewBridge(sender, slog.Default())

	_, err := b.NewAdapter(media.Media{Kind: media.Kind("bogus")}, provider.Callbacks{})
	assert.ErrorIs(t, err, media.ErrUnknownKind)
}

func TestBridgeRoutesFramesToLiveEndpointOnly(t *testing.T) {
	sender := &fakeSender{}
	b := NewBridge(sender, slog.Default())

	var firstGot, secondGot [][]byte
	_, err := b.NewAdapter(media.Media{ProviderRef: "v1", Kind: media.KindVideo}, provider.Callbacks{})
	require.NoError(t, err)
	b.mu.Lock()
	b.port.OnMessage(func(data []byte) { firstGot = append(firstGot, data) })
	b.mu.Unlock()

	b.HandleAttached()
	b.HandleFrame([]byte(`{"event":"onReady"}`))
	assert.Len(t, firstGot, 1)

	// a new session replaces the endpoint; frames stop reaching the old one
	_, err = b.NewAdapter(media.Media{ProviderRef: "v2", Kind: media.KindVideo}, provider.Callbacks{})
	require.NoError(t, err)
	b.mu.Lock()
	b.port.OnMessage(func(data []byte) { secondGot = append(secondGot, data) })
	b.mu.Unlock()

	b.HandleFrame([]byte(`{"event":"onReady"}`))
	assert.Len(t, firstGot, 1, "stale endpoint must not receive frames")
	assert.Len(t, secondGot, 1)
}

func TestRelayElementStateRouting(t *testing.T) {
	sender := &fakeSender{}
	b := NewBridge(sender, slog.Default())

	var ended int
	var errs []error
	_, err := b.NewAdapter(media.Media{ProviderRef: "stream", Kind: media.KindRawAudio}, provider.Callbacks{})
	require.NoError(t, err)

	b.mu.Lock()
	element := b.element
	b.mu.Unlock()
	element.OnEnded(func() { ended++ })
	element.OnError(func(e error) { errs = append(errs, e) })

	b.HandleElementState(ElementState{Position: 12.5, Duration: 60, Paused: false})
	assert.Equal(t, 12.5, element.Position())
	assert.Equal(t, 60.0, element.Duration())
	assert.False(t, element.IsPaused())

	// ended fires once, repeated snapshots do not re-fire
	b.HandleElementState(ElementState{Position: 60, Duration: 60, Ended: true})
	b.HandleElementState(ElementState{Position: 60, Duration: 60, Ended: true})
	assert.Equal(t, 1, ended)

	b.HandleElementState(ElementState{Error: "decode failure"})
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "decode failure")
}

func TestRelayElementAutoplayBlocked(t *testing.T) {
	sender := &fakeSender{}
	b := NewBridge(sender, slog.Default())

	_, err := b.NewAdapter(media.Media{ProviderRef: "stream", Kind: media.KindRawAudio}, provider.Callbacks{})
	require.NoError(t, err)

	b.mu.Lock()
	element := b.element
	b.mu.Unlock()

	b.HandleElementState(ElementState{AutoplayBlocked: true, Paused: true})

	// unmuted playback is refused until a gesture
	assert.ErrorIs(t, element.Play(), provider.ErrAutoplayBlocked)

	// muted playback is allowed
	element.SetMuted(true)
	assert.NoError(t, element.Play())

	plays := sender.byType("ELEMENT_CMD")
	require.NotEmpty(t, plays)
}

func TestRelayCloseClearsMedia(t *testing.T) {
	sender := &fakeSender{}
	b := NewBridge(sender, slog.Default())

	adapter, err := b.NewAdapter(media.Media{ProviderRef: "v1", Kind: media.KindVideo}, provider.Callbacks{})
	require.NoError(t, err)

	require.NoError(t, adapter.Close())
	assert.Len(t, sender.byType("CLEAR_MEDIA"), 1)
}
