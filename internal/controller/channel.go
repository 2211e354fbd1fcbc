package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/syncroom/player/pkg/wsrouter"
)

var ErrNotConnected = errors.New("channel not connected")

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Channel is the bidirectional event channel to the room server: it dials
// the playback endpoint, routes inbound messages through the ws router and
// carries fire-and-forget notifications upstream. Reconnects with backoff
// until its context is done.
type Channel struct {
	url    string
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewChannel(url string, logger *slog.Logger) *Channel {
	return &Channel{
		url:    url,
		logger: logger.With("component", "channel"),
	}
}

func (ch *Channel) Run(ctx context.Context, router *wsrouter.WSRouter) error {
	backoff := time.Second

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, ch.url, nil)
		if err != nil {
			ch.logger.Info("failed to dial channel", "url", ch.url, "err", err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, 30*time.Second)
			continue
		}

		ch.logger.Info("channel connected", "url", ch.url)
		backoff = time.Second

		ch.mu.Lock()
		ch.conn = conn
		ch.mu.Unlock()

		err = router.ServeConn(ctx, conn)
		ch.logger.Info("channel disconnected", "err", err)

		ch.mu.Lock()
		ch.conn = nil
		ch.mu.Unlock()
		conn.Close()

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Send delivers one outbound message. Safe for concurrent use; returns
// ErrNotConnected while the channel is down.
func (ch *Channel) Send(messageType string, payload any) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.conn == nil {
		return ErrNotConnected
	}

	return ch.conn.WriteJSON(&Output{Type: messageType, Payload: payload})
}
