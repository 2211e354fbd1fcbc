package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/syncroom/player/internal/engine/session"
	"github.com/syncroom/player/internal/media"
	"github.com/syncroom/player/pkg/mediaembed"
)

type EmptyStruct struct{}

func (es *EmptyStruct) UnmarshalJSON([]byte) error {
	return nil
}

func (c controller) handleAlive(ctx context.Context, conn *websocket.Conn, input EmptyStruct) error {
	return nil
}

type MediaInput struct {
	Id       uuid.UUID `json:"id"`
	MediaId  string    `json:"media_id" validate:"required"`
	Type     string    `json:"type" validate:"required,oneof=video audio_widget raw_audio"`
	EmbedURL string    `json:"embed_url"`
	Title    string    `json:"title"`
}

type SyncPlayerInput struct {
	Media     *MediaInput `json:"media"`
	StartedAt int64       `json:"started_at"`
	ServerNow int64       `json:"server_now"`
	IsHost    bool        `json:"is_host"`
}

func (c controller) handleSyncPlayer(ctx context.Context, conn *websocket.Conn, input SyncPlayerInput) error {
	ev := session.SyncEvent{
		StartedAt: input.StartedAt,
		ServerNow: input.ServerNow,
		IsHost:    input.IsHost,
	}

	if input.Media != nil {
		if input.Media.Id == uuid.Nil {
			return fmt.Errorf("%w: media id is required", ErrValidationError)
		}
		if errs, ok := c.validate.Validate(input.Media); !ok {
			return fmt.Errorf("%w: %v", ErrValidationError, errs)
		}

		kind, err := media.ParseKind(input.Media.Type)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidationError, err)
		}

		title := input.Media.Title
		if title == "" && kind == media.KindVideo {
			if data, err := mediaembed.GetVideoData(input.Media.MediaId); err != nil {
				c.logger.InfoContext(ctx, "failed to get video data", "err", err)
			} else {
				title = data.Title
			}
		}

		ev.Media = &media.Media{
			TrackId:     input.Media.Id.String(),
			ProviderRef: input.Media.MediaId,
			Kind:        kind,
			EmbedURL:    input.Media.EmbedURL,
			Title:       title,
		}
	}

	c.engine.HandleSync(ev)

	return nil
}

func (c controller) handleForcePlay(ctx context.Context, conn *websocket.Conn, input EmptyStruct) error {
	c.engine.ForcePlay()
	return nil
}

type PlayerFrameInput struct {
	Data json.RawMessage `json:"data"`
}

func (c controller) handlePlayerFrame(ctx context.Context, conn *websocket.Conn, input PlayerFrameInput) error {
	c.bridge.HandleFrame(input.Data)
	return nil
}

func (c controller) handlePlayerAttached(ctx context.Context, conn *websocket.Conn, input EmptyStruct) error {
	c.bridge.HandleAttached()
	return nil
}

func (c controller) handleElementState(ctx context.Context, conn *websocket.Conn, input ElementState) error {
	c.bridge.HandleElementState(input)
	return nil
}

func (c controller) handleUserGesture(ctx context.Context, conn *websocket.Conn, input EmptyStruct) error {
	c.gate.Gesture()
	return nil
}
