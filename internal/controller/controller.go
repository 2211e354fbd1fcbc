package controller

import (
	"context"
	"errors"

	"github.com/syncroom/player/internal/engine/session"
	"github.com/syncroom/player/pkg/validator"

	"log/slog"
)

var ErrValidationError = errors.New("validation error")

type iEngine interface {
	HandleSync(ev session.SyncEvent)
	ForcePlay()
	Snapshot() session.Status
}

type iVolumeController interface {
	Level() int
	SetLevel(ctx context.Context, level int)
	ToggleMute(ctx context.Context)
}

type iAutoplayGate interface {
	Gesture()
}

type iBridgeRouter interface {
	HandleFrame(data []byte)
	HandleAttached()
	HandleElementState(st ElementState)
}

type controller struct {
	engine   iEngine
	volume   iVolumeController
	gate     iAutoplayGate
	bridge   iBridgeRouter
	validate *validator.Validator
	logger   *slog.Logger
}

func NewController(engine iEngine, volume iVolumeController, gate iAutoplayGate, bridge iBridgeRouter, logger *slog.Logger) *controller {
	return &controller{
		engine:   engine,
		volume:   volume,
		gate:     gate,
		bridge:   bridge,
		validate: validator.NewValidator(),
		logger:   logger.With("component", "controller"),
	}
}
