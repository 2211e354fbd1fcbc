package controller

import (
	"context"
	"log/slog"
)

type iSender interface {
	Send(messageType string, payload any) error
}

// Reporter carries the upstream playback notifications. All sends are
// fire-and-forget: the receiving side is expected to treat them
// idempotently, and a dropped report is retried by nature (the next tick
// reports again, and the end latch prevents duplicates on this side).
type Reporter struct {
	sender iSender
	logger *slog.Logger
}

func NewReporter(sender iSender, logger *slog.Logger) *Reporter {
	return &Reporter{
		sender: sender,
		logger: logger.With("component", "reporter"),
	}
}

func (r *Reporter) ReportEnded(ctx context.Context) {
	if err := r.sender.Send("TRACK_ENDED", EmptyStruct{}); err != nil {
		r.logger.Info("failed to report track ended", "err", err)
	}
}

type trackProgressPayload struct {
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
}

func (r *Reporter) ReportProgress(ctx context.Context, currentTime, duration float64) {
	if err := r.sender.Send("TRACK_PROGRESS", trackProgressPayload{
		CurrentTime: currentTime,
		Duration:    duration,
	}); err != nil {
		r.logger.Debug("failed to report track progress", "err", err)
	}
}

type updateDurationPayload struct {
	MediaId  string  `json:"media_id"`
	Duration float64 `json:"duration"`
}

func (r *Reporter) ReportDuration(ctx context.Context, providerRef string, duration float64) {
	if err := r.sender.Send("UPDATE_DURATION", updateDurationPayload{
		MediaId:  providerRef,
		Duration: duration,
	}); err != nil {
		r.logger.Info("failed to report duration", "err", err)
	}
}
