package controller

import (
	"net/http"

	"github.com/syncroom/player/pkg/rest"
)

func (c controller) Healthz(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"status": "ok"})
}

func (c controller) GetState(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{
		"session": c.engine.Snapshot(),
		"volume":  c.volume.Level(),
	})
}

type setVolumeRequest struct {
	Level int `json:"level"`
}

func (c controller) SetVolume(w http.ResponseWriter, r *http.Request) {
	var req setVolumeRequest

	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.Info("SetVolume", "read json err", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	c.volume.SetLevel(r.Context(), req.Level)

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"level": c.volume.Level()})
}

func (c controller) ToggleMute(w http.ResponseWriter, r *http.Request) {
	c.volume.ToggleMute(r.Context())

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"level": c.volume.Level()})
}

// Gesture is the user-gesture signal feeding the autoplay gate, for shells
// that report interaction over http instead of the channel.
func (c controller) Gesture(w http.ResponseWriter, r *http.Request) {
	c.gate.Gesture()

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"status": "ok"})
}
