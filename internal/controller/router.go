package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/syncroom/player/pkg/wsrouter"
)

// Mux is the local control surface.
func (c controller) Mux() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", c.Healthz)
	r.Get("/state", c.GetState)
	r.Put("/volume", c.SetVolume)
	r.Post("/volume/toggle-mute", c.ToggleMute)
	r.Post("/gesture", c.Gesture)

	return r
}

// WSRouter exposes the channel message routes for the channel runner.
func (c controller) WSRouter() *wsrouter.WSRouter {
	return c.getWSRouter()
}
