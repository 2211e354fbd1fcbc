package controller

import (
	"github.com/syncroom/player/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	wsrouter.HandleTyped(mux, "ALIVE", c.handleAlive)

	// playback
	wsrouter.HandleTyped(mux, "SYNC_PLAYER", c.handleSyncPlayer)
	wsrouter.HandleTyped(mux, "FORCE_PLAY", c.handleForcePlay)

	// shell bridge
	wsrouter.HandleTyped(mux, "PLAYER_FRAME", c.handlePlayerFrame)
	wsrouter.HandleTyped(mux, "PLAYER_ATTACHED", c.handlePlayerAttached)
	wsrouter.HandleTyped(mux, "ELEMENT_STATE", c.handleElementState)
	wsrouter.HandleTyped(mux, "USER_GESTURE", c.handleUserGesture)

	return mux
}
