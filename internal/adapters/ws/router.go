package ws

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SetupRouter builds the HTTP surface for the websocket bridge.
func SetupRouter(mode string, ctl *Controller) *gin.Engine {
	if mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/ws", ctl.Handle)

	log.Info().Str("module", "adapters.ws").Msg("router setup")
	return r
}
