// Package ws bridges the chat protocol to browser clients: the same
// envelopes as the TCP transport, carried in websocket text messages.
package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/app"
	"github.com/dkeye/Parley/internal/core"
)

type Options struct {
	SendQueue    int
	ReadLimit    int64
	WriteTimeout time.Duration
}

func (o *Options) withDefaults() {
	if o.SendQueue <= 0 {
		o.SendQueue = 32
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
}

type Controller struct {
	router *app.Router
	opts   Options
}

func NewController(router *app.Router, opts Options) *Controller {
	opts.withDefaults()
	return &Controller{router: router, opts: opts}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *Controller) Handle(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("upgrade failed")
		return
	}
	ws.SetReadLimit(ctl.opts.ReadLimit)

	conn := &wsConn{conn: ws, send: make(chan []byte, ctl.opts.SendQueue)}
	sid := ctl.router.Attach(conn)
	log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("new WS connection")

	go ctl.writePump(conn)
	go ctl.readPump(sid, conn)
}

func (ctl *Controller) writePump(c *wsConn) {
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteTimeout)); err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
			_ = c.conn.Close()
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
			// Failing the socket wakes readPump, which runs cleanup.
			_ = c.conn.Close()
			return
		}
	}
}

func (ctl *Controller) readPump(sid core.SessionID, c *wsConn) {
	defer func() {
		ctl.router.Detach(sid)
		c.Close()
		log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("readPump closing")
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if err := ctl.router.Dispatch(sid, data); err != nil {
			log.Warn().Err(err).Str("module", "adapters.ws").Str("sid", string(sid)).Msg("dropping connection")
			return
		}
	}
}
