package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dkeye/Parley/internal/core"
)

// wsConn mirrors the TCP connection's write path over a websocket:
// buffered queue, non-blocking TrySend, idempotent Close. Framing is
// the websocket's own; one envelope per text message.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- data:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
