package tcp

import (
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/protocol"
)

// conn owns one socket's write half. All outbound envelopes, whether
// replies to this connection's own requests or broadcasts pushed by the
// router, go through the send queue and a single write pump, so
// interleaved writers can never corrupt a frame.
type conn struct {
	nc   net.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newConn(nc net.Conn, queue int) *conn {
	return &conn{
		nc:   nc,
		send: make(chan []byte, queue),
	}
}

// TrySend enqueues without blocking; a full queue is backpressure and
// the caller decides what that means for this member.
func (c *conn) TrySend(data []byte) error {
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

func (c *conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.nc.Close()
	c.mu.Unlock()
}

func (c *conn) writePump(timeout time.Duration) {
	w := protocol.NewWriter(c.nc)
	for data := range c.send {
		if err := c.nc.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			log.Error().Err(err).Str("module", "transport.tcp").Msg("writePump set deadline")
			_ = c.nc.Close()
			return
		}
		if err := w.WriteFrame(data); err != nil {
			log.Error().Err(err).Str("module", "transport.tcp").Msg("writePump write error")
			// Closing the socket fails the read loop, which runs
			// this connection's disconnect cleanup.
			_ = c.nc.Close()
			return
		}
	}
}
