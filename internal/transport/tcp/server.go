// Package tcp serves the chat protocol over plain TCP, one connection
// per client, newline-delimited JSON envelopes.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/app"
	"github.com/dkeye/Parley/internal/protocol"
)

// Options bound each connection's queues and deadlines.
type Options struct {
	SendQueue    int
	ReadLimit    int
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

type Server struct {
	ln     net.Listener
	router *app.Router
	opts   Options
}

// NewServer binds the endpoint immediately; a bind failure aborts
// startup before any connection is accepted.
func NewServer(addr string, router *app.Router, opts Options) (*Server, error) {
	opts.withDefaults()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &Server{ln: ln, router: router, opts: opts}, nil
}

func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Run accepts until ctx is done. A transient accept error is logged
// and the loop continues.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()
	log.Info().Str("module", "transport.tcp").Str("addr", s.ln.Addr().String()).Msg("listening")

	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn().Err(err).Str("module", "transport.tcp").Msg("accept error")
			continue
		}
		go s.handle(nc)
	}
}

// handle runs one connection's read loop until the peer goes away or
// the stream turns out to be garbage.
func (s *Server) handle(nc net.Conn) {
	c := newConn(nc, s.opts.SendQueue)
	sid := s.router.Attach(c)
	log.Info().Str("module", "transport.tcp").Str("sid", string(sid)).Str("peer", nc.RemoteAddr().String()).Msg("connected")

	go c.writePump(s.opts.WriteTimeout)
	defer func() {
		s.router.Detach(sid)
		c.Close()
		log.Info().Str("module", "transport.tcp").Str("sid", string(sid)).Msg("disconnected")
	}()

	r := protocol.NewReader(nc, s.opts.ReadLimit)
	for {
		frame, err := r.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Str("module", "transport.tcp").Str("sid", string(sid)).Msg("read error")
			}
			return
		}
		if err := s.router.Dispatch(sid, frame); err != nil {
			// Undecodable bytes mean the rest of the stream
			// cannot be trusted.
			log.Warn().Err(err).Str("module", "transport.tcp").Str("sid", string(sid)).Msg("dropping connection")
			return
		}
	}
}
