// Package net carries the observer feed: a framed TCP protocol through which
// clients watch replicated attributes and ability events, and optionally
// drive a player of their own.
package net

import (
	"context"
	"errors"
	"net"
	"sync/atomic"

	"go.uber.org/zap"
)

// Options sizes per-session queues.
type Options struct {
	InQueueSize         int
	OutQueueSize        int
	MaxPacketsPerSecond int // 0 = unlimited
}

// Server accepts TCP connections and creates Sessions.
// New sessions are communicated to the game loop via a channel.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	newConns chan *Session
	opts     Options
	log      *zap.Logger
	closeCh  chan struct{}
	closed   atomic.Bool
}

func NewServer(bindAddr string, opts Options, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		newConns: make(chan *Session, 64),
		opts:     opts,
		log:      log,
		closeCh:  make(chan struct{}),
	}, nil
}

// Serve accepts connections until ctx is done. It starts each session's I/O
// goroutines and pushes the session onto the NewSessions channel.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-s.closeCh:
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return nil // server shutting down
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.opts, s.log)
		sess.Start()

		s.log.Info("feed client connected", zap.Uint64("session", id), zap.String("ip", sess.IP))

		select {
		case s.newConns <- sess:
		default:
			s.log.Warn("connection queue full, refusing client", zap.Uint64("session", id))
			sess.Close()
		}
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// Shutdown stops accepting new connections. Safe to call more than once.
func (s *Server) Shutdown() {
	if s.closed.Swap(true) {
		return
	}
	close(s.closeCh)
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
