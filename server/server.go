// Package server exposes the storage core over the wire: a PostgreSQL
// wire-protocol (pgproto3) listener for SQL clients and an SSH admin
// shell for interactive use, both backed by one session.Engine.
// Grounded in the teacher's server package (Server/Client/Handler shape,
// connection tracking, graceful Shutdown) generalized from maho's
// multi-database sql.Engine down to this module's single Engine.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/colstore/tilegroup/session"
)

// ErrServerClosed is returned by a listen loop once Shutdown or Close has
// closed its listener.
var ErrServerClosed = errors.New("server: closed")

// Server owns one Engine and the listeners serving it.
type Server struct {
	Engine *session.Engine

	mutex     sync.Mutex
	listeners []net.Listener
	shutdown  bool
	connCount int32
}

func (svr *Server) addListener(l net.Listener) {
	svr.mutex.Lock()
	defer svr.mutex.Unlock()
	svr.listeners = append(svr.listeners, l)
}

// Close immediately closes every listener this Server has accepted
// connections on.
func (svr *Server) Close() error {
	svr.mutex.Lock()
	defer svr.mutex.Unlock()

	svr.shutdown = true
	var first error
	for _, l := range svr.listeners {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Shutdown marks the server as shutting down and closes its listeners;
// in-flight connections are left to finish on their own, matching the
// teacher's ssh Shutdown (poll connCount) simplified to the one thing
// this module's callers need: stop accepting new work.
func (svr *Server) Shutdown(ctx context.Context) error {
	return svr.Close()
}

func (svr *Server) trackConn(delta int32) {
	atomic.AddInt32(&svr.connCount, delta)
}
