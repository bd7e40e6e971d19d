// Package netio provides the small TCP server the debug stub listens
// on: an accept loop handing connected clients to a callback, and a
// socket wrapper with non-blocking receives so a session loop can poll
// the wire and shared state from a single goroutine.
package netio

import (
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/mantis-emu/mantis/pkg/utils"
)

// ErrClosed is reported by operations on a socket or server that has
// been shut down.
var ErrClosed = errors.New("netio: closed")

// nonblockingPollInterval bounds how long a non-blocking Receive may
// park inside the kernel before reporting "no data".
const nonblockingPollInterval = time.Millisecond

// Socket wraps an accepted TCP connection
type Socket struct {
	conn        net.Conn
	nonblocking bool
	connected   atomic.Bool
}

func newSocket(conn net.Conn) *Socket {
	s := &Socket{conn: conn}
	s.connected.Store(true)
	return s
}

// SetNonblocking switches Receive between blocking reads and bounded
// polls that report zero bytes when no data is pending.
func (s *Socket) SetNonblocking(enabled bool) {
	s.nonblocking = enabled
	if !enabled {
		s.conn.SetReadDeadline(time.Time{})
	}
}

// IsConnected reports whether the peer is still attached. It turns
// false permanently once a read or write fails.
func (s *Socket) IsConnected() bool {
	return s.connected.Load()
}

// RemoteAddr returns the peer address
func (s *Socket) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Receive reads up to len(buf) bytes. In non-blocking mode a quiet wire
// yields (0, nil); a peer disconnect yields (0, error) and marks the
// socket disconnected.
func (s *Socket) Receive(buf []byte) (int, error) {
	if !s.connected.Load() {
		return 0, ErrClosed
	}
	if s.nonblocking {
		s.conn.SetReadDeadline(time.Now().Add(nonblockingPollInterval))
	}
	n, err := s.conn.Read(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return n, nil
		}
		s.connected.Store(false)
		return n, err
	}
	return n, nil
}

// Send writes the whole buffer to the peer
func (s *Socket) Send(data []byte) error {
	if !s.connected.Load() {
		return ErrClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		s.connected.Store(false)
		return err
	}
	return nil
}

// Close tears the connection down
func (s *Socket) Close() error {
	s.connected.Store(false)
	return s.conn.Close()
}

// AcceptFunc is invoked on the server's accept goroutine for every
// connected client. Implementations that serve the client must hand it
// off to their own goroutine.
type AcceptFunc func(client *Socket)

// SocketServer accepts TCP clients on a fixed port and hands each to
// the accept callback.
type SocketServer struct {
	listener net.Listener
	closed   atomic.Bool
}

// Create binds the port on all interfaces and starts accepting.
func Create(port int, onAccept AcceptFunc) (*SocketServer, error) {
	listener, err := net.ListenTCP("tcp", &net.TCPAddr{Port: port})
	if err != nil {
		return nil, utils.MakeError(err, "binding debug listen port %d", port)
	}

	server := &SocketServer{listener: listener}
	go server.acceptLoop(onAccept)
	return server, nil
}

// Addr returns the bound listen address
func (s *SocketServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops accepting new clients. Already-accepted sockets are not
// touched.
func (s *SocketServer) Close() error {
	s.closed.Store(true)
	return s.listener.Close()
}

func (s *SocketServer) acceptLoop(onAccept AcceptFunc) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return
			}
			// Transient accept failure, keep serving.
			continue
		}
		onAccept(newSocket(conn))
	}
}
