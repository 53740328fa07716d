// Package rtspserver runs the RTSP control-connection accept loop and
// the per-connection request/response cycle, dispatching every parsed
// request to a session.Handler and exposing each TCP-interleaved
// connection's write lock to the fan-out scheduler and the RTCP SR
// emitter.
package rtspserver

import (
	"bufio"
	"net"
	"time"

	"github.com/avloop/rtspd/internal/logger"
	"github.com/avloop/rtspd/internal/registry"
	"github.com/avloop/rtspd/internal/rtspbase"
	"github.com/avloop/rtspd/internal/rtspheaders"
	"github.com/avloop/rtspd/internal/session"
	"github.com/avloop/rtspd/internal/transport"
)

// DefaultIdleTimeout closes a RTSP/TCP connection that issues no request
// for this long. GET_PARAMETER keep-alives reset it.
const DefaultIdleTimeout = 60 * time.Second

// Server accepts RTSP/TCP control connections and dispatches requests
// arriving on them to Handler.
type Server struct {
	Listener    net.Listener
	Handler     *session.Handler
	Registry    *registry.Registry
	IdleTimeout time.Duration
	Log         *logger.Prefixed
}

// Serve runs the accept loop until the listener is closed. It always
// returns a non-nil error.
func (s *Server) Serve() error {
	for {
		nconn, err := s.Listener.Accept()
		if err != nil {
			return err
		}
		go s.serveConn(nconn)
	}
}

func (s *Server) serveConn(nconn net.Conn) {
	idleTimeout := s.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = DefaultIdleTimeout
	}

	c := &conn{
		nconn:  nconn,
		writer: transport.NewTCPWriter(nconn),
		server: s,
		idle:   idleTimeout,
		br:     bufio.NewReader(nconn),
		remote: remoteIP(nconn),
	}
	c.run()
}

func remoteIP(nconn net.Conn) string {
	host, _, err := net.SplitHostPort(nconn.RemoteAddr().String())
	if err != nil {
		return nconn.RemoteAddr().String()
	}
	return host
}

// conn is the per-connection state. Its *conn pointer is the opaque Conn
// token stored in registry.Record.Conn, letting the fan-out scheduler
// and RTCP emitter resolve it back to a TCPWriter via TCPWriter without
// the registry ever depending on this package.
type conn struct {
	nconn  net.Conn
	writer *transport.TCPWriter
	server *Server
	idle   time.Duration
	br     *bufio.Reader
	remote string
}

func (c *conn) run() {
	defer func() {
		c.nconn.Close()
		c.server.Registry.RemoveByConn(c)
	}()

	for {
		if c.idle > 0 {
			if err := c.nconn.SetReadDeadline(time.Now().Add(c.idle)); err != nil {
				return
			}
		}

		var req rtspbase.Request
		if err := req.Read(c.br); err != nil {
			c.server.Log.Debugf("%s: read error: %v", c.remote, err)
			return
		}

		wasInterleavedTeardown := req.Method == rtspbase.Teardown && c.sessionIsInterleaved(&req)

		res := c.server.Handler.Handle(&req, c, c.remote)

		if err := c.writer.WriteResponse(res); err != nil {
			c.server.Log.Debugf("%s: write error: %v", c.remote, err)
			return
		}

		if wasInterleavedTeardown {
			// tearing down an interleaved session also closes its control
			// connection, after the 200 has gone out.
			return
		}
	}
}

func (c *conn) sessionIsInterleaved(req *rtspbase.Request) bool {
	hv, ok := req.Header["Session"]
	if !ok || len(hv) != 1 {
		return false
	}
	rec := c.server.Registry.Get(hv[0])
	return rec != nil && rec.Transport != nil && rec.Transport.Protocol == rtspheaders.ProtocolTCP
}

// TCPWriter resolves a client record's Conn token back to the TCPWriter
// owning that connection's write lock, for the fan-out scheduler and
// RTCP SR emitter. It returns nil if token is not a connection known to
// this server.
func TCPWriter(token any) *transport.TCPWriter {
	c, ok := token.(*conn)
	if !ok {
		return nil
	}
	return c.writer
}
