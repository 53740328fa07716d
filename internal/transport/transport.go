// Package transport implements the two delivery paths a PLAYING client
// can use: a plain UDP datagram send, and a TCP interleaved frame
// written under the owning connection's write lock, so that RTSP
// responses and media frames emitted from different goroutines never
// interleave mid-write.
package transport

import (
	"bufio"
	"net"
	"sync"

	"github.com/avloop/rtspd/internal/rtspbase"
)

// TCPWriter serializes every write to a RTSP/TCP connection, whether it
// carries a RTSP response (internal/rtspserver) or an interleaved media
// frame (the fan-out scheduler).
type TCPWriter struct {
	mutex sync.Mutex
	bw    *bufio.Writer
}

// NewTCPWriter wraps conn's write half.
func NewTCPWriter(conn net.Conn) *TCPWriter {
	return &TCPWriter{bw: bufio.NewWriter(conn)}
}

// WriteResponse writes a RTSP response under the shared lock.
func (w *TCPWriter) WriteResponse(res *rtspbase.Response) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return res.Write(w.bw)
}

// WriteInterleaved writes one interleaved frame under the shared lock,
// atomically: the '$' prefix through the payload goes out under one lock
// acquisition.
func (w *TCPWriter) WriteInterleaved(channel int, payload []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	frame := rtspbase.InterleavedFrame{Channel: channel, Payload: payload}
	if _, err := w.bw.Write(frame.Marshal()); err != nil {
		return err
	}
	return w.bw.Flush()
}

// UDPSender sends RTP/RTCP packets to unicast UDP clients. One UDPSender
// is shared by every client using UDP transport; individual send errors
// are per-client and non-fatal.
type UDPSender struct {
	conn *net.UDPConn
}

// NewUDPSender wraps an already-bound UDP socket (RTP or RTCP).
func NewUDPSender(conn *net.UDPConn) *UDPSender {
	return &UDPSender{conn: conn}
}

// SendTo writes payload to addr.
func (s *UDPSender) SendTo(addr *net.UDPAddr, payload []byte) error {
	_, err := s.conn.WriteToUDP(payload, addr)
	return err
}
