package fanout

import (
	"net"

	"github.com/pion/rtcp"

	"github.com/avloop/rtspd/internal/logger"
	"github.com/avloop/rtspd/internal/registry"
	"github.com/avloop/rtspd/internal/rtspheaders"
	"github.com/avloop/rtspd/internal/transport"
)

// RTCPBroadcaster sends one built RTCP Sender Report to every PLAYING
// client over its negotiated transport: the RTCP UDP socket for UDP
// clients, the owning TCP connection's RTCP channel for interleaved
// ones. It implements rtcpsr.Sender's Send callback.
//
// Kept in this package rather than internal/rtcpsr because dispatch needs
// the Client Registry and transport writers that internal/fanout already
// depends on for RTP delivery; internal/rtcpsr only knows how to build
// the SR itself.
type RTCPBroadcaster struct {
	Registry   *registry.Registry
	RTCPSocket *transport.UDPSender
	TCPWriters TCPWriterLookup
	Log        *logger.Prefixed
}

// Send marshals pkt and dispatches it to every currently PLAYING client.
func (b *RTCPBroadcaster) Send(pkt rtcp.Packet) {
	raw, err := pkt.Marshal()
	if err != nil {
		b.Log.Errorf("marshal RTCP SR failed: %v", err)
		return
	}

	for _, client := range b.Registry.SnapshotPlaying() {
		switch client.Transport.Protocol {
		case rtspheaders.ProtocolUDP:
			addr := &net.UDPAddr{IP: net.ParseIP(client.RemoteIP), Port: client.Transport.ClientPorts[1]}
			if err := b.RTCPSocket.SendTo(addr, raw); err != nil {
				b.Log.Warnf("rtcp sendto %s failed: %v", client.SessionID, err)
			}

		case rtspheaders.ProtocolTCP:
			w := b.TCPWriters(client.Conn)
			if w == nil {
				b.Registry.Remove(client.SessionID)
				continue
			}
			if err := w.WriteInterleaved(client.Transport.InterleavedIDs[1], raw); err != nil {
				b.Log.Warnf("rtcp tcp write to %s failed, evicting: %v", client.SessionID, err)
				b.Registry.Remove(client.SessionID)
			}
		}
	}
}
