// Package fanout implements the fan-out scheduler: the single pipeline
// that reads the encoder's Annex-B output, frames it into NALUs,
// packetizes them into RTP, and dispatches packets to every PLAYING
// client over its negotiated transport, paced to the wall clock.
package fanout

import (
	"net"
	"time"

	"github.com/avloop/rtspd/internal/h264nalu"
	"github.com/avloop/rtspd/internal/logger"
	"github.com/avloop/rtspd/internal/registry"
	"github.com/avloop/rtspd/internal/rtcpsr"
	"github.com/avloop/rtspd/internal/rtph264"
	"github.com/avloop/rtspd/internal/rtspheaders"
	"github.com/avloop/rtspd/internal/transport"
)

// frameDurationNanos is the per-access-unit wall-clock pacing interval,
// matching rtph264.DefaultTimestampDelta at 30fps/90kHz.
const frameDurationNanos = time.Second / 30

// TCPWriterLookup resolves a Client Record's opaque Conn token (assigned
// by internal/rtspserver) to the TCPWriter owning that connection's write
// lock. It returns nil if the token does not resolve to a connection's
// writer.
type TCPWriterLookup func(conn any) *transport.TCPWriter

// Scheduler owns the single per-source pipeline.
type Scheduler struct {
	Registry   *registry.Registry
	Params     *ParamCache
	Packetizer *rtph264.Packetizer
	RTCP       *rtcpsr.Sender
	RTPSocket  *transport.UDPSender
	TCPWriters TCPWriterLookup
	Log        *logger.Prefixed

	framer      h264nalu.Framer
	frameIndex  int64
	streamStart time.Time

	// cumulative RTCP SR counters, updated on every packet sent and never
	// reset across encoder restarts.
	totalPackets uint32
	totalOctets  uint32
}

// Start resets the pacing clock. Call once before the first Push.
func (s *Scheduler) Start() {
	s.streamStart = time.Now()
	s.frameIndex = 0
}

// Push feeds a chunk of the encoder's raw Annex-B output through the
// pipeline.
func (s *Scheduler) Push(chunk []byte) {
	nalus := s.framer.Push(chunk)
	for _, nalu := range nalus {
		s.handleNALU(nalu)
	}
}

// Flush drains any NALU still buffered in the framer, e.g. on encoder
// restart.
func (s *Scheduler) Flush() {
	for _, nalu := range s.framer.Flush() {
		s.handleNALU(nalu)
	}
}

func (s *Scheduler) handleNALU(nalu []byte) {
	if len(nalu) == 0 {
		return
	}

	typ := h264nalu.NALUType(nalu)

	switch typ {
	case h264nalu.TypeSPS:
		s.Params.Update(nalu, nil)
		return
	case h264nalu.TypePPS:
		s.Params.Update(nil, nalu)
		return
	}

	if !h264nalu.IsVCL(typ) {
		// SEI, AUD and any other non-VCL, non-parameter-set NALU still go
		// out over RTP, they just never end an access unit: the marker bit
		// stays clear and the clock doesn't advance.
		s.packetizeAndSend(nalu, false)
		return
	}

	if typ == h264nalu.TypeIDR {
		sps, pps := s.Params.Get()
		if sps != nil {
			s.packetizeAndSend(sps, false)
		}
		if pps != nil {
			s.packetizeAndSend(pps, false)
		}
	}

	// every VCL NALU ends its own access unit, so the marker bit is always
	// set and the timestamp always advances here.
	s.packetizeAndSend(nalu, true)
	s.Packetizer.AdvanceTimestamp(rtph264.DefaultTimestampDelta)

	s.pace()
}

func (s *Scheduler) packetizeAndSend(nalu []byte, markerOnLast bool) {
	packets, err := s.Packetizer.Packetize(nalu, markerOnLast)
	if err != nil {
		s.Log.Errorf("packetize failed: %v", err)
		return
	}

	clients := s.Registry.SnapshotPlaying()

	for _, pkt := range packets {
		raw, err := pkt.Marshal()
		if err != nil {
			s.Log.Errorf("marshal RTP packet failed: %v", err)
			continue
		}

		for _, client := range clients {
			s.sendToClient(client, raw)
		}

		s.totalPackets++
		s.totalOctets += uint32(len(pkt.Payload))
	}

	if len(packets) > 0 {
		s.RTCP.Update(s.Packetizer.Timestamp(), s.totalPackets, s.totalOctets, time.Now())
	}
}

func (s *Scheduler) sendToClient(client *registry.Record, raw []byte) {
	switch client.Transport.Protocol {
	case rtspheaders.ProtocolUDP:
		addr := &net.UDPAddr{IP: net.ParseIP(client.RemoteIP), Port: client.Transport.ClientPorts[0]}
		if err := s.RTPSocket.SendTo(addr, raw); err != nil {
			s.Log.Warnf("sendto %s failed: %v", client.SessionID, err)
		}

	case rtspheaders.ProtocolTCP:
		w := s.TCPWriters(client.Conn)
		if w == nil {
			s.Registry.Remove(client.SessionID)
			return
		}
		if err := w.WriteInterleaved(client.Transport.InterleavedIDs[0], raw); err != nil {
			s.Log.Warnf("tcp write to %s failed, evicting: %v", client.SessionID, err)
			s.Registry.Remove(client.SessionID)
		}
	}
}

// pace sleeps until the wall-clock deadline for the current frame index,
// then advances to the next one. It never sleeps backwards: a scheduler
// running behind catches up without dropping packets.
func (s *Scheduler) pace() {
	s.frameIndex++
	deadline := s.streamStart.Add(time.Duration(s.frameIndex) * frameDurationNanos)
	if d := time.Until(deadline); d > 0 {
		time.Sleep(d)
	}
}
