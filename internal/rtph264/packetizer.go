// Package rtph264 implements the H.264 RTP packetizer: Single NAL Unit
// mode for NALUs that fit in one packet, and FU-A fragmentation
// (RFC 6184, section 5.8) for larger ones. STAP-A aggregation is not
// used.
//
// The timestamp is externally driven: the fan-out scheduler advances the
// 90 kHz clock once per access unit rather than the packetizer deriving
// it from a PTS.
package rtph264

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/pion/rtp"
)

// MTU is the maximum size of a RTP/H264 payload.
const MTU = 1400

// PayloadType is the dynamic RTP payload type used for H.264.
const PayloadType = 96

const (
	fuIndicatorType = 28 // FU-A
)

func randUint32() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func randUint16() (uint16, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// Packetizer converts H.264 NALUs into RTP packets. It owns the RTP
// session context: a monotonic sequence number, a monotonic 90 kHz
// timestamp, and a constant SSRC/payload-type pair for as long as the
// process runs, even across encoder restarts.
type Packetizer struct {
	ssrc      uint32
	sequence  uint16
	timestamp uint32
}

// NewPacketizer allocates a Packetizer with a random SSRC, sequence
// number and initial timestamp, per RFC 3550 section 5.1.
func NewPacketizer() (*Packetizer, error) {
	ssrc, err := randUint32()
	if err != nil {
		return nil, err
	}
	seq, err := randUint16()
	if err != nil {
		return nil, err
	}
	ts, err := randUint32()
	if err != nil {
		return nil, err
	}

	return &Packetizer{ssrc: ssrc, sequence: seq, timestamp: ts}, nil
}

// SSRC returns the packetizer's constant SSRC.
func (p *Packetizer) SSRC() uint32 {
	return p.ssrc
}

// Timestamp returns the current 90 kHz RTP timestamp.
func (p *Packetizer) Timestamp() uint32 {
	return p.timestamp
}

// Sequence returns the sequence number the next emitted packet will
// carry, for the RTP-Info header on PLAY.
func (p *Packetizer) Sequence() uint16 {
	return p.sequence
}

// DefaultTimestampDelta is the per-access-unit timestamp advance at
// 30fps/90kHz.
const DefaultTimestampDelta = 3000

// AdvanceTimestamp moves the 90 kHz clock forward by delta, wrapping mod
// 2^32.
func (p *Packetizer) AdvanceTimestamp(delta uint32) {
	p.timestamp += delta
}

// Packetize turns a single NALU into one or more RTP packets. markerOnLast
// is true iff nalu is the last NALU of its access unit; the marker bit is
// set only on the very last fragment of such a NALU.
func (p *Packetizer) Packetize(nalu []byte, markerOnLast bool) ([]*rtp.Packet, error) {
	if len(nalu) == 0 {
		return nil, nil
	}

	if len(nalu) <= MTU {
		return p.packetizeSingle(nalu, markerOnLast)
	}

	return p.packetizeFragmented(nalu, markerOnLast)
}

func (p *Packetizer) packetizeSingle(nalu []byte, marker bool) ([]*rtp.Packet, error) {
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    PayloadType,
			SequenceNumber: p.sequence,
			Timestamp:      p.timestamp,
			SSRC:           p.ssrc,
			Marker:         marker,
		},
		Payload: nalu,
	}
	p.sequence++

	return []*rtp.Packet{pkt}, nil
}

// packetizeFragmented implements RFC 6184 section 5.8 FU-A. Only FU-A is
// used, never FU-B, because this server always operates in
// non-interleaved mode (packetization-mode=1).
func (p *Packetizer) packetizeFragmented(nalu []byte, marker bool) ([]*rtp.Packet, error) {
	if len(nalu) < 1 {
		return nil, fmt.Errorf("NALU too short to fragment")
	}

	header := nalu[0]
	nri := (header >> 5) & 0x03
	typ := header & 0x1F
	rest := nalu[1:]

	chunkSize := MTU - 2
	count := (len(rest) + chunkSize - 1) / chunkSize

	packets := make([]*rtp.Packet, 0, count)

	for i := 0; i < count; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(rest) {
			end = len(rest)
		}
		chunk := rest[start:end]

		isFirst := i == 0
		isLast := i == count-1

		fuIndicator := (nri << 5) | fuIndicatorType
		fuHeader := typ
		if isFirst {
			fuHeader |= 0x80
		}
		if isLast {
			fuHeader |= 0x40
		}

		payload := make([]byte, 2+len(chunk))
		payload[0] = fuIndicator
		payload[1] = fuHeader
		copy(payload[2:], chunk)

		packets = append(packets, &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    PayloadType,
				SequenceNumber: p.sequence,
				Timestamp:      p.timestamp,
				SSRC:           p.ssrc,
				Marker:         isLast && marker,
			},
			Payload: payload,
		})

		p.sequence++
	}

	return packets, nil
}
