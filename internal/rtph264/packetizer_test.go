package rtph264

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func newFixedPacketizer(t *testing.T) *Packetizer {
	t.Helper()
	p, err := NewPacketizer()
	require.NoError(t, err)
	p.ssrc = 0x9dbb7812
	p.sequence = 0x44ed
	p.timestamp = 0x88776655
	return p
}

func TestPacketizeSingleNALU(t *testing.T) {
	p := newFixedPacketizer(t)
	nalu := bytes.Repeat([]byte{0xab}, 100)

	pkts, err := p.Packetize(nalu, true)
	require.NoError(t, err)
	require.Len(t, pkts, 1)

	pkt := pkts[0]
	require.Equal(t, uint8(PayloadType), pkt.PayloadType)
	require.Equal(t, uint16(0x44ed), pkt.SequenceNumber)
	require.Equal(t, uint32(0x88776655), pkt.Timestamp)
	require.True(t, pkt.Marker)
	require.Equal(t, nalu, pkt.Payload)

	raw, err := pkt.Marshal()
	require.NoError(t, err)
	require.Len(t, raw, 12+100)
}

func TestPacketizeEmptyNALUReturnsNothing(t *testing.T) {
	p := newFixedPacketizer(t)
	pkts, err := p.Packetize(nil, true)
	require.NoError(t, err)
	require.Empty(t, pkts)
}

func TestPacketizeFUA(t *testing.T) {
	p := newFixedPacketizer(t)

	nalu := make([]byte, 3000)
	nalu[0] = 0x65 // IDR, nal_ref_idc=3
	for i := 1; i < len(nalu); i++ {
		nalu[i] = byte(i)
	}

	pkts, err := p.Packetize(nalu, true)
	require.NoError(t, err)
	require.Len(t, pkts, 3)

	require.Len(t, pkts[0].Payload, 2+1398)
	require.Len(t, pkts[1].Payload, 2+1398)
	require.Len(t, pkts[2].Payload, 2+203)

	// fu_indicator: nri preserved, type forced to 28 (FU-A).
	nri := nalu[0] & 0xE0
	require.Equal(t, nri|28, pkts[0].Payload[0])

	// fu_header S/E bits.
	require.Equal(t, uint8(0x80)|0x05, pkts[0].Payload[1]) // S=1,E=0,type=5
	require.Equal(t, uint8(0x05), pkts[1].Payload[1])      // S=0,E=0
	require.Equal(t, uint8(0x40)|0x05, pkts[2].Payload[1]) // S=0,E=1

	require.True(t, pkts[0].SequenceNumber+1 == pkts[1].SequenceNumber)
	require.True(t, pkts[1].SequenceNumber+1 == pkts[2].SequenceNumber)

	for _, pkt := range pkts {
		require.Equal(t, uint32(0x88776655), pkt.Timestamp)
	}

	require.False(t, pkts[0].Marker)
	require.False(t, pkts[1].Marker)
	require.True(t, pkts[2].Marker)

	// FU-A reassembly: reconstructed header + chunks ==
	// original NALU.
	var reassembled []byte
	reconstructedHeader := (pkts[0].Payload[0] & 0xE0) | (pkts[0].Payload[1] & 0x1F)
	reassembled = append(reassembled, reconstructedHeader)
	for _, pkt := range pkts {
		reassembled = append(reassembled, pkt.Payload[2:]...)
	}
	require.Equal(t, nalu, reassembled)
}

func TestPacketizeFUAMarkerOnlyWhenMarkerOnLast(t *testing.T) {
	p := newFixedPacketizer(t)
	nalu := make([]byte, 2900)
	nalu[0] = 0x61

	pkts, err := p.Packetize(nalu, false)
	require.NoError(t, err)
	for _, pkt := range pkts {
		require.False(t, pkt.Marker)
	}
}

func TestSequenceNumbersAreGapFreeAcrossPackets(t *testing.T) {
	p := newFixedPacketizer(t)
	start := p.sequence

	nalus := [][]byte{
		bytes.Repeat([]byte{0x61}, 50),
		make([]byte, 3500),
		bytes.Repeat([]byte{0x61}, 10),
	}

	var allPkts []uint16
	for i, n := range nalus {
		pkts, err := p.Packetize(n, i == len(nalus)-1)
		require.NoError(t, err)
		for _, pkt := range pkts {
			allPkts = append(allPkts, pkt.SequenceNumber)
		}
	}

	for i, seq := range allPkts {
		require.Equal(t, start+uint16(i), seq)
	}
}

func TestAdvanceTimestampWraps(t *testing.T) {
	p := newFixedPacketizer(t)
	p.timestamp = 0xFFFFFFFF
	p.AdvanceTimestamp(DefaultTimestampDelta)
	require.Equal(t, uint32(DefaultTimestampDelta-1), p.timestamp)
}
