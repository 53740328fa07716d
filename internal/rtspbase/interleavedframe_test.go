package rtspbase

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterleavedFrameMarshalLayout(t *testing.T) {
	f := InterleavedFrame{Channel: 1, Payload: []byte{0xaa, 0xbb, 0xcc}}

	buf := f.Marshal()
	require.Equal(t, []byte{0x24, 0x01, 0x00, 0x03, 0xaa, 0xbb, 0xcc}, buf)
	require.Equal(t, len(buf), f.MarshalSize())
}

func TestInterleavedFrameUnmarshalRoundTrip(t *testing.T) {
	in := InterleavedFrame{Channel: 0, Payload: bytes.Repeat([]byte{0x5a}, 1400)}

	var out InterleavedFrame
	require.NoError(t, out.Unmarshal(bufio.NewReader(bytes.NewReader(in.Marshal()))))
	require.Equal(t, in.Channel, out.Channel)
	require.Equal(t, in.Payload, out.Payload)
}

func TestInterleavedFrameUnmarshalRejectsBadMagicByte(t *testing.T) {
	var f InterleavedFrame
	err := f.Unmarshal(bufio.NewReader(bytes.NewReader([]byte{0x25, 0x00, 0x00, 0x00})))
	require.Error(t, err)
}
