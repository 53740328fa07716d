package rtspheaders

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avloop/rtspd/internal/rtspbase"
)

func TestReadTransportUDP(t *testing.T) {
	tr, err := ReadTransport(rtspbase.HeaderValue{"RTP/AVP;unicast;client_port=5004-5005"})
	require.NoError(t, err)
	require.Equal(t, ProtocolUDP, tr.Protocol)
	require.Equal(t, &[2]int{5004, 5005}, tr.ClientPorts)
}

func TestReadTransportUDPDefaultsHighPort(t *testing.T) {
	tr, err := ReadTransport(rtspbase.HeaderValue{"RTP/AVP;unicast;client_port=5004"})
	require.NoError(t, err)
	require.Equal(t, &[2]int{5004, 5005}, tr.ClientPorts)
}

func TestReadTransportTCPInterleaved(t *testing.T) {
	tr, err := ReadTransport(rtspbase.HeaderValue{"RTP/AVP/TCP;unicast;interleaved=0-1"})
	require.NoError(t, err)
	require.Equal(t, ProtocolTCP, tr.Protocol)
	require.Equal(t, &[2]int{0, 1}, tr.InterleavedIDs)
}

func TestReadTransportMulticastRejected(t *testing.T) {
	_, err := ReadTransport(rtspbase.HeaderValue{"RTP/AVP;multicast"})
	require.ErrorIs(t, err, ErrMulticastUnsupported)
}

func TestReadTransportRequiresUnicast(t *testing.T) {
	_, err := ReadTransport(rtspbase.HeaderValue{"RTP/AVP;client_port=5004-5005"})
	require.Error(t, err)
}

func TestWriteServerTransportUDP(t *testing.T) {
	tr := &Transport{Protocol: ProtocolUDP, ClientPorts: &[2]int{5004, 5005}}
	require.Equal(t,
		"RTP/AVP;unicast;client_port=5004-5005;server_port=6000-6001",
		WriteServerTransport(tr, [2]int{6000, 6001}))
}

func TestWriteServerTransportTCP(t *testing.T) {
	tr := &Transport{Protocol: ProtocolTCP, InterleavedIDs: &[2]int{0, 1}}
	require.Equal(t, "RTP/AVP/TCP;unicast;interleaved=0-1", WriteServerTransport(tr, [2]int{6000, 6001}))
}
