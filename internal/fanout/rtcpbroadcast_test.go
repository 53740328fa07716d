package fanout

import (
	"net"
	"testing"
	"time"

	"github.com/pion/rtcp"
	"github.com/stretchr/testify/require"

	"github.com/avloop/rtspd/internal/logger"
	"github.com/avloop/rtspd/internal/registry"
	"github.com/avloop/rtspd/internal/rtspheaders"
	"github.com/avloop/rtspd/internal/transport"
)

func TestRTCPBroadcasterSendsSRToUDPClient(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer listener.Close()

	socket, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer socket.Close()

	reg := registry.New()
	reg.Insert(&registry.Record{
		SessionID: "client1",
		State:     registry.StatePlaying,
		RemoteIP:  "127.0.0.1",
		Transport: &rtspheaders.Transport{
			Protocol:    rtspheaders.ProtocolUDP,
			ClientPorts: &[2]int{0, listener.LocalAddr().(*net.UDPAddr).Port},
		},
	})

	b := &RTCPBroadcaster{
		Registry:   reg,
		RTCPSocket: transport.NewUDPSender(socket),
		Log:        logger.New(logger.Error).Prefixed("test"),
	}
	b.Send(&rtcp.SenderReport{SSRC: 42, PacketCount: 10, OctetCount: 1000})

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 128)
	n, _, err := listener.ReadFromUDP(buf)
	require.NoError(t, err)

	var sr rtcp.SenderReport
	require.NoError(t, sr.Unmarshal(buf[:n]))
	require.Equal(t, uint32(42), sr.SSRC)
	require.Equal(t, uint32(10), sr.PacketCount)
}

func TestRTCPBroadcasterEvictsClientWithoutTCPWriter(t *testing.T) {
	reg := registry.New()
	reg.Insert(&registry.Record{
		SessionID: "tcpclient",
		State:     registry.StatePlaying,
		Conn:      "dead-conn",
		Transport: &rtspheaders.Transport{
			Protocol:       rtspheaders.ProtocolTCP,
			InterleavedIDs: &[2]int{0, 1},
		},
	})

	b := &RTCPBroadcaster{
		Registry:   reg,
		TCPWriters: func(conn any) *transport.TCPWriter { return nil },
		Log:        logger.New(logger.Error).Prefixed("test"),
	}
	b.Send(&rtcp.SenderReport{SSRC: 1})

	require.Nil(t, reg.Get("tcpclient"))
}
