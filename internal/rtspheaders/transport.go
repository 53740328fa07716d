// Package rtspheaders parses and formats the RTSP headers this server
// cares about beyond the generic key/value parsing in rtspbase: the
// semicolon-delimited Transport header.
package rtspheaders

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/avloop/rtspd/internal/rtspbase"
)

// Protocol is the negotiated transport protocol.
type Protocol int

// transport protocols recognized by SETUP.
const (
	ProtocolUDP Protocol = iota
	ProtocolTCP
)

// Transport is a parsed Transport header, restricted to the tokens this
// server acts on.
type Transport struct {
	Protocol Protocol

	// UDP: client_port=lo-hi.
	ClientPorts *[2]int

	// TCP: interleaved=lo-hi.
	InterleavedIDs *[2]int
}

func parsePortRange(val string) (*[2]int, error) {
	parts := strings.SplitN(val, "-", 2)

	lo, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid port range '%s'", val)
	}

	if len(parts) == 1 {
		return &[2]int{lo, lo + 1}, nil
	}

	hi, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid port range '%s'", val)
	}

	return &[2]int{lo, hi}, nil
}

// ErrMulticastUnsupported is returned when the client requests multicast
// delivery; the caller is expected to map it to a 461 Unsupported
// Transport response.
var ErrMulticastUnsupported = fmt.Errorf("multicast transport is not supported")

// ReadTransport parses a Transport header value into a Transport.
// It accepts only the first header value, following the RTSP convention
// of a single (possibly compound) Transport line per request.
func ReadTransport(hv rtspbase.HeaderValue) (*Transport, error) {
	if len(hv) == 0 {
		return nil, fmt.Errorf("Transport header not provided")
	}

	tokens := strings.Split(hv[0], ";")

	t := &Transport{
		Protocol: ProtocolUDP,
	}

	var sawUnicast bool

	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)

		switch {
		case tok == "RTP/AVP", tok == "RTP/AVP/UDP":
			t.Protocol = ProtocolUDP

		case tok == "RTP/AVP/TCP":
			t.Protocol = ProtocolTCP

		case tok == "unicast":
			sawUnicast = true

		case tok == "multicast":
			return nil, ErrMulticastUnsupported

		case strings.HasPrefix(tok, "client_port="):
			rng, err := parsePortRange(strings.TrimPrefix(tok, "client_port="))
			if err != nil {
				return nil, err
			}
			t.ClientPorts = rng

		case strings.HasPrefix(tok, "interleaved="):
			rng, err := parsePortRange(strings.TrimPrefix(tok, "interleaved="))
			if err != nil {
				return nil, err
			}
			t.InterleavedIDs = rng
		}
	}

	if !sawUnicast {
		return nil, fmt.Errorf("unicast is required")
	}

	if t.Protocol == ProtocolUDP && t.ClientPorts == nil {
		return nil, fmt.Errorf("client_port is required for RTP/AVP")
	}

	if t.Protocol == ProtocolTCP && t.InterleavedIDs == nil {
		return nil, fmt.Errorf("interleaved is required for RTP/AVP/TCP")
	}

	return t, nil
}

// WriteServerTransport formats the server's echo of the Transport header
// for a SETUP response: the same unicast/protocol tokens, with the
// server's own port pair or interleaved channels appended.
func WriteServerTransport(t *Transport, serverPorts [2]int) string {
	switch t.Protocol {
	case ProtocolTCP:
		return fmt.Sprintf("RTP/AVP/TCP;unicast;interleaved=%d-%d",
			t.InterleavedIDs[0], t.InterleavedIDs[1])

	default:
		return fmt.Sprintf("RTP/AVP;unicast;client_port=%d-%d;server_port=%d-%d",
			t.ClientPorts[0], t.ClientPorts[1], serverPorts[0], serverPorts[1])
	}
}
