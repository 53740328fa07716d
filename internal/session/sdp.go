package session

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	psdp "github.com/pion/sdp/v3"
)

// ParameterSets holds the SPS/PPS currently known for the stream, used to
// fill in the SDP fmtp line's sprop-parameter-sets and profile-level-id.
type ParameterSets struct {
	SPS []byte
	PPS []byte
}

func (ps ParameterSets) fmtpLine() string {
	fmtp := []string{"packetization-mode=1"}

	var sprop []string
	if ps.SPS != nil {
		sprop = append(sprop, base64.StdEncoding.EncodeToString(ps.SPS))
	}
	if ps.PPS != nil {
		sprop = append(sprop, base64.StdEncoding.EncodeToString(ps.PPS))
	}
	if sprop != nil {
		fmtp = append(fmtp, "sprop-parameter-sets="+strings.Join(sprop, ","))
	}

	if len(ps.SPS) >= 4 {
		fmtp = append(fmtp, "profile-level-id="+strings.ToUpper(hex.EncodeToString(ps.SPS[1:4])))
	}

	return strings.Join(fmtp, ";")
}

// BuildSDP renders the session description returned by DESCRIBE, given
// the server's advertised IP/name and the currently known parameter sets
// (which may be empty before the encoder has produced its first IDR).
func BuildSDP(serverIP, serverName string, ps ParameterSets) []byte {
	typ := "96"

	desc := &psdp.SessionDescription{
		Version: 0,
		Origin: psdp.Origin{
			Username:       "-",
			SessionID:      0,
			SessionVersion: 0,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: serverIP,
		},
		SessionName: psdp.SessionName(serverName),
		ConnectionInformation: &psdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &psdp.Address{Address: "0.0.0.0"},
		},
		TimeDescriptions: []psdp.TimeDescription{
			{Timing: psdp.Timing{StartTime: 0, StopTime: 0}},
		},
		MediaDescriptions: []*psdp.MediaDescription{
			{
				MediaName: psdp.MediaName{
					Media:   "video",
					Port:    psdp.RangedPort{Value: 0},
					Protos:  []string{"RTP", "AVP"},
					Formats: []string{typ},
				},
				Attributes: []psdp.Attribute{
					{Key: "rtpmap", Value: typ + " H264/90000"},
					{Key: "fmtp", Value: typ + " " + ps.fmtpLine()},
					{Key: "control", Value: "track1"},
				},
			},
		},
	}

	out, _ := desc.Marshal()
	return out
}
