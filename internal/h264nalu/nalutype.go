package h264nalu

import "fmt"

// Type is the H.264 NALU type, the low 5 bits of the first NALU byte
// (ISO/IEC 14496-10 Table 7-1).
type Type uint8

// NALU types this server inspects. The rest are forwarded opaquely.
const (
	TypeNonIDR Type = 1
	TypeIDR    Type = 5
	TypeSEI    Type = 6
	TypeSPS    Type = 7
	TypePPS    Type = 8
	TypeAUD    Type = 9
)

func (t Type) String() string {
	switch t {
	case TypeNonIDR:
		return "NonIDR"
	case TypeIDR:
		return "IDR"
	case TypeSEI:
		return "SEI"
	case TypeSPS:
		return "SPS"
	case TypePPS:
		return "PPS"
	case TypeAUD:
		return "AUD"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// NALUType extracts the NALU type from its first byte.
func NALUType(nalu []byte) Type {
	return Type(nalu[0] & 0x1F)
}

// RefIDC extracts nal_ref_idc (bits 5-6) from the NALU header byte.
func RefIDC(nalu []byte) uint8 {
	return (nalu[0] >> 5) & 0x03
}

// IsVCL reports whether t is a coded-slice (VCL) NALU type.
func IsVCL(t Type) bool {
	return t >= 1 && t <= 5
}
