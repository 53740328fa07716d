// Package ntp converts between time.Time and the 64-bit fixed-point NTP
// timestamp format used by RTCP Sender Reports (RFC 3550 section 4,
// RFC 5905).
package ntp

import (
	"math"
	"time"
)

const unixToNTPOffsetSeconds = 2208988800 // 1900-01-01 -> 1970-01-01

// Encode converts t into the 64-bit NTP fixed-point format: whole seconds
// since 1900 in the upper 32 bits, the fractional part scaled to 2^32 in
// the lower 32 bits.
func Encode(t time.Time) uint64 {
	ntpNanos := uint64(t.UnixNano()) + unixToNTPOffsetSeconds*1_000_000_000
	secs := ntpNanos / 1_000_000_000
	frac := uint64(math.Round(float64(ntpNanos%1_000_000_000) * (1 << 32) / 1_000_000_000))
	return secs<<32 | frac
}

// Decode converts a 64-bit NTP timestamp back into a time.Time.
func Decode(v uint64) time.Time {
	secs := int64(v>>32) - unixToNTPOffsetSeconds
	nanos := int64(math.Round(float64(v&0xFFFFFFFF) * 1_000_000_000 / (1 << 32)))
	return time.Unix(secs, nanos)
}
