// Package h264nalu implements a streaming Annex-B NALU framer: it turns
// an arbitrarily-chunked byte stream from the encoder subprocess into a
// sequence of individual NALUs, stripped of their start-code prefixes.
package h264nalu

// Framer incrementally splits an Annex-B byte stream into NALUs.
// It is not safe for concurrent use; the fan-out scheduler owns exactly
// one Framer per source.
type Framer struct {
	buf []byte
}

// startCode records where a detected `00 00 01` / `00 00 00 01` marker
// begins (delimStart, the first zero byte of the run) and where the NALU
// following it begins (naluStart, right after the terminating 0x01).
type startCode struct {
	delimStart int
	naluStart  int
}

func scanStartCodes(buf []byte) []startCode {
	var markers []startCode
	zeroRun := 0
	runStart := 0

	for i, b := range buf {
		switch {
		case b == 0x00:
			if zeroRun == 0 {
				runStart = i
			}
			zeroRun++

		case b == 0x01 && zeroRun >= 2:
			markers = append(markers, startCode{delimStart: runStart, naluStart: i + 1})
			zeroRun = 0

		default:
			zeroRun = 0
		}
	}

	return markers
}

// Push appends newly-read bytes from the encoder pipe and returns every
// NALU that is now fully bracketed by two start codes. Bytes belonging to
// the last (not yet terminated) start code are retained internally for
// the next call.
func (f *Framer) Push(data []byte) [][]byte {
	f.buf = append(f.buf, data...)
	return f.extract(false)
}

// Flush signals end-of-stream: the trailing NALU, if any, is emitted and
// the framer's internal buffer is cleared.
func (f *Framer) Flush() [][]byte {
	nalus := f.extract(true)
	f.buf = nil
	return nalus
}

func (f *Framer) extract(final bool) [][]byte {
	markers := scanStartCodes(f.buf)
	if len(markers) == 0 {
		// leading bytes before the first start code are discarded, but we
		// can't know yet whether a start code is still coming, so we keep
		// waiting unless this is the final call.
		if final {
			f.buf = nil
		}
		return nil
	}

	var nalus [][]byte

	for i := 0; i < len(markers)-1; i++ {
		nalu := f.buf[markers[i].naluStart:markers[i+1].delimStart]
		if len(nalu) > 0 {
			nalus = append(nalus, append([]byte(nil), nalu...))
		}
	}

	last := markers[len(markers)-1]

	if final {
		nalu := f.buf[last.naluStart:]
		if len(nalu) > 0 {
			nalus = append(nalus, append([]byte(nil), nalu...))
		}
		return nalus
	}

	// retain from the last observed start code onward; that NALU is not
	// yet terminated.
	f.buf = append([]byte(nil), f.buf[last.delimStart:]...)

	return nalus
}
