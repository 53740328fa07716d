package rtspbase

import (
	"bufio"
	"fmt"
)

// readLF consumes the '\n' that completes a '\r\n' line terminator; the
// caller has already consumed the preceding '\r'. RTSP lines are always
// CRLF-terminated (RFC 2326 section 4.1), so unlike a generic line scanner this
// never needs to compare against anything but '\n'.
func readLF(rb *bufio.Reader) error {
	byt, err := rb.ReadByte()
	if err != nil {
		return err
	}
	if byt != '\n' {
		return fmt.Errorf("malformed line terminator: expected '\\n', got '%c'", byt)
	}
	return nil
}

// readBytesLimited reads from rb up to and including delim, rejecting
// anything longer than max bytes. It relies on bufio.Reader's own
// internal buffering (ReadSlice) instead of probing one byte at a time:
// every caller here bounds max well below the reader's buffer size, so a
// single ReadSlice either finds delim or overruns max long before it
// could overrun the buffer itself.
func readBytesLimited(rb *bufio.Reader, delim byte, max int) ([]byte, error) {
	byts, err := rb.ReadSlice(delim)
	if err != nil {
		if err == bufio.ErrBufferFull {
			return nil, fmt.Errorf("line exceeds maximum length of %d", max)
		}
		return nil, err
	}
	if len(byts) > max {
		return nil, fmt.Errorf("line exceeds maximum length of %d", max)
	}

	// ReadSlice's return value aliases the reader's internal buffer and is
	// only valid until the next read; copy it out for the caller to keep.
	out := make([]byte, len(byts))
	copy(out, byts)
	return out, nil
}

func readContent(rb *bufio.Reader, h Header) ([]byte, error) {
	v, ok := h["Content-Length"]
	if !ok || len(v) != 1 {
		return nil, nil
	}

	var length int
	if _, err := fmt.Sscanf(v[0], "%d", &length); err != nil {
		return nil, fmt.Errorf("invalid Content-Length: %w", err)
	}
	if length == 0 {
		return nil, nil
	}

	content := make([]byte, length)
	if _, err := readFull(rb, content); err != nil {
		return nil, err
	}
	return content, nil
}

func readFull(rb *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := rb.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
