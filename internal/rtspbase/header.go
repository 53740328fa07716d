package rtspbase

import (
	"bufio"
	"fmt"
	"slices"
	"strings"
)

const (
	// headerMaxLines bounds how many header lines a single request or
	// response may carry. This server only ever reads or writes a
	// handful of headers (CSeq, Session, Transport, ...); a client
	// sending far more than that is either confused or hostile.
	headerMaxLines = 32

	headerMaxKeyLength   = 256
	headerMaxValueLength = 2048
)

// recognizedHeaderNames is the closed set of header names this server's
// request/response handling ever looks at. Anything else a client sends
// (User-Agent, Accept, ...) still round-trips through Header under its
// own title-cased name, it just isn't special-cased.
var recognizedHeaderNames = map[string]string{
	"cseq":           "CSeq",
	"session":        "Session",
	"transport":      "Transport",
	"public":         "Public",
	"content-type":   "Content-Type",
	"content-length": "Content-Length",
	"content-base":   "Content-Base",
	"rtp-info":       "RTP-Info",
}

func headerKeyNormalize(key string) string {
	if canon, ok := recognizedHeaderNames[strings.ToLower(key)]; ok {
		return canon
	}
	return titleCaseHeaderKey(key)
}

// titleCaseHeaderKey upper-cases the first letter of each hyphen-separated
// word, the same convention RTSP/HTTP header names use, for the rare
// header this server doesn't otherwise recognize.
func titleCaseHeaderKey(key string) string {
	words := strings.Split(key, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, "-")
}

// HeaderValue is the value of a header entry; RTSP allows a header name
// to repeat, so values are kept as a slice even though most headers in
// this server only ever carry one.
type HeaderValue []string

// Header is the parsed header section of a RTSP request or response.
type Header map[string]HeaderValue

func (h *Header) read(rb *bufio.Reader) error {
	*h = make(Header)

	for i := 0; ; i++ {
		if blank, err := rb.Peek(2); err == nil && blank[0] == '\r' && blank[1] == '\n' {
			rb.Discard(2) //nolint:errcheck
			return nil
		}

		if i >= headerMaxLines {
			return fmt.Errorf("header section exceeds %d lines", headerMaxLines)
		}

		keyBytes, err := readBytesLimited(rb, ':', headerMaxKeyLength)
		if err != nil {
			return fmt.Errorf("malformed header line: %w", err)
		}
		key := headerKeyNormalize(strings.TrimSpace(string(keyBytes[:len(keyBytes)-1])))

		lineBytes, err := readBytesLimited(rb, '\r', headerMaxValueLength)
		if err != nil {
			return err
		}
		if err := readLF(rb); err != nil {
			return err
		}

		// RFC 2326 section 4.2: the field value may be preceded by spaces.
		val := strings.TrimSpace(string(lineBytes[:len(lineBytes)-1]))

		(*h)[key] = append((*h)[key], val)
	}
}

func (h Header) write(bw *bufio.Writer) error {
	// sorted for deterministic output, not because RTSP requires it.
	keys := make([]string, 0, len(h))
	for key := range h {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		for _, val := range h[key] {
			if _, err := fmt.Fprintf(bw, "%s: %s\r\n", key, val); err != nil {
				return err
			}
		}
	}

	_, err := bw.WriteString("\r\n")
	return err
}
