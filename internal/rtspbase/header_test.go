package rtspbase

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func readHeader(t *testing.T, raw string) Header {
	t.Helper()
	var h Header
	require.NoError(t, h.read(bufio.NewReader(bytes.NewReader([]byte(raw)))))
	return h
}

func TestHeaderReadNormalizesRecognizedNames(t *testing.T) {
	h := readHeader(t, "cseq: 1\r\nSESSION: abc\r\ntransport: RTP/AVP\r\n\r\n")

	require.Equal(t, HeaderValue{"1"}, h["CSeq"])
	require.Equal(t, HeaderValue{"abc"}, h["Session"])
	require.Equal(t, HeaderValue{"RTP/AVP"}, h["Transport"])
}

func TestHeaderReadTitleCasesUnrecognizedNames(t *testing.T) {
	h := readHeader(t, "user-agent: ffplay\r\n\r\n")
	require.Equal(t, HeaderValue{"ffplay"}, h["User-Agent"])
}

func TestHeaderReadTrimsLeadingSpaceInValue(t *testing.T) {
	h := readHeader(t, "CSeq:    7\r\n\r\n")
	require.Equal(t, HeaderValue{"7"}, h["CSeq"])
}

func TestHeaderReadRejectsTooManyLines(t *testing.T) {
	var raw bytes.Buffer
	for i := 0; i < headerMaxLines+1; i++ {
		raw.WriteString("X-Filler: 1\r\n")
	}
	raw.WriteString("\r\n")

	var h Header
	err := h.read(bufio.NewReader(bytes.NewReader(raw.Bytes())))
	require.Error(t, err)
}

func TestHeaderWriteIsSortedAndDeterministic(t *testing.T) {
	h := Header{
		"Transport": HeaderValue{"RTP/AVP"},
		"CSeq":      HeaderValue{"1"},
	}

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	require.NoError(t, h.write(bw))
	require.NoError(t, bw.Flush())

	require.Equal(t, "CSeq: 1\r\nTransport: RTP/AVP\r\n\r\n", buf.String())
}
