// Package session implements the per-client session state machine: it
// turns parsed RTSP requests into responses, driving the client registry
// through INIT/READY/PLAYING/TEARDOWN.
package session

import (
	"fmt"
	"strings"

	"github.com/avloop/rtspd/internal/registry"
	"github.com/avloop/rtspd/internal/rtspbase"
	"github.com/avloop/rtspd/internal/rtspheaders"
)

// publicMethods is the Public header advertised on OPTIONS.
const publicMethods = "OPTIONS, DESCRIBE, SETUP, PLAY, PAUSE, TEARDOWN, GET_PARAMETER"

// StreamInfo supplies the Handler with facts about the live source it
// doesn't own: the server's own address, the current parameter sets, and
// the packetizer's current sequence/timestamp for RTP-Info on PLAY.
type StreamInfo struct {
	ServerIP      string
	ServerName    string
	ServerPorts   [2]int
	ParameterSets ParameterSets
	Sequence      uint16
	Timestamp     uint32
}

// Handler dispatches RTSP requests against the Client Registry. One
// Handler is shared by every connection; per-connection state is only the
// TCP write lock and conn identity, threaded through via Conn.
type Handler struct {
	Registry  *registry.Registry
	NowMillis func() int64
	Stream    func() StreamInfo

	// OnPlay, if set, is invoked after every successful PLAY transition,
	// triggering an out-of-cycle RTCP SR so the newly-PLAYING client gets
	// a fresh RTP/NTP correlation right away.
	OnPlay func()
}

// trackURL is the single track's control path, relative to the stream
// URL, as advertised in the SDP a=control line.
const trackURL = "track1"

// trackURI builds the track's absolute control URI from the request's
// own URL, so the RTP-Info url the client receives matches the URI it
// issued SETUP against.
func trackURI(u *rtspbase.URL) string {
	if u == nil {
		return trackURL
	}
	s := strings.TrimSuffix(u.String(), "/")
	if strings.HasSuffix(s, "/"+trackURL) {
		return s
	}
	return s + "/" + trackURL
}

// Handle builds the Response for req. connID identifies the owning TCP
// control connection and is stored on every record SETUP creates,
// whatever its transport; interleaved delivery uses it to find the
// connection's writer. remoteIP is the
// client's source IP as seen by the server, used only when the
// negotiated transport is UDP.
func (h *Handler) Handle(req *rtspbase.Request, connID any, remoteIP string) *rtspbase.Response {
	cseq, ok := req.Header["CSeq"]
	if !ok || len(cseq) != 1 {
		return &rtspbase.Response{StatusCode: rtspbase.StatusBadRequest}
	}

	res := h.dispatch(req, connID, remoteIP)

	if res.Header == nil {
		res.Header = make(rtspbase.Header)
	}
	res.Header["CSeq"] = cseq

	if sess, ok := req.Header["Session"]; ok {
		res.Header["Session"] = sess
	}

	return res
}

func (h *Handler) dispatch(req *rtspbase.Request, connID any, remoteIP string) *rtspbase.Response {
	switch req.Method {
	case rtspbase.Options:
		return &rtspbase.Response{
			StatusCode: rtspbase.StatusOK,
			Header: rtspbase.Header{
				"Public": rtspbase.HeaderValue{publicMethods},
			},
		}

	case rtspbase.Describe:
		info := h.Stream()
		sdp := BuildSDP(info.ServerIP, info.ServerName, info.ParameterSets)
		return &rtspbase.Response{
			StatusCode: rtspbase.StatusOK,
			Header: rtspbase.Header{
				"Content-Type": rtspbase.HeaderValue{"application/sdp"},
			},
			Body: sdp,
		}

	case rtspbase.Setup:
		return h.handleSetup(req, connID, remoteIP)

	case rtspbase.Play:
		return h.handlePlay(req)

	case rtspbase.Pause:
		return h.handlePause(req)

	case rtspbase.Teardown:
		return h.handleTeardown(req)

	case rtspbase.GetParameter:
		// a bodyless GET_PARAMETER is the RTSP keep-alive idiom; any
		// session state accepts it without a transition.
		if sessionID(req) != "" && h.Registry.Get(sessionID(req)) == nil {
			return &rtspbase.Response{StatusCode: rtspbase.StatusSessionNotFound}
		}
		return &rtspbase.Response{StatusCode: rtspbase.StatusOK}

	default:
		return &rtspbase.Response{StatusCode: rtspbase.StatusMethodNotAllowed}
	}
}

func sessionID(req *rtspbase.Request) string {
	if hv, ok := req.Header["Session"]; ok && len(hv) == 1 {
		return hv[0]
	}
	return ""
}

func (h *Handler) handleSetup(req *rtspbase.Request, connID any, remoteIP string) *rtspbase.Response {
	transport, err := rtspheaders.ReadTransport(req.Header["Transport"])
	if err != nil {
		if err == rtspheaders.ErrMulticastUnsupported {
			return &rtspbase.Response{StatusCode: rtspbase.StatusUnsupportedTransport}
		}
		return &rtspbase.Response{StatusCode: rtspbase.StatusBadRequest}
	}

	sxID := sessionID(req)
	if sxID != "" {
		rec := h.Registry.Get(sxID)
		if rec == nil {
			return &rtspbase.Response{StatusCode: rtspbase.StatusSessionNotFound}
		}
		if rec.State != registry.StateInit && rec.State != registry.StateReady {
			return &rtspbase.Response{StatusCode: rtspbase.StatusMethodNotValidInThisState}
		}
	}

	id := sxID
	if id == "" {
		id = NewSessionID(h.Registry, h.NowMillis)
	}

	info := h.Stream()

	rec := &registry.Record{
		SessionID: id,
		Transport: transport,
		State:     registry.StateReady,
		RemoteIP:  remoteIP,
		Conn:      connID,
	}
	h.Registry.Insert(rec)

	return &rtspbase.Response{
		StatusCode: rtspbase.StatusOK,
		Header: rtspbase.Header{
			"Session":   rtspbase.HeaderValue{id},
			"Transport": rtspbase.HeaderValue{rtspheaders.WriteServerTransport(transport, info.ServerPorts)},
		},
	}
}

func (h *Handler) handlePlay(req *rtspbase.Request) *rtspbase.Response {
	sxID := sessionID(req)
	if sxID == "" {
		return &rtspbase.Response{StatusCode: rtspbase.StatusBadRequest}
	}

	rec := h.Registry.Get(sxID)
	if rec == nil {
		return &rtspbase.Response{StatusCode: rtspbase.StatusSessionNotFound}
	}
	if rec.State != registry.StateReady && rec.State != registry.StatePlaying {
		return &rtspbase.Response{StatusCode: rtspbase.StatusMethodNotValidInThisState}
	}

	h.Registry.UpdateState(sxID, registry.StatePlaying)

	if h.OnPlay != nil {
		h.OnPlay()
	}

	info := h.Stream()
	rtpInfo := fmt.Sprintf("url=%s;seq=%d;rtptime=%d",
		trackURI(req.URL), info.Sequence, info.Timestamp)

	return &rtspbase.Response{
		StatusCode: rtspbase.StatusOK,
		Header: rtspbase.Header{
			"RTP-Info": rtspbase.HeaderValue{rtpInfo},
		},
	}
}

func (h *Handler) handlePause(req *rtspbase.Request) *rtspbase.Response {
	sxID := sessionID(req)
	if sxID == "" {
		return &rtspbase.Response{StatusCode: rtspbase.StatusBadRequest}
	}

	rec := h.Registry.Get(sxID)
	if rec == nil {
		return &rtspbase.Response{StatusCode: rtspbase.StatusSessionNotFound}
	}
	if rec.State != registry.StatePlaying {
		return &rtspbase.Response{StatusCode: rtspbase.StatusMethodNotValidInThisState}
	}

	h.Registry.UpdateState(sxID, registry.StateReady)

	return &rtspbase.Response{StatusCode: rtspbase.StatusOK}
}

func (h *Handler) handleTeardown(req *rtspbase.Request) *rtspbase.Response {
	sxID := sessionID(req)
	if sxID == "" {
		return &rtspbase.Response{StatusCode: rtspbase.StatusBadRequest}
	}

	if h.Registry.Get(sxID) == nil {
		return &rtspbase.Response{StatusCode: rtspbase.StatusSessionNotFound}
	}

	h.Registry.Remove(sxID)

	return &rtspbase.Response{StatusCode: rtspbase.StatusOK}
}
