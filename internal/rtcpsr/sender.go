// Package rtcpsr builds and schedules RTCP Sender Reports: every 5
// seconds, and immediately on PLAY, it takes the counters and RTP/NTP
// timestamp pair most recently passed to Update and hands a Sender
// Report built from them to a caller-supplied broadcast function.
package rtcpsr

import (
	"sync"
	"time"

	"github.com/pion/rtcp"

	"github.com/avloop/rtspd/internal/ntp"
)

// DefaultPeriod is the interval between Sender Reports.
const DefaultPeriod = 5 * time.Second

// Sender periodically emits RTCP Sender Reports for a single RTP stream.
type Sender struct {
	SSRC   uint32
	Period time.Duration
	Send   func(pkt rtcp.Packet)

	mutex sync.RWMutex

	haveSample  bool
	rtpTime     uint32
	ntpTime     time.Time
	packetCount uint32
	octetCount  uint32

	terminate chan struct{}
	done      chan struct{}
	kick      chan struct{}
}

// Initialize starts the periodic emitter goroutine.
func (s *Sender) Initialize() {
	if s.Period == 0 {
		s.Period = DefaultPeriod
	}

	s.terminate = make(chan struct{})
	s.done = make(chan struct{})
	s.kick = make(chan struct{}, 1)

	go s.run()
}

// Close stops the emitter and waits for its goroutine to exit.
func (s *Sender) Close() {
	close(s.terminate)
	<-s.done
}

func (s *Sender) run() {
	defer close(s.done)

	t := time.NewTicker(s.Period)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			s.emit()

		case <-s.kick:
			s.emit()

		case <-s.terminate:
			return
		}
	}
}

func (s *Sender) emit() {
	report := s.report()
	if report != nil && s.Send != nil {
		s.Send(report)
	}
}

// ReportNow triggers an out-of-cycle report, used on PLAY so a new client
// gets a RTP/NTP correlation right away.
func (s *Sender) ReportNow() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Update records the counters and RTP/NTP correlation for the most
// recently sent NALU. The fan-out scheduler calls this once per NALU it
// packetizes (after all of that NALU's packets), not once per packet.
func (s *Sender) Update(rtpTimestamp uint32, packetCount, octetCount uint32, at time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.haveSample = true
	s.rtpTime = rtpTimestamp
	s.ntpTime = at
	s.packetCount = packetCount
	s.octetCount = octetCount
}

func (s *Sender) report() rtcp.Packet {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.haveSample {
		return nil
	}

	return &rtcp.SenderReport{
		SSRC:        s.SSRC,
		NTPTime:     ntp.Encode(s.ntpTime),
		RTPTime:     s.rtpTime,
		PacketCount: s.packetCount,
		OctetCount:  s.octetCount,
	}
}
