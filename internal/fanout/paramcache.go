package fanout

import "sync"

// ParamCache holds the most recently seen SPS/PPS. It is read by
// internal/session to fill in the DESCRIBE SDP body and written by the
// scheduler whenever a parameter set NALU arrives.
type ParamCache struct {
	mutex sync.RWMutex
	sps   []byte
	pps   []byte
}

// Update records a newly seen SPS or PPS NALU (including its header byte).
func (c *ParamCache) Update(sps, pps []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if sps != nil {
		c.sps = sps
	}
	if pps != nil {
		c.pps = pps
	}
}

// Get returns a copy of the currently cached SPS and PPS, either of which
// may be nil if not yet seen.
func (c *ParamCache) Get() (sps, pps []byte) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return append([]byte(nil), c.sps...), append([]byte(nil), c.pps...)
}
