package session

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/avloop/rtspd/internal/registry"
)

// processNonce is mixed into every session ID generated by this process,
// so that two restarts of the server never hand out colliding IDs to a
// client that reconnects quickly.
var processNonce = func() uint64 {
	id := uuid.New()
	return binary.BigEndian.Uint64(id[:8])
}()

// collisionGuard is a counter mixed into every attempt, so that a
// collision (or two calls landing in the same millisecond) doesn't spin
// forever.
var collisionGuard uint64

// NewSessionID returns a fresh 16-character lowercase-hex session ID,
// derived from the current time in milliseconds XORed with the
// per-process nonce, retrying on the vanishingly unlikely event of a
// collision with a still-live session.
func NewSessionID(reg *registry.Registry, nowMillis func() int64) string {
	for {
		guard := atomic.AddUint64(&collisionGuard, 1)
		id := fmt.Sprintf("%016x", uint64(nowMillis())^processNonce^guard)
		if !reg.Has(id) {
			return id
		}
	}
}
