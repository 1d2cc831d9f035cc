package mqtt311

import (
	"sync"
	"time"
)

// graceFactor is the multiplier applied to the negotiated keep-alive
// interval before a connection is considered dead. The MQTT specification
// requires the server to allow one and a half times the interval.
const graceFactor = 1.5

// keepAliveMonitor tracks inbound activity on a connection against the
// keep-alive interval negotiated during the handshake. Any control packet
// counts as activity, not just PINGREQ.
type keepAliveMonitor struct {
	mu       sync.Mutex
	timeout  time.Duration
	deadline time.Time
}

// newKeepAliveMonitor creates a monitor for the given keep-alive interval
// in seconds. An interval of zero disables monitoring and returns nil.
func newKeepAliveMonitor(keepAlive uint16) *keepAliveMonitor {
	if keepAlive == 0 {
		return nil
	}

	timeout := time.Duration(float64(keepAlive)*graceFactor) * time.Second
	return &keepAliveMonitor{
		timeout:  timeout,
		deadline: time.Now().Add(timeout),
	}
}

// Touch records inbound activity and pushes the deadline out.
func (m *keepAliveMonitor) Touch() {
	if m == nil {
		return
	}

	m.mu.Lock()
	m.deadline = time.Now().Add(m.timeout)
	m.mu.Unlock()
}

// Expired reports whether the deadline has passed without activity.
func (m *keepAliveMonitor) Expired() bool {
	if m == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Now().After(m.deadline)
}

// Deadline returns the current expiry deadline.
func (m *keepAliveMonitor) Deadline() time.Time {
	if m == nil {
		return time.Time{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadline
}
