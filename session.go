package mqtt311

import (
	"context"
	"errors"
	"sync"
)

// Session errors.
var (
	ErrSessionClosed     = errors.New("mqtt311: session closed")
	ErrUnexpectedAck     = errors.New("mqtt311: publish acknowledgement without pending publish")
	ErrAckOrderViolation = errors.New("mqtt311: publish acknowledgement out of order")
)

// Completion resolves when the peer acknowledges a QoS 1 publish, or when
// the session terminates before the acknowledgement arrives.
type Completion struct {
	done chan struct{}
	err  error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Done returns a channel that is closed once the publish is resolved.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the resolution outcome. It is only meaningful after the Done
// channel is closed: nil means the peer acknowledged the publish.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the publish is resolved or the context is done.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Completion) resolve(err error) {
	c.err = err
	close(c.done)
}

type pendingAck struct {
	id         uint16
	completion *Completion
}

// Session is the outbound half of a connection: handlers use it to publish
// messages back to the peer. QoS 1 publishes are assigned packet identifiers
// from a per-session counter and tracked in a FIFO queue until the matching
// PUBACK arrives. Acknowledgements must arrive in publish order; anything
// else invalidates the session and tears down the connection.
//
// A Session is safe for concurrent use.
type Session struct {
	writer FrameWriter

	mu      sync.Mutex
	nextID  uint16
	pending []pendingAck
	closed  bool
	onClose func(error)
}

func newSession(writer FrameWriter) *Session {
	return &Session{writer: writer}
}

// nextPacketID returns the next packet identifier. The counter wraps around
// and never yields zero.
func (s *Session) nextPacketID() uint16 {
	s.nextID++
	if s.nextID == 0 {
		s.nextID = 1
	}
	return s.nextID
}

// PublishAtMostOnce sends a QoS 0 publish to the peer. It resolves as soon
// as the frame is handed to the transport; no acknowledgement is expected.
func (s *Session) PublishAtMostOnce(topic string, payload []byte) error {
	return s.publishQoS0(topic, payload, false)
}

// PublishRetainedAtMostOnce sends a QoS 0 publish with the retain flag set.
func (s *Session) PublishRetainedAtMostOnce(topic string, payload []byte) error {
	return s.publishQoS0(topic, payload, true)
}

func (s *Session) publishQoS0(topic string, payload []byte, retain bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	return s.writer.WriteFrame(&PublishPacket{
		QoS:     QoSAtMostOnce,
		Retain:  retain,
		Topic:   topic,
		Payload: payload,
	})
}

// PublishAtLeastOnce sends a QoS 1 publish to the peer and returns a
// Completion that resolves when the matching PUBACK arrives. If the session
// terminates first, the completion resolves with the session's close reason.
func (s *Session) PublishAtLeastOnce(topic string, payload []byte) (*Completion, error) {
	return s.publishQoS1(topic, payload, false)
}

// PublishDupAtLeastOnce resends a QoS 1 publish with the DUP flag set. A new
// packet identifier is allocated; duplicate detection is the peer's concern.
func (s *Session) PublishDupAtLeastOnce(topic string, payload []byte) (*Completion, error) {
	return s.publishQoS1(topic, payload, true)
}

func (s *Session) publishQoS1(topic string, payload []byte, dup bool) (*Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	id := s.nextPacketID()
	completion := newCompletion()

	// The frame is written under the session lock so that wire order always
	// agrees with pending queue order.
	err := s.writer.WriteFrame(&PublishPacket{
		DUP:     dup,
		QoS:     QoSAtLeastOnce,
		Topic:   topic,
		ID:      id,
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}

	s.pending = append(s.pending, pendingAck{id: id, completion: completion})
	return completion, nil
}

// InFlight returns the number of QoS 1 publishes awaiting acknowledgement.
func (s *Session) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// handlePuback resolves the oldest pending publish. The identifier must
// belong to the head of the pending queue; an unknown or out of order
// acknowledgement is a protocol violation and invalidates the session.
func (s *Session) handlePuback(id uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return ErrUnexpectedAck
	}

	head := s.pending[0]
	if head.id != id {
		return ErrAckOrderViolation
	}

	s.pending = s.pending[1:]
	head.completion.resolve(nil)
	return nil
}

// fail marks the session closed and resolves every pending publish with the
// given reason. It is idempotent; only the first reason sticks.
func (s *Session) fail(reason error) {
	if reason == nil {
		reason = ErrSessionClosed
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := s.pending
	s.pending = nil
	onClose := s.onClose
	s.mu.Unlock()

	for _, p := range pending {
		p.completion.resolve(reason)
	}

	if onClose != nil {
		onClose(reason)
	}
}

// Closed reports whether the session has been invalidated.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close invalidates the session and asks the connection serving it to shut
// down. Pending publishes resolve with ErrSessionClosed.
func (s *Session) Close() {
	s.fail(ErrSessionClosed)
}

// setOnClose registers the connection teardown hook invoked when the session
// is closed from the application side.
func (s *Session) setOnClose(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = fn
}
