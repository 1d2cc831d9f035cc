package mqtt311

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingWriter captures frames handed to it.
type recordingWriter struct {
	mu     sync.Mutex
	frames []Packet
	err    error
}

func (w *recordingWriter) WriteFrame(packet Packet) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	w.frames = append(w.frames, packet)
	return nil
}

func (w *recordingWriter) written() []Packet {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Packet(nil), w.frames...)
}

func TestSessionPublishAtMostOnce(t *testing.T) {
	writer := &recordingWriter{}
	session := newSession(writer)

	require.NoError(t, session.PublishAtMostOnce("a/b", []byte("x")))

	frames := writer.written()
	require.Len(t, frames, 1)

	publish := frames[0].(*PublishPacket)
	assert.Equal(t, QoSAtMostOnce, publish.QoS)
	assert.Equal(t, uint16(0), publish.ID)
	assert.Equal(t, "a/b", publish.Topic)
	assert.Equal(t, 0, session.InFlight())
}

func TestSessionPublishAtLeastOnceAck(t *testing.T) {
	writer := &recordingWriter{}
	session := newSession(writer)

	completion, err := session.PublishAtLeastOnce("a/b", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, session.InFlight())

	frames := writer.written()
	require.Len(t, frames, 1)
	id := frames[0].(*PublishPacket).ID
	assert.Equal(t, uint16(1), id)

	select {
	case <-completion.Done():
		t.Fatal("completion resolved before ack")
	default:
	}

	require.NoError(t, session.handlePuback(id))
	assert.Equal(t, 0, session.InFlight())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, completion.Wait(ctx))
	assert.NoError(t, completion.Err())
}

func TestSessionAcksResolveInOrder(t *testing.T) {
	writer := &recordingWriter{}
	session := newSession(writer)

	first, err := session.PublishAtLeastOnce("t", nil)
	require.NoError(t, err)
	second, err := session.PublishAtLeastOnce("t", nil)
	require.NoError(t, err)

	require.NoError(t, session.handlePuback(1))
	assert.NoError(t, first.Err())

	select {
	case <-second.Done():
		t.Fatal("second completion resolved early")
	default:
	}

	require.NoError(t, session.handlePuback(2))
	assert.NoError(t, second.Err())
}

func TestSessionPacketIDWrapsSkippingZero(t *testing.T) {
	writer := &recordingWriter{}
	session := newSession(writer)
	session.nextID = 65534

	for _, want := range []uint16{65535, 1, 2} {
		completion, err := session.PublishAtLeastOnce("t", nil)
		require.NoError(t, err)

		frames := writer.written()
		assert.Equal(t, want, frames[len(frames)-1].(*PublishPacket).ID)

		require.NoError(t, session.handlePuback(want))
		require.NoError(t, completion.Err())
	}
}

func TestSessionUnexpectedAck(t *testing.T) {
	session := newSession(&recordingWriter{})
	assert.ErrorIs(t, session.handlePuback(1), ErrUnexpectedAck)
}

func TestSessionOutOfOrderAck(t *testing.T) {
	writer := &recordingWriter{}
	session := newSession(writer)

	_, err := session.PublishAtLeastOnce("t", nil)
	require.NoError(t, err)
	_, err = session.PublishAtLeastOnce("t", nil)
	require.NoError(t, err)

	// Ack for the second publish while the first is still pending.
	assert.ErrorIs(t, session.handlePuback(2), ErrAckOrderViolation)
}

func TestSessionFailResolvesPending(t *testing.T) {
	writer := &recordingWriter{}
	session := newSession(writer)

	first, err := session.PublishAtLeastOnce("t", nil)
	require.NoError(t, err)
	second, err := session.PublishAtLeastOnce("t", nil)
	require.NoError(t, err)

	session.fail(ErrKeepAliveTimeout)

	assert.ErrorIs(t, first.Err(), ErrKeepAliveTimeout)
	assert.ErrorIs(t, second.Err(), ErrKeepAliveTimeout)
	assert.True(t, session.Closed())

	_, err = session.PublishAtLeastOnce("t", nil)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, session.PublishAtMostOnce("t", nil), ErrSessionClosed)
}

func TestSessionCloseInvokesHook(t *testing.T) {
	session := newSession(&recordingWriter{})

	var got error
	session.setOnClose(func(reason error) { got = reason })

	session.Close()
	assert.ErrorIs(t, got, ErrSessionClosed)

	// Subsequent failures do not re-fire the hook.
	got = nil
	session.fail(ErrKeepAliveTimeout)
	assert.NoError(t, got)
}
