package mqtt311

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	server, err := NewServer("127.0.0.1:0", opts...)
	require.NoError(t, err)

	go server.ListenAndServe(context.Background())
	t.Cleanup(func() { server.Close() })

	return server
}

func dialServer(t *testing.T, server *Server) FrameConn {
	t.Helper()

	conn, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)

	client := NewFrameConn(conn, 0)
	t.Cleanup(func() { client.Close() })
	return client
}

func connectClient(t *testing.T, server *Server, clientID string) FrameConn {
	t.Helper()

	client := dialServer(t, server)
	require.NoError(t, client.WriteFrame(&ConnectPacket{ClientID: clientID}))

	ack := readFrame(t, client)
	require.Equal(t, &ConnackPacket{ReturnCode: CodeAccepted}, ack)
	return client
}

func TestServerServesConnections(t *testing.T) {
	received := make(chan string, 1)
	server := startServer(t,
		WithPublishHandler(func(_ context.Context, publish *IncomingPublish) error {
			received <- publish.Topic()
			return nil
		}),
	)

	client := connectClient(t, server, "client-1")

	require.NoError(t, client.WriteFrame(&PublishPacket{
		QoS:   QoSAtLeastOnce,
		Topic: "a/b",
		ID:    1,
	}))
	assert.Equal(t, &PubackPacket{ID: 1}, readFrame(t, client))
	assert.Equal(t, "a/b", <-received)

	require.NoError(t, client.WriteFrame(&DisconnectPacket{}))
}

func TestServerRunningTwice(t *testing.T) {
	server := startServer(t)

	// Give the first accept loop a moment to start.
	time.Sleep(10 * time.Millisecond)
	assert.ErrorIs(t, server.ListenAndServe(context.Background()), ErrServerRunning)
}

func TestServerMaxConnections(t *testing.T) {
	server := startServer(t, WithMaxConnections(1))

	first := connectClient(t, server, "client-1")
	defer first.Close()

	// The second connection is closed before any CONNACK.
	second := dialServer(t, server)
	second.WriteFrame(&ConnectPacket{ClientID: "client-2"})

	_, err := second.ReadFrame()
	assert.Error(t, err)

	assert.Equal(t, 1, server.ConnectionCount())
}

func TestServerClose(t *testing.T) {
	server := startServer(t)

	client := connectClient(t, server, "client-1")

	require.NoError(t, server.Close())
	assert.Equal(t, 0, server.ConnectionCount())

	// The served connection is gone too.
	_, err := client.ReadFrame()
	assert.Error(t, err)
}

func TestServerConnectRateLimit(t *testing.T) {
	server := startServer(t, WithConnectRateLimit(1, 1))

	// First connection consumes the burst.
	first := connectClient(t, server, "client-1")
	defer first.Close()

	second := dialServer(t, server)
	second.WriteFrame(&ConnectPacket{ClientID: "client-2"})

	_, err := second.ReadFrame()
	assert.Error(t, err)
}
