// Package mqtt311 is a server-side protocol engine for MQTT version 3.1.1.
//
// The package covers the wire codec, the topic model, incremental frame
// decoding, per-connection sessions, packet dispatch and the CONNECT
// handshake. It deliberately stops at QoS 1: QoS 2 packets decode and
// encode, but the engine refuses inbound QoS 2 publishes.
//
// # Packet Types
//
// Structs are provided for all 14 control packets of protocol level 4:
//
//   - ConnectPacket, ConnackPacket: connection establishment
//   - PublishPacket, PubackPacket, PubrecPacket, PubrelPacket, PubcompPacket: message delivery
//   - SubscribePacket, SubackPacket: topic subscription
//   - UnsubscribePacket, UnsubackPacket: topic unsubscription
//   - PingreqPacket, PingrespPacket: keep-alive
//   - DisconnectPacket: connection termination
//
// Use ReadPacket and WritePacket to read and write packets on a stream, or
// FrameDecoder to decode from arbitrarily fragmented input:
//
//	pkt, n, err := mqtt311.ReadPacket(conn, maxPacketSize)
//	n, err = mqtt311.WritePacket(conn, pkt, maxPacketSize)
//
//	dec := mqtt311.NewFrameDecoder(maxPacketSize)
//	dec.Feed(chunk)
//	pkt, err := dec.Next() // (nil, nil) until a frame is complete
//
// # Serving Connections
//
// ServeConn runs the engine over one accepted connection; Server wraps an
// accept loop around it. Behavior is injected through handlers:
//
//	err := mqtt311.ServeConn(ctx, conn,
//	    mqtt311.WithConnectHandler(func(ctx context.Context, req *mqtt311.ConnectRequest) (*mqtt311.ConnectDecision, error) {
//	        return mqtt311.Accept(false), nil
//	    }),
//	    mqtt311.WithPublishHandler(func(ctx context.Context, pub *mqtt311.IncomingPublish) error {
//	        return process(pub.Topic(), pub.Payload())
//	    }),
//	)
//
// Inbound QoS 1 publishes are acknowledged in arrival order once their
// handler returns, regardless of the order handlers finish in. Handlers
// publish outbound messages through the request's Session.
//
// # Topic Matching
//
// ParseTopic parses topic names and filters into levels and validates
// wildcard placement; Match applies MQTT matching rules:
//
//	filter, _ := mqtt311.ParseTopic("sensors/+/status")
//	matched := filter.Match("sensors/room1/status")
//
// Router maps topic filters to publish handlers for the common dispatch
// pattern.
//
// # Logging
//
// Implement the Logger interface or use one of NewStdLogger,
// NewColorLogger, NewNoOpLogger:
//
//	logger := mqtt311.NewStdLogger(os.Stdout, mqtt311.LogLevelInfo)
//	logger.Info("client connected", mqtt311.LogFields{"client_id": "test"})
package mqtt311
