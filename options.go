package mqtt311

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Handler signatures invoked by the connection dispatcher.
type (
	// ConnectHandler decides whether to accept an incoming CONNECT.
	ConnectHandler func(ctx context.Context, req *ConnectRequest) (*ConnectDecision, error)

	// PublishHandler processes one inbound publish. For QoS 1 publishes the
	// PUBACK is sent once the handler returns nil; returning an error tears
	// the connection down without acknowledging.
	PublishHandler func(ctx context.Context, publish *IncomingPublish) error

	// SubscribeHandler resolves each requested subscription to a granted
	// QoS or a failure. Entries left untouched are reported as failed.
	SubscribeHandler func(ctx context.Context, req *SubscribeRequest) error

	// UnsubscribeHandler processes an unsubscribe request. The UNSUBACK is
	// sent regardless of the outcome.
	UnsubscribeHandler func(ctx context.Context, req *UnsubscribeRequest) error

	// DisconnectHandler observes a session ending. Reason is nil when the
	// peer sent a clean DISCONNECT.
	DisconnectHandler func(session *Session, reason error)
)

const (
	defaultInFlightLimit = 15
	defaultKeepAliveTick = time.Second
)

// Option configures connection and server behavior.
type Option func(*config)

type config struct {
	maxPacketSize    uint32
	inFlightLimit    int
	handshakeTimeout time.Duration
	keepAliveTick    time.Duration
	maxConnections   int
	connectRate      rate.Limit
	connectBurst     int
	logger           Logger

	connect      ConnectHandler
	publish      PublishHandler
	subscribe    SubscribeHandler
	unsubscribe  UnsubscribeHandler
	onDisconnect DisconnectHandler
	auth         Authenticator
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		inFlightLimit: defaultInFlightLimit,
		keepAliveTick: defaultKeepAliveTick,
		logger:        NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.connect == nil {
		cfg.connect = defaultConnectHandler(cfg)
	}
	if cfg.publish == nil {
		cfg.publish = defaultPublishHandler(cfg)
	}
	if cfg.subscribe == nil {
		cfg.subscribe = defaultSubscribeHandler(cfg)
	}
	if cfg.unsubscribe == nil {
		cfg.unsubscribe = func(context.Context, *UnsubscribeRequest) error { return nil }
	}

	return cfg
}

// defaultConnectHandler accepts every connection, running the configured
// authenticator first when one is present.
func defaultConnectHandler(cfg *config) ConnectHandler {
	return func(ctx context.Context, req *ConnectRequest) (*ConnectDecision, error) {
		if cfg.auth != nil {
			if err := cfg.auth.Authenticate(ctx, req.ClientID(), req.Username(), req.Password()); err != nil {
				return Reject(CodeBadUsernameOrPassword), nil
			}
		}
		return Accept(false), nil
	}
}

func defaultPublishHandler(cfg *config) PublishHandler {
	return func(_ context.Context, publish *IncomingPublish) error {
		cfg.logger.Warn("publish dropped: no publish handler configured", LogFields{
			LogFieldTopic: publish.Topic(),
		})
		return nil
	}
}

// defaultSubscribeHandler leaves every entry at its failure default.
func defaultSubscribeHandler(cfg *config) SubscribeHandler {
	return func(context.Context, *SubscribeRequest) error {
		cfg.logger.Error("subscribe is not supported", nil)
		return nil
	}
}

// WithMaxPacketSize limits the remaining length of inbound and outbound
// packets. Zero means unlimited.
func WithMaxPacketSize(size uint32) Option {
	return func(c *config) {
		c.maxPacketSize = size
	}
}

// WithInFlightLimit bounds the number of inbound publishes handled
// concurrently per connection.
func WithInFlightLimit(limit int) Option {
	return func(c *config) {
		if limit > 0 {
			c.inFlightLimit = limit
		}
	}
}

// WithHandshakeTimeout bounds the time from transport accept to a completed
// CONNECT handshake. Zero disables the bound.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.handshakeTimeout = timeout
	}
}

// WithKeepAliveTick sets how often keep-alive expiry is checked.
func WithKeepAliveTick(tick time.Duration) Option {
	return func(c *config) {
		if tick > 0 {
			c.keepAliveTick = tick
		}
	}
}

// WithMaxConnections limits concurrent connections accepted by a Server.
// Zero means unlimited.
func WithMaxConnections(n int) Option {
	return func(c *config) {
		c.maxConnections = n
	}
}

// WithConnectRateLimit limits the rate at which a Server accepts new
// connections. Connections over the limit are closed immediately.
func WithConnectRateLimit(limit rate.Limit, burst int) Option {
	return func(c *config) {
		c.connectRate = limit
		c.connectBurst = burst
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithConnectHandler sets the CONNECT handler.
func WithConnectHandler(handler ConnectHandler) Option {
	return func(c *config) {
		c.connect = handler
	}
}

// WithPublishHandler sets the publish handler.
func WithPublishHandler(handler PublishHandler) Option {
	return func(c *config) {
		c.publish = handler
	}
}

// WithSubscribeHandler sets the subscribe handler.
func WithSubscribeHandler(handler SubscribeHandler) Option {
	return func(c *config) {
		c.subscribe = handler
	}
}

// WithUnsubscribeHandler sets the unsubscribe handler.
func WithUnsubscribeHandler(handler UnsubscribeHandler) Option {
	return func(c *config) {
		c.unsubscribe = handler
	}
}

// OnDisconnect sets the callback invoked when a session ends.
func OnDisconnect(handler DisconnectHandler) Option {
	return func(c *config) {
		c.onDisconnect = handler
	}
}

// WithAuthenticator sets the credential check used by the default connect
// handler. A custom connect handler may run it directly instead.
func WithAuthenticator(auth Authenticator) Option {
	return func(c *config) {
		c.auth = auth
	}
}
