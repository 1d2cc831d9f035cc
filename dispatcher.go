package mqtt311

import (
	"context"
	"sync"
)

// IncomingPublish is the dispatcher's view of an inbound PUBLISH packet,
// handed to the publish handler.
type IncomingPublish struct {
	packet  *PublishPacket
	session *Session
}

// Topic returns the topic name the message was published to.
func (p *IncomingPublish) Topic() string {
	return p.packet.Topic
}

// ParsedTopic parses the topic name into levels.
func (p *IncomingPublish) ParsedTopic() (Topic, error) {
	return ParseTopicName(p.packet.Topic)
}

// Payload returns the message payload.
func (p *IncomingPublish) Payload() []byte {
	return p.packet.Payload
}

// QoS returns the publish quality of service level.
func (p *IncomingPublish) QoS() QoS {
	return p.packet.QoS
}

// Retain returns the retain flag.
func (p *IncomingPublish) Retain() bool {
	return p.packet.Retain
}

// DUP returns the duplicate delivery flag.
func (p *IncomingPublish) DUP() bool {
	return p.packet.DUP
}

// PacketID returns the packet identifier, or zero for QoS 0 publishes.
func (p *IncomingPublish) PacketID() uint16 {
	return p.packet.ID
}

// Session returns the session of the connection the publish arrived on.
func (p *IncomingPublish) Session() *Session {
	return p.session
}

// SubscribeEntry is one requested subscription inside a SubscribeRequest.
// Entries start out failed; the subscribe handler grants the ones it
// accepts. Entries are addressed by index and never reordered, so the
// SUBACK return codes line up with the request.
type SubscribeEntry struct {
	filter string
	qos    QoS
	code   SubscribeReturnCode
}

// TopicFilter returns the requested topic filter.
func (e *SubscribeEntry) TopicFilter() string {
	return e.filter
}

// RequestedQoS returns the QoS level the peer asked for.
func (e *SubscribeEntry) RequestedQoS() QoS {
	return e.qos
}

// Grant marks the subscription accepted at the given QoS level.
func (e *SubscribeEntry) Grant(qos QoS) {
	e.code = GrantedQoS(qos)
}

// GrantRequested marks the subscription accepted at the requested QoS.
func (e *SubscribeEntry) GrantRequested() {
	e.code = GrantedQoS(e.qos)
}

// Fail marks the subscription refused.
func (e *SubscribeEntry) Fail() {
	e.code = SubscribeFailure
}

// Granted reports whether the entry has been granted.
func (e *SubscribeEntry) Granted() bool {
	return !e.code.Failed()
}

// SubscribeRequest carries an inbound SUBSCRIBE packet to the subscribe
// handler.
type SubscribeRequest struct {
	session *Session
	entries []*SubscribeEntry
}

func newSubscribeRequest(packet *SubscribePacket, session *Session) *SubscribeRequest {
	entries := make([]*SubscribeEntry, len(packet.Subscriptions))
	for i, sub := range packet.Subscriptions {
		entries[i] = &SubscribeEntry{
			filter: sub.TopicFilter,
			qos:    sub.QoS,
			code:   SubscribeFailure,
		}
	}
	return &SubscribeRequest{session: session, entries: entries}
}

// Session returns the session of the connection the request arrived on.
func (r *SubscribeRequest) Session() *Session {
	return r.session
}

// Entries returns the requested subscriptions in packet order.
func (r *SubscribeRequest) Entries() []*SubscribeEntry {
	return r.entries
}

func (r *SubscribeRequest) returnCodes() []SubscribeReturnCode {
	codes := make([]SubscribeReturnCode, len(r.entries))
	for i, entry := range r.entries {
		codes[i] = entry.code
	}
	return codes
}

// UnsubscribeRequest carries an inbound UNSUBSCRIBE packet to the
// unsubscribe handler.
type UnsubscribeRequest struct {
	session *Session
	filters []string
}

// Session returns the session of the connection the request arrived on.
func (r *UnsubscribeRequest) Session() *Session {
	return r.session
}

// TopicFilters returns the filters the peer wants removed.
func (r *UnsubscribeRequest) TopicFilters() []string {
	return r.filters
}

// errCleanDisconnect is the internal signal that the peer sent DISCONNECT.
type cleanDisconnect struct{}

func (cleanDisconnect) Error() string { return "clean disconnect" }

var errCleanDisconnect = cleanDisconnect{}

// inFlightPublish is one inbound publish making its way through the handler
// pool. The ack writer consumes them in arrival order, so PUBACKs go out in
// the order the publishes came in no matter how handler completions
// interleave.
type inFlightPublish struct {
	packetID uint16
	done     chan error
}

// dispatcher routes inbound packets on one connection after the handshake.
// Publishes run on the handler pool bounded by the flow controller; every
// other packet type is handled inline on the read loop.
type dispatcher struct {
	conn     FrameConn
	session  *Session
	monitor  *keepAliveMonitor
	closer   *connCloser
	cfg      *config
	log      Logger
	inflight *FlowController

	acks chan *inFlightPublish
	wg   sync.WaitGroup
}

func newDispatcher(conn FrameConn, session *Session, monitor *keepAliveMonitor, closer *connCloser, cfg *config, log Logger) *dispatcher {
	return &dispatcher{
		conn:     conn,
		session:  session,
		monitor:  monitor,
		closer:   closer,
		cfg:      cfg,
		log:      log,
		inflight: NewFlowController(cfg.inFlightLimit),
		acks:     make(chan *inFlightPublish, cfg.inFlightLimit),
	}
}

// run reads and dispatches frames until the connection fails, the peer
// disconnects, or a handler errors. The returned error is nil for a clean
// peer DISCONNECT.
func (d *dispatcher) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ackDone := make(chan struct{})
	go d.ackWriter(ackDone)

	err := d.readLoop(ctx)

	// Stop pending handlers, let the ack writer drain, then resolve.
	cancel()
	d.wg.Wait()
	close(d.acks)
	<-ackDone

	if err == errCleanDisconnect {
		err = nil
	}
	d.closer.close(err)

	return d.closer.reason(err)
}

func (d *dispatcher) readLoop(ctx context.Context) error {
	for {
		packet, err := d.conn.ReadFrame()
		if err != nil {
			return err
		}

		d.monitor.Touch()

		if err := d.dispatch(ctx, packet); err != nil {
			return err
		}
	}
}

func (d *dispatcher) dispatch(ctx context.Context, packet Packet) error {
	switch p := packet.(type) {
	case *PublishPacket:
		return d.handlePublish(ctx, p)

	case *PubackPacket:
		return d.session.handlePuback(p.ID)

	case *SubscribePacket:
		return d.handleSubscribe(ctx, p)

	case *UnsubscribePacket:
		return d.handleUnsubscribe(ctx, p)

	case *PingreqPacket:
		return d.conn.WriteFrame(&PingrespPacket{})

	case *DisconnectPacket:
		return errCleanDisconnect

	default:
		// Unsolicited acknowledgements and repeated CONNECTs carry nothing
		// actionable at QoS 0/1; drop them.
		d.log.Debug("ignoring packet", LogFields{
			LogFieldPacketType: packet.Type().String(),
		})
		return nil
	}
}

// handlePublish admits the publish into the handler pool. The flow
// controller makes this block once the in-flight cap is reached, which
// stops the read loop and pushes back on the peer.
func (d *dispatcher) handlePublish(ctx context.Context, packet *PublishPacket) error {
	if packet.QoS == QoSExactlyOnce {
		return &UnexpectedPacketError{PacketType: PacketPUBLISH}
	}

	if err := d.inflight.Acquire(ctx); err != nil {
		return err
	}

	job := &inFlightPublish{
		packetID: packet.ID,
		done:     make(chan error, 1),
	}
	d.acks <- job

	publish := &IncomingPublish{packet: packet, session: d.session}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		job.done <- d.cfg.publish(ctx, publish)
	}()

	return nil
}

// ackWriter emits PUBACKs in publish arrival order. A handler that finishes
// early waits behind older publishes still being handled.
func (d *dispatcher) ackWriter(done chan struct{}) {
	defer close(done)

	for job := range d.acks {
		err := <-job.done
		d.inflight.Release()

		if err != nil {
			d.closer.close(&HandlerError{Err: err})
			continue
		}
		if d.closer.closed() {
			continue
		}

		if job.packetID != 0 {
			if err := d.conn.WriteFrame(&PubackPacket{ID: job.packetID}); err != nil {
				d.closer.close(err)
			}
		}
	}
}

func (d *dispatcher) handleSubscribe(ctx context.Context, packet *SubscribePacket) error {
	req := newSubscribeRequest(packet, d.session)

	if err := d.cfg.subscribe(ctx, req); err != nil {
		return &HandlerError{Err: err}
	}

	return d.conn.WriteFrame(&SubackPacket{
		ID:          packet.ID,
		ReturnCodes: req.returnCodes(),
	})
}

// handleUnsubscribe always answers with UNSUBACK; the packet carries no way
// to report failure.
func (d *dispatcher) handleUnsubscribe(ctx context.Context, packet *UnsubscribePacket) error {
	req := &UnsubscribeRequest{session: d.session, filters: packet.TopicFilters}

	if err := d.cfg.unsubscribe(ctx, req); err != nil {
		return &HandlerError{Err: err}
	}

	return d.conn.WriteFrame(&UnsubackPacket{ID: packet.ID})
}
