package mqttv3

import (
	"errors"
	"time"
)

// SessionState is the connection phase of a session.
type SessionState int

const (
	// StateAwaitingConnect: the CONNECT/CONNACK handshake has not completed.
	StateAwaitingConnect SessionState = iota
	// StateConnected: the handshake succeeded and the session is live.
	StateConnected
	// StateDisconnected: the session has ended. Terminal.
	StateDisconnected
)

// String returns the string representation of the session state.
func (s SessionState) String() string {
	switch s {
	case StateAwaitingConnect:
		return "awaiting connect"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session errors.
var (
	ErrSessionClosed    = errors.New("session is closed")
	ErrNotConnected     = errors.New("session is not connected")
	ErrKeepAliveTimeout = errors.New("keep-alive timeout")
	ErrPeerDisconnected = errors.New("peer sent DISCONNECT")
)

// keepAliveGrace is the multiple of the keep-alive interval after which a
// silent peer is declared dead, per the MQTT specification's 1.5x allowance.
const keepAliveGrace = 1.5

// Session is the per-connection MQTT state machine for the connecting
// endpoint. It performs no I/O and keeps no internal timers: the caller
// feeds received bytes in with Receive, drains bytes to send with Output,
// and drives time by calling Advance when the deadline from NextDeadline
// expires.
//
// A Session is mutated by exactly one goroutine at a time. Distinct
// sessions share no state.
type Session struct {
	opts *options
	log  Logger

	state       SessionState
	connectSent bool
	closeErr    error

	clientID string

	assembler FrameAssembler
	pids      *PacketIDAllocator
	inflight  *inflightTable

	// received holds QoS 2 identifiers that have been delivered but not
	// yet released by PUBREL, for exactly-once deduplication.
	received map[uint16]struct{}

	// subs holds granted subscriptions by filter.
	subs map[string]QoS

	out      []byte
	messages []*Message

	lastInbound  time.Time
	lastOutbound time.Time
	pingPending  bool
}

// NewSession creates a session in the AwaitingConnect state.
func NewSession(opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	clientID := o.clientID
	if clientID == "" && o.cleanSession {
		clientID = generateClientID()
	}

	now := o.clock()

	return &Session{
		opts:         o,
		log:          o.logger.WithFields(LogFields{LogFieldClientID: clientID}),
		state:        StateAwaitingConnect,
		clientID:     clientID,
		pids:         NewPacketIDAllocator(),
		inflight:     newInflightTable(),
		received:     make(map[uint16]struct{}),
		subs:         make(map[string]QoS),
		lastInbound:  now,
		lastOutbound: now,
	}
}

// State returns the current connection phase.
func (s *Session) State() SessionState {
	return s.state
}

// ClientID returns the client identifier, including a generated one.
func (s *Session) ClientID() string {
	return s.clientID
}

// Err returns the reason the session disconnected, or nil while it is
// still live or after a clean shutdown.
func (s *Session) Err() error {
	return s.closeErr
}

// InFlight returns the number of outstanding QoS 1/2 exchanges.
func (s *Session) InFlight() int {
	return s.inflight.len()
}

// Subscriptions returns the currently granted subscriptions.
func (s *Session) Subscriptions() []Subscription {
	subs := make([]Subscription, 0, len(s.subs))
	for filter, qos := range s.subs {
		subs = append(subs, Subscription{Filter: filter, QoS: qos})
	}
	return subs
}

// Output drains and returns the wire bytes waiting to be sent.
func (s *Session) Output() []byte {
	out := s.out
	s.out = nil
	return out
}

// Messages drains and returns the application messages delivered since the
// last call. Empty when a message handler is configured.
func (s *Session) Messages() []*Message {
	msgs := s.messages
	s.messages = nil
	return msgs
}

// Connect queues the CONNECT packet built from the session options. A
// second CONNECT, or one after the handshake completed, is a protocol
// violation and force-closes the session.
func (s *Session) Connect() error {
	if s.state == StateDisconnected {
		return ErrSessionClosed
	}

	if s.state == StateConnected || s.connectSent {
		return s.violation(PacketCONNECT, 0, "duplicate CONNECT")
	}

	packet := &ConnectPacket{
		Version:        s.opts.version,
		ClientID:       s.clientID,
		CleanSession:   s.opts.cleanSession,
		KeepAlive:      s.opts.keepAlive,
		Will:           s.opts.will,
		Username:       s.opts.username,
		Password:       s.opts.password,
		StrictClientID: s.opts.strictClientID,
	}

	if err := s.send(packet); err != nil {
		return err
	}

	s.connectSent = true
	s.log.Debug("CONNECT queued", LogFields{"keep_alive": s.opts.keepAlive})
	return nil
}

// Publish queues a PUBLISH for the message and returns the packet
// identifier assigned to it (zero for QoS 0). For QoS > 0 the exchange is
// tracked until its terminal acknowledgment arrives.
func (s *Session) Publish(msg *Message) (uint16, error) {
	if s.state != StateConnected {
		return 0, s.notConnectedErr()
	}

	packet := &PublishPacket{}
	packet.FromMessage(msg)
	packet.DUP = false

	if err := packet.Validate(); err != nil && !errors.Is(err, ErrPacketIDRequired) {
		return 0, err
	}

	if msg.QoS == QoSAtMostOnce {
		return 0, s.send(packet)
	}

	id, err := s.pids.Allocate()
	if err != nil {
		return 0, err
	}
	packet.ID = id

	if err := s.send(packet); err != nil {
		s.pids.Release(id)
		return 0, err
	}

	state := awaitingPuback
	if msg.QoS == QoSExactlyOnce {
		state = awaitingPubrec
	}
	s.track(id, state, packet)

	return id, nil
}

// Subscribe queues a SUBSCRIBE for the given filters and returns its
// packet identifier. Granted subscriptions are recorded when the SUBACK
// arrives.
func (s *Session) Subscribe(subs ...Subscription) (uint16, error) {
	if s.state != StateConnected {
		return 0, s.notConnectedErr()
	}

	packet := &SubscribePacket{Subscriptions: subs}
	if err := packet.Validate(); err != nil && !errors.Is(err, ErrPacketIDRequired) {
		return 0, err
	}

	id, err := s.pids.Allocate()
	if err != nil {
		return 0, err
	}
	packet.ID = id

	if err := s.send(packet); err != nil {
		s.pids.Release(id)
		return 0, err
	}

	s.track(id, awaitingSuback, packet)
	return id, nil
}

// Unsubscribe queues an UNSUBSCRIBE for the given filters and returns its
// packet identifier.
func (s *Session) Unsubscribe(filters ...string) (uint16, error) {
	if s.state != StateConnected {
		return 0, s.notConnectedErr()
	}

	packet := &UnsubscribePacket{Filters: filters}
	if err := packet.Validate(); err != nil && !errors.Is(err, ErrPacketIDRequired) {
		return 0, err
	}

	id, err := s.pids.Allocate()
	if err != nil {
		return 0, err
	}
	packet.ID = id

	if err := s.send(packet); err != nil {
		s.pids.Release(id)
		return 0, err
	}

	s.track(id, awaitingUnsuback, packet)
	return id, nil
}

// Ping queues a PINGREQ. Advance emits these automatically when the
// session has been outbound-idle; Ping is for callers probing on their own.
func (s *Session) Ping() error {
	if s.state != StateConnected {
		return s.notConnectedErr()
	}

	if err := s.send(&PingreqPacket{}); err != nil {
		return err
	}
	s.pingPending = true
	return nil
}

// Disconnect queues a DISCONNECT and closes the session cleanly. All
// in-flight exchanges are abandoned without further retries.
func (s *Session) Disconnect() error {
	if s.state == StateDisconnected {
		return ErrSessionClosed
	}

	if err := s.send(&DisconnectPacket{}); err != nil {
		return err
	}

	s.close(nil)
	return nil
}

// Abandon gives up an in-flight exchange, typically after Advance reported
// RetryExhaustedError for it, releasing its identifier for reuse. Returns
// false if the identifier is not in flight.
func (s *Session) Abandon(id uint16) bool {
	if _, ok := s.inflight.get(id); !ok {
		return false
	}

	s.inflight.remove(id)
	s.pids.Release(id)
	s.opts.metrics.Gauge(MetricInflight).Dec()
	return true
}

// Receive feeds bytes read from the transport into the session. Complete
// packets are processed in arrival order; responses they require are
// queued for Output. Malformed input and protocol violations are fatal:
// the session transitions to Disconnected and the reason is returned.
func (s *Session) Receive(data []byte) error {
	if s.state == StateDisconnected {
		return ErrSessionClosed
	}

	s.assembler.Feed(data)

	for {
		packet, err := s.assembler.Next()
		if err != nil {
			s.close(err)
			return err
		}
		if packet == nil {
			return nil
		}

		s.lastInbound = s.opts.clock()
		s.opts.metrics.Counter(MetricPacketsReceived).Inc()

		if err := s.handle(packet); err != nil {
			return err
		}
	}
}

// Advance drives the session's timers to now: it declares the connection
// dead after 1.5x the keep-alive interval of inbound silence, emits a
// PINGREQ once the outbound-idle threshold passes, and resends
// unacknowledged QoS 1/2 steps whose retry deadline expired, with the DUP
// flag set.
//
// Exchanges that reach the configured retry cap are reported with
// RetryExhaustedError and kept in flight without further resends; the
// caller decides whether to Abandon them or Disconnect.
func (s *Session) Advance(now time.Time) error {
	if s.state != StateConnected {
		return nil
	}

	if ka := s.keepAliveInterval(); ka > 0 {
		if now.Sub(s.lastInbound) >= time.Duration(float64(ka)*keepAliveGrace) {
			s.close(ErrKeepAliveTimeout)
			return ErrKeepAliveTimeout
		}

		if !now.Before(s.pingDeadline()) && !s.pingPending {
			if err := s.send(&PingreqPacket{}); err != nil {
				return err
			}
			s.pingPending = true
			s.log.Debug("PINGREQ queued", nil)
		}
	}

	var exhausted []error
	for _, e := range s.inflight.expired(now) {
		if s.opts.maxRetries > 0 && e.retries >= s.opts.maxRetries {
			e.exhausted = true
			exhausted = append(exhausted, &RetryExhaustedError{
				PacketType: e.packet.Type(),
				PacketID:   e.id,
				Attempts:   e.retries,
			})
			s.log.Warn("retries exhausted", LogFields{
				LogFieldPacketType: e.packet.Type().String(),
				LogFieldPacketID:   e.id,
			})
			continue
		}

		if publish, ok := e.packet.(*PublishPacket); ok {
			publish.DUP = true
		}

		if err := s.send(e.packet); err != nil {
			return err
		}

		e.retries++
		e.deadline = now.Add(s.opts.retryInterval)
		s.opts.metrics.Counter(MetricRetries).Inc()
		s.log.Debug("resent unacknowledged packet", LogFields{
			LogFieldPacketType: e.packet.Type().String(),
			LogFieldPacketID:   e.id,
		})
	}

	return errors.Join(exhausted...)
}

// NextDeadline returns the earliest instant at which Advance has work to
// do: a retry deadline, the outbound-idle ping threshold, or the inbound
// liveness timeout. The second result is false when no deadline is
// pending.
func (s *Session) NextDeadline() (time.Time, bool) {
	if s.state != StateConnected {
		return time.Time{}, false
	}

	next, found := s.inflight.nextDeadline()

	if ka := s.keepAliveInterval(); ka > 0 {
		if ping := s.pingDeadline(); !found || ping.Before(next) {
			next = ping
			found = true
		}

		timeout := s.lastInbound.Add(time.Duration(float64(ka) * keepAliveGrace))
		if timeout.Before(next) {
			next = timeout
		}
	}

	return next, found
}

// handle applies one inbound packet to the state machine.
func (s *Session) handle(packet Packet) error {
	switch p := packet.(type) {
	case *ConnackPacket:
		return s.handleConnack(p)
	case *PublishPacket:
		return s.handlePublish(p)
	case *PubackPacket:
		return s.handlePuback(p)
	case *PubrecPacket:
		return s.handlePubrec(p)
	case *PubrelPacket:
		return s.handlePubrel(p)
	case *PubcompPacket:
		return s.handlePubcomp(p)
	case *SubackPacket:
		return s.handleSuback(p)
	case *UnsubackPacket:
		return s.handleUnsuback(p)
	case *PingreqPacket:
		if s.state != StateConnected {
			return s.violation(PacketPINGREQ, 0, "PINGREQ before handshake completed")
		}
		return s.send(&PingrespPacket{})
	case *PingrespPacket:
		if s.state != StateConnected {
			return s.violation(PacketPINGRESP, 0, "PINGRESP before handshake completed")
		}
		s.pingPending = false
		return nil
	case *DisconnectPacket:
		s.close(ErrPeerDisconnected)
		return ErrPeerDisconnected
	default:
		// CONNECT, SUBSCRIBE and UNSUBSCRIBE never arrive at the
		// connecting endpoint.
		return s.violation(packet.Type(), 0, "unexpected packet for connecting endpoint")
	}
}

func (s *Session) handleConnack(p *ConnackPacket) error {
	if s.state != StateAwaitingConnect || !s.connectSent {
		return s.violation(PacketCONNACK, 0, "CONNACK without pending CONNECT")
	}

	if p.ReturnCode != ConnectionAccepted {
		err := &ConnectionRefusedError{Code: p.ReturnCode}
		s.close(err)
		return err
	}

	s.state = StateConnected
	s.log.Info("session connected", LogFields{"session_present": p.SessionPresent})
	return nil
}

func (s *Session) handlePublish(p *PublishPacket) error {
	if s.state != StateConnected {
		return s.violation(PacketPUBLISH, p.ID, "PUBLISH before handshake completed")
	}

	switch p.QoS {
	case QoSAtMostOnce:
		s.deliver(p.ToMessage())
		return nil

	case QoSAtLeastOnce:
		// QoS 1 permits duplicate application-visible delivery: a DUP
		// retransmission is delivered again, and every PUBLISH is
		// acknowledged.
		s.deliver(p.ToMessage())
		return s.send(&PubackPacket{ID: p.ID})

	default: // QoSExactlyOnce
		if _, seen := s.received[p.ID]; !seen {
			s.received[p.ID] = struct{}{}
			s.deliver(p.ToMessage())
		}
		return s.send(&PubrecPacket{ID: p.ID})
	}
}

func (s *Session) handlePuback(p *PubackPacket) error {
	if s.state != StateConnected {
		return s.violation(PacketPUBACK, p.ID, "PUBACK before handshake completed")
	}

	entry, ok := s.inflight.get(p.ID)
	if !ok {
		// Duplicate acknowledgments must not corrupt session state.
		s.log.Warn("PUBACK for identifier not in flight", LogFields{LogFieldPacketID: p.ID})
		return nil
	}

	if entry.state != awaitingPuback {
		return s.violation(PacketPUBACK, p.ID, "PUBACK does not match exchange state "+entry.state.String())
	}

	s.complete(p.ID)
	return nil
}

func (s *Session) handlePubrec(p *PubrecPacket) error {
	if s.state != StateConnected {
		return s.violation(PacketPUBREC, p.ID, "PUBREC before handshake completed")
	}

	entry, ok := s.inflight.get(p.ID)
	if !ok {
		s.log.Warn("PUBREC for identifier not in flight", LogFields{LogFieldPacketID: p.ID})
		return nil
	}

	switch entry.state {
	case awaitingPubrec:
		entry.state = awaitingPubcomp
		entry.packet = &PubrelPacket{ID: p.ID}
		entry.retries = 0
		entry.exhausted = false
		entry.deadline = s.opts.clock().Add(s.opts.retryInterval)
		return s.send(entry.packet)

	case awaitingPubcomp:
		// Duplicate PUBREC: our PUBREL was lost, answer it again.
		return s.send(&PubrelPacket{ID: p.ID})

	default:
		return s.violation(PacketPUBREC, p.ID, "PUBREC does not match exchange state "+entry.state.String())
	}
}

func (s *Session) handlePubrel(p *PubrelPacket) error {
	if s.state != StateConnected {
		return s.violation(PacketPUBREL, p.ID, "PUBREL before handshake completed")
	}

	// The message was already delivered when the PUBLISH arrived; PUBREL
	// only releases the identifier. A duplicate PUBREL after completion is
	// still answered with PUBCOMP.
	delete(s.received, p.ID)
	return s.send(&PubcompPacket{ID: p.ID})
}

func (s *Session) handlePubcomp(p *PubcompPacket) error {
	if s.state != StateConnected {
		return s.violation(PacketPUBCOMP, p.ID, "PUBCOMP before handshake completed")
	}

	entry, ok := s.inflight.get(p.ID)
	if !ok {
		s.log.Warn("PUBCOMP for identifier not in flight", LogFields{LogFieldPacketID: p.ID})
		return nil
	}

	if entry.state != awaitingPubcomp {
		return s.violation(PacketPUBCOMP, p.ID, "PUBCOMP does not match exchange state "+entry.state.String())
	}

	s.complete(p.ID)
	return nil
}

func (s *Session) handleSuback(p *SubackPacket) error {
	if s.state != StateConnected {
		return s.violation(PacketSUBACK, p.ID, "SUBACK before handshake completed")
	}

	entry, ok := s.inflight.get(p.ID)
	if !ok {
		s.log.Warn("SUBACK for identifier not in flight", LogFields{LogFieldPacketID: p.ID})
		return nil
	}

	if entry.state != awaitingSuback {
		return s.violation(PacketSUBACK, p.ID, "SUBACK does not match exchange state "+entry.state.String())
	}

	request := entry.packet.(*SubscribePacket)
	if len(p.ReturnCodes) != len(request.Subscriptions) {
		return s.violation(PacketSUBACK, p.ID, "SUBACK return code count does not match request")
	}

	// Return codes are positional: code i answers filter i.
	for i, code := range p.ReturnCodes {
		filter := request.Subscriptions[i].Filter
		if granted, ok := code.GrantedQoS(); ok {
			s.subs[filter] = granted
		} else {
			s.log.Warn("subscription refused", LogFields{"filter": filter})
		}
	}

	s.complete(p.ID)
	return nil
}

func (s *Session) handleUnsuback(p *UnsubackPacket) error {
	if s.state != StateConnected {
		return s.violation(PacketUNSUBACK, p.ID, "UNSUBACK before handshake completed")
	}

	entry, ok := s.inflight.get(p.ID)
	if !ok {
		s.log.Warn("UNSUBACK for identifier not in flight", LogFields{LogFieldPacketID: p.ID})
		return nil
	}

	if entry.state != awaitingUnsuback {
		return s.violation(PacketUNSUBACK, p.ID, "UNSUBACK does not match exchange state "+entry.state.String())
	}

	request := entry.packet.(*UnsubscribePacket)
	for _, filter := range request.Filters {
		delete(s.subs, filter)
	}

	s.complete(p.ID)
	return nil
}

// send encodes a packet onto the output buffer.
func (s *Session) send(packet Packet) error {
	buf := getBuffer()
	defer putBuffer(buf)

	if _, err := packet.Encode(buf); err != nil {
		return err
	}

	s.out = append(s.out, buf.Bytes()...)
	s.lastOutbound = s.opts.clock()
	s.opts.metrics.Counter(MetricPacketsSent).Inc()
	return nil
}

// track records a new outstanding exchange.
func (s *Session) track(id uint16, state inflightState, packet Packet) {
	s.inflight.add(&inflightEntry{
		id:       id,
		state:    state,
		packet:   packet,
		deadline: s.opts.clock().Add(s.opts.retryInterval),
	})
	s.opts.metrics.Gauge(MetricInflight).Inc()
}

// complete finishes an exchange: the entry is dropped and the identifier
// released for reuse.
func (s *Session) complete(id uint16) {
	s.inflight.remove(id)
	s.pids.Release(id)
	s.opts.metrics.Gauge(MetricInflight).Dec()
}

// deliver surfaces an application message.
func (s *Session) deliver(msg *Message) {
	s.opts.metrics.Counter(MetricMessagesDelivered).Inc()

	if s.opts.onMessage != nil {
		s.opts.onMessage(msg)
		return
	}
	s.messages = append(s.messages, msg)
}

// violation force-closes the session and returns the violation error.
func (s *Session) violation(t PacketType, id uint16, reason string) error {
	err := &ProtocolViolationError{
		State:      s.state,
		PacketType: t,
		PacketID:   id,
		Reason:     reason,
	}
	s.close(err)
	return err
}

// close transitions to Disconnected and abandons all in-flight exchanges.
// A nil reason is a clean shutdown.
func (s *Session) close(reason error) {
	if s.state == StateDisconnected {
		return
	}

	s.state = StateDisconnected
	s.closeErr = reason
	s.inflight.clear()
	s.opts.metrics.Gauge(MetricInflight).Set(0)

	if reason != nil {
		s.log.Warn("session closed", LogFields{"reason": reason.Error()})
	} else {
		s.log.Info("session closed", nil)
	}
}

func (s *Session) notConnectedErr() error {
	if s.state == StateDisconnected {
		return ErrSessionClosed
	}
	return ErrNotConnected
}

func (s *Session) keepAliveInterval() time.Duration {
	return time.Duration(s.opts.keepAlive) * time.Second
}

// pingDeadline is the instant at which an outbound-idle session pings.
func (s *Session) pingDeadline() time.Time {
	idle := time.Duration(float64(s.keepAliveInterval()) * s.opts.pingRatio)
	return s.lastOutbound.Add(idle)
}
