// Package mqttv3 implements the MQTT v3.1/v3.1.1 protocol core: the wire
// format of all fourteen control packets and the per-connection session
// state machine that enforces the QoS 0/1/2 delivery guarantees, keep-alive
// liveness, and the connection lifecycle.
//
// The package performs no I/O of its own. Bytes read from a transport are
// pushed in, response bytes and timer deadlines are pulled out, which makes
// the core embeddable in any concurrency model (thread per connection,
// event loop, actor).
//
// # Packet Types
//
// The package provides structs for all MQTT v3 control packets:
//
//   - ConnectPacket, ConnackPacket: Connection establishment
//   - PublishPacket, PubackPacket, PubrecPacket, PubrelPacket, PubcompPacket: Message delivery
//   - SubscribePacket, SubackPacket: Topic subscription
//   - UnsubscribePacket, UnsubackPacket: Topic unsubscription
//   - PingreqPacket, PingrespPacket: Keep-alive
//   - DisconnectPacket: Connection termination
//
// Use DecodePacket to decode a packet from a byte slice, or ReadPacket and
// WritePacket to read/write packets from/to streams:
//
//	pkt, n, err := mqttv3.DecodePacket(buf)
//
//	pkt, n, err := mqttv3.ReadPacket(conn, maxPacketSize)
//	n, err := mqttv3.WritePacket(conn, packet, maxPacketSize)
//
// DecodePacket returns ErrIncompletePacket when the slice does not yet hold
// a full packet. FrameAssembler builds on this to reassemble packets from a
// stream delivered in arbitrary chunks:
//
//	var asm mqttv3.FrameAssembler
//	asm.Feed(chunk)
//	for {
//		pkt, err := asm.Next()
//		if err != nil || pkt == nil {
//			break
//		}
//		// handle pkt
//	}
//
// # Session
//
// Session is the per-connection state machine. The caller feeds received
// bytes in with Receive, drains wire bytes to send with Output, drains
// delivered application messages with Messages, and drives timers by
// calling Advance with the current time whenever the deadline reported by
// NextDeadline expires:
//
//	session := mqttv3.NewSession(
//		mqttv3.WithClientID("sensor-1"),
//		mqttv3.WithKeepAlive(30),
//	)
//	session.Connect()
//	conn.Write(session.Output())
//
//	session.Receive(readBuf[:n])
//	for _, msg := range session.Messages() {
//		// handle msg
//	}
//
// A Session is mutated by exactly one goroutine at a time; callers that
// share a Session across goroutines must serialize access themselves.
//
// # QoS Flows
//
// QoS 1 and QoS 2 exchanges are tracked in an in-flight table keyed by
// packet identifier. Unacknowledged steps are resent with the DUP flag when
// their retry deadline passes; once the configured retry cap is reached the
// session reports RetryExhaustedError and leaves the disconnect decision to
// the caller. On the receiving side QoS 2 packet identifiers are
// deduplicated so that a retransmitted PUBLISH is delivered exactly once.
package mqttv3
