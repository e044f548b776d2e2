package mqttv3

import (
	"time"

	"github.com/google/uuid"
)

// MessageHandler is called for each application message the session
// delivers. When no handler is set, messages queue up until drained with
// Session.Messages.
type MessageHandler func(*Message)

// options holds configuration for a Session.
type options struct {
	// Connection settings
	clientID     string
	username     string
	password     []byte
	keepAlive    uint16
	cleanSession bool
	version      ProtocolVersion

	// Will message
	will *Will

	// Retry policy for unacknowledged QoS 1/2 steps. maxRetries of zero
	// means retry forever.
	retryInterval time.Duration
	maxRetries    int

	// pingRatio is the fraction of the keep-alive interval after which a
	// PINGREQ is emitted when the connection has been outbound-idle.
	pingRatio float64

	// Strict v3.1 client identifier rules.
	strictClientID bool

	onMessage MessageHandler

	logger  Logger
	metrics Metrics

	// clock supplies the current time; replaceable in tests.
	clock func() time.Time
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() *options {
	return &options{
		keepAlive:     60,
		cleanSession:  true,
		version:       ProtocolV311,
		retryInterval: 20 * time.Second,
		pingRatio:     0.5,
		logger:        NewNoOpLogger(),
		metrics:       NewNoOpMetrics(),
		clock:         time.Now,
	}
}

// Option configures a Session.
type Option func(*options)

// WithClientID sets the client identifier. When left empty with a clean
// session, a random identifier is generated.
func WithClientID(id string) Option {
	return func(o *options) {
		o.clientID = id
	}
}

// WithCredentials sets the username and password sent in CONNECT.
func WithCredentials(username string, password []byte) Option {
	return func(o *options) {
		o.username = username
		o.password = password
	}
}

// WithKeepAlive sets the keep-alive interval in seconds. Zero disables
// keep-alive tracking entirely.
func WithKeepAlive(seconds uint16) Option {
	return func(o *options) {
		o.keepAlive = seconds
	}
}

// WithCleanSession controls the CONNECT clean session flag.
func WithCleanSession(clean bool) Option {
	return func(o *options) {
		o.cleanSession = clean
	}
}

// WithProtocolVersion selects MQTT v3.1 or v3.1.1 (the default).
func WithProtocolVersion(v ProtocolVersion) Option {
	return func(o *options) {
		o.version = v
	}
}

// WithWill sets the will message registered at connect time.
func WithWill(topic string, payload []byte, qos QoS, retain bool) Option {
	return func(o *options) {
		o.will = &Will{Topic: topic, Payload: payload, QoS: qos, Retain: retain}
	}
}

// WithRetryInterval sets the resend delay for unacknowledged QoS 1/2 steps.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryInterval = d
		}
	}
}

// WithMaxRetries caps resend attempts per exchange. Once the cap is
// reached the session reports RetryExhaustedError instead of resending.
// Zero means retry without limit.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithPingRatio sets the fraction of the keep-alive interval after which
// an outbound-idle session emits a PINGREQ. The default is 0.5.
func WithPingRatio(ratio float64) Option {
	return func(o *options) {
		if ratio > 0 && ratio < 1 {
			o.pingRatio = ratio
		}
	}
}

// WithStrictClientID enforces the v3.1 broker compatibility rules for the
// client identifier: at most 23 bytes, alphanumeric only.
func WithStrictClientID() Option {
	return func(o *options) {
		o.strictClientID = true
	}
}

// WithMessageHandler delivers application messages to a callback instead of
// queueing them for Session.Messages.
func WithMessageHandler(h MessageHandler) Option {
	return func(o *options) {
		o.onMessage = h
	}
}

// WithLogger sets the logger used by the session.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics collector used by the session.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock replaces the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// generateClientID returns a random client identifier for sessions created
// without one.
func generateClientID() string {
	return "mqttv3-" + uuid.NewString()
}
