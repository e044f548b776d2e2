package mqttv3

// Metric names reported by the session.
const (
	// MetricPacketsReceived counts packets decoded from the peer.
	MetricPacketsReceived = "packets_received"
	// MetricPacketsSent counts packets queued for the peer.
	MetricPacketsSent = "packets_sent"
	// MetricMessagesDelivered counts messages surfaced to the application.
	MetricMessagesDelivered = "messages_delivered"
	// MetricRetries counts retransmissions of unacknowledged packets.
	MetricRetries = "retries"
	// MetricInflight gauges the number of outstanding QoS 1/2 exchanges.
	MetricInflight = "inflight"
)

// Metrics defines the interface for collecting operational metrics.
type Metrics interface {
	// Counter returns the named counter metric.
	Counter(name string) Counter

	// Gauge returns the named gauge metric.
	Gauge(name string) Gauge
}

// Counter is a monotonically increasing counter.
type Counter interface {
	// Inc increments the counter by 1.
	Inc()

	// Add increments the counter by the given value.
	Add(v uint64)
}

// Gauge is a value that can go up and down.
type Gauge interface {
	// Set sets the gauge to the given value.
	Set(v int64)

	// Inc increments the gauge by 1.
	Inc()

	// Dec decrements the gauge by 1.
	Dec()
}

// noopMetrics discards all metrics.
type noopMetrics struct{}

type noopCounter struct{}

func (noopCounter) Inc()         {}
func (noopCounter) Add(_ uint64) {}

type noopGauge struct{}

func (noopGauge) Set(_ int64) {}
func (noopGauge) Inc()        {}
func (noopGauge) Dec()        {}

// NewNoOpMetrics creates a Metrics implementation that discards everything.
func NewNoOpMetrics() Metrics {
	return noopMetrics{}
}

// Counter returns a counter that discards its values.
func (noopMetrics) Counter(_ string) Counter { return noopCounter{} }

// Gauge returns a gauge that discards its values.
func (noopMetrics) Gauge(_ string) Gauge { return noopGauge{} }
