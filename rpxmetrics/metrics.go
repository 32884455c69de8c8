// Package rpxmetrics exposes Prometheus collectors tracking connection
// counts and accept/byte throughput for tcp.Server and httpx.Server, wired
// into cmd/rpx behind a --metrics-addr flag.
package rpxmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the gauges and counters a server updates as connections
// come and go and bytes move across the wire. The zero value is not usable;
// construct one with New.
type Collector struct {
	reg *prometheus.Registry

	connectionsOpen   prometheus.Gauge
	connectionsTotal  prometheus.Counter
	acceptErrorsTotal prometheus.Counter
	bytesRead         prometheus.Counter
	bytesWritten      prometheus.Counter
}

// New builds a Collector registered on its own registry, namespaced under
// "rpx", with labels identifying which listener (server) the metrics
// belong to.
func New(server string) *Collector {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"server": server}

	c := &Collector{
		reg: reg,
		connectionsOpen: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace:   "rpx",
			Name:        "connections_open",
			Help:        "Number of currently established connections.",
			ConstLabels: labels,
		}),
		connectionsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace:   "rpx",
			Name:        "connections_accepted_total",
			Help:        "Total number of connections accepted or established.",
			ConstLabels: labels,
		}),
		acceptErrorsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace:   "rpx",
			Name:        "accept_errors_total",
			Help:        "Total number of failed accept attempts.",
			ConstLabels: labels,
		}),
		bytesRead: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace:   "rpx",
			Name:        "bytes_read_total",
			Help:        "Total bytes read from connections.",
			ConstLabels: labels,
		}),
		bytesWritten: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace:   "rpx",
			Name:        "bytes_written_total",
			Help:        "Total bytes written to connections.",
			ConstLabels: labels,
		}),
	}
	return c
}

// ConnectionOpened records a newly established connection.
func (c *Collector) ConnectionOpened() {
	c.connectionsOpen.Inc()
	c.connectionsTotal.Inc()
}

// ConnectionClosed records a connection's teardown.
func (c *Collector) ConnectionClosed() {
	c.connectionsOpen.Dec()
}

// AcceptError records a failed accept attempt (e.g. EMFILE recovery in
// tcp.Acceptor).
func (c *Collector) AcceptError() {
	c.acceptErrorsTotal.Inc()
}

// BytesRead adds n to the cumulative bytes-read counter.
func (c *Collector) BytesRead(n int) {
	if n > 0 {
		c.bytesRead.Add(float64(n))
	}
}

// BytesWritten adds n to the cumulative bytes-written counter.
func (c *Collector) BytesWritten(n int) {
	if n > 0 {
		c.bytesWritten.Add(float64(n))
	}
}

// Handler returns the HTTP handler serving this collector's registry in the
// Prometheus text exposition format, for mounting at a /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
