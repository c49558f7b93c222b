package cdrstore

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports pool statistics for the handle. Until the pool has been opened (or when
// the store is unconfigured) only cdr_pool_configured is reported.
type Collector struct {
	h *Handle

	configured   *prometheus.Desc
	maxOpen      *prometheus.Desc
	open         *prometheus.Desc
	inUse        *prometheus.Desc
	idle         *prometheus.Desc
	waitCount    *prometheus.Desc
	waitDuration *prometheus.Desc
}

func NewCollector(h *Handle) *Collector {
	return &Collector{
		h:            h,
		configured:   prometheus.NewDesc("cdr_pool_configured", "1 when the CDR store is configured and its pool is open.", nil, nil),
		maxOpen:      prometheus.NewDesc("cdr_pool_max_open_connections", "Pool ceiling.", nil, nil),
		open:         prometheus.NewDesc("cdr_pool_open_connections", "Established connections, in use and idle.", nil, nil),
		inUse:        prometheus.NewDesc("cdr_pool_in_use_connections", "Connections currently checked out.", nil, nil),
		idle:         prometheus.NewDesc("cdr_pool_idle_connections", "Idle connections.", nil, nil),
		waitCount:    prometheus.NewDesc("cdr_pool_wait_count_total", "Acquisitions that had to wait for a connection.", nil, nil),
		waitDuration: prometheus.NewDesc("cdr_pool_wait_seconds_total", "Total time spent waiting for a connection.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.configured
	ch <- c.maxOpen
	ch <- c.open
	ch <- c.inUse
	ch <- c.idle
	ch <- c.waitCount
	ch <- c.waitDuration
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	switch st := c.h.Current().(type) {
	case Configured:
		s := st.Pool.Stats()
		ch <- prometheus.MustNewConstMetric(c.configured, prometheus.GaugeValue, 1)
		ch <- prometheus.MustNewConstMetric(c.maxOpen, prometheus.GaugeValue, float64(s.MaxOpenConnections))
		ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(s.OpenConnections))
		ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(s.InUse))
		ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle))
		ch <- prometheus.MustNewConstMetric(c.waitCount, prometheus.CounterValue, float64(s.WaitCount))
		ch <- prometheus.MustNewConstMetric(c.waitDuration, prometheus.CounterValue, s.WaitDuration.Seconds())
	default:
		ch <- prometheus.MustNewConstMetric(c.configured, prometheus.GaugeValue, 0)
	}
}
