// Copyright (c) 2025 BVK Chaitanya

// Package metrics defines the prometheus counters exported by the daemon on
// the /metrics endpoint.
//
// All methods are safe to call on a nil *Metrics, so components can be used
// without a registry in tests and one-shot commands.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cryptoalerts"

type Metrics struct {
	apiRequests   *prometheus.CounterVec
	throttles     *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	scans         *prometheus.CounterVec
	scanDuration  *prometheus.HistogramVec
	alerts        *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New creates the collectors and registers them with the input registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Outbound API requests by service and HTTP status.",
			},
			[]string{"service", "status"},
		),
		throttles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ratelimit_throttles_total",
				Help:      "HTTP 429 responses that escalated the limiter penalty.",
			},
			[]string{"service"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Response cache lookups by result.",
			},
			[]string{"cache", "result"},
		),
		scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Scanner runs by result.",
			},
			[]string{"scanner", "result"},
		),
		scanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Scanner run latency.",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"scanner"},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_total",
				Help:      "Alerts by scanner and delivery outcome.",
			},
			[]string{"scanner", "outcome"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Messages posted to notifiers by result.",
			},
			[]string{"notifier", "result"},
		),
	}

	collectors := []prometheus.Collector{
		m.apiRequests,
		m.throttles,
		m.cacheLookups,
		m.scans,
		m.scanDuration,
		m.alerts,
		m.notifications,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) APIRequest(service string, status int) {
	if m != nil {
		m.apiRequests.WithLabelValues(service, strconv.Itoa(status)).Inc()
	}
}

func (m *Metrics) Throttled(service string) {
	if m != nil {
		m.throttles.WithLabelValues(service).Inc()
	}
}

func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m != nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		m.cacheLookups.WithLabelValues(cache, result).Inc()
	}
}

// Scan records one scanner run.
func (m *Metrics) Scan(scanner string, d time.Duration, err error) {
	if m != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.scans.WithLabelValues(scanner, result).Inc()
		m.scanDuration.WithLabelValues(scanner).Observe(d.Seconds())
	}
}

// Alert records delivery outcome of an alert, which is one of "sent",
// "suppressed" or "failed".
func (m *Metrics) Alert(scanner, outcome string) {
	if m != nil {
		m.alerts.WithLabelValues(scanner, outcome).Inc()
	}
}

func (m *Metrics) Notification(notifier string, err error) {
	if m != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.notifications.WithLabelValues(notifier, result).Inc()
	}
}
