// Package metrics exposes the Orchestrator's monitoring-loop gauges
// (spec §4.6) as Prometheus collectors registered against a private
// registry, rather than the global default one, so multiple
// orchestrator instances in the same test binary never collide.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gauges and counters published once per monitoring
// tick: pages crawled, handoff queue depth, active workers, process
// RSS, and open file descriptor count.
type Metrics struct {
	Registry *prometheus.Registry

	PagesCrawled    prometheus.Counter
	FetchErrors     prometheus.Counter
	HandoffDepth    prometheus.Gauge
	ActiveWorkers   prometheus.Gauge
	ParserProcesses prometheus.Gauge
	ProcessRSSBytes prometheus.Gauge
	OpenFDs         prometheus.Gauge
}

// New constructs a Metrics registered against a fresh private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		PagesCrawled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawlcore_pages_crawled_total",
			Help: "Total pages successfully fetched and handed off.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawlcore_fetch_errors_total",
			Help: "Total fetch attempts that ended in an error visited record.",
		}),
		HandoffDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crawlcore_handoff_queue_depth",
			Help: "Current length of the fetch handoff queue.",
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crawlcore_active_fetcher_workers",
			Help: "Configured fetcher worker goroutine count.",
		}),
		ParserProcesses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crawlcore_parser_processes",
			Help: "Configured parser consumer OS process count.",
		}),
		ProcessRSSBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crawlcore_process_rss_bytes",
			Help: "Resident set size of the orchestrator process.",
		}),
		OpenFDs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crawlcore_open_file_descriptors",
			Help: "Open file descriptor count of the orchestrator process.",
		}),
	}

	reg.MustRegister(
		m.PagesCrawled,
		m.FetchErrors,
		m.HandoffDepth,
		m.ActiveWorkers,
		m.ParserProcesses,
		m.ProcessRSSBytes,
		m.OpenFDs,
	)

	return m
}
