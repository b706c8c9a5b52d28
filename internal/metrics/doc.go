// Package metrics declares every Prometheus metric the application
// exports, all registered through promauto at package load.
//
// Metrics follow the clip_library_ prefix convention. A small Collector
// polls library statistics on an interval and pushes them into gauges;
// everything else is recorded inline at the call site. Call
// InitializeMetrics once at startup so label combinations exist from
// the first scrape instead of appearing on first use.
package metrics
