// Package metrics collects and exposes Prometheus metrics for the Redis
// service wrapper.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all wrapper-specific Prometheus metrics. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Child process metrics.
	ChildState      *prometheus.GaugeVec
	ChildStartTotal *prometheus.CounterVec
	ChildExitTotal  *prometheus.CounterVec
	ChildUptime     *prometheus.GaugeVec

	// Shutdown sequence metrics.
	ShutdownTotal        *prometheus.CounterVec
	ForcedTerminateTotal *prometheus.CounterVec
	ShutdownDuration     *prometheus.HistogramVec

	// Wrapper-level metrics.
	ServiceState      *prometheus.GaugeVec
	ConfigChangeTotal prometheus.Counter
	BuildInfo         *prometheus.GaugeVec
}

// New creates and registers all metrics.
func New() *Collector {
	reg := prometheus.NewRegistry()

	// Register default Go runtime metrics.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: reg,

		ChildState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "redisvc_child_state",
				Help: "Current state of the redis child process (numeric state code).",
			},
			[]string{"service"},
		),

		ChildStartTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redisvc_child_start_total",
				Help: "Total number of times the redis child has been started.",
			},
			[]string{"service"},
		),

		ChildExitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redisvc_child_exit_total",
				Help: "Total number of redis child exits.",
			},
			[]string{"service", "requested"},
		),

		ChildUptime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "redisvc_child_uptime_seconds",
				Help: "Uptime of the redis child in seconds.",
			},
			[]string{"service"},
		),

		ShutdownTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redisvc_shutdown_total",
				Help: "Completed shutdown sequences by outcome.",
			},
			[]string{"service", "outcome"},
		),

		ForcedTerminateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redisvc_forced_termination_total",
				Help: "Number of times the redis child had to be force-terminated.",
			},
			[]string{"service"},
		),

		ShutdownDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redisvc_shutdown_duration_seconds",
				Help:    "Time from stop request to child exit.",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"service"},
		),

		ServiceState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "redisvc_service_state",
				Help: "Run state reported to the service manager (numeric state code).",
			},
			[]string{"service"},
		),

		ConfigChangeTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "redisvc_config_change_total",
				Help: "Total number of observed changes to the redis config file.",
			},
		),

		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "redisvc_info",
				Help: "Build information about the service wrapper.",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		c.ChildState,
		c.ChildStartTotal,
		c.ChildExitTotal,
		c.ChildUptime,
		c.ShutdownTotal,
		c.ForcedTerminateTotal,
		c.ShutdownDuration,
		c.ServiceState,
		c.ConfigChangeTotal,
		c.BuildInfo,
	)

	return c
}

// Handler returns an http.Handler that serves the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// SetBuildInfo sets the constant build info gauge.
func (c *Collector) SetBuildInfo(version, goVersion string) {
	if c == nil {
		return
	}
	c.BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// SetChildState updates the state gauge for the child.
func (c *Collector) SetChildState(service string, stateCode int) {
	if c == nil {
		return
	}
	c.ChildState.WithLabelValues(service).Set(float64(stateCode))
}

// IncChildStart increments the start counter.
func (c *Collector) IncChildStart(service string) {
	if c == nil {
		return
	}
	c.ChildStartTotal.WithLabelValues(service).Inc()
}

// IncChildExit increments the exit counter. requested is true when the
// exit followed a stop request.
func (c *Collector) IncChildExit(service string, requested bool) {
	if c == nil {
		return
	}
	label := "false"
	if requested {
		label = "true"
	}
	c.ChildExitTotal.WithLabelValues(service, label).Inc()
}

// SetChildUptime sets the uptime gauge.
func (c *Collector) SetChildUptime(service string, seconds float64) {
	if c == nil {
		return
	}
	c.ChildUptime.WithLabelValues(service).Set(seconds)
}

// ObserveShutdown records a finished shutdown sequence.
func (c *Collector) ObserveShutdown(service, outcome string, seconds float64) {
	if c == nil {
		return
	}
	c.ShutdownTotal.WithLabelValues(service, outcome).Inc()
	c.ShutdownDuration.WithLabelValues(service).Observe(seconds)
}

// IncForcedTermination increments the forced termination counter.
func (c *Collector) IncForcedTermination(service string) {
	if c == nil {
		return
	}
	c.ForcedTerminateTotal.WithLabelValues(service).Inc()
}

// SetServiceState sets the reported run state gauge.
func (c *Collector) SetServiceState(service string, stateCode int) {
	if c == nil {
		return
	}
	c.ServiceState.WithLabelValues(service).Set(float64(stateCode))
}

// IncConfigChange increments the config change counter.
func (c *Collector) IncConfigChange() {
	if c == nil {
		return
	}
	c.ConfigChangeTotal.Inc()
}
