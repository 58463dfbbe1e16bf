// Package metrics exports arena lifecycle counters to prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"lastarena/internal/ports"
)

const namespace = "lastarena"

// Collector implements ports.Metrics with prometheus collectors.
type Collector struct {
	transitions  *prometheus.CounterVec
	eliminations *prometheus.CounterVec
	zoneRadius   prometheus.Gauge
	violations   prometheus.Counter
}

// New registers the arena collectors with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Arena lifecycle transitions by source and target state.",
		}, []string{"from", "to"}),
		eliminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eliminations_total",
			Help:      "Participants eliminated, by cause.",
		}, []string{"cause"}),
		zoneRadius: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zone_radius",
			Help:      "Most recently reported safe zone radius.",
		}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_violations_total",
			Help:      "Forced resets caused by inconsistent arena state.",
		}),
	}
	for _, col := range []prometheus.Collector{c.transitions, c.eliminations, c.zoneRadius, c.violations} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) StateChanged(from, to string) {
	c.transitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) Eliminated(cause string) {
	c.eliminations.WithLabelValues(cause).Inc()
}

func (c *Collector) ZoneRadius(radius float64) {
	c.zoneRadius.Set(radius)
}

func (c *Collector) InvariantViolation() {
	c.violations.Inc()
}

// Server exposes a registry over HTTP.
type Server struct {
	server *http.Server
	log    logrus.FieldLogger
}

// NewServer builds a metrics listener on addr serving registry at /metrics,
// along with Go runtime and process collectors.
func NewServer(addr string, registry *prometheus.Registry, log logrus.FieldLogger) (*Server, error) {
	err := registry.Register(collectors.NewGoCollector())
	if err == nil {
		err = registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}, nil
}

// Handler returns the HTTP handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		s.log.WithField("addr", s.server.Addr).Info("metrics server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("metrics server stopped")
		}
	}()
}

// Stop shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

var _ ports.Metrics = (*Collector)(nil)
