// Package statusserver exposes the controller's own state over HTTP: a
// liveness/readiness endpoint and a Prometheus exposition endpoint. It
// reports state, it never feeds back into the decision engine.
package statusserver

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics is the set of self-observability gauges/counters the control
// loop updates once per tick.
type Metrics struct {
	registry *prometheus.Registry

	currentReplicas  prometheus.Gauge
	targetReplicas   prometheus.Gauge
	breachCount      prometheus.Gauge
	ticksTotal       prometheus.Counter
	actuationsTotal  *prometheus.CounterVec
	lastActuationOK  prometheus.Gauge
}

// NewMetrics builds and registers the gauges on a private registry (never
// the global default registry, so multiple controller instances in one
// process never collide).
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		currentReplicas: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "autoscaler_current_replicas",
			Help:        "Replica count last observed from the replica source.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}),
		targetReplicas: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "autoscaler_target_replicas",
			Help:        "Target replica count decided on the last tick (the current count when no change was decided).",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}),
		breachCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "autoscaler_breach_count",
			Help:        "Current consecutive same-direction breach count.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "autoscaler_ticks_total",
			Help:        "Total control loop ticks executed.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}),
		actuationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "autoscaler_actuations_total",
			Help:        "Total actuator calls by outcome.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"outcome"}),
		lastActuationOK: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "autoscaler_last_actuation_success",
			Help:        "1 if the most recent actuation succeeded, 0 otherwise.",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}),
	}

	reg.MustRegister(m.currentReplicas, m.targetReplicas, m.breachCount, m.ticksTotal, m.actuationsTotal, m.lastActuationOK)
	return m
}

// ObserveTick records the replica/breach state at the end of one tick.
func (m *Metrics) ObserveTick(current, target, breaches int) {
	m.currentReplicas.Set(float64(current))
	m.targetReplicas.Set(float64(target))
	m.breachCount.Set(float64(breaches))
	m.ticksTotal.Inc()
}

// ObserveActuation records the outcome of one actuator call.
func (m *Metrics) ObserveActuation(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
		m.lastActuationOK.Set(1)
	} else {
		m.lastActuationOK.Set(0)
	}
	m.actuationsTotal.WithLabelValues(outcome).Inc()
}

// Server is the HTTP server exposing /health and /metrics.
type Server struct {
	httpServer *http.Server
	ready      atomic.Bool
}

// NewServer builds a Server bound to listenAddr, backed by metrics.
func NewServer(listenAddr string, metrics *Metrics) *Server {
	mux := http.NewServeMux()
	s := &Server{}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"starting"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         listenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// SetReady flips the /health endpoint to report healthy. cmd/autoscaler
// calls it as soon as the control loop goroutine is started; it does not
// wait for the loop's readiness polling to finish.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Start begins serving in the background. Bind errors are logged, not
// returned, matching the ambient-server pattern: the status server is
// operability, never load-bearing for the control loop.
func (s *Server) Start() {
	log.Info().Str("address", s.httpServer.Addr).Msg("starting status server")
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("status server error")
		}
	}()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down status server")
	return s.httpServer.Shutdown(ctx)
}
