// Package loop implements the Control Loop: it drives the tick cadence,
// wires the Metrics/Replica/Actuator adapters to the Decision Engine,
// enforces the cooldown gate, and owns graceful shutdown.
package loop

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scaleloop/autoscaler/internal/config"
	"github.com/scaleloop/autoscaler/internal/statusserver"
	"github.com/scaleloop/autoscaler/pkg/ctlerrors"
	"github.com/scaleloop/autoscaler/pkg/scaling"
)

// MetricSource is the Metrics Source Adapter contract (§4.A).
type MetricSource interface {
	Query(ctx context.Context) (value float64, present bool)
	IsReady(ctx context.Context) bool
}

// ReplicaSource is the Replica Source Adapter contract (§4.B).
type ReplicaSource interface {
	CurrentReplicas(ctx context.Context) int
}

// Actuator is the Actuator Adapter contract (§4.C).
type Actuator interface {
	Apply(ctx context.Context, target int) bool
}

const (
	readinessPollInterval = 5 * time.Second
	readinessMaxAttempts  = 30
)

// Loop owns all mutable controller state not owned by the Decision Engine:
// the last successful action's time and direction.
type Loop struct {
	cfg    *config.Config
	engine *scaling.Engine

	metricSource  MetricSource
	replicaSource ReplicaSource
	actuator      Actuator
	metrics       *statusserver.Metrics

	lastActionTime      time.Time
	lastActionDirection scaling.Direction
}

// New builds a Loop ready to Run.
func New(cfg *config.Config, metricSource MetricSource, replicaSource ReplicaSource, act Actuator, metrics *statusserver.Metrics) *Loop {
	return &Loop{
		cfg:                 cfg,
		engine:              scaling.NewEngine(cfg.Policy()),
		metricSource:        metricSource,
		replicaSource:       replicaSource,
		actuator:            act,
		metrics:             metrics,
		lastActionDirection: scaling.DirNone,
	}
}

// Run polls readiness, then drives ticks until ctx is cancelled. It returns
// a fatal *ctlerrors.ControllerError if the backend never becomes ready,
// including when ctx is cancelled during readiness polling; otherwise it
// returns nil once ctx is done and the in-flight tick drains.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.waitForReady(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(l.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("control loop stopping, current tick drained")
			return nil
		case <-ticker.C:
			l.safeTick(ctx)
		}
	}
}

// waitForReady polls the metrics source's readiness probe every 5 seconds
// for up to 30 attempts, terminating fatally if it never becomes ready.
func (l *Loop) waitForReady(ctx context.Context) error {
	for attempt := 1; attempt <= readinessMaxAttempts; attempt++ {
		if l.metricSource.IsReady(ctx) {
			log.Info().Int("attempt", attempt).Msg("metrics backend ready")
			return nil
		}
		log.Warn().Int("attempt", attempt).Msg("metrics backend not ready, retrying")

		select {
		case <-ctx.Done():
			return ctlerrors.Startup("readiness poll", ctx.Err())
		case <-time.After(readinessPollInterval):
		}
	}
	return ctlerrors.Startup("readiness poll", errMetricsNeverReady)
}

var errMetricsNeverReady = &readyTimeoutErr{}

type readyTimeoutErr struct{}

func (*readyTimeoutErr) Error() string { return "metrics backend never became ready" }

// safeTick isolates a panic or unexpected error to the current tick; the
// loop continues on the next ticker fire.
func (l *Loop) safeTick(ctx context.Context) {
	tickID := uuid.New().String()
	logger := log.With().Str("tick_id", tickID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("tick panicked, isolating and continuing")
		}
	}()

	l.tick(ctx, logger)
}

func (l *Loop) tick(ctx context.Context, logger zerolog.Logger) {
	metric, present := l.metricSource.Query(ctx)
	replicas := l.replicaSource.CurrentReplicas(ctx)

	if present {
		l.engine.RecordObservation(time.Now(), metric, replicas)
	}

	target, ok := l.engine.Decide(present, metric, replicas)

	if l.metrics != nil {
		reportedTarget := replicas
		if ok {
			reportedTarget = target
		}
		l.metrics.ObserveTick(replicas, reportedTarget, l.engine.BreachCount())
	}

	if !present {
		logger.Debug().Int("replicas", replicas).Msg("metric absent, breach state reset")
		return
	}
	logger.Debug().Float64("metric", metric).Int("replicas", replicas).
		Str("breach_direction", string(l.engine.BreachDirection())).
		Int("breach_count", l.engine.BreachCount()).Msg("tick evaluated")

	if !ok || target == replicas {
		return
	}

	direction := scaling.DirUp
	if target < replicas {
		direction = scaling.DirDown
	}

	if !l.lastActionTime.IsZero() {
		cooldown := l.cfg.Policy().Cooldown(l.lastActionDirection)
		if time.Since(l.lastActionTime) < cooldown {
			logger.Info().Str("direction", string(direction)).Int("target", target).
				Msg("actuation skipped: cooldown active")
			return
		}
	}

	start := time.Now()
	success := l.actuator.Apply(ctx, target)
	duration := time.Since(start)

	l.engine.RecordAction(start, target, success, duration)
	if l.metrics != nil {
		l.metrics.ObserveActuation(success)
	}

	if !success {
		logger.Warn().Int("target", target).Dur("duration", duration).Msg("actuation failed")
		return
	}

	l.lastActionTime = start
	l.lastActionDirection = direction
	logger.Info().Int("from", replicas).Int("to", target).Str("direction", string(direction)).
		Dur("duration", duration).Msg("actuation succeeded")
}
