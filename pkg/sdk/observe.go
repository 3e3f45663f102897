package locusmap

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "locusmap"

// Index lifecycle states reported by the state gauge.
var indexStates = []string{"absent", "loading", "building", "ready"}

// sdkMetrics holds prometheus metrics registered for the SDK.
type sdkMetrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	indexState  *prometheus.GaugeVec
	indexEvents *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Total SDK operations by type and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		indexState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "sdk",
			Name:      "index_state",
			Help:      "1 for the current search index state.",
		}, []string{"state"}),
		indexEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sdk",
			Name:      "index_events_total",
			Help:      "Search index loads, builds and persists by result.",
		}, []string{"event", "result"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.indexState); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.indexEvents); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("locusmap: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("locusmap: register metric: %w", err)
	}
	return nil
}

// observer provides logging and metrics for SDK operations and the
// search index lifecycle.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

func operationStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrIndexNotReady):
		return "not_ready"
	default:
		return "error"
	}
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, operationStatus(err)).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger != nil {
		if err != nil {
			o.logger.Warn("operation failed", "op", op, "duration", dur, "error", err)
		} else {
			o.logger.Debug("operation completed", "op", op, "duration", dur)
		}
	}
}

// SetIndexState implements the index manager observer.
func (o *observer) SetIndexState(state string) {
	if o.metrics != nil {
		for _, s := range indexStates {
			v := 0.0
			if s == state {
				v = 1
			}
			o.metrics.indexState.WithLabelValues(s).Set(v)
		}
	}
	if o.logger != nil {
		o.logger.Debug("search index state", "state", state)
	}
}

// ObserveIndexLoad implements the index manager observer.
func (o *observer) ObserveIndexLoad(result string) { o.indexEvent("load", result, 0) }

// ObserveIndexBuild implements the index manager observer.
func (o *observer) ObserveIndexBuild(result string, d time.Duration) { o.indexEvent("build", result, d) }

// ObserveIndexPersist implements the index manager observer.
func (o *observer) ObserveIndexPersist(result string) { o.indexEvent("persist", result, 0) }

func (o *observer) indexEvent(event, result string, d time.Duration) {
	if o.metrics != nil {
		o.metrics.indexEvents.WithLabelValues(event, result).Inc()
	}
	if o.logger != nil {
		o.logger.Info("search index "+event, "result", result, "duration", d)
	}
}
