package observability

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robotpit/pinsmith/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by project hooks.
type Metrics struct {
	mutations      *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	snapshots      *prometheus.HistogramVec
	generations    prometheus.Counter
	generatedBytes prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pinsmith_mutations_total",
				Help: "Total number of accepted model operations",
			},
			[]string{"op"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pinsmith_rejections_total",
				Help: "Total number of operations refused by validation",
			},
			[]string{"op", "reason"},
		),
		snapshots: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pinsmith_snapshot_duration_seconds",
				Help:    "Duration of snapshot writes",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"result"},
		),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pinsmith_generations_total",
			Help: "Total number of generated sketches",
		}),
		generatedBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pinsmith_generated_bytes",
			Help:    "Size of generated sketches",
			Buckets: prometheus.ExponentialBuckets(256, 2, 8),
		}),
	}

	for _, c := range []prometheus.Collector{m.mutations, m.rejections, m.snapshots, m.generations, m.generatedBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMutation: func(_ context.Context, e *domain.MutationEvent) {
			m.mutations.WithLabelValues(e.Op).Inc()
		},
		OnRejected: func(_ context.Context, e *domain.RejectedEvent) {
			m.rejections.WithLabelValues(e.Op, Reason(e.Err)).Inc()
		},
		OnSnapshot: func(_ context.Context, e *domain.SnapshotEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.snapshots.WithLabelValues(result).Observe(e.Duration.Seconds())
		},
		OnGenerate: func(_ context.Context, e *domain.GenerateEvent) {
			m.generations.Inc()
			m.generatedBytes.Observe(float64(e.Bytes))
		},
	}
}

var reasons = []struct {
	err   error
	label string
}{
	{domain.ErrInvalidPin, "invalid_pin"},
	{domain.ErrIncompatiblePin, "incompatible_pin"},
	{domain.ErrMissingDeviceKind, "missing_device_kind"},
	{domain.ErrUnknownDeviceKind, "unknown_device_kind"},
	{domain.ErrUnknownAction, "unknown_action"},
	{domain.ErrUnknownBlockType, "unknown_block_type"},
	{domain.ErrIndexOutOfRange, "index_out_of_range"},
	{domain.ErrPinNotConfigured, "pin_not_configured"},
	{domain.ErrNoActionsForKind, "no_actions_for_kind"},
	{domain.ErrInvalidParam, "invalid_param"},
	{domain.ErrInvalidBlockParam, "invalid_block_param"},
	{domain.ErrProjectNotFound, "project_not_found"},
}

// Reason maps an error to a low-cardinality label.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "other"
}
