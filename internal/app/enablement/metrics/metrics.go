// Package metrics provides the OpenTelemetry instruments for the enablement engine.
package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ahrav/fringeproc/internal/app/enablement"
)

var _ enablement.Metrics = (*Enablement)(nil)

// Enablement implements enablement.Metrics.
type Enablement struct {
	transitions         metric.Int64Counter
	transitionsRejected metric.Int64Counter
	evaluations         metric.Int64Counter
	staleCompletions    metric.Int64Counter
	enabledActions      metric.Int64UpDownCounter

	mu          sync.Mutex
	lastEnabled int64
}

const namespace = "enablement"

// New creates the enablement instruments on mp.
func New(mp metric.MeterProvider) (*Enablement, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(Enablement)
	var err error

	if m.transitions, err = meter.Int64Counter(
		"transitions_total",
		metric.WithDescription("Total number of applied state transitions"),
	); err != nil {
		return nil, err
	}

	if m.transitionsRejected, err = meter.Int64Counter(
		"transitions_rejected_total",
		metric.WithDescription("Total number of state transitions rejected by vocabulary validation"),
	); err != nil {
		return nil, err
	}

	if m.evaluations, err = meter.Int64Counter(
		"evaluations_total",
		metric.WithDescription("Total number of full action enablement passes"),
	); err != nil {
		return nil, err
	}

	if m.staleCompletions, err = meter.Int64Counter(
		"stale_completions_total",
		metric.WithDescription("Total number of ignored completions of superseded operations"),
	); err != nil {
		return nil, err
	}

	if m.enabledActions, err = meter.Int64UpDownCounter(
		"enabled_actions",
		metric.WithDescription("Number of actions enabled after the last evaluation"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Enablement) IncTransitions(ctx context.Context, transition string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("transition", transition)))
}

func (m *Enablement) IncTransitionsRejected(ctx context.Context, transition string) {
	m.transitionsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("transition", transition)))
}

func (m *Enablement) IncEvaluations(ctx context.Context) { m.evaluations.Add(ctx, 1) }

func (m *Enablement) IncStaleCompletions(ctx context.Context, kind enablement.OperationKind) {
	m.staleCompletions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}

// SetEnabledActions records n as the current number of enabled actions.
func (m *Enablement) SetEnabledActions(ctx context.Context, n int) {
	m.mu.Lock()
	delta := int64(n) - m.lastEnabled
	m.lastEnabled = int64(n)
	m.mu.Unlock()

	if delta != 0 {
		m.enabledActions.Add(ctx, delta)
	}
}
