// Package enablement derives the enabled flag of every interactive action from
// the active application state. Actions are registered once with a constraint
// set; after every state transition each action is enabled if and only if its
// constraint intersects the active state.
package enablement

import (
	"context"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/fringeproc/internal/domain/uistate"
	"github.com/ahrav/fringeproc/pkg/common/logger"
)

// Action is a handle to an interactive element owned by the UI layer. The
// engine only references handles; it never controls their lifetime.
// Handles are registry keys, so implementations must be comparable, typically
// pointers. The engine ignores handles of non-comparable types such as funcs,
// maps and slices.
type Action interface {
	SetEnabled(enabled bool)
}

// Metrics records engine activity.
type Metrics interface {
	IncTransitions(ctx context.Context, transition string)
	IncTransitionsRejected(ctx context.Context, transition string)
	IncEvaluations(ctx context.Context)
	IncStaleCompletions(ctx context.Context, kind OperationKind)
	SetEnabledActions(ctx context.Context, n int)
}

// Engine owns the StateSet and the registry of action constraints.
//
// Like the StateSet it wraps, an Engine is not safe for concurrent use; all
// calls must come from the UI-logic goroutine. Asynchronous work reports back
// by posting onto that goroutine and calling the transition helpers there.
type Engine struct {
	states   *uistate.StateSet
	registry map[Action]uistate.Set
	inflight map[OperationKind]Operation

	unsubscribe func()

	metrics Metrics
	logger  *logger.Logger
	tracer  trace.Tracer
}

// New constructs an Engine that owns states and re-evaluates every registered
// action whenever states changes.
func New(states *uistate.StateSet, metrics Metrics, logger *logger.Logger, tracer trace.Tracer) *Engine {
	e := &Engine{
		states:   states,
		registry: make(map[Action]uistate.Set),
		inflight: make(map[OperationKind]Operation),
		metrics:  metrics,
		logger:   logger.With("component", "enablement_engine"),
		tracer:   tracer,
	}
	e.unsubscribe = states.Subscribe(func(ctx context.Context, _ uistate.Set) { e.onStateChanged(ctx) })
	return e
}

// Detach stops the engine from following its StateSet. Registered actions
// keep their last applied flag.
func (e *Engine) Detach() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// Register stores the constraint for action and applies its enabled flag for
// the current state. Registering the same handle again replaces its
// constraint. An empty constraint leaves the action permanently disabled.
// A nil or non-comparable action is ignored.
func (e *Engine) Register(ctx context.Context, action Action, constraint uistate.Set) {
	if action == nil {
		e.logger.Warn(ctx, "ignoring registration of nil action")
		return
	}
	if !isKey(action) {
		e.logger.Warn(ctx, "ignoring registration of non-comparable action",
			"type", reflect.TypeOf(action).String())
		return
	}

	constraint = constraint.Clone()
	if constraint.IsEmpty() {
		e.logger.Warn(ctx, "action registered without constraint; it will stay disabled",
			"action", actionName(action))
	}
	e.registry[action] = constraint
	e.logger.Debug(ctx, "action registered", "action", actionName(action), "constraint", constraint.String())

	action.SetEnabled(constraint.Intersects(e.states.State()))
}

// Unregister removes action from the registry. Its enabled flag is left as is.
func (e *Engine) Unregister(action Action) {
	if isKey(action) {
		delete(e.registry, action)
	}
}

// isKey reports whether action can be used as a registry key.
func isKey(action Action) bool {
	return action != nil && reflect.TypeOf(action).Comparable()
}

// Constraint returns the registered constraint for action.
func (e *Engine) Constraint(action Action) (uistate.Set, bool) {
	if !isKey(action) {
		return uistate.Set{}, false
	}
	c, ok := e.registry[action]
	return c.Clone(), ok
}

// IsEnabled computes whether action is enabled in the current state. Unknown
// actions are reported as disabled.
func (e *Engine) IsEnabled(action Action) bool {
	if !isKey(action) {
		return false
	}
	c, ok := e.registry[action]
	return ok && c.Intersects(e.states.State())
}

// Len returns the number of registered actions.
func (e *Engine) Len() int { return len(e.registry) }

// State returns a snapshot of the active state.
func (e *Engine) State() uistate.Set { return e.states.State() }

// AllStates returns the full vocabulary.
func (e *Engine) AllStates() uistate.Set { return e.states.AllStates() }

// onStateChanged applies the enabled flag of every registered action from its
// own constraint and the current state only.
func (e *Engine) onStateChanged(ctx context.Context) {
	ctx, span := e.tracer.Start(ctx, "enablement.evaluate",
		trace.WithAttributes(attribute.Int("actions", len(e.registry))),
	)
	defer span.End()

	active := e.states.State()
	enabled := 0
	for action, constraint := range e.registry {
		on := constraint.Intersects(active)
		action.SetEnabled(on)
		if on {
			enabled++
		}
	}

	e.metrics.IncEvaluations(ctx)
	e.metrics.SetEnabledActions(ctx, enabled)
	span.SetAttributes(attribute.Int("enabled", enabled))
	span.SetStatus(codes.Ok, "actions evaluated")
}

// SetState replaces the active state with flags. Workflows use it for
// transitions that have no named helper, such as flagging invalid data.
func (e *Engine) SetState(ctx context.Context, flags ...uistate.StateFlag) error {
	return e.transition(ctx, "set_state", flags...)
}

func (e *Engine) transition(ctx context.Context, name string, flags ...uistate.StateFlag) error {
	if err := e.states.SetState(ctx, flags...); err != nil {
		e.metrics.IncTransitionsRejected(ctx, name)
		return fmt.Errorf("%s transition: %w", name, err)
	}
	e.metrics.IncTransitions(ctx, name)
	return nil
}

type named interface{ Name() string }

func actionName(a Action) string {
	if n, ok := a.(named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", a)
}
