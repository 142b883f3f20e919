package actiondispatcher

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/fringeproc/pkg/common/logger"
)

// ErrActionDisabled is returned when triggering an action whose menu item is
// disabled in the current state.
var ErrActionDisabled = errors.New("action disabled")

// Handler performs a triggered action. arg carries the action's input, such
// as the path chosen in a file dialog, and is empty for actions without one.
type Handler func(ctx context.Context, arg string) error

// Gate reports whether the action called name may currently be triggered.
type Gate interface {
	IsEnabled(name string) bool
}

// Dispatcher routes triggered menu actions to their registered handler.
// Each action name has exactly one handler. Triggering happens on the UI
// goroutine, so the registry is not synchronized.
//
// Typical usage:
//
//	d := actiondispatcher.New(menu, tracer, logger)
//	d.RegisterHandler(ctx, "open", openHandler)
//	err := d.Trigger(ctx, "open", "fringes.png")
type Dispatcher struct {
	gate     Gate
	handlers map[string]Handler
	tracer   trace.Tracer
	logger   *logger.Logger
}

// New constructs a Dispatcher consulting gate before every trigger.
func New(gate Gate, tracer trace.Tracer, logger *logger.Logger) *Dispatcher {
	logger = logger.With("component", "action_dispatcher")
	return &Dispatcher{
		gate:     gate,
		handlers: make(map[string]Handler),
		tracer:   tracer,
		logger:   logger,
	}
}

// RegisterHandler associates a handler with an action name. A handler already
// registered for the name is replaced.
func (d *Dispatcher) RegisterHandler(ctx context.Context, action string, handler Handler) {
	_, span := d.tracer.Start(ctx, "action_dispatcher.register_handler",
		trace.WithAttributes(attribute.String("action", action)),
	)
	defer span.End()

	d.handlers[action] = handler
	d.logger.Debug(ctx, "handler registered", "action", action)
	span.SetStatus(codes.Ok, "handler registered")
}

// HandlerNotFoundError indicates a trigger for an action with no handler.
type HandlerNotFoundError struct{ Action string }

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("no handler registered for action: %s", e.Action)
}

// Trigger runs the handler of action with arg, provided the action is
// currently enabled.
func (d *Dispatcher) Trigger(ctx context.Context, action, arg string) error {
	logger := logger.NewLoggerContext(d.logger.With("operation", "trigger", "action", action))
	ctx, span := d.tracer.Start(ctx, "action_dispatcher.trigger",
		trace.WithAttributes(attribute.String("action", action)),
	)
	defer span.End()

	handler, exists := d.handlers[action]
	if !exists {
		err := &HandlerNotFoundError{Action: action}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if !d.gate.IsEnabled(action) {
		err := fmt.Errorf("%w: %s", ErrActionDisabled, action)
		span.SetStatus(codes.Error, err.Error())
		logger.Debug(ctx, "ignoring trigger of disabled action")
		return err
	}

	if err := handler(ctx, arg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("action %s: %w", action, err)
	}

	span.SetStatus(codes.Ok, "action triggered")
	logger.Debug(ctx, "action triggered")
	return nil
}
