package enablement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// OperationKind groups asynchronous operations that supersede one another.
type OperationKind string

const (
	OperationOpen       OperationKind = "open"
	OperationOpenMask   OperationKind = "open_mask"
	OperationSave       OperationKind = "save"
	OperationProcessing OperationKind = "processing"
)

// Operation identifies one asynchronous operation. Completions must present
// the Operation they were started with; only the most recent Operation of a
// kind is current.
type Operation struct {
	ID   uuid.UUID
	Kind OperationKind
}

func (o Operation) String() string { return fmt.Sprintf("%s/%s", o.Kind, o.ID) }

// StaleOperationError reports a completion for an operation that has been
// superseded, cancelled or already settled. No transition is applied.
type StaleOperationError struct {
	Operation Operation
	Current   *Operation
}

func (e *StaleOperationError) Error() string {
	if e.Current == nil {
		return fmt.Sprintf("stale operation %s: no %s operation in flight", e.Operation, e.Operation.Kind)
	}
	return fmt.Sprintf("stale operation %s: superseded by %s", e.Operation, e.Current.ID)
}

// Begin starts tracking a new operation of kind, superseding any earlier one.
// It does not change the active state.
func (e *Engine) Begin(ctx context.Context, kind OperationKind) Operation {
	op := Operation{ID: uuid.New(), Kind: kind}
	if prev, ok := e.inflight[kind]; ok {
		e.logger.Debug(ctx, "operation superseded", "previous", prev.String(), "current", op.String())
	}
	e.inflight[kind] = op
	return op
}

// IsCurrent reports whether op is the operation in flight for its kind.
func (e *Engine) IsCurrent(op Operation) bool {
	cur, ok := e.inflight[op.Kind]
	return ok && cur.ID == op.ID
}

// check returns a *StaleOperationError unless op is current.
func (e *Engine) check(ctx context.Context, op Operation) error {
	if e.IsCurrent(op) {
		return nil
	}
	var current *Operation
	if cur, ok := e.inflight[op.Kind]; ok {
		current = &cur
	}
	e.metrics.IncStaleCompletions(ctx, op.Kind)
	e.logger.Warn(ctx, "ignoring stale completion", "operation", op.String())
	return &StaleOperationError{Operation: op, Current: current}
}

// settle ends op. Later completions for it are stale.
func (e *Engine) settle(op Operation) { delete(e.inflight, op.Kind) }

// Settle ends op without a state change, for operations whose outcome leaves
// the state as it is. It returns a *StaleOperationError if op is not current.
func (e *Engine) Settle(ctx context.Context, op Operation) error {
	if err := e.check(ctx, op); err != nil {
		return err
	}
	e.settle(op)
	return nil
}
