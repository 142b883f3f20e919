package enablement

import (
	"context"

	"github.com/ahrav/fringeproc/internal/domain/uistate"
)

// The helpers below are named shorthands for whole-state replacements. None
// of them merges with the previous state.

// OpenRequested starts an open operation and replaces the state with {Busy}.
// Pending mask, save and processing operations refer to the data being
// replaced, so their completions become stale.
func (e *Engine) OpenRequested(ctx context.Context) (Operation, error) {
	e.settleDataOperations()
	op := e.Begin(ctx, OperationOpen)
	if err := e.transition(ctx, "open_requested", uistate.Busy); err != nil {
		e.settle(op)
		return Operation{}, err
	}
	return op, nil
}

// OpenSucceeded completes op with {FileOpen, DataLoaded}.
func (e *Engine) OpenSucceeded(ctx context.Context, op Operation) error {
	return e.complete(ctx, op, "open_succeeded", uistate.FileOpen, uistate.DataLoaded)
}

// OpenFailed completes op with {FileClosed, DataUnloaded} so the UI leaves
// the busy configuration.
func (e *Engine) OpenFailed(ctx context.Context, op Operation) error {
	return e.complete(ctx, op, "open_failed", uistate.FileClosed, uistate.DataUnloaded)
}

// OpenMaskRequested starts tracking a mask load. The state is unchanged while
// the mask loads.
func (e *Engine) OpenMaskRequested(ctx context.Context) Operation {
	return e.Begin(ctx, OperationOpenMask)
}

// OpenMaskSucceeded completes op with {DataLoaded}.
func (e *Engine) OpenMaskSucceeded(ctx context.Context, op Operation) error {
	return e.complete(ctx, op, "open_mask_succeeded", uistate.DataLoaded)
}

// Close replaces the state with {FileClosed, DataUnloaded}. Pending mask,
// save and processing operations refer to data that no longer exists, so
// their completions become stale.
func (e *Engine) Close(ctx context.Context) error {
	e.settleDataOperations()
	return e.transition(ctx, "close", uistate.FileClosed, uistate.DataUnloaded)
}

// SaveRequested starts tracking a save. The state is unchanged while saving.
func (e *Engine) SaveRequested(ctx context.Context) Operation {
	return e.Begin(ctx, OperationSave)
}

// SaveSucceeded completes op with {DataLoaded, FileSaved}.
func (e *Engine) SaveSucceeded(ctx context.Context, op Operation) error {
	return e.complete(ctx, op, "save_succeeded", uistate.DataLoaded, uistate.FileSaved)
}

// ProcessingStarted starts a processing operation with {ActionExecuted}.
func (e *Engine) ProcessingStarted(ctx context.Context) (Operation, error) {
	op := e.Begin(ctx, OperationProcessing)
	if err := e.transition(ctx, "processing_started", uistate.ActionExecuted); err != nil {
		e.settle(op)
		return Operation{}, err
	}
	return op, nil
}

// ProcessingAccepted marks the input of op as valid: {ActionAccepted}
// immediately followed by {DataProcessing}.
func (e *Engine) ProcessingAccepted(ctx context.Context, op Operation) error {
	if err := e.check(ctx, op); err != nil {
		return err
	}
	if err := e.transition(ctx, "processing_accepted", uistate.ActionAccepted); err != nil {
		return err
	}
	return e.transition(ctx, "processing_running", uistate.DataProcessing)
}

// ProcessingCompleted completes op with {DataProcessed}.
func (e *Engine) ProcessingCompleted(ctx context.Context, op Operation) error {
	return e.complete(ctx, op, "processing_completed", uistate.DataProcessed)
}

// ProcessingCanceled completes op with {ActionCanceled}, for user
// cancellation and for input that was rejected.
func (e *Engine) ProcessingCanceled(ctx context.Context, op Operation) error {
	return e.complete(ctx, op, "processing_canceled", uistate.ActionCanceled)
}

// Cancel abandons op of any kind with {ActionCanceled}.
func (e *Engine) Cancel(ctx context.Context, op Operation) error {
	return e.complete(ctx, op, "cancel", uistate.ActionCanceled)
}

// dataOperations are the kinds acting on the loaded data.
var dataOperations = []OperationKind{OperationOpenMask, OperationSave, OperationProcessing}

func (e *Engine) settleDataOperations() {
	for _, kind := range dataOperations {
		if op, ok := e.inflight[kind]; ok {
			e.settle(op)
		}
	}
}

func (e *Engine) complete(ctx context.Context, op Operation, name string, flags ...uistate.StateFlag) error {
	if err := e.check(ctx, op); err != nil {
		return err
	}
	e.settle(op)
	return e.transition(ctx, name, flags...)
}
