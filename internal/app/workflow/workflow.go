// Package workflow drives the file and processing operations of the
// application. Every operation is started on the UI goroutine, runs its slow
// part on a background goroutine and posts its completion back to the UI
// goroutine, where it is reported to the enablement engine. Completions of
// operations that were superseded, cancelled or invalidated by Close are
// dropped.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/fringeproc/internal/app/enablement"
	progressreporter "github.com/ahrav/fringeproc/internal/infra/progress_reporter"
	"github.com/ahrav/fringeproc/pkg/common/logger"
)

var (
	// ErrNoImage is returned by operations that need loaded image data.
	ErrNoImage = errors.New("no image loaded")
	// ErrNotRunning is returned when cancelling an operation kind with nothing in flight.
	ErrNotRunning = errors.New("operation not running")
)

// RetryConfig controls retries of failed loads.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// Config wires the collaborators of a Workflow.
type Config struct {
	Loader    Loader
	Writer    Writer
	Processor Processor
	Progress  ProgressSink
	Retry     RetryConfig
	// Quit is invoked by Workflow.Quit, typically to stop the UI loop.
	Quit func()
}

type pending struct {
	op     enablement.Operation
	cancel context.CancelFunc
}

// Workflow owns the loaded image and the operations acting on it. All
// exported methods except Wait must be called on the UI goroutine.
type Workflow struct {
	engine *enablement.Engine
	poster Poster
	cfg    Config

	image   *Image
	path    string
	pending map[enablement.OperationKind]pending

	wg sync.WaitGroup

	logger *logger.Logger
	tracer trace.Tracer
}

// New creates a Workflow reporting to engine and posting completions via poster.
func New(engine *enablement.Engine, poster Poster, cfg Config, logger *logger.Logger, tracer trace.Tracer) *Workflow {
	return &Workflow{
		engine:  engine,
		poster:  poster,
		cfg:     cfg,
		pending: make(map[enablement.OperationKind]pending),
		logger:  logger.With("component", "workflow"),
		tracer:  tracer,
	}
}

// Image returns the loaded image, or nil.
func (w *Workflow) Image() *Image { return w.image }

// Path returns the path of the loaded file.
func (w *Workflow) Path() string { return w.path }

// CursorText returns the status readout for the pixel under the cursor.
func (w *Workflow) CursorText(x, y int) string {
	if w.image == nil {
		return ""
	}
	return w.image.ValueAt(x, y)
}

// Wait blocks until every background goroutine has posted its completion.
// The completions themselves run later on the UI goroutine.
func (w *Workflow) Wait() { w.wg.Wait() }

func (w *Workflow) track(ctx context.Context, op enablement.Operation) context.Context {
	if prev, ok := w.pending[op.Kind]; ok {
		prev.cancel()
	}
	opCtx, cancel := context.WithCancel(ctx)
	w.pending[op.Kind] = pending{op: op, cancel: cancel}
	return opCtx
}

func (w *Workflow) untrack(op enablement.Operation) {
	if p, ok := w.pending[op.Kind]; ok && p.op.ID == op.ID {
		p.cancel()
		delete(w.pending, op.Kind)
	}
}

// background runs fn off the UI goroutine and posts done with its result.
func (w *Workflow) background(fn func() (*Image, error), done func(ctx context.Context, img *Image, err error)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		img, err := fn()
		if !w.poster.Post(func(ctx context.Context) { done(ctx, img, err) }) {
			w.logger.Debug(context.Background(), "ui loop stopped; completion dropped")
		}
	}()
}

// Open loads path in the background. The state is {Busy} until the load
// succeeds, fails or is cancelled. Pending work on the previous image is
// stopped and its completions are dropped. A failed load leaves no image.
func (w *Workflow) Open(ctx context.Context, path string) error {
	ctx, span := w.tracer.Start(ctx, "workflow.open", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	w.stopDataWork()
	op, err := w.engine.OpenRequested(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	opCtx := w.track(ctx, op)
	log := w.logger.With("operation", op.String(), "path", path)
	log.Info(ctx, "loading image file")

	w.background(
		func() (*Image, error) { return w.loadWithRetry(opCtx, log, path) },
		func(ctx context.Context, img *Image, err error) { w.finishOpen(ctx, log, op, path, img, err) },
	)
	span.SetStatus(codes.Ok, "open started")
	return nil
}

func (w *Workflow) loadWithRetry(ctx context.Context, log *logger.Logger, path string) (*Image, error) {
	expBackoff := backoff.NewExponentialBackOff()
	if w.cfg.Retry.InitialInterval > 0 {
		expBackoff.InitialInterval = w.cfg.Retry.InitialInterval
	}
	if w.cfg.Retry.MaxElapsedTime > 0 {
		expBackoff.MaxElapsedTime = w.cfg.Retry.MaxElapsedTime
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, w.cfg.Retry.MaxRetries), ctx)

	var img *Image
	operation := func() error {
		var err error
		img, err = w.cfg.Loader.Load(ctx, path)
		if errors.Is(err, fs.ErrNotExist) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		log.Warn(ctx, "image load failed; retrying", "error", err, "retry_in", next)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return img, nil
}

func (w *Workflow) finishOpen(ctx context.Context, log *logger.Logger, op enablement.Operation, path string, img *Image, err error) {
	w.untrack(op)
	if !w.engine.IsCurrent(op) {
		log.Debug(ctx, "dropping completion of superseded open")
		return
	}

	if err != nil {
		log.Error(ctx, "image load failed", "error", err)
		w.image, w.path = nil, ""
		if terr := w.engine.OpenFailed(ctx, op); terr != nil {
			log.Error(ctx, "open failed transition", "error", terr)
		}
		return
	}

	w.image, w.path = img, path
	if terr := w.engine.OpenSucceeded(ctx, op); terr != nil {
		log.Error(ctx, "open succeeded transition", "error", terr)
		return
	}
	log.Info(ctx, "image file loaded", "width", img.Width, "height", img.Height)
}

// OpenMask loads a mask in the background and multiplies the loaded image by
// it. The state becomes {DataLoaded} on success and is unchanged on failure.
func (w *Workflow) OpenMask(ctx context.Context, path string) error {
	if w.image == nil {
		return ErrNoImage
	}
	op := w.engine.OpenMaskRequested(ctx)
	opCtx := w.track(ctx, op)
	log := w.logger.With("operation", op.String(), "path", path)

	w.background(
		func() (*Image, error) { return w.cfg.Loader.Load(opCtx, path) },
		func(ctx context.Context, mask *Image, err error) {
			w.untrack(op)
			if !w.engine.IsCurrent(op) {
				log.Debug(ctx, "dropping completion of superseded mask load")
				return
			}
			if err == nil {
				var masked *Image
				if masked, err = w.image.ApplyMask(mask); err == nil {
					w.image = masked
					if terr := w.engine.OpenMaskSucceeded(ctx, op); terr != nil {
						log.Error(ctx, "open mask transition", "error", terr)
					}
					return
				}
			}
			log.Error(ctx, "mask not applied", "error", err)
			_ = w.engine.Settle(ctx, op)
		},
	)
	return nil
}

// Save writes a snapshot of the loaded image in the background. The state
// becomes {DataLoaded, FileSaved} on success and is unchanged on failure.
func (w *Workflow) Save(ctx context.Context, path string) error {
	if w.image == nil {
		return ErrNoImage
	}
	op := w.engine.SaveRequested(ctx)
	opCtx := w.track(ctx, op)
	snapshot := w.image.Clone()
	log := w.logger.With("operation", op.String(), "path", path)

	w.background(
		func() (*Image, error) { return nil, w.cfg.Writer.Write(opCtx, path, snapshot) },
		func(ctx context.Context, _ *Image, err error) {
			w.untrack(op)
			if !w.engine.IsCurrent(op) {
				log.Debug(ctx, "dropping completion of superseded save")
				return
			}
			if err != nil {
				log.Error(ctx, "save failed", "error", err)
				_ = w.engine.Settle(ctx, op)
				return
			}
			if terr := w.engine.SaveSucceeded(ctx, op); terr != nil {
				log.Error(ctx, "save succeeded transition", "error", terr)
			}
		},
	)
	return nil
}

// Unwrap runs phase unwrapping on the loaded image.
func (w *Workflow) Unwrap(ctx context.Context) error {
	return w.process(ctx, "phase_unwrapping", w.cfg.Processor.Unwrap)
}

// Demodulate runs phase demodulation on the loaded image.
func (w *Workflow) Demodulate(ctx context.Context) error {
	return w.process(ctx, "phase_demodulation", w.cfg.Processor.Demodulate)
}

type computeFunc func(ctx context.Context, img *Image, progress ProgressFunc) (*Image, error)

// process walks the processing lifecycle: {ActionExecuted}, then either
// {ActionCanceled} when there is nothing to process or {ActionAccepted},
// {DataProcessing} and finally {DataProcessed} or {ActionCanceled}.
func (w *Workflow) process(ctx context.Context, name string, compute computeFunc) error {
	ctx, span := w.tracer.Start(ctx, "workflow."+name)
	defer span.End()

	op, err := w.engine.ProcessingStarted(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if w.image == nil {
		if err := w.engine.ProcessingCanceled(ctx, op); err != nil {
			return err
		}
		span.SetStatus(codes.Error, ErrNoImage.Error())
		return ErrNoImage
	}
	if err := w.engine.ProcessingAccepted(ctx, op); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	opCtx := w.track(ctx, op)
	input := w.image.Clone()
	log := w.logger.With("operation", op.String(), "computation", name)
	progress := func(done, total int) {
		if w.cfg.Progress != nil {
			w.cfg.Progress.ReportProgress(opCtx, progressreporter.Progress{Operation: name, Done: done, Total: total})
		}
	}

	w.background(
		func() (*Image, error) { return compute(opCtx, input, progress) },
		func(ctx context.Context, out *Image, err error) {
			w.untrack(op)
			if !w.engine.IsCurrent(op) {
				log.Debug(ctx, "dropping completion of superseded processing")
				return
			}
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Error(ctx, "processing failed", "error", err)
				}
				if terr := w.engine.ProcessingCanceled(ctx, op); terr != nil {
					log.Error(ctx, "processing canceled transition", "error", terr)
				}
				return
			}
			w.image = out
			if terr := w.engine.ProcessingCompleted(ctx, op); terr != nil {
				log.Error(ctx, "processing completed transition", "error", terr)
			}
		},
	)
	span.SetStatus(codes.Ok, "processing started")
	return nil
}

// Cancel abandons the in-flight operation of kind. The state becomes
// {ActionCanceled}; the background work is told to stop and its completion
// is dropped.
func (w *Workflow) Cancel(ctx context.Context, kind enablement.OperationKind) error {
	p, ok := w.pending[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, kind)
	}
	w.untrack(p.op)
	return w.engine.Cancel(ctx, p.op)
}

// Close discards the loaded image, stops pending work on it and moves to
// {FileClosed, DataUnloaded}.
func (w *Workflow) Close(ctx context.Context) error {
	w.stopDataWork()
	w.image, w.path = nil, ""
	return w.engine.Close(ctx)
}

// stopDataWork cancels the mask, save and processing work on the loaded image.
func (w *Workflow) stopDataWork() {
	for kind, p := range w.pending {
		if kind == enablement.OperationOpen {
			continue
		}
		w.untrack(p.op)
	}
}

// Quit stops all pending work and calls the configured quit hook.
func (w *Workflow) Quit(ctx context.Context) {
	for _, p := range w.pending {
		w.untrack(p.op)
	}
	w.logger.Info(ctx, "quitting")
	if w.cfg.Quit != nil {
		w.cfg.Quit()
	}
}
