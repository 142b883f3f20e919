// Package progressreporter keeps the status indicators of the application in
// step with state transitions. It observes the same StateSet as the
// enablement engine: while Busy is active a busy indicator and a loading
// message are shown, and both are cleared when Busy ends. Progress messages
// from long-running work are throttled before they reach the display.
package progressreporter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/fringeproc/internal/domain/uistate"
	"github.com/ahrav/fringeproc/internal/infra/uiloop"
	"github.com/ahrav/fringeproc/pkg/common"
	"github.com/ahrav/fringeproc/pkg/common/logger"
)

// LoadingMessage is shown on the status line while Busy is active.
const LoadingMessage = "Loading image file"

// Display is the status surface: a busy indicator and a one-line message.
// It is only called from the UI goroutine.
type Display interface {
	SetBusy(busy bool)
	ShowMessage(msg string)
}

// Poster schedules work on the UI goroutine.
type Poster interface {
	Post(fn uiloop.Task) bool
}

// Progress is a point-in-time update from a long-running operation.
type Progress struct {
	Operation string
	Done      int
	Total     int
}

func (p Progress) String() string {
	if p.Total <= 0 {
		return fmt.Sprintf("%s: %d", p.Operation, p.Done)
	}
	return fmt.Sprintf("%s: %d%%", p.Operation, p.Done*100/p.Total)
}

// StatusReporter mirrors state transitions onto a Display.
type StatusReporter struct {
	states  *uistate.StateSet
	display Display
	limiter *common.RateLimiter
	poster  Poster

	busy bool

	logger *logger.Logger
	tracer trace.Tracer
}

// New creates a StatusReporter. Call Attach to start following states.
func New(
	states *uistate.StateSet,
	display Display,
	limiter *common.RateLimiter,
	poster Poster,
	logger *logger.Logger,
	tracer trace.Tracer,
) *StatusReporter {
	return &StatusReporter{
		states:  states,
		display: display,
		limiter: limiter,
		poster:  poster,
		logger:  logger.With("component", "status_reporter"),
		tracer:  tracer,
	}
}

// Attach subscribes the reporter to its StateSet and syncs the display with
// the current state. The returned function detaches it.
func (r *StatusReporter) Attach(ctx context.Context) (detach func()) {
	unsubscribe := r.states.Subscribe(func(ctx context.Context, _ uistate.Set) { r.onStateChanged(ctx) })
	r.onStateChanged(ctx)
	return unsubscribe
}

func (r *StatusReporter) onStateChanged(ctx context.Context) {
	busy := r.states.State().Has(uistate.Busy)
	if busy == r.busy {
		return
	}
	r.busy = busy

	r.display.SetBusy(busy)
	if busy {
		r.display.ShowMessage(LoadingMessage)
	} else {
		r.display.ShowMessage("")
	}
	r.logger.Debug(ctx, "busy indicator changed", "busy", busy)
}

// ShowMessage writes msg to the status line. It must be called from the UI goroutine.
func (r *StatusReporter) ShowMessage(ctx context.Context, msg string) {
	r.display.ShowMessage(msg)
}

// ReportProgress forwards p to the display unless the rate limit has been
// reached. It may be called from any goroutine and reports whether p was
// forwarded.
func (r *StatusReporter) ReportProgress(ctx context.Context, p Progress) bool {
	_, span := r.tracer.Start(ctx, "progress_reporter.report_progress",
		trace.WithAttributes(
			attribute.String("operation", p.Operation),
			attribute.Int("done", p.Done),
			attribute.Int("total", p.Total),
		),
	)
	defer span.End()

	if !r.limiter.Allow() {
		span.AddEvent("progress_throttled")
		return false
	}

	msg := p.String()
	if !r.poster.Post(func(context.Context) { r.display.ShowMessage(msg) }) {
		span.AddEvent("ui_loop_stopped")
		return false
	}
	span.AddEvent("progress_posted")
	return true
}
