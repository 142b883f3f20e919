package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ahrav/fringeproc/internal/app/enablement"
	"github.com/ahrav/fringeproc/internal/app/enablement/metrics"
	"github.com/ahrav/fringeproc/internal/app/workflow"
	"github.com/ahrav/fringeproc/internal/config"
	"github.com/ahrav/fringeproc/internal/domain/uistate"
	actiondispatcher "github.com/ahrav/fringeproc/internal/infra/action_dispatcher"
	"github.com/ahrav/fringeproc/internal/infra/imagefile"
	"github.com/ahrav/fringeproc/internal/infra/menu"
	"github.com/ahrav/fringeproc/internal/infra/phase"
	progressreporter "github.com/ahrav/fringeproc/internal/infra/progress_reporter"
	"github.com/ahrav/fringeproc/internal/infra/uiloop"
	"github.com/ahrav/fringeproc/pkg/common"
	"github.com/ahrav/fringeproc/pkg/common/logger"
	"github.com/ahrav/fringeproc/pkg/common/otel"
)

const serviceType = "fringeproc"

// app holds the wired components of one run.
type app struct {
	out io.Writer

	loop     *uiloop.Loop
	engine   *enablement.Engine
	menu     *menu.Menu
	status   *progressreporter.StatusReporter
	workflow *workflow.Workflow
	actions  *actiondispatcher.Dispatcher

	teardown []func(ctx context.Context)
	log      *logger.Logger
}

func newLogger(w io.Writer, level logger.Level) *logger.Logger {
	hostname, _ := os.Hostname()

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}
			fmt.Fprintf(w, "Error event: %s, details: %s\n", r.Message, errorAttrsJSON)
		},
	}

	metadata := map[string]string{
		"hostname": hostname,
		"app":      serviceType,
	}
	return logger.NewWithMetadata(w, level, serviceType, otel.GetTraceID, logEvents, metadata)
}

func newApp(ctx context.Context, settings *config.Settings, out, errOut io.Writer) (*app, error) {
	log := newLogger(errOut, logger.ParseLevel(settings.LogLevel))

	providers, telemetryTeardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      settings.Telemetry.ServiceName,
		ExporterEndpoint: settings.Telemetry.Endpoint,
		Probability:      settings.Telemetry.SamplingRatio,
		ResourceAttributes: map[string]string{
			"library.language": "go",
		},
		InsecureExporter: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a := &app{out: out, log: log, teardown: []func(context.Context){telemetryTeardown}}

	tracer := providers.Tracer.Tracer(settings.Telemetry.ServiceName)

	enablementMetrics, err := metrics.New(providers.Meter)
	if err != nil {
		a.shutdown(ctx)
		return nil, fmt.Errorf("failed to create enablement metrics: %w", err)
	}

	catalog, err := catalogLoader(settings).Load(ctx)
	if err != nil {
		a.shutdown(ctx)
		return nil, fmt.Errorf("failed to load action catalog: %w", err)
	}

	a.loop = uiloop.New(256, log)
	var stateOpts []uistate.Option
	if settings.State.LenientVocabulary {
		stateOpts = append(stateOpts, uistate.WithLenientVocabulary())
	}
	states := uistate.NewStateSet(log, tracer, stateOpts...)
	a.engine = enablement.New(states, enablementMetrics, log, tracer)
	a.teardown = append(a.teardown, func(context.Context) { a.engine.Detach() })

	a.menu, err = menu.Build(ctx, catalog, a.engine)
	if err != nil {
		a.shutdown(ctx)
		return nil, err
	}

	limiter := common.NewRateLimiter(settings.Status.MessagesPerSecond, settings.Status.Burst)
	a.status = progressreporter.New(states, progressreporter.NewWriterDisplay(out), limiter, a.loop, log, tracer)
	detach := a.status.Attach(ctx)
	a.teardown = append(a.teardown, func(context.Context) { detach() })

	store := imagefile.New()
	a.workflow = workflow.New(a.engine, a.loop, workflow.Config{
		Loader:    store,
		Writer:    store,
		Processor: phase.NewRowProcessor(),
		Progress:  a.status,
		Retry: workflow.RetryConfig{
			MaxRetries:      settings.Open.MaxRetries,
			InitialInterval: settings.Open.InitialInterval,
			MaxElapsedTime:  settings.Open.MaxElapsedTime,
		},
		Quit: a.loop.Stop,
	}, log, tracer)

	a.actions = actiondispatcher.New(a.menu, tracer, log)
	registerActions(ctx, a.actions, a.workflow)

	log.Info(ctx, "application ready", "actions", len(catalog.Actions), "state", states.State().String())
	return a, nil
}

// registerActions binds the catalog's action names to workflow operations.
func registerActions(ctx context.Context, d *actiondispatcher.Dispatcher, wf *workflow.Workflow) {
	d.RegisterHandler(ctx, "open", wf.Open)
	d.RegisterHandler(ctx, "open_mask", wf.OpenMask)
	d.RegisterHandler(ctx, "save", wf.Save)
	d.RegisterHandler(ctx, "close", func(ctx context.Context, _ string) error { return wf.Close(ctx) })
	d.RegisterHandler(ctx, "quit", func(ctx context.Context, _ string) error {
		wf.Quit(ctx)
		return nil
	})
	d.RegisterHandler(ctx, "phase_unwrapping", func(ctx context.Context, _ string) error { return wf.Unwrap(ctx) })
	d.RegisterHandler(ctx, "phase_demodulation", func(ctx context.Context, _ string) error { return wf.Demodulate(ctx) })
}

// shutdown releases components in reverse order of creation.
func (a *app) shutdown(ctx context.Context) {
	for i := len(a.teardown) - 1; i >= 0; i-- {
		a.teardown[i](ctx)
	}
	a.teardown = nil
}
