package menu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/fringeproc/internal/app/enablement"
	"github.com/ahrav/fringeproc/internal/app/enablement/metrics"
	"github.com/ahrav/fringeproc/internal/config"
	"github.com/ahrav/fringeproc/internal/domain/uistate"
	"github.com/ahrav/fringeproc/pkg/common/logger"
)

func newEngine(t *testing.T) *enablement.Engine {
	t.Helper()
	tracer := tracenoop.NewTracerProvider().Tracer("")
	m, err := metrics.New(noop.NewMeterProvider())
	require.NoError(t, err)
	return enablement.New(uistate.NewStateSet(logger.Noop(), tracer), m, logger.Noop(), tracer)
}

func TestBuild_DefaultCatalogFollowsState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t)
	m, err := Build(ctx, config.DefaultCatalog(), e)
	require.NoError(t, err)

	assert.Equal(t, []string{"open", "quit"}, m.Enabled())

	op, err := e.OpenRequested(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"quit"}, m.Enabled())

	require.NoError(t, e.OpenSucceeded(ctx, op))
	assert.Equal(t, []string{
		"open", "open_mask", "close", "save", "quit", "phase_unwrapping", "phase_demodulation",
	}, m.Enabled())

	require.NoError(t, e.Close(ctx))
	assert.Equal(t, []string{"open", "quit"}, m.Enabled())
}

func TestBuild_RejectsInvalidCatalog(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	c := &config.Catalog{Actions: []config.ActionSpec{{Name: "x", AnyOf: []string{"nope"}}}}
	_, err := Build(context.Background(), c, e)
	require.Error(t, err)

	c = &config.Catalog{Actions: []config.ActionSpec{{Name: "x", All: true}, {Name: "x", All: true}}}
	_, err = Build(context.Background(), c, e)
	assert.ErrorIs(t, err, config.ErrDuplicateAction)
}

func TestMenu_LookupAndString(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	c := &config.Catalog{Actions: []config.ActionSpec{
		{Name: "open", AllExcept: []string{"busy"}},
		{Name: "save", AnyOf: []string{"data_loaded"}},
	}}
	m, err := Build(context.Background(), c, e)
	require.NoError(t, err)

	open, ok := m.Item("open")
	require.True(t, ok)
	assert.True(t, open.Enabled())
	assert.Equal(t, "open", open.Name())

	_, ok = m.Item("missing")
	assert.False(t, ok)

	assert.True(t, m.IsEnabled("open"))
	assert.False(t, m.IsEnabled("save"))
	assert.False(t, m.IsEnabled("missing"))

	assert.Len(t, m.Items(), 2)
	assert.Equal(t, "[x] open\n[ ] save\n", m.String())
}
