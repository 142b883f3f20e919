package enablement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/fringeproc/internal/domain/uistate"
	"github.com/ahrav/fringeproc/pkg/common/logger"
)

type fakeAction struct {
	name    string
	enabled bool
	calls   int
}

func (a *fakeAction) SetEnabled(enabled bool) {
	a.enabled = enabled
	a.calls++
}

func (a *fakeAction) Name() string { return a.name }

// funcAction is an Action whose dynamic type cannot be a map key.
type funcAction func(bool)

func (f funcAction) SetEnabled(enabled bool) { f(enabled) }

type countingMetrics struct {
	mu          sync.Mutex
	transitions map[string]int
	rejected    map[string]int
	evaluations int
	stale       map[OperationKind]int
	enabled     int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		transitions: make(map[string]int),
		rejected:    make(map[string]int),
		stale:       make(map[OperationKind]int),
	}
}

func (m *countingMetrics) IncTransitions(_ context.Context, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[name]++
}

func (m *countingMetrics) IncTransitionsRejected(_ context.Context, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[name]++
}

func (m *countingMetrics) IncEvaluations(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations++
}

func (m *countingMetrics) IncStaleCompletions(_ context.Context, kind OperationKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stale[kind]++
}

func (m *countingMetrics) SetEnabledActions(_ context.Context, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = n
}

func newTestEngine(t *testing.T) (*Engine, *countingMetrics) {
	t.Helper()
	tracer := noop.NewTracerProvider().Tracer("")
	states := uistate.NewStateSet(logger.Noop(), tracer)
	m := newCountingMetrics()
	return New(states, m, logger.Noop(), tracer), m
}

func TestEngine_OpenScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, _ := newTestEngine(t)

	open := &fakeAction{name: "open"}
	closeAction := &fakeAction{name: "close"}
	e.Register(ctx, open, e.AllStates().Without(uistate.Busy))
	e.Register(ctx, closeAction, uistate.NewSet(uistate.DataLoaded, uistate.FileOpen))

	assert.True(t, open.enabled)
	assert.False(t, closeAction.enabled)

	op, err := e.OpenRequested(ctx)
	require.NoError(t, err)
	assert.True(t, e.State().Equal(uistate.NewSet(uistate.Busy)))
	assert.False(t, open.enabled)
	assert.False(t, closeAction.enabled)

	require.NoError(t, e.OpenSucceeded(ctx, op))
	assert.True(t, e.State().Equal(uistate.NewSet(uistate.FileOpen, uistate.DataLoaded)))
	assert.True(t, open.enabled)
	assert.True(t, closeAction.enabled)
}

func TestEngine_EnablementMatchesIntersection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, _ := newTestEngine(t)

	constraints := map[*fakeAction]uistate.Set{
		{name: "loaded"}:   uistate.NewSet(uistate.DataLoaded),
		{name: "file"}:     uistate.NewSet(uistate.DataLoaded, uistate.FileOpen),
		{name: "not_busy"}: uistate.Vocabulary().Without(uistate.Busy),
		{name: "always"}:   uistate.Vocabulary(),
		{name: "never"}:    uistate.NewSet(),
	}
	for a, c := range constraints {
		e.Register(ctx, a, c)
	}

	flags := uistate.Flags()
	// Every subset of the first eight flags combined with the last one toggled.
	for mask := 1; mask < 1<<8; mask++ {
		var members []uistate.StateFlag
		for i := 0; i < 8; i++ {
			if mask&(1<<i) != 0 {
				members = append(members, flags[i])
			}
		}
		if mask%2 == 0 {
			members = append(members, uistate.Busy)
		}
		state := uistate.NewSet(members...)
		require.NoError(t, e.states.Replace(ctx, state))

		for a, c := range constraints {
			assert.Equal(t, c.Intersects(state), a.enabled, "action %s in state %s", a.name, state)
			assert.Equal(t, a.enabled, e.IsEnabled(a))
		}
	}
}

func TestEngine_EmptyConstraintNeverEnabled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, _ := newTestEngine(t)

	a := &fakeAction{name: "misconfigured", enabled: true}
	e.Register(ctx, a, uistate.Set{})
	assert.False(t, a.enabled)

	for _, f := range uistate.Flags() {
		require.NoError(t, e.SetState(ctx, f))
		assert.False(t, a.enabled, "state %s", f)
	}
}

func TestEngine_RegisterTwiceLastWriteWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, _ := newTestEngine(t)

	a := &fakeAction{name: "save"}
	e.Register(ctx, a, uistate.NewSet(uistate.Init))
	assert.True(t, a.enabled)

	e.Register(ctx, a, uistate.NewSet(uistate.DataLoaded))
	assert.False(t, a.enabled)
	assert.Equal(t, 1, e.Len())

	c, ok := e.Constraint(a)
	require.True(t, ok)
	assert.True(t, c.Equal(uistate.NewSet(uistate.DataLoaded)))
}

func TestEngine_RegisterNilIsIgnored(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	assert.NotPanics(t, func() { e.Register(context.Background(), nil, uistate.Vocabulary()) })
	assert.Zero(t, e.Len())
}

func TestEngine_RegisterNonComparableIsIgnored(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, _ := newTestEngine(t)

	calls := 0
	a := funcAction(func(bool) { calls++ })
	require.NotPanics(t, func() { e.Register(ctx, a, uistate.Vocabulary()) })
	assert.Zero(t, e.Len())
	assert.Zero(t, calls)

	assert.NotPanics(t, func() {
		assert.False(t, e.IsEnabled(a))
		_, ok := e.Constraint(a)
		assert.False(t, ok)
		e.Unregister(a)
	})
	require.NotPanics(t, func() { require.NoError(t, e.SetState(ctx, uistate.FileOpen)) })
	assert.Zero(t, calls)
}

func TestEngine_Unregister(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, _ := newTestEngine(t)

	a := &fakeAction{name: "open"}
	e.Register(ctx, a, uistate.NewSet(uistate.Init))
	e.Unregister(a)
	calls := a.calls

	require.NoError(t, e.SetState(ctx, uistate.Busy))
	assert.Equal(t, calls, a.calls)
	assert.False(t, e.IsEnabled(a))
}

func TestEngine_RejectedTransitionKeepsEnablement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, m := newTestEngine(t)

	a := &fakeAction{name: "open"}
	e.Register(ctx, a, uistate.NewSet(uistate.Init))
	calls := a.calls

	err := e.SetState(ctx, uistate.StateFlag(200))
	require.Error(t, err)
	assert.ErrorIs(t, err, uistate.ErrInvalidState)

	var invalid *uistate.InvalidStateError
	require.True(t, errors.As(err, &invalid))
	assert.True(t, e.State().Equal(uistate.NewSet(uistate.Init)))
	assert.Equal(t, calls, a.calls, "no evaluation after a rejected transition")
	assert.Equal(t, 1, m.rejected["set_state"])
	assert.Zero(t, m.evaluations)
}

func TestEngine_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, _ := newTestEngine(t)

	a := &fakeAction{name: "close"}
	e.Register(ctx, a, uistate.NewSet(uistate.FileOpen))

	require.NoError(t, e.SetState(ctx, uistate.FileOpen, uistate.DataLoaded))
	first, state := a.enabled, e.State()
	require.NoError(t, e.SetState(ctx, uistate.FileOpen, uistate.DataLoaded))

	assert.Equal(t, first, a.enabled)
	assert.True(t, state.Equal(e.State()))
}

func TestEngine_Detach(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, m := newTestEngine(t)

	a := &fakeAction{name: "open"}
	e.Register(ctx, a, uistate.NewSet(uistate.Init))
	e.Detach()
	e.Detach()

	require.NoError(t, e.SetState(ctx, uistate.Busy))
	assert.True(t, a.enabled)
	assert.Zero(t, m.evaluations)
}

func TestEngine_EvaluationMetrics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, m := newTestEngine(t)

	e.Register(ctx, &fakeAction{name: "a"}, uistate.NewSet(uistate.Busy))
	e.Register(ctx, &fakeAction{name: "b"}, uistate.NewSet(uistate.Busy, uistate.Init))
	e.Register(ctx, &fakeAction{name: "c"}, uistate.NewSet(uistate.Init))

	_, err := e.OpenRequested(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, m.evaluations)
	assert.Equal(t, 2, m.enabled)
	assert.Equal(t, 1, m.transitions["open_requested"])
}

type mockMetrics struct{ mock.Mock }

func (m *mockMetrics) IncTransitions(ctx context.Context, name string) { m.Called(ctx, name) }
func (m *mockMetrics) IncTransitionsRejected(ctx context.Context, name string) {
	m.Called(ctx, name)
}
func (m *mockMetrics) IncEvaluations(ctx context.Context) { m.Called(ctx) }
func (m *mockMetrics) IncStaleCompletions(ctx context.Context, kind OperationKind) {
	m.Called(ctx, kind)
}
func (m *mockMetrics) SetEnabledActions(ctx context.Context, n int) { m.Called(ctx, n) }

func TestEngine_CloseTransitionReportsMetrics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracer := noop.NewTracerProvider().Tracer("")
	m := new(mockMetrics)
	m.On("IncEvaluations", mock.Anything).Once()
	m.On("SetEnabledActions", mock.Anything, 1).Once()
	m.On("IncTransitions", mock.Anything, "close").Once()

	e := New(uistate.NewStateSet(logger.Noop(), tracer), m, logger.Noop(), tracer)
	e.Register(ctx, &fakeAction{name: "open"}, uistate.NewSet(uistate.FileClosed))

	require.NoError(t, e.Close(ctx))
	m.AssertExpectations(t)
}
