package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/fringeproc/internal/app/enablement"
	"github.com/ahrav/fringeproc/internal/app/workflow"
	"github.com/ahrav/fringeproc/internal/config"
	"github.com/ahrav/fringeproc/internal/domain/uistate"
	"github.com/ahrav/fringeproc/internal/infra/imagefile"
)

func TestParseStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    step
		wantErr bool
	}{
		{name: "open", raw: "open=a.png", want: step{kind: stepOpen, arg: "a.png"}},
		{name: "async unwrap", raw: "unwrap&", want: step{kind: stepUnwrap, async: true}},
		{name: "cursor", raw: "cursor=3, 4", want: step{kind: stepCursor, arg: "3, 4", x: 3, y: 4}},
		{
			name: "cancel processing",
			raw:  "cancel=processing",
			want: step{kind: stepCancel, arg: "processing", cancel: enablement.OperationProcessing},
		},
		{name: "open without path", raw: "open", wantErr: true},
		{name: "close with argument", raw: "close=now", wantErr: true},
		{name: "bad cursor", raw: "cursor=3", wantErr: true},
		{name: "non numeric cursor", raw: "cursor=a,b", wantErr: true},
		{name: "unknown cancel kind", raw: "cancel=everything", wantErr: true},
		{name: "unknown step", raw: "rotate", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseStep(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStep_String(t *testing.T) {
	t.Parallel()

	steps, err := parseSteps([]string{"open=a.png", "demodulate&", "quit"})
	require.NoError(t, err)

	var names []string
	for _, s := range steps {
		names = append(names, s.String())
	}
	assert.Equal(t, []string{"open=a.png", "demodulate&", "quit"}, names)
}

func TestPrintCatalog(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, printCatalog(&out, config.DefaultCatalog()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(config.DefaultCatalog().Actions))
	assert.True(t, strings.HasPrefix(lines[0], "open "))
	assert.NotContains(t, lines[0], "busy")
}

func writeFringes(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fringes.png")
	img := workflow.NewImage(3, 2)
	for i := range img.Pix {
		img.Pix[i] = float64(i)
	}
	require.NoError(t, imagefile.New().Write(context.Background(), path, img))
	return path
}

func runScript(t *testing.T, args ...string) string {
	t.Helper()

	settings, err := config.LoadSettings("")
	require.NoError(t, err)

	steps, err := parseSteps(args)
	require.NoError(t, err)

	var out bytes.Buffer
	a, err := newApp(context.Background(), settings, &out, io.Discard)
	require.NoError(t, err)
	defer a.shutdown(context.Background())

	require.NoError(t, a.run(context.Background(), steps))
	return out.String()
}

func TestRun_Script(t *testing.T) {
	t.Parallel()

	src := writeFringes(t)
	dst := filepath.Join(t.TempDir(), "out.png")

	out := runScript(t, "open="+src, "cursor=1,0", "save="+dst, "close", "open="+dst, "unwrap", "close")

	assert.Contains(t, out, "cursor: busy\n")
	assert.Contains(t, out, "status: Loading image file\n")
	assert.Contains(t, out, "status: (1, 0) = 51\n")
	assert.FileExists(t, dst)

	sections := strings.Split(out, "> ")
	require.Len(t, sections, 8)

	assert.Contains(t, sections[1], "state: {data_loaded, file_open}\n")
	assert.Contains(t, sections[1], "[x] save\n")
	assert.Contains(t, sections[3], "state: {data_loaded, file_saved}\n")
	assert.Contains(t, sections[4], "state: {data_unloaded, file_closed}\n")
	assert.Contains(t, sections[4], "[x] open\n")
	assert.Contains(t, sections[4], "[ ] close\n")
	assert.Contains(t, sections[5], "state: {data_loaded, file_open}\n")
	assert.Contains(t, sections[6], "state: {data_processed}\n")
	assert.Contains(t, sections[6], "[ ] save\n")

	// close is disabled once processing has finished.
	assert.Contains(t, sections[7], "error: action disabled: close\n")
	assert.Contains(t, sections[7], "state: {data_processed}\n")
}

func TestRun_ReportsStepErrors(t *testing.T) {
	t.Parallel()

	out := runScript(t, "save="+filepath.Join(t.TempDir(), "x.png"))
	assert.Contains(t, out, "error: action disabled: save\n")
	assert.Contains(t, out, "state: {init}\n")
}

func TestRun_QuitStopsScript(t *testing.T) {
	t.Parallel()

	out := runScript(t, "quit", "close")
	assert.NotContains(t, out, "> close")
}

func TestNewApp_LenientVocabulary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		lenient   bool
		wantErr   bool
		wantState uistate.Set
	}{
		{name: "strict", wantErr: true, wantState: uistate.NewSet(uistate.Init)},
		{name: "lenient", lenient: true, wantState: uistate.NewSet(uistate.DataLoaded)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			settings, err := config.LoadSettings("")
			require.NoError(t, err)
			settings.State.LenientVocabulary = tt.lenient

			ctx := context.Background()
			a, err := newApp(ctx, settings, io.Discard, io.Discard)
			require.NoError(t, err)
			defer a.shutdown(ctx)

			err = a.engine.SetState(ctx, uistate.DataLoaded, uistate.StateFlag(200))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, tt.wantState.Equal(a.engine.State()), "got %s", a.engine.State())
		})
	}
}
