package workflow

import (
	"context"

	progressreporter "github.com/ahrav/fringeproc/internal/infra/progress_reporter"
	"github.com/ahrav/fringeproc/internal/infra/uiloop"
)

// Loader reads image data from a path.
type Loader interface {
	Load(ctx context.Context, path string) (*Image, error)
}

// Writer stores image data at a path.
type Writer interface {
	Write(ctx context.Context, path string, img *Image) error
}

// ProgressFunc receives progress from a running computation. It may be called
// from any goroutine.
type ProgressFunc func(done, total int)

// Processor performs the phase computations. Implementations run off the UI
// goroutine and must honour ctx cancellation.
type Processor interface {
	Unwrap(ctx context.Context, img *Image, progress ProgressFunc) (*Image, error)
	Demodulate(ctx context.Context, img *Image, progress ProgressFunc) (*Image, error)
}

// Poster schedules work on the UI goroutine.
type Poster interface {
	Post(fn uiloop.Task) bool
}

// ProgressSink receives throttled progress updates.
type ProgressSink interface {
	ReportProgress(ctx context.Context, p progressreporter.Progress) bool
}
