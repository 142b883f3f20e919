// Package phase provides a row-by-row phase processor for fringe images.
package phase

import (
	"context"
	"math"

	"github.com/ahrav/fringeproc/internal/app/workflow"
)

var _ workflow.Processor = (*RowProcessor)(nil)

// RowProcessor processes images one row at a time, reporting progress per row
// and checking for cancellation between rows.
type RowProcessor struct{}

// NewRowProcessor returns a RowProcessor.
func NewRowProcessor() *RowProcessor { return &RowProcessor{} }

// Unwrap removes 2π discontinuities along each row. Pixel values are taken to
// be wrapped phases in radians.
func (p *RowProcessor) Unwrap(ctx context.Context, img *workflow.Image, progress workflow.ProgressFunc) (*workflow.Image, error) {
	out := workflow.NewImage(img.Width, img.Height)
	return out, eachRow(ctx, img.Height, progress, func(y int) {
		base := y * img.Width
		offset := 0.0
		for x := 0; x < img.Width; x++ {
			v := img.Pix[base+x]
			if x > 0 {
				d := v - img.Pix[base+x-1]
				offset -= 2 * math.Pi * math.Round(d/(2*math.Pi))
			}
			out.Pix[base+x] = v + offset
		}
	})
}

// Demodulate maps intensities onto wrapped phases in [-π, π] using the
// image's own intensity range.
func (p *RowProcessor) Demodulate(ctx context.Context, img *workflow.Image, progress workflow.ProgressFunc) (*workflow.Image, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range img.Pix {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	out := workflow.NewImage(img.Width, img.Height)
	return out, eachRow(ctx, img.Height, progress, func(y int) {
		base := y * img.Width
		for x := 0; x < img.Width; x++ {
			c := 2*(img.Pix[base+x]-lo)/span - 1
			out.Pix[base+x] = math.Acos(math.Max(-1, math.Min(1, c))) - math.Pi/2
		}
	})
}

func eachRow(ctx context.Context, rows int, progress workflow.ProgressFunc, fn func(y int)) error {
	for y := 0; y < rows; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(y)
		if progress != nil {
			progress(y+1, rows)
		}
	}
	return nil
}
