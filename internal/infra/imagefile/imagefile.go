// Package imagefile reads and writes grayscale image files for the workflow.
package imagefile

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // JPEG decoder.
	"image/png"
	"math"
	"os"

	"github.com/ahrav/fringeproc/internal/app/workflow"
)

// ErrEmptyImage is returned when writing an image without pixels. PNG cannot
// encode it.
var ErrEmptyImage = errors.New("empty image")

var (
	_ workflow.Loader = (*Store)(nil)
	_ workflow.Writer = (*Store)(nil)
)

// Store loads PNG and JPEG files as luminance in [0, 255] and writes PNG.
type Store struct{}

// New returns a Store.
func New() *Store { return &Store{} }

// Load decodes the image at path.
func (s *Store) Load(ctx context.Context, path string) (*workflow.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	b := src.Bounds()
	img := workflow.NewImage(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(src.At(x, y)).(color.Gray)
			img.Set(x-b.Min.X, y-b.Min.Y, float64(g.Y))
		}
	}
	return img, nil
}

// Write encodes img as an 8-bit grayscale PNG, rescaling its value range to [0, 255].
func (s *Store) Write(ctx context.Context, path string, img *workflow.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("write %s: %w: %dx%d", path, ErrEmptyImage, img.Width, img.Height)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range img.Pix {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	scale := 1.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}

	out := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v, _ := img.At(x, y)
			out.SetGray(x, y, color.Gray{Y: uint8(math.Round((v - lo) * scale))})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
