package workflow

import (
	"errors"
	"fmt"
)

// ErrSizeMismatch is returned when two images that must align differ in size.
var ErrSizeMismatch = errors.New("image sizes differ")

// Image is a single-channel image stored row-major.
type Image struct {
	Width  int
	Height int
	Pix    []float64
}

// NewImage returns a zeroed width x height image.
func NewImage(width, height int) *Image {
	return &Image{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the value at (x, y) and whether the point lies inside the image.
func (img *Image) At(x, y int) (float64, bool) {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return 0, false
	}
	return img.Pix[y*img.Width+x], true
}

// Set stores v at (x, y). Points outside the image are ignored.
func (img *Image) Set(x, y int, v float64) {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return
	}
	img.Pix[y*img.Width+x] = v
}

// ValueAt formats the cursor readout for (x, y).
func (img *Image) ValueAt(x, y int) string {
	v, ok := img.At(x, y)
	if !ok {
		return "Out of range!"
	}
	return fmt.Sprintf("(%d, %d) = %g", x, y, v)
}

// Clone returns a deep copy.
func (img *Image) Clone() *Image {
	out := &Image{Width: img.Width, Height: img.Height, Pix: make([]float64, len(img.Pix))}
	copy(out.Pix, img.Pix)
	return out
}

// ApplyMask multiplies img by mask/255, keeping pixels where the mask is white.
func (img *Image) ApplyMask(mask *Image) (*Image, error) {
	if mask.Width != img.Width || mask.Height != img.Height {
		return nil, fmt.Errorf("%w: image %dx%d, mask %dx%d",
			ErrSizeMismatch, img.Width, img.Height, mask.Width, mask.Height)
	}
	out := img.Clone()
	for i, m := range mask.Pix {
		out.Pix[i] *= m / 255
	}
	return out, nil
}
