package imagefit

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/forPelevin/reelcut/internal/ports"
)

var _ ports.ImageFitter = Fitter{}

// Fitter scales images to cover the frame and crops the overflow centrally.
type Fitter struct{}

func (Fitter) Fit(src, dst string, w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("imagefit: invalid size %dx%d", w, h)
	}
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("imagefit: %w", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("imagefit: decode %s: %w", filepath.Base(src), err)
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(out, out.Bounds(), img, coverRect(img.Bounds(), w, h), draw.Src, nil)

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".fit-*.png")
	if err != nil {
		return fmt.Errorf("imagefit: %w", err)
	}
	if err := png.Encode(tmp, out); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("imagefit: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("imagefit: %w", err)
	}
	return os.Rename(tmp.Name(), dst)
}

// coverRect returns the centred part of b with the aspect ratio of w x h.
func coverRect(b image.Rectangle, w, h int) image.Rectangle {
	bw, bh := b.Dx(), b.Dy()
	if bw <= 0 || bh <= 0 {
		return b
	}
	// compare bw/bh with w/h without floats
	if bw*h > bh*w {
		cw := bh * w / h
		x0 := b.Min.X + (bw-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := bw * h / w
	y0 := b.Min.Y + (bh-ch)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}
