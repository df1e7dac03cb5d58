package pigo

import (
	"context"
	"fmt"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

var _ ports.FaceDetector = (*Detector)(nil)

const (
	defaultMinQuality = 5.0
	iouThreshold      = 0.2
)

// Detector finds frontal faces with a pigo cascade. It is safe for
// concurrent use.
type Detector struct {
	classifier *pigo.Pigo
	minQuality float32
}

// New loads the facefinder cascade at cascadePath.
func New(cascadePath string, minQuality float64) (*Detector, error) {
	b, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("read cascade: %w", err)
	}
	classifier, err := pigo.NewPigo().Unpack(b)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}
	if minQuality <= 0 {
		minQuality = defaultMinQuality
	}
	return &Detector{classifier: classifier, minQuality: float32(minQuality)}, nil
}

func (d *Detector) Detect(ctx context.Context, frame types.GrayFrame) ([]types.Rect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Pix) < frame.Width*frame.Height {
		return nil, fmt.Errorf("pigo: invalid frame %dx%d with %d bytes", frame.Width, frame.Height, len(frame.Pix))
	}
	params := pigo.CascadeParams{
		MinSize:     minSide(frame) / 10,
		MaxSize:     minSide(frame),
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: frame.Pix,
			Rows:   frame.Height,
			Cols:   frame.Width,
			Dim:    frame.Width,
		},
	}
	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, iouThreshold)
	return toRects(dets, d.minQuality, frame.Width, frame.Height), nil
}

func toRects(dets []pigo.Detection, minQuality float32, w, h int) []types.Rect {
	var out []types.Rect
	for _, det := range dets {
		if det.Q < minQuality || det.Scale <= 0 {
			continue
		}
		r := types.Rect{
			X: det.Col - det.Scale/2,
			Y: det.Row - det.Scale/2,
			W: det.Scale,
			H: det.Scale,
		}
		out = append(out, clip(r, w, h))
	}
	return out
}

func clip(r types.Rect, w, h int) types.Rect {
	if r.X < 0 {
		r.W += r.X
		r.X = 0
	}
	if r.Y < 0 {
		r.H += r.Y
		r.Y = 0
	}
	if r.X+r.W > w {
		r.W = w - r.X
	}
	if r.Y+r.H > h {
		r.H = h - r.Y
	}
	return r
}

func minSide(f types.GrayFrame) int {
	if f.Width < f.Height {
		return f.Width
	}
	return f.Height
}
