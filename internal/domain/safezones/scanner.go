package safezones

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

const (
	defaultWorkers     = 4
	defaultDetectWidth = 540
)

// Scanner builds a SafeZoneMap by running face detection on sampled frames.
type Scanner struct {
	Video    ports.VideoTool
	Detector ports.FaceDetector
	// Interval samples every Interval-th frame. Zero means DefaultInterval.
	Interval int
	// Workers bounds concurrent detections. Zero means four.
	Workers int
	// DetectWidth downscales frames before detection. Zero means 540.
	DetectWidth int
}

type detection struct {
	index int
	time  float64
	faces []types.Rect
}

// Scan returns the map and the number of frames whose detection failed.
// Failed frames are scored as if they had no faces.
func (s Scanner) Scan(ctx context.Context, path string, info types.VideoInfo) (types.SafeZoneMap, int, error) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	workers := s.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	m := types.SafeZoneMap{Width: info.Width, Height: info.Height, FPS: info.FPS, Interval: interval}
	if info.Width <= 0 || info.Height <= 0 {
		return m, 0, fmt.Errorf("scan safe zones: invalid frame %dx%d", info.Width, info.Height)
	}
	dw, dh := detectSize(info.Width, info.Height, s.DetectWidth)
	scale := float64(info.Width) / float64(dw)

	var (
		mu     sync.Mutex
		found  []detection
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	sampleErr := s.Video.SampleFrames(gctx, path, interval, dw, dh, info.FPS, func(f types.GrayFrame) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			faces, err := s.Detector.Detect(gctx, f)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed++
				faces = nil
			}
			found = append(found, detection{index: f.Index, time: f.Time, faces: scaleRects(faces, scale)})
			return nil
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return m, failed, fmt.Errorf("scan safe zones: %w", err)
	}
	if sampleErr != nil {
		return m, failed, fmt.Errorf("scan safe zones: %w", sampleErr)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].index < found[j].index })
	m.Samples = make([]types.SafeZoneSample, 0, len(found))
	for _, d := range found {
		m.Samples = append(m.Samples, types.SafeZoneSample{
			Time:  d.time,
			Zones: Compute(info.Width, info.Height, d.faces),
		})
	}
	return m, failed, nil
}

// detectSize keeps the aspect ratio and even dimensions.
func detectSize(w, h, target int) (int, int) {
	if target <= 0 {
		target = defaultDetectWidth
	}
	if w <= target {
		return w, h
	}
	dh := int(float64(h)*float64(target)/float64(w)+0.5) &^ 1
	if dh <= 0 {
		dh = 2
	}
	return target &^ 1, dh
}

func scaleRects(rs []types.Rect, f float64) []types.Rect {
	if f == 1 || len(rs) == 0 {
		return rs
	}
	out := make([]types.Rect, len(rs))
	for i, r := range rs {
		out[i] = types.Rect{
			X: int(float64(r.X) * f),
			Y: int(float64(r.Y) * f),
			W: int(float64(r.W) * f),
			H: int(float64(r.H) * f),
		}
	}
	return out
}
