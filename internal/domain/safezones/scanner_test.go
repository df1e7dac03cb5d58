package safezones

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

type frameSource struct {
	ports.VideoTool
	frames int
	err    error
	gotW   int
	gotH   int
}

func (f *frameSource) SampleFrames(ctx context.Context, in string, interval, width, height int, fps float64, fn func(types.GrayFrame) error) error {
	f.gotW, f.gotH = width, height
	for k := 0; k < f.frames; k++ {
		idx := k * interval
		if err := fn(types.GrayFrame{Index: idx, Time: float64(idx) / fps, Width: width, Height: height}); err != nil {
			return err
		}
	}
	return f.err
}

// faceOnOddSamples reports a face covering the top-left cell on every other sample.
type faceOnOddSamples struct {
	calls atomic.Int32
	fail  int
}

func (d *faceOnOddSamples) Detect(ctx context.Context, f types.GrayFrame) ([]types.Rect, error) {
	d.calls.Add(1)
	if d.fail > 0 && f.Index == d.fail {
		return nil, errors.New("detector hiccup")
	}
	if (f.Index/5)%2 == 1 {
		return []types.Rect{{X: 0, Y: 0, W: f.Width / 3, H: f.Height / 3}}, nil
	}
	return nil, nil
}

func TestScan_OrderedSamplesAndScaledFaces(t *testing.T) {
	src := &frameSource{frames: 12}
	det := &faceOnOddSamples{}
	s := Scanner{Video: src, Detector: det, Workers: 3, DetectWidth: 540}
	info := types.VideoInfo{Width: 1080, Height: 1920, FPS: 25}

	m, failed, err := s.Scan(context.Background(), "in.mp4", info)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if failed != 0 {
		t.Fatalf("failed = %d", failed)
	}
	if src.gotW != 540 || src.gotH != 960 {
		t.Fatalf("detect size = %dx%d", src.gotW, src.gotH)
	}
	if len(m.Samples) != 12 || m.Interval != DefaultInterval {
		t.Fatalf("samples = %d interval = %d", len(m.Samples), m.Interval)
	}
	for i := 1; i < len(m.Samples); i++ {
		if m.Samples[i].Time <= m.Samples[i-1].Time {
			t.Fatalf("samples not ascending at %d", i)
		}
	}
	// odd samples carry a face on the top-left cell, scaled back to 1080x1920
	for i, smp := range m.Samples {
		last := smp.Zones[len(smp.Zones)-1]
		topLeft := last.X == 0 && last.Y == 0
		if i%2 == 1 && (!topLeft || last.Score != 0) {
			t.Fatalf("sample %d: expected top-left zone last with score 0, got %+v", i, last)
		}
	}
}

func TestScan_DetectorErrorsAreCounted(t *testing.T) {
	src := &frameSource{frames: 4}
	s := Scanner{Video: src, Detector: &faceOnOddSamples{fail: 10}, Workers: 1}
	m, failed, err := s.Scan(context.Background(), "in.mp4", types.VideoInfo{Width: 300, Height: 300, FPS: 10})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if failed != 1 || len(m.Samples) != 4 {
		t.Fatalf("failed = %d samples = %d", failed, len(m.Samples))
	}
}

func TestScan_SamplingError(t *testing.T) {
	src := &frameSource{frames: 2, err: errors.New("ffmpeg died")}
	s := Scanner{Video: src, Detector: &faceOnOddSamples{}}
	if _, _, err := s.Scan(context.Background(), "in.mp4", types.VideoInfo{Width: 100, Height: 100, FPS: 10}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestScan_InvalidFrame(t *testing.T) {
	s := Scanner{Video: &frameSource{}, Detector: &faceOnOddSamples{}}
	if _, _, err := s.Scan(context.Background(), "in.mp4", types.VideoInfo{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDetectSize(t *testing.T) {
	tests := []struct{ w, h, target, ww, wh int }{
		{1080, 1920, 540, 540, 960},
		{320, 240, 540, 320, 240},
		{1920, 1080, 0, 540, 304},
	}
	for _, tt := range tests {
		w, h := detectSize(tt.w, tt.h, tt.target)
		if w != tt.ww || h != tt.wh {
			t.Fatalf("detectSize(%d,%d,%d) = %dx%d, want %dx%d", tt.w, tt.h, tt.target, w, h, tt.ww, tt.wh)
		}
	}
}
