package ports

import (
	"context"

	"github.com/forPelevin/reelcut/internal/types"
)

// Fade selects the fades applied to a trimmed clip.
type Fade struct {
	In       bool
	Out      bool
	Duration float64
}

type VideoTool interface {
	Probe(ctx context.Context, in string) (types.VideoInfo, error)
	ExtractAudio(ctx context.Context, in, out string) error
	ExtractAudioMono16k(ctx context.Context, in, outWav string) error
	TrimVideo(ctx context.Context, in string, start, end float64, fade Fade, out string) error
	ImageClip(ctx context.Context, image string, duration float64, info types.VideoInfo, tr types.Transition, out string) error
	Concat(ctx context.Context, parts []string, out string) error
	BurnSubtitles(ctx context.Context, in, assPath, fontsDir, out string) error
	MuxAudio(ctx context.Context, video, audio, out string) error
	// SampleFrames decodes every interval-th frame as width x height luma and
	// hands it to fn in source order.
	SampleFrames(ctx context.Context, in string, interval, width, height int, fps float64, fn func(types.GrayFrame) error) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, workDir string) (types.Transcript, error)
}

type ContentScorer interface {
	Score(ctx context.Context, text, before, after string) (types.Analysis, error)
}

type CaptionSummarizer interface {
	Summarize(ctx context.Context, text string, maxLen int) (types.Caption, error)
}

// ImageGenerator writes an image for prompt to outPath. An empty path with a
// nil error means the backend declined to produce one.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, outPath string) (string, error)
}

type FaceDetector interface {
	Detect(ctx context.Context, frame types.GrayFrame) ([]types.Rect, error)
}

// ImageFitter decodes src and writes it to dst resized to exactly w x h.
type ImageFitter interface {
	Fit(src, dst string, w, h int) error
}
