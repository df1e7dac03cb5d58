// Package render assembles the final video from a render plan: backbone
// clips, caption overlay, then the original audio track muxed back in.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/reelcut/internal/domain/safezones"
	"github.com/forPelevin/reelcut/internal/domain/subtitles"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

var (
	ErrNoVideoStream = errors.New("render: source has no video stream")
	ErrZeroDuration  = errors.New("render: source has zero duration")
	ErrEmptyPlan     = errors.New("render: plan has no backbone entries")
)

const fadeDuration = 0.15

var transitions = []types.Transition{
	types.TransitionFade,
	types.TransitionZoom,
	types.TransitionSlideLeft,
	types.TransitionSlideRight,
	types.TransitionWipe,
}

// Job is one render. Plan holds backbone and text overlay entries as built by
// the timeline builder.
type Job struct {
	Source    string
	Plan      []types.PlanEntry
	SafeZones types.SafeZoneMap
	Output    string
	WorkDir   string
}

type Result struct {
	Output           string
	Info             types.VideoInfo
	Clips            int
	ImagesRendered   int
	ImagesSkipped    int
	Captions         int
	CaptionsDisabled bool
}

type Options struct {
	// FontFile, when set, must exist or captions are disabled.
	FontFile string
	FontsDir string
	Style    subtitles.Style
}

type Engine struct {
	video  ports.VideoTool
	fitter ports.ImageFitter
	log    *slog.Logger
	opts   Options
}

func New(video ports.VideoTool, fitter ports.ImageFitter, log *slog.Logger, opts Options) *Engine {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Style.FontSize <= 0 {
		opts.Style = subtitles.DefaultStyle()
	}
	if opts.FontsDir == "" && opts.FontFile != "" {
		opts.FontsDir = filepath.Dir(opts.FontFile)
	}
	return &Engine{video: video, fitter: fitter, log: log, opts: opts}
}

func (e *Engine) Render(ctx context.Context, job Job) (Result, error) {
	if err := os.MkdirAll(job.WorkDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("render: %w", err)
	}
	info, err := e.video.Probe(ctx, job.Source)
	if err != nil {
		return Result{}, fmt.Errorf("render probe: %w", err)
	}
	switch {
	case info.Width <= 0 || info.Height <= 0:
		return Result{}, ErrNoVideoStream
	case info.Duration <= 0:
		return Result{}, ErrZeroDuration
	}
	res := Result{Output: job.Output, Info: info}

	audio := ""
	if info.HasAudio {
		audio = filepath.Join(job.WorkDir, "audio.mka")
		if err := e.video.ExtractAudio(ctx, job.Source, audio); err != nil {
			return Result{}, fmt.Errorf("render: %w", err)
		}
	}

	var backbone, overlays []types.PlanEntry
	for _, en := range job.Plan {
		if en.Type.IsBackbone() {
			backbone = append(backbone, en)
		} else {
			overlays = append(overlays, en)
		}
	}
	if len(backbone) == 0 {
		return Result{}, ErrEmptyPlan
	}

	clips, skipped := e.prepare(job.WorkDir, backbone, info)
	clips, dropped := carryShort(clips, frameDuration(info.FPS))
	if dropped > 0 {
		e.log.Warn("images shorter than one frame skipped", "count", dropped)
	}
	res.ImagesSkipped = skipped + dropped

	parts := make([]string, 0, len(clips))
	imageIdx := 0
	for i, c := range clips {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		out := filepath.Join(job.WorkDir, fmt.Sprintf("clip_%03d.mp4", i))
		if c.image != "" {
			tr := transitions[imageIdx%len(transitions)]
			imageIdx++
			if err := e.video.ImageClip(ctx, c.image, c.end-c.start, info, tr, out); err != nil {
				return Result{}, fmt.Errorf("render clip %d: %w", i, err)
			}
			res.ImagesRendered++
		} else {
			fade := ports.Fade{
				In:       i == 0 || clips[i-1].image != "",
				Out:      i+1 < len(clips) && clips[i+1].image != "",
				Duration: fadeDuration,
			}
			if err := e.video.TrimVideo(ctx, job.Source, c.start, c.end, fade, out); err != nil {
				return Result{}, fmt.Errorf("render clip %d: %w", i, err)
			}
		}
		parts = append(parts, out)
	}
	res.Clips = len(parts)

	video := filepath.Join(job.WorkDir, "video.mp4")
	if err := e.video.Concat(ctx, parts, video); err != nil {
		return Result{}, fmt.Errorf("render: %w", err)
	}

	video, res.Captions, res.CaptionsDisabled, err = e.captions(ctx, job, info, overlays, video)
	if err != nil {
		return Result{}, err
	}

	if audio == "" {
		e.log.Warn("source has no audio, rendering video only", "source", job.Source)
		if err := copyFile(video, job.Output); err != nil {
			return Result{}, fmt.Errorf("render: %w", err)
		}
		return res, nil
	}
	if err := e.video.MuxAudio(ctx, video, audio, job.Output); err != nil {
		return Result{}, fmt.Errorf("render: %w", err)
	}
	return res, nil
}

func (e *Engine) captions(ctx context.Context, job Job, info types.VideoInfo, overlays []types.PlanEntry, video string) (string, int, bool, error) {
	caps := make([]subtitles.Caption, 0, len(overlays))
	for _, en := range overlays {
		if strings.TrimSpace(en.Data.Text) == "" {
			continue
		}
		x, y := safezones.TextAnchor(job.SafeZones, en.Start, en.End, info.Width, info.Height)
		caps = append(caps, subtitles.Caption{
			Start:            en.Start,
			End:              en.End,
			Text:             en.Data.Text,
			Sentiment:        en.Data.Sentiment,
			FontSizeModifier: en.Data.FontSizeModifier,
			EmphasisWords:    en.Data.EmphasisWords,
			X:                x,
			Y:                y,
		})
	}
	if len(caps) == 0 {
		return video, 0, false, nil
	}
	if e.opts.FontFile != "" {
		if _, err := os.Stat(e.opts.FontFile); err != nil {
			e.log.Warn("caption font unavailable, captions disabled", "font", e.opts.FontFile, "err", err)
			return video, 0, true, nil
		}
	}

	assPath := filepath.Join(job.WorkDir, "captions.ass")
	doc := subtitles.RenderASS(caps, info.Width, info.Height, e.opts.Style)
	if err := os.WriteFile(assPath, []byte(doc), 0o644); err != nil {
		return "", 0, false, fmt.Errorf("render captions: %w", err)
	}
	out := filepath.Join(job.WorkDir, "captioned.mp4")
	if err := e.video.BurnSubtitles(ctx, video, assPath, e.opts.FontsDir, out); err != nil {
		return "", 0, false, fmt.Errorf("render: %w", err)
	}
	return out, len(caps), false, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
