package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/reelcut/internal/cache"
	"github.com/forPelevin/reelcut/internal/domain/phrases"
	"github.com/forPelevin/reelcut/internal/domain/prompts"
	"github.com/forPelevin/reelcut/internal/domain/safezones"
	"github.com/forPelevin/reelcut/internal/domain/selection"
	"github.com/forPelevin/reelcut/internal/domain/timeline"
	"github.com/forPelevin/reelcut/internal/types"
)

const defaultScoreWorkers = 4

// transcribe returns an empty transcript when extraction or the transcriber
// fails; only cancellation is fatal.
func (r *run) transcribe(ctx context.Context, in Input, info types.VideoInfo) (types.Transcript, error) {
	var tr types.Transcript
	if !info.HasAudio {
		r.log.Warn("source has no audio, skipping transcription")
		return tr, nil
	}
	key, keyErr := cache.FileKey(in.InputMP4, "transcript", in.ASRName)
	if keyErr == nil && cache.GetJSON(r.u.d.Cache, cache.Transcriptions, key, &tr) {
		r.log.Info("transcript cache hit", "segments", len(tr.Segments))
		return tr, nil
	}

	wav := filepath.Join(in.WorkDir, "audio.wav")
	err := r.u.d.Video.ExtractAudioMono16k(ctx, in.InputMP4, wav)
	if err == nil {
		tr, err = r.u.d.ASR.Transcribe(ctx, wav, in.WorkDir)
	}
	if err != nil {
		if ctx.Err() != nil {
			return types.Transcript{}, ctx.Err()
		}
		r.log.Warn("transcription failed, continuing without captions", "err", err)
		r.report.Warnings.TranscriptionFailed++
		return types.Transcript{}, nil
	}
	r.log.Info("transcribed", "segments", len(tr.Segments), "language", tr.Language)
	if keyErr == nil {
		if err := cache.PutJSON(r.u.d.Cache, cache.Transcriptions, key, tr); err != nil {
			r.log.Warn("cache write failed", "category", cache.Transcriptions, "err", err)
		}
	}
	return tr, nil
}

// analyze scores every segment. Failed calls fall back to "no image".
func (r *run) analyze(ctx context.Context, in Input, segs []types.SpeechSegment) ([]types.Analysis, error) {
	results := make([]types.Analysis, len(segs))
	var fallbacks atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(in.ScoreWorkers))
	for i, s := range segs {
		g.Go(func() error {
			a := types.Analysis{}
			if strings.TrimSpace(s.Text) != "" {
				before, after := selection.Context(segs, i, in.ContextWindow)
				var ok bool
				a, ok = r.score(gctx, in.ScorerName, s.Text, before, after)
				if !ok {
					if err := gctx.Err(); err != nil {
						return err
					}
					fallbacks.Add(1)
				}
			}
			a.SegmentID = s.ID
			a.StartTime = s.Start
			a.EndTime = s.End
			a.OriginalText = s.Text
			results[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r.report.Warnings.AnalysisFallbacks = int(fallbacks.Load())
	flagged := 0
	for _, a := range results {
		if a.NeedsVisualization {
			flagged++
		}
	}
	r.log.Info("analyzed", "segments", len(results), "flagged", flagged, "fallbacks", fallbacks.Load())
	return results, nil
}

func (r *run) score(ctx context.Context, backend, text, before, after string) (types.Analysis, bool) {
	key := cache.Key("analysis", backend, text, before, after)
	var a types.Analysis
	if cache.GetJSON(r.u.d.Cache, cache.Analysis, key, &a) {
		return a, true
	}
	a, err := r.u.d.Scorer.Score(ctx, text, before, after)
	if err != nil {
		r.log.Warn("analysis fallback", "err", err)
		return types.Analysis{NeedsVisualization: false, ImportanceScore: 0}, false
	}
	if err := cache.PutJSON(r.u.d.Cache, cache.Analysis, key, a); err != nil {
		r.log.Warn("cache write failed", "category", cache.Analysis, "err", err)
	}
	return a, true
}

// captions groups segments into phrases and adds one text segment per phrase.
func (r *run) captions(ctx context.Context, in Input, segs []types.SpeechSegment, b *timeline.Builder) error {
	ps := phrases.Build(segs, in.PhraseMaxDuration)
	caps := make([]*types.Caption, len(ps))
	var fallbacks atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(in.ScoreWorkers))
	for i, p := range ps {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		g.Go(func() error {
			c, ok := r.summarize(gctx, in.ScorerName, p.Text, in.CaptionMaxLen)
			if !ok {
				if err := gctx.Err(); err != nil {
					return err
				}
				fallbacks.Add(1)
			}
			caps[i] = &c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, p := range ps {
		c := caps[i]
		if c == nil || strings.TrimSpace(c.Text) == "" {
			continue
		}
		if err := b.AddText(p.Start, p.End, types.SegmentData{
			Text:             c.Text,
			Sentiment:        c.Sentiment,
			FontSizeModifier: c.FontSizeModifier,
			EmphasisWords:    c.EmphasisWords,
		}); err != nil {
			r.log.Warn("caption dropped", "start", p.Start, "end", p.End, "err", err)
		}
	}
	r.report.Warnings.CaptionFallbacks = int(fallbacks.Load())
	r.log.Info("captions built", "phrases", len(ps), "fallbacks", fallbacks.Load())
	return nil
}

func (r *run) summarize(ctx context.Context, backend, text string, maxLen int) (types.Caption, bool) {
	if maxLen <= 0 {
		maxLen = prompts.MaxTextLength
	}
	key := cache.Key("caption", backend, text, strconv.Itoa(maxLen))
	var c types.Caption
	if cache.GetJSON(r.u.d.Cache, cache.Captions, key, &c) {
		return c, true
	}
	c, err := r.u.d.Summarizer.Summarize(ctx, text, maxLen)
	if err != nil {
		r.log.Warn("caption fallback", "err", err)
		return prompts.FallbackCaption(text, maxLen), false
	}
	if err := cache.PutJSON(r.u.d.Cache, cache.Captions, key, c); err != nil {
		r.log.Warn("cache write failed", "category", cache.Captions, "err", err)
	}
	return c, true
}

// faces builds the safe-zone map. Detection problems degrade to an empty map.
func (r *run) faces(ctx context.Context, in Input, info types.VideoInfo) types.SafeZoneMap {
	if r.u.d.Faces == nil {
		r.log.Info("face detection disabled")
		return types.SafeZoneMap{Width: info.Width, Height: info.Height, FPS: info.FPS}
	}
	key, keyErr := faceKey(in.InputMP4, in.FaceName, in.ScanInterval)
	var m types.SafeZoneMap
	if keyErr == nil && cache.GetJSON(r.u.d.Cache, cache.FaceDetection, key, &m) {
		r.log.Info("safe zone cache hit", "samples", len(m.Samples))
		return m
	}

	sc := safezones.Scanner{
		Video:    r.u.d.Video,
		Detector: r.u.d.Faces,
		Interval: in.ScanInterval,
		Workers:  in.ScanWorkers,
	}
	m, failed, err := sc.Scan(ctx, in.InputMP4, info)
	r.report.Warnings.FaceFrameFailures = failed
	if err != nil {
		r.log.Warn("face scan failed, captions use the default anchor", "err", err)
		r.report.Warnings.SafeZonesMissing = true
		return types.SafeZoneMap{Width: info.Width, Height: info.Height, FPS: info.FPS}
	}
	r.log.Info("faces scanned", "samples", len(m.Samples), "failed_frames", failed)
	if keyErr == nil && failed == 0 {
		if err := cache.PutJSON(r.u.d.Cache, cache.FaceDetection, key, m); err != nil {
			r.log.Warn("cache write failed", "category", cache.FaceDetection, "err", err)
		}
	}
	return m
}

func faceKey(input, detector string, interval int) (string, error) {
	if interval <= 0 {
		interval = safezones.DefaultInterval
	}
	return cache.FileKey(input, "faces", detector, strconv.Itoa(interval))
}

// images generates inserts for the selected segments, in time order.
func (r *run) images(ctx context.Context, in Input, selected []types.Analysis, b *timeline.Builder) error {
	if r.u.d.Images == nil {
		if len(selected) > 0 {
			r.log.Info("image generation disabled", "selected", len(selected))
		}
		return nil
	}
	dur := in.ImageDuration
	if dur <= 0 {
		dur = DefaultImageDuration
	}
	dir := filepath.Join(in.WorkDir, "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	ordered := append([]types.Analysis(nil), selected...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StartTime < ordered[j].StartTime })
	for _, a := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		prompt := strings.TrimSpace(a.ImagePrompt)
		if prompt == "" {
			prompt = fallbackPrompt(a.OriginalText)
		}
		out := filepath.Join(dir, fmt.Sprintf("segment_%04d.png", a.SegmentID))
		path, err := r.image(ctx, prompt, out)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Warn("image generation failed", "segment", a.SegmentID, "err", err)
			r.report.Warnings.ImagesFailed++
			continue
		case path == "":
			r.log.Warn("image generator returned nothing", "segment", a.SegmentID)
			r.report.Warnings.ImagesSkipped++
			continue
		}
		if err := b.AddAIImage(a.StartTime, a.StartTime+dur, path, a); err != nil {
			r.log.Warn("image dropped", "segment", a.SegmentID, "err", err)
			r.report.Warnings.ImagesSkipped++
			continue
		}
		r.report.Images = append(r.report.Images, types.ReportImage{
			SegmentID: a.SegmentID,
			Start:     a.StartTime,
			End:       a.StartTime + dur,
			Score:     a.ImportanceScore,
			Path:      path,
		})
	}
	r.log.Info("images generated", "selected", len(selected), "added", len(r.report.Images))
	return nil
}

// image serves prompt from the image cache or the generator.
func (r *run) image(ctx context.Context, prompt, out string) (string, error) {
	key := cache.Key("image", prompt)
	if b, ok, err := r.u.d.Cache.Get(cache.Images, key); err == nil && ok && len(b) > 0 {
		if err := os.WriteFile(out, b, 0o644); err == nil {
			return out, nil
		}
	}
	path, err := r.u.d.Images.Generate(ctx, prompt, out)
	if err != nil || path == "" {
		return path, err
	}
	if b, err := os.ReadFile(path); err == nil {
		if err := r.u.d.Cache.Put(cache.Images, key, b); err != nil {
			r.log.Warn("cache write failed", "category", cache.Images, "err", err)
		}
	}
	return path, nil
}

func fallbackPrompt(text string) string {
	return "A clear, photorealistic illustration of: " + strings.TrimSpace(text)
}

func workers(n int) int {
	if n <= 0 {
		return defaultScoreWorkers
	}
	return n
}
