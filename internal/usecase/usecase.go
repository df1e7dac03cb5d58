package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/forPelevin/reelcut/internal/cache"
	"github.com/forPelevin/reelcut/internal/domain/safezones"
	"github.com/forPelevin/reelcut/internal/domain/selection"
	"github.com/forPelevin/reelcut/internal/domain/timeline"
	"github.com/forPelevin/reelcut/internal/platform/logger"
	"github.com/forPelevin/reelcut/internal/platform/metrics"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/render"
	"github.com/forPelevin/reelcut/internal/types"
)

type Deps struct {
	Video      ports.VideoTool
	ASR        ports.Transcriber
	Scorer     ports.ContentScorer
	Summarizer ports.CaptionSummarizer
	// Images may be nil, which disables generated inserts.
	Images ports.ImageGenerator
	// Faces may be nil, which leaves captions at the default anchor.
	Faces   ports.FaceDetector
	Fitter  ports.ImageFitter
	Cache   cache.Store
	Metrics *metrics.Metrics
	Log     *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Cache == nil {
		d.Cache = cache.Nop{}
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	return Usecase{d: d}
}

type CustomImage struct {
	Start float64
	End   float64
	Path  string
}

type Input struct {
	InputMP4 string
	WorkDir  string
	OutDir   string
	Output   string
	RunID    string

	// Backend names namespace cache entries.
	ASRName    string
	ScorerName string
	FaceName   string

	PhraseMaxDuration float64
	Policy            selection.Policy
	ContextWindow     int
	CaptionMaxLen     int
	ImageDuration     float64
	CustomImages      []CustomImage

	ScanInterval int
	ScanWorkers  int
	ScoreWorkers int

	Render render.Options
}

type ResumeInput struct {
	InputMP4 string
	WorkDir  string
	OutDir   string
	Output   string
	RunID    string

	TimelinePath string
	// SafeZonesPath is optional; the face detection cache is tried next.
	SafeZonesPath string
	FaceName      string
	ScanInterval  int

	Render render.Options
}

type Result struct {
	Output        string
	Report        types.Report
	Timeline      *timeline.Builder
	SafeZones     types.SafeZoneMap
	TimelinePath  string
	SafeZonesPath string
}

const DefaultImageDuration = 2.0

// run carries per-invocation state so concurrent runs share nothing but Deps.
type run struct {
	u      Usecase
	log    *slog.Logger
	report types.Report
}

func (u Usecase) newRun(mode, runID, input, output string) *run {
	return &run{
		u:   u,
		log: u.d.Log.With("run", runID),
		report: types.Report{
			RunID:  runID,
			Mode:   mode,
			Input:  input,
			Output: output,
		},
	}
}

// phase checks for cancellation, then times fn.
func (r *run) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := checkpoint(ctx, name); err != nil {
		return err
	}
	r.log.Info("phase started", "phase", name)
	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)
	r.report.Phases = append(r.report.Phases, types.PhaseTiming{Name: name, Seconds: d.Seconds()})
	r.u.d.Metrics.ObservePhase(name, d)
	if err != nil {
		r.log.Error("phase failed", "phase", name, "err", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	r.log.Info("phase finished", "phase", name, "seconds", d.Seconds())
	return nil
}

func checkpoint(ctx context.Context, next string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled before %s: %w", next, err)
	}
	return nil
}

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	r := u.newRun("full", in.RunID, in.InputMP4, in.Output)
	b := timeline.New()
	var (
		info    types.VideoInfo
		tr      types.Transcript
		results []types.Analysis
		zones   types.SafeZoneMap
		plan    []types.PlanEntry
	)

	if err := r.phase(ctx, "probe", func(ctx context.Context) error {
		var err error
		info, err = u.probe(ctx, in.InputMP4)
		return err
	}); err != nil {
		return Result{}, err
	}
	r.report.Video = info

	if err := r.phase(ctx, "transcribe", func(ctx context.Context) error {
		var err error
		tr, err = r.transcribe(ctx, in, info)
		return err
	}); err != nil {
		return Result{}, err
	}

	if err := r.phase(ctx, "analyze", func(ctx context.Context) error {
		var err error
		results, err = r.analyze(ctx, in, tr.Segments)
		return err
	}); err != nil {
		return Result{}, err
	}

	if err := r.phase(ctx, "captions", func(ctx context.Context) error {
		return r.captions(ctx, in, tr.Segments, b)
	}); err != nil {
		return Result{}, err
	}

	if err := r.phase(ctx, "faces", func(ctx context.Context) error {
		zones = r.faces(ctx, in, info)
		return ctx.Err()
	}); err != nil {
		return Result{}, err
	}

	if err := r.phase(ctx, "images", func(ctx context.Context) error {
		return r.images(ctx, in, selection.Select(results, in.Policy), b)
	}); err != nil {
		return Result{}, err
	}

	res := Result{Output: in.Output, Timeline: b, SafeZones: zones}
	if err := r.phase(ctx, "timeline", func(ctx context.Context) error {
		for _, ci := range in.CustomImages {
			if err := b.AddCustomImage(ci.Start, ci.End, ci.Path); err != nil {
				return fmt.Errorf("custom image %s: %w", ci.Path, err)
			}
		}
		var err error
		plan, err = b.BuildRenderPlan(info.Duration)
		if err != nil {
			return err
		}
		res.TimelinePath, res.SafeZonesPath, err = persist(in.OutDir, b, zones)
		return err
	}); err != nil {
		return Result{}, err
	}
	r.report.Timeline = b.Stats()

	if err := r.phase(ctx, "render", func(ctx context.Context) error {
		return r.render(ctx, in.InputMP4, in.WorkDir, in.Output, in.Render, plan, zones)
	}); err != nil {
		return Result{}, err
	}

	u.recordMetrics(r.report)
	res.Report = r.report
	return res, nil
}

// Resume rebuilds the plan from an exported timeline and re-renders without
// calling any collaborator besides the video tool.
func (u Usecase) Resume(ctx context.Context, in ResumeInput) (Result, error) {
	r := u.newRun("resume", in.RunID, in.InputMP4, in.Output)
	var (
		info  types.VideoInfo
		b     *timeline.Builder
		zones types.SafeZoneMap
		plan  []types.PlanEntry
	)

	if err := r.phase(ctx, "probe", func(ctx context.Context) error {
		var err error
		info, err = u.probe(ctx, in.InputMP4)
		return err
	}); err != nil {
		return Result{}, err
	}
	r.report.Video = info

	if err := r.phase(ctx, "timeline", func(ctx context.Context) error {
		var err error
		b, err = timeline.ReadFile(in.TimelinePath)
		if err != nil {
			return err
		}
		zones = r.loadZones(in)
		plan, err = b.BuildRenderPlan(info.Duration)
		return err
	}); err != nil {
		return Result{}, err
	}
	r.report.Timeline = b.Stats()

	if err := r.phase(ctx, "render", func(ctx context.Context) error {
		return r.render(ctx, in.InputMP4, in.WorkDir, in.Output, in.Render, plan, zones)
	}); err != nil {
		return Result{}, err
	}

	u.recordMetrics(r.report)
	return Result{
		Output:       in.Output,
		Report:       r.report,
		Timeline:     b,
		SafeZones:    zones,
		TimelinePath: in.TimelinePath,
	}, nil
}

func (u Usecase) probe(ctx context.Context, in string) (types.VideoInfo, error) {
	info, err := u.d.Video.Probe(ctx, in)
	if err != nil {
		return info, err
	}
	switch {
	case info.Width <= 0 || info.Height <= 0:
		return info, render.ErrNoVideoStream
	case info.Duration <= 0:
		return info, render.ErrZeroDuration
	}
	return info, nil
}

func (r *run) loadZones(in ResumeInput) types.SafeZoneMap {
	if in.SafeZonesPath != "" {
		m, err := safezones.ReadFile(in.SafeZonesPath)
		if err == nil {
			return m
		}
		r.log.Warn("safe zone file unreadable", "path", in.SafeZonesPath, "err", err)
	}
	var m types.SafeZoneMap
	if key, err := faceKey(in.InputMP4, in.FaceName, in.ScanInterval); err == nil &&
		cache.GetJSON(r.u.d.Cache, cache.FaceDetection, key, &m) {
		return m
	}
	r.log.Warn("no safe zone map, captions use the default anchor")
	r.report.Warnings.SafeZonesMissing = true
	return types.SafeZoneMap{}
}

func (r *run) render(ctx context.Context, source, workDir, output string, opts render.Options, plan []types.PlanEntry, zones types.SafeZoneMap) error {
	engine := render.New(r.u.d.Video, r.u.d.Fitter, r.log, opts)
	res, err := engine.Render(ctx, render.Job{
		Source:    source,
		Plan:      plan,
		SafeZones: zones,
		Output:    output,
		WorkDir:   filepath.Join(workDir, "render"),
	})
	if err != nil {
		return err
	}
	r.report.Warnings.ImagesSkipped += res.ImagesSkipped
	r.report.Warnings.CaptionsDisabled = res.CaptionsDisabled
	r.log.Info("rendered",
		"output", res.Output,
		"clips", res.Clips,
		"images", res.ImagesRendered,
		"images_skipped", res.ImagesSkipped,
		"captions", res.Captions,
	)
	r.u.d.Metrics.AddImages("rendered", res.ImagesRendered)
	return nil
}

func (u Usecase) recordMetrics(rep types.Report) {
	w := rep.Warnings
	u.d.Metrics.AddFallbacks("transcription", w.TranscriptionFailed)
	u.d.Metrics.AddFallbacks("analysis", w.AnalysisFallbacks)
	u.d.Metrics.AddFallbacks("caption", w.CaptionFallbacks)
	u.d.Metrics.AddFallbacks("face_frame", w.FaceFrameFailures)
	u.d.Metrics.AddImages("failed", w.ImagesFailed)
	u.d.Metrics.AddImages("skipped", w.ImagesSkipped)
}

func persist(outDir string, b *timeline.Builder, zones types.SafeZoneMap) (string, string, error) {
	if outDir == "" {
		return "", "", nil
	}
	tl := filepath.Join(outDir, "timeline.json")
	if err := b.WriteFile(tl); err != nil {
		return "", "", fmt.Errorf("export timeline: %w", err)
	}
	sz := filepath.Join(outDir, "safe_zones.json")
	if err := safezones.WriteFile(sz, zones); err != nil {
		return "", "", fmt.Errorf("export safe zones: %w", err)
	}
	return tl, sz, nil
}
