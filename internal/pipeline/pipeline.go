package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/forPelevin/reelcut/internal/cache"
	"github.com/forPelevin/reelcut/internal/domain/selection"
	"github.com/forPelevin/reelcut/internal/domain/subtitles"
	"github.com/forPelevin/reelcut/internal/platform/logger"
	"github.com/forPelevin/reelcut/internal/platform/metrics"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/reelcut/internal/ports/adapters/gemini"
	"github.com/forPelevin/reelcut/internal/ports/adapters/heuristic"
	"github.com/forPelevin/reelcut/internal/ports/adapters/imagefit"
	"github.com/forPelevin/reelcut/internal/ports/adapters/openai"
	"github.com/forPelevin/reelcut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/reelcut/internal/ports/adapters/pigo"
	"github.com/forPelevin/reelcut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/reelcut/internal/render"
	"github.com/forPelevin/reelcut/internal/report"
	"github.com/forPelevin/reelcut/internal/types"
	"github.com/forPelevin/reelcut/internal/usecase"
)

const (
	ASROpenAI     = "openai"
	ASRWhisperCpp = "whispercpp"

	ScorerOpenAI     = "openai"
	ScorerOpenRouter = "openrouter"
	ScorerGemini     = "gemini"
	ScorerHeuristic  = "heuristic"
)

type Config struct {
	InputMP4 string
	OutDir   string
	// CacheDir holds the blob cache and per-run work dirs. Defaults to ".cache".
	CacheDir  string
	SkipCache bool
	Log       *slog.Logger
	Metrics   *metrics.Metrics

	FFmpegPath  string
	FFprobePath string

	ASR            string
	WhisperBin     string
	WhisperModel   string
	WhisperTimeout time.Duration

	Scorer      string
	ScorerModel string

	OpenAIAPIKey           string
	OpenAIBaseURL          string
	OpenRouterAPIKey       string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string
	GeminiAPIKeys          []string

	ImagesDisabled bool
	ImageDuration  float64
	CustomImages   []usecase.CustomImage

	FontFile      string
	FontName      string
	CaptionMaxLen int

	MaxTotal          int
	MinGuaranteed     int
	ContextWindow     int
	PhraseMaxDuration float64
	ScoreWorkers      int

	// FaceCascade is a pigo facefinder file. Empty disables face detection.
	FaceCascade  string
	FaceInterval int
	FaceWorkers  int

	WriteDocx bool
}

// Outcome locates everything a run produced.
type Outcome struct {
	RunID      string
	RunDir     string
	Output     string
	ReportPath string
	DocxPath   string
	Report     types.Report
}

func (c Config) validateInput() error {
	if c.InputMP4 == "" {
		return errors.New("input is empty")
	}
	st, err := os.Stat(c.InputMP4)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if st.IsDir() {
		return fmt.Errorf("input %s is a directory", c.InputMP4)
	}
	switch {
	case c.ImageDuration < 0:
		return errors.New("image duration must be >= 0")
	case c.PhraseMaxDuration < 0:
		return errors.New("phrase max duration must be >= 0")
	case c.FaceInterval < 0:
		return errors.New("face interval must be >= 0")
	}
	return nil
}

// Validate checks a full run: input, backends and their credentials.
func (c Config) Validate() error {
	if err := c.validateInput(); err != nil {
		return err
	}
	switch c.asr() {
	case ASROpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("openai transcription needs an API key (OPENAI_API_KEY)")
		}
	case ASRWhisperCpp:
		if c.WhisperModel == "" {
			return errors.New("whisper model path is required")
		}
		if c.WhisperTimeout < 0 {
			return errors.New("whisper timeout must be >= 0")
		}
	default:
		return fmt.Errorf("unknown asr backend %q", c.ASR)
	}
	switch c.scorer() {
	case ScorerOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("openai scorer needs an API key (OPENAI_API_KEY)")
		}
	case ScorerOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return errors.New("openrouter scorer needs an API key (OPENROUTER_API_KEY)")
		}
		if err := openrouter.ValidateBaseURL(c.OpenRouterBaseURL, c.OpenRouterAllowedHosts); err != nil {
			return err
		}
	case ScorerGemini:
		if len(c.GeminiAPIKeys) == 0 {
			return errors.New("gemini scorer needs at least one API key (GEMINI_API_KEYS)")
		}
	case ScorerHeuristic:
	default:
		return fmt.Errorf("unknown scorer backend %q", c.Scorer)
	}
	for _, ci := range c.CustomImages {
		if !(ci.End > ci.Start) || ci.Start < 0 {
			return fmt.Errorf("custom image %s: invalid range %v-%v", ci.Path, ci.Start, ci.End)
		}
		if _, err := os.Stat(ci.Path); err != nil {
			return fmt.Errorf("custom image: %w", err)
		}
	}
	return nil
}

// ValidateResume checks a re-render from an exported timeline. No backend
// credentials are needed.
func (c Config) ValidateResume(timelinePath string) error {
	if err := c.validateInput(); err != nil {
		return err
	}
	if timelinePath == "" {
		return errors.New("timeline path is empty")
	}
	if _, err := os.Stat(timelinePath); err != nil {
		return fmt.Errorf("stat timeline: %w", err)
	}
	return nil
}

func (c Config) asr() string {
	if c.ASR == "" {
		return ASRWhisperCpp
	}
	return strings.ToLower(c.ASR)
}

func (c Config) scorer() string {
	if c.Scorer == "" {
		return ScorerOpenAI
	}
	return strings.ToLower(c.Scorer)
}

// faceName namespaces cached safe-zone maps by detector.
func (c Config) faceName() string {
	if c.FaceCascade == "" {
		return "none"
	}
	return "pigo-" + hash(filepath.Base(c.FaceCascade))
}

func (c Config) logger() *slog.Logger {
	if c.Log == nil {
		return logger.Discard()
	}
	return c.Log
}

func (c Config) cacheRoot() string {
	if c.CacheDir == "" {
		return ".cache"
	}
	return c.CacheDir
}

func (c Config) outRoot() string {
	if c.OutDir == "" {
		return "out"
	}
	return c.OutDir
}

func (c Config) renderOptions() render.Options {
	style := subtitles.DefaultStyle()
	if c.FontName != "" {
		style.FontName = c.FontName
	}
	return render.Options{FontFile: c.FontFile, Style: style}
}

func (c Config) store() (cache.Store, error) {
	fs, err := cache.NewFS(filepath.Join(c.cacheRoot(), "store"))
	if err != nil {
		return nil, err
	}
	if c.SkipCache {
		return cache.WriteOnly{Store: fs}, nil
	}
	return fs, nil
}

// deps builds the adapters for the configured backends.
func (c Config) deps(log *slog.Logger) (usecase.Deps, error) {
	d := usecase.Deps{
		Video:   ffmpeg.New(c.FFmpegPath, c.FFprobePath),
		Fitter:  imagefit.Fitter{},
		Metrics: c.Metrics,
		Log:     log,
	}

	var oa *openai.Adapter
	if c.OpenAIAPIKey != "" {
		model := ""
		if c.scorer() == ScorerOpenAI {
			model = c.ScorerModel
		}
		oa = openai.New(openai.Options{
			APIKey:    c.OpenAIAPIKey,
			BaseURL:   c.OpenAIBaseURL,
			ChatModel: model,
			// short-form output is vertical
			Portrait: true,
		})
	}

	switch c.asr() {
	case ASROpenAI:
		d.ASR = oa
	default:
		d.ASR = whispercpp.New(c.WhisperBin, c.WhisperModel, c.WhisperTimeout)
	}

	switch c.scorer() {
	case ScorerOpenRouter:
		a := openrouter.New(c.OpenRouterAPIKey, c.ScorerModel, c.OpenRouterBaseURL)
		d.Scorer, d.Summarizer = a, a
	case ScorerGemini:
		a, err := gemini.New(c.GeminiAPIKeys, c.ScorerModel)
		if err != nil {
			return d, err
		}
		d.Scorer, d.Summarizer = a, a
	case ScorerHeuristic:
		a := heuristic.New(0)
		d.Scorer, d.Summarizer = a, a
	default:
		d.Scorer, d.Summarizer = oa, oa
	}

	switch {
	case c.ImagesDisabled:
		log.Info("image generation disabled by config")
	case oa == nil:
		log.Info("image generation disabled, no OpenAI key")
	default:
		d.Images = oa
	}

	if c.FaceCascade != "" {
		det, err := pigo.New(c.FaceCascade, 0)
		if err != nil {
			return d, fmt.Errorf("face detector: %w", err)
		}
		d.Faces = det
	}
	return d, nil
}

// Run processes one video end to end and writes the report next to the output.
func Run(ctx context.Context, cfg Config) (Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("config: %w", err)
	}
	log := cfg.logger()
	deps, err := cfg.deps(log)
	if err != nil {
		return Outcome{}, err
	}
	ws, err := cfg.workspace(time.Now())
	if err != nil {
		return Outcome{}, err
	}
	if deps.Cache, err = cfg.store(); err != nil {
		return Outcome{}, err
	}
	log = log.With("run", ws.runID)
	log.Info("workspace ready", "out", ws.runDir, "work", ws.workDir, "skip_cache", cfg.SkipCache)

	cfg.Metrics.JobStarted()
	defer cfg.Metrics.JobFinished()

	res, err := usecase.New(deps).Run(ctx, usecase.Input{
		InputMP4:   cfg.InputMP4,
		WorkDir:    ws.workDir,
		OutDir:     ws.runDir,
		Output:     ws.output,
		RunID:      ws.runID,
		ASRName:    cfg.asr(),
		ScorerName: cfg.scorer() + ":" + cfg.ScorerModel,
		FaceName:   cfg.faceName(),

		PhraseMaxDuration: cfg.PhraseMaxDuration,
		Policy:            selection.Policy{MaxTotal: cfg.MaxTotal, MinGuaranteed: cfg.minGuaranteed()},
		ContextWindow:     cfg.contextWindow(),
		CaptionMaxLen:     cfg.CaptionMaxLen,
		ImageDuration:     cfg.ImageDuration,
		CustomImages:      cfg.CustomImages,

		ScanInterval: cfg.FaceInterval,
		ScanWorkers:  cfg.FaceWorkers,
		ScoreWorkers: cfg.ScoreWorkers,

		Render: cfg.renderOptions(),
	})
	if err != nil {
		cfg.Metrics.IncRenders("error")
		return Outcome{RunID: ws.runID, RunDir: ws.runDir}, err
	}
	cfg.Metrics.IncRenders("ok")
	return finish(cfg, log, ws, res.Report)
}

// Resume re-renders from an exported timeline. safeZonesPath may be empty.
func Resume(ctx context.Context, cfg Config, timelinePath, safeZonesPath string) (Outcome, error) {
	if err := cfg.ValidateResume(timelinePath); err != nil {
		return Outcome{}, fmt.Errorf("config: %w", err)
	}
	log := cfg.logger()
	ws, err := cfg.workspace(time.Now())
	if err != nil {
		return Outcome{}, err
	}
	store, err := cfg.store()
	if err != nil {
		return Outcome{}, err
	}
	log = log.With("run", ws.runID)

	cfg.Metrics.JobStarted()
	defer cfg.Metrics.JobFinished()

	d := usecase.Deps{
		Video:   ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath),
		Fitter:  imagefit.Fitter{},
		Cache:   store,
		Metrics: cfg.Metrics,
		Log:     log,
	}
	res, err := usecase.New(d).Resume(ctx, usecase.ResumeInput{
		InputMP4:      cfg.InputMP4,
		WorkDir:       ws.workDir,
		OutDir:        ws.runDir,
		Output:        ws.output,
		RunID:         ws.runID,
		TimelinePath:  timelinePath,
		SafeZonesPath: safeZonesPath,
		FaceName:      cfg.faceName(),
		ScanInterval:  cfg.FaceInterval,
		Render:        cfg.renderOptions(),
	})
	if err != nil {
		cfg.Metrics.IncRenders("error")
		return Outcome{RunID: ws.runID, RunDir: ws.runDir}, err
	}
	cfg.Metrics.IncRenders("ok")
	return finish(cfg, log, ws, res.Report)
}

func (c Config) minGuaranteed() int {
	if c.MinGuaranteed == 0 {
		return selection.DefaultMinGuaranteed
	}
	return c.MinGuaranteed
}

func (c Config) contextWindow() int {
	if c.ContextWindow == 0 {
		return selection.DefaultContextWindow
	}
	return c.ContextWindow
}

type workspace struct {
	runID   string
	runDir  string
	workDir string
	output  string
}

// workspace creates the output run dir and a scratch dir under the cache.
// Scratch dirs are kept: exported timelines reference generated images there.
func (c Config) workspace(now time.Time) (workspace, error) {
	runID := uuid.NewString()
	ws := workspace{
		runID:   runID,
		runDir:  buildRunOutDir(c.outRoot(), c.InputMP4, now),
		workDir: filepath.Join(c.cacheRoot(), "runs", hash(c.InputMP4), runID),
	}
	ws.output = filepath.Join(ws.runDir, outputName(c.InputMP4))
	for _, d := range []string{ws.runDir, ws.workDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return ws, err
		}
	}
	return ws, nil
}

func finish(cfg Config, log *slog.Logger, ws workspace, rep types.Report) (Outcome, error) {
	out := Outcome{RunID: ws.runID, RunDir: ws.runDir, Output: ws.output, Report: rep}
	var err error
	if out.ReportPath, err = report.WriteJSON(ws.runDir, rep); err != nil {
		return out, fmt.Errorf("write report: %w", err)
	}
	if cfg.WriteDocx {
		if out.DocxPath, err = report.WriteDocx(ws.runDir, rep); err != nil {
			log.Warn("docx report failed", "err", err)
		}
	}
	log.Info("run finished",
		"output", out.Output,
		"report", out.ReportPath,
		"warnings", rep.Warnings.Total(),
	)
	return out, nil
}

func outputName(inputMP4 string) string {
	name := normalizePathSegment(strings.TrimSuffix(filepath.Base(inputMP4), filepath.Ext(inputMP4)))
	if name == "" {
		name = "input"
	}
	return name + "-reel.mp4"
}

func buildRunOutDir(outRoot, inputMP4 string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(inputMP4), filepath.Ext(inputMP4))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", inputMP4, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var (
	_ ports.VideoTool         = (*ffmpeg.Adapter)(nil)
	_ ports.Transcriber       = (*whispercpp.Adapter)(nil)
	_ ports.Transcriber       = (*openai.Adapter)(nil)
	_ ports.ContentScorer     = (*openrouter.Adapter)(nil)
	_ ports.CaptionSummarizer = (*gemini.Adapter)(nil)
	_ ports.ImageGenerator    = (*openai.Adapter)(nil)
	_ ports.FaceDetector      = (*pigo.Detector)(nil)
	_ ports.ImageFitter       = imagefit.Fitter{}
)
