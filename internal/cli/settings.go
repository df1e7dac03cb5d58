package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/forPelevin/reelcut/internal/pipeline"
	"github.com/forPelevin/reelcut/internal/platform/config"
	"github.com/forPelevin/reelcut/internal/platform/logger"
	"github.com/forPelevin/reelcut/internal/usecase"
)

type settings struct {
	cfg         pipeline.Config
	log         *slog.Logger
	concurrency int
	metricsAddr string
}

// addCommonFlags registers the flags shared by every command.
func addCommonFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "YAML config file")
	fs.String("out", "out", "Output directory")
	fs.String("cache-dir", ".cache", "Cache and scratch directory")
	fs.Bool("skip-cache", false, "Ignore cached results (they are still refreshed)")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "text", "Log format: text or json")
	fs.String("font", "", "Caption font file (.ttf/.otf)")
	fs.Bool("docx", false, "Also write report.docx")
	fs.String("faces", "", "pigo facefinder cascade; empty disables face detection")
}

// addProcessFlags registers the flags of commands that run the full pipeline.
func addProcessFlags(fs *pflag.FlagSet) {
	fs.String("api-key", "", "API key for the selected scorer backend")
	fs.String("scorer", "", "Scorer backend: openai, openrouter, gemini, heuristic")
	fs.String("asr", "", "Transcription backend: openai, whispercpp")
	fs.String("model", "", "Scorer model override")
	fs.Bool("no-images", false, "Disable generated image inserts")
	fs.Float64("image-duration", usecase.DefaultImageDuration, "Seconds each generated image stays on screen")
	fs.StringArray("custom-image", nil, "Custom image insert start:end:path (repeatable)")

	// Hidden tuning flags (internal)
	fs.Duration("asr-timeout", 0, "Limit for one whisper.cpp run (0 = 10m)")
	fs.Int("score-workers", 4, "Concurrent scorer calls")
	fs.Int("face-interval", 5, "Run face detection on every n-th frame")
	_ = fs.MarkHidden("asr-timeout")
	_ = fs.MarkHidden("score-workers")
	_ = fs.MarkHidden("face-interval")
}

// loadSettings merges, lowest to highest: built-in defaults, the YAML file,
// .env and the environment, then explicitly set flags.
func loadSettings(cmd *cobra.Command) (settings, error) {
	fs := cmd.Flags()
	if err := config.LoadEnv(); err != nil {
		return settings{}, fmt.Errorf("load .env: %w", err)
	}

	var f config.File
	if p, _ := fs.GetString("config"); p != "" {
		var err error
		if f, err = config.LoadFile(p); err != nil {
			return settings{}, err
		}
	}

	s := settings{cfg: defaults()}
	applyFile(&s, f)
	applyEnv(&s)
	if err := applyFlags(&s, fs); err != nil {
		return settings{}, err
	}

	level := pick(f.Log.Level, config.GetEnv("LOG_LEVEL", ""), flagString(fs, "log-level"))
	format := pick(f.Log.Format, config.GetEnv("LOG_FORMAT", ""), flagString(fs, "log-format"))
	s.log = logger.New(level, format)
	s.cfg.Log = s.log
	return s, nil
}

func defaults() pipeline.Config {
	return pipeline.Config{
		OutDir:       "out",
		CacheDir:     ".cache",
		FFmpegPath:   "ffmpeg",
		FFprobePath:  "ffprobe",
		ASR:          pipeline.ASRWhisperCpp,
		WhisperBin:   ".cache/bin/whisper.cpp",
		WhisperModel: ".cache/models/ggml-base.bin",
		Scorer:       pipeline.ScorerOpenAI,
	}
}

func applyFile(s *settings, f config.File) {
	c := &s.cfg
	set(&c.OutDir, f.OutDir)
	set(&c.CacheDir, f.CacheDir)
	set(&c.FFmpegPath, f.FFmpeg.Path)
	set(&c.FFprobePath, f.FFmpeg.ProbePath)
	set(&c.ASR, f.ASR.Backend)
	set(&c.WhisperBin, f.ASR.WhisperBin)
	set(&c.WhisperModel, f.ASR.WhisperModel)
	if f.ASR.WhisperTimeout > 0 {
		c.WhisperTimeout = f.ASR.WhisperTimeout
	}
	set(&c.Scorer, f.Scorer.Backend)
	set(&c.ScorerModel, f.Scorer.Model)
	set(&c.OpenRouterBaseURL, f.OpenRouter.BaseURL)
	if len(f.OpenRouter.AllowedHosts) > 0 {
		c.OpenRouterAllowedHosts = f.OpenRouter.AllowedHosts
	}
	set(&c.OpenAIBaseURL, f.OpenAI.BaseURL)
	c.ImagesDisabled = c.ImagesDisabled || f.Images.Disabled
	setF(&c.ImageDuration, f.Images.DisplayDuration)
	set(&c.FontFile, f.Captions.FontFile)
	set(&c.FontName, f.Captions.FontName)
	setI(&c.CaptionMaxLen, f.Captions.MaxLength)
	setI(&c.MaxTotal, f.Selection.MaxTotal)
	setI(&c.MinGuaranteed, f.Selection.MinGuaranteed)
	setI(&c.ContextWindow, f.Selection.ContextWindow)
	setF(&c.PhraseMaxDuration, f.Phrases.MaxDuration)
	set(&c.FaceCascade, f.Faces.Cascade)
	setI(&c.FaceInterval, f.Faces.Interval)
	setI(&c.FaceWorkers, f.Faces.Workers)
	setI(&s.concurrency, f.Watch.Concurrency)
	set(&s.metricsAddr, f.Watch.MetricsAddr)
}

func applyEnv(s *settings) {
	c := &s.cfg
	c.OpenAIAPIKey = config.GetEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = config.GetEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenRouterAPIKey = config.GetEnv("OPENROUTER_API_KEY", c.OpenRouterAPIKey)
	c.OpenRouterBaseURL = config.GetEnv("OPENROUTER_BASE_URL", c.OpenRouterBaseURL)
	if hosts := config.GetEnvList("OPENROUTER_ALLOWED_HOSTS"); len(hosts) > 0 {
		c.OpenRouterAllowedHosts = hosts
	}
	if keys := config.GetEnvList("GEMINI_API_KEYS"); len(keys) > 0 {
		c.GeminiAPIKeys = keys
	} else if k := config.GetEnv("GEMINI_API_KEY", ""); k != "" {
		c.GeminiAPIKeys = []string{k}
	}
	c.Scorer = config.GetEnv("REELCUT_SCORER", c.Scorer)
	c.ScorerModel = config.GetEnv("REELCUT_MODEL", c.ScorerModel)
	c.ASR = config.GetEnv("REELCUT_ASR", c.ASR)
	c.WhisperBin = config.GetEnv("WHISPER_BIN", c.WhisperBin)
	c.WhisperModel = config.GetEnv("WHISPER_MODEL", c.WhisperModel)
	c.WhisperTimeout = config.GetEnvDuration("WHISPER_TIMEOUT", c.WhisperTimeout)
	c.FFmpegPath = config.GetEnv("FFMPEG_PATH", c.FFmpegPath)
	c.FFprobePath = config.GetEnv("FFPROBE_PATH", c.FFprobePath)
	c.FontFile = config.GetEnv("REELCUT_FONT", c.FontFile)
	c.FaceCascade = config.GetEnv("REELCUT_FACE_CASCADE", c.FaceCascade)
	s.concurrency = config.GetEnvInt("REELCUT_WATCH_CONCURRENCY", s.concurrency)
}

func applyFlags(s *settings, fs *pflag.FlagSet) error {
	c := &s.cfg
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	str("out", &c.OutDir)
	str("cache-dir", &c.CacheDir)
	str("font", &c.FontFile)
	str("faces", &c.FaceCascade)
	str("scorer", &c.Scorer)
	str("asr", &c.ASR)
	str("model", &c.ScorerModel)
	str("metrics-addr", &s.metricsAddr)

	if fs.Changed("skip-cache") {
		c.SkipCache, _ = fs.GetBool("skip-cache")
	}
	if fs.Changed("docx") {
		c.WriteDocx, _ = fs.GetBool("docx")
	}
	if fs.Changed("no-images") {
		c.ImagesDisabled, _ = fs.GetBool("no-images")
	}
	if fs.Changed("image-duration") {
		c.ImageDuration, _ = fs.GetFloat64("image-duration")
	}
	if fs.Changed("asr-timeout") {
		c.WhisperTimeout, _ = fs.GetDuration("asr-timeout")
	}
	if fs.Changed("score-workers") {
		c.ScoreWorkers, _ = fs.GetInt("score-workers")
	}
	if fs.Changed("face-interval") {
		c.FaceInterval, _ = fs.GetInt("face-interval")
	}
	if fs.Changed("concurrency") {
		s.concurrency, _ = fs.GetInt("concurrency")
	}

	if fs.Changed("api-key") {
		key, _ := fs.GetString("api-key")
		switch strings.ToLower(c.Scorer) {
		case pipeline.ScorerOpenRouter:
			c.OpenRouterAPIKey = key
		case pipeline.ScorerGemini:
			c.GeminiAPIKeys = []string{key}
		default:
			c.OpenAIAPIKey = key
		}
	}

	if fs.Lookup("custom-image") != nil {
		raw, _ := fs.GetStringArray("custom-image")
		for _, r := range raw {
			ci, err := parseCustomImage(r)
			if err != nil {
				return err
			}
			c.CustomImages = append(c.CustomImages, ci)
		}
	}
	return nil
}

// parseCustomImage reads "start:end:path"; the path may itself contain colons.
func parseCustomImage(s string) (usecase.CustomImage, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || strings.TrimSpace(parts[2]) == "" {
		return usecase.CustomImage{}, fmt.Errorf("custom image %q: want start:end:path", s)
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return usecase.CustomImage{}, fmt.Errorf("custom image %q: start: %w", s, err)
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return usecase.CustomImage{}, fmt.Errorf("custom image %q: end: %w", s, err)
	}
	path, err := filepath.Abs(strings.TrimSpace(parts[2]))
	if err != nil {
		return usecase.CustomImage{}, err
	}
	return usecase.CustomImage{Start: start, End: end, Path: path}, nil
}

func flagString(fs *pflag.FlagSet, name string) string {
	if !fs.Changed(name) {
		return ""
	}
	v, _ := fs.GetString(name)
	return v
}

// pick returns the last non-empty value.
func pick(vals ...string) string {
	out := ""
	for _, v := range vals {
		if v != "" {
			out = v
		}
	}
	return out
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setI(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setF(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}
