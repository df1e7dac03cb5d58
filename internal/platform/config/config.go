package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// File is the optional YAML configuration. Zero values leave the built-in
// defaults in place.
type File struct {
	OutDir   string `yaml:"out_dir"`
	CacheDir string `yaml:"cache_dir"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	FFmpeg struct {
		Path      string `yaml:"path"`
		ProbePath string `yaml:"probe_path"`
	} `yaml:"ffmpeg"`

	ASR struct {
		Backend        string        `yaml:"backend"`
		WhisperBin     string        `yaml:"whisper_bin"`
		WhisperModel   string        `yaml:"whisper_model"`
		WhisperTimeout time.Duration `yaml:"whisper_timeout"`
	} `yaml:"asr"`

	Scorer struct {
		Backend string `yaml:"backend"`
		Model   string `yaml:"model"`
	} `yaml:"scorer"`

	OpenRouter struct {
		BaseURL      string   `yaml:"base_url"`
		AllowedHosts []string `yaml:"allowed_hosts"`
	} `yaml:"openrouter"`

	OpenAI struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"openai"`

	Images struct {
		Disabled        bool    `yaml:"disabled"`
		DisplayDuration float64 `yaml:"display_duration"`
	} `yaml:"images"`

	Captions struct {
		FontFile  string `yaml:"font_file"`
		FontName  string `yaml:"font_name"`
		MaxLength int    `yaml:"max_length"`
	} `yaml:"captions"`

	Selection struct {
		MaxTotal      int `yaml:"max_total"`
		MinGuaranteed int `yaml:"min_guaranteed"`
		ContextWindow int `yaml:"context_window"`
	} `yaml:"selection"`

	Phrases struct {
		MaxDuration float64 `yaml:"max_duration"`
	} `yaml:"phrases"`

	Faces struct {
		Cascade  string `yaml:"cascade"`
		Interval int    `yaml:"interval"`
		Workers  int    `yaml:"workers"`
	} `yaml:"faces"`

	Watch struct {
		Concurrency int    `yaml:"concurrency"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"watch"`
}

// LoadFile decodes a YAML config. Unknown keys are rejected so typos surface.
func LoadFile(path string) (File, error) {
	var f File
	fh, err := os.Open(path)
	if err != nil {
		return f, fmt.Errorf("config: %w", err)
	}
	defer fh.Close()

	dec := yaml.NewDecoder(fh)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}
	return f, nil
}

// LoadEnv reads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// GetEnv returns the value of the environment variable named by key, or
// fallback if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvDuration parses a Go duration such as "90s"; invalid values fall back.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}

// GetEnvList splits a comma separated variable, dropping blanks.
func GetEnvList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
