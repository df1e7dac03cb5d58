package cli

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/reelcut/internal/pipeline"
	"github.com/forPelevin/reelcut/internal/platform/metrics"
)

func TestParseCustomImage(t *testing.T) {
	tests := []struct {
		in        string
		wantStart float64
		wantEnd   float64
		wantBase  string
		wantErr   bool
	}{
		{in: "1.5:4:logo.png", wantStart: 1.5, wantEnd: 4, wantBase: "logo.png"},
		{in: " 0 : 2 : dir/with:colon.png", wantStart: 0, wantEnd: 2, wantBase: "with:colon.png"},
		{in: "1:2", wantErr: true},
		{in: "a:2:x.png", wantErr: true},
		{in: "1:b:x.png", wantErr: true},
		{in: "1:2:  ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCustomImage(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCustomImage error: %v", err)
			}
			if got.Start != tt.wantStart || got.End != tt.wantEnd || filepath.Base(got.Path) != tt.wantBase {
				t.Fatalf("got %+v", got)
			}
			if !filepath.IsAbs(got.Path) {
				t.Fatalf("path not absolute: %s", got.Path)
			}
		})
	}
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "reelcut.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func settingsFor(t *testing.T, args ...string) settings {
	t.Helper()
	root := newRoot()
	if err := root.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	s, err := loadSettings(root)
	if err != nil {
		t.Fatalf("loadSettings error: %v", err)
	}
	return s
}

func TestLoadSettingsPrecedence(t *testing.T) {
	cfgPath := writeYAML(t, `
out_dir: yaml-out
scorer:
  backend: gemini
images:
  display_duration: 3
selection:
  max_total: 4
`)
	t.Setenv("GEMINI_API_KEYS", "env-a, env-b")
	t.Setenv("REELCUT_SCORER", "")

	s := settingsFor(t, "--config", cfgPath)
	if s.cfg.OutDir != "yaml-out" || s.cfg.Scorer != pipeline.ScorerGemini {
		t.Fatalf("yaml not applied: %+v", s.cfg)
	}
	if s.cfg.ImageDuration != 3 || s.cfg.MaxTotal != 4 {
		t.Fatalf("yaml numbers not applied: %+v", s.cfg)
	}
	if got := strings.Join(s.cfg.GeminiAPIKeys, ","); got != "env-a,env-b" {
		t.Fatalf("gemini keys = %q", got)
	}

	t.Setenv("REELCUT_SCORER", "heuristic")
	s = settingsFor(t, "--config", cfgPath)
	if s.cfg.Scorer != pipeline.ScorerHeuristic {
		t.Fatalf("env should beat yaml, scorer = %q", s.cfg.Scorer)
	}

	s = settingsFor(t, "--config", cfgPath, "--scorer", "gemini", "--out", "flag-out", "--api-key", "flag-key", "--image-duration", "1.5")
	if s.cfg.Scorer != pipeline.ScorerGemini || s.cfg.OutDir != "flag-out" || s.cfg.ImageDuration != 1.5 {
		t.Fatalf("flags should win: %+v", s.cfg)
	}
	if len(s.cfg.GeminiAPIKeys) != 1 || s.cfg.GeminiAPIKeys[0] != "flag-key" {
		t.Fatalf("api key routed to %+v", s.cfg.GeminiAPIKeys)
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("REELCUT_SCORER", "")
	t.Setenv("OPENAI_API_KEY", "")
	s := settingsFor(t, "--api-key", "sk-flag", "--custom-image", "0:1:a.png", "--custom-image", "2:3:b.png")
	if s.cfg.Scorer != pipeline.ScorerOpenAI || s.cfg.ASR != pipeline.ASRWhisperCpp {
		t.Fatalf("defaults = %+v", s.cfg)
	}
	if s.cfg.OpenAIAPIKey != "sk-flag" {
		t.Fatalf("openai key = %q", s.cfg.OpenAIAPIKey)
	}
	if len(s.cfg.CustomImages) != 2 || s.cfg.CustomImages[1].Start != 2 {
		t.Fatalf("custom images = %+v", s.cfg.CustomImages)
	}
	if s.cfg.Log == nil {
		t.Fatal("logger not set")
	}
}

func TestLoadSettingsWhisperTimeout(t *testing.T) {
	cfgPath := writeYAML(t, "asr:\n  whisper_timeout: 5m\n")
	t.Setenv("WHISPER_TIMEOUT", "")

	if s := settingsFor(t, "--config", cfgPath); s.cfg.WhisperTimeout != 5*time.Minute {
		t.Fatalf("yaml timeout = %s", s.cfg.WhisperTimeout)
	}
	t.Setenv("WHISPER_TIMEOUT", "7m")
	if s := settingsFor(t, "--config", cfgPath); s.cfg.WhisperTimeout != 7*time.Minute {
		t.Fatalf("env timeout = %s", s.cfg.WhisperTimeout)
	}
	if s := settingsFor(t, "--config", cfgPath, "--asr-timeout", "90s"); s.cfg.WhisperTimeout != 90*time.Second {
		t.Fatalf("flag timeout = %s", s.cfg.WhisperTimeout)
	}
}

func TestLoadSettingsRejectsUnknownYAMLKeys(t *testing.T) {
	root := newRoot()
	if err := root.ParseFlags([]string{"--config", writeYAML(t, "scorer:\n  backnd: gemini\n")}); err != nil {
		t.Fatal(err)
	}
	if _, err := loadSettings(root); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestRootRequiresInput(t *testing.T) {
	root := newRoot()
	root.SetArgs([]string{})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "--input is required") {
		t.Fatalf("Execute() = %v", err)
	}
}

func TestRouter(t *testing.T) {
	srv := httptest.NewServer(newRouter(metrics.New()))
	defer srv.Close()

	tests := []struct {
		path string
		want string
	}{
		{path: "/healthz", want: "ok"},
		{path: "/metrics", want: "reelcut_active_jobs"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), tt.want) {
				t.Fatalf("GET %s = %d %q", tt.path, resp.StatusCode, b)
			}
		})
	}
}
