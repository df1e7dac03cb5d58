package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelcut.yaml")
	doc := `
out_dir: renders
log:
  level: debug
asr:
  whisper_timeout: 90s
scorer:
  backend: gemini
openrouter:
  allowed_hosts: [openrouter.ai, proxy.internal]
images:
  display_duration: 2.5
selection:
  max_total: 4
faces:
  interval: 10
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if f.OutDir != "renders" || f.Log.Level != "debug" || f.Scorer.Backend != "gemini" {
		t.Fatalf("unexpected file: %+v", f)
	}
	if len(f.OpenRouter.AllowedHosts) != 2 || f.Images.DisplayDuration != 2.5 {
		t.Fatalf("unexpected nested values: %+v", f)
	}
	if f.ASR.WhisperTimeout != 90*time.Second {
		t.Fatalf("whisper timeout = %s", f.ASR.WhisperTimeout)
	}
	if f.Selection.MaxTotal != 4 || f.Faces.Interval != 10 {
		t.Fatalf("unexpected nested values: %+v", f)
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("out_dirr: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestLoadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err != nil {
		t.Fatalf("empty file should load: %v", err)
	}
}

func TestLoadEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("REELCUT_TEST_A=file\nREELCUT_TEST_B=file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REELCUT_TEST_A", "env")
	t.Setenv("REELCUT_TEST_B", "")
	os.Unsetenv("REELCUT_TEST_B")

	if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnv error: %v", err)
	}
	if got := os.Getenv("REELCUT_TEST_A"); got != "env" {
		t.Fatalf("REELCUT_TEST_A = %q", got)
	}
	if got := os.Getenv("REELCUT_TEST_B"); got != "file" {
		t.Fatalf("REELCUT_TEST_B = %q", got)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("REELCUT_TEST_INT", "7")
	t.Setenv("REELCUT_TEST_BADINT", "x")
	t.Setenv("REELCUT_TEST_LIST", " a, ,b ")
	t.Setenv("REELCUT_TEST_DUR", "45s")
	t.Setenv("REELCUT_TEST_BADDUR", "soon")
	if GetEnvDuration("REELCUT_TEST_DUR", time.Second) != 45*time.Second || GetEnvDuration("REELCUT_TEST_BADDUR", time.Second) != time.Second {
		t.Fatalf("GetEnvDuration mismatch")
	}
	if GetEnvInt("REELCUT_TEST_INT", 1) != 7 || GetEnvInt("REELCUT_TEST_BADINT", 1) != 1 {
		t.Fatalf("GetEnvInt mismatch")
	}
	if GetEnv("REELCUT_TEST_UNSET_X", "d") != "d" {
		t.Fatalf("GetEnv fallback mismatch")
	}
	if l := GetEnvList("REELCUT_TEST_LIST"); len(l) != 2 || l[1] != "b" {
		t.Fatalf("GetEnvList = %v", l)
	}
}
