//go:build integration

package itest

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

var (
	buildOnce sync.Once
	binPath   string
	buildErr  error
)

// repoRoot resolves the module root from this file's location.
func repoRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("repo root: no caller info")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
	if _, err := os.Stat(filepath.Join(root, "go.mod")); err != nil {
		t.Fatalf("repo root: %v", err)
	}
	return root
}

// reelcutBinary compiles cmd/reelcut once per test process.
func reelcutBinary(t *testing.T) string {
	t.Helper()
	root := repoRoot(t)
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "reelcut-itest-")
		if err != nil {
			buildErr = err
			return
		}
		binPath = filepath.Join(dir, "reelcut")
		cmd := exec.Command("go", "build", "-o", binPath, "./cmd/reelcut")
		cmd.Dir = root
		if b, err := cmd.CombinedOutput(); err != nil {
			buildErr = errors.New(err.Error() + "\n" + string(b))
		}
	})
	if buildErr != nil {
		t.Fatalf("build reelcut: %v", buildErr)
	}
	return binPath
}

func ffmpegFixture(t *testing.T, args ...string) {
	t.Helper()
	cmd := exec.Command("ffmpeg", append([]string{"-y", "-v", "error"}, args...)...)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
}

// makeSample renders a short clip with a video and an audio stream.
func makeSample(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sample.mp4")
	ffmpegFixture(t,
		"-f", "lavfi", "-i", "testsrc2=s=360x640:r=30:d=2",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=2",
		"-shortest", "-c:v", "libx264", "-pix_fmt", "yuv420p", "-c:a", "aac",
		p,
	)
	return p
}

func testdata(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(repoRoot(t), "internal", "itest", "testdata", name)
}
