package whispercpp

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestParseOutput(t *testing.T) {
	in := []byte(`{
		"result": {"language": "en"},
		"transcription": [
			{"offsets": {"from": 0, "to": 1500}, "text": " Hello there."},
			{"offsets": {"from": 1500, "to": 1500}, "text": " dropped"},
			{"offsets": {"from": 1500, "to": 3200}, "text": " General Kenobi. "}
		]
	}`)
	tr, err := parseOutput(in)
	if err != nil {
		t.Fatalf("parseOutput error: %v", err)
	}
	if tr.Language != "en" || tr.Text != "Hello there. General Kenobi." {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(tr.Segments))
	}
	s := tr.Segments[1]
	if s.ID != 1 || s.Start != 1.5 || s.End != 3.2 || s.Text != "General Kenobi." {
		t.Fatalf("unexpected segment: %+v", s)
	}
}

func TestParseOutputInvalid(t *testing.T) {
	if _, err := parseOutput([]byte("{")); err == nil {
		t.Fatalf("expected error")
	}
}

// fakeWhisper writes an executable shell script standing in for whisper.cpp.
// The output prefix arrives as the sixth argument.
func fakeWhisper(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script binaries")
	}
	p := filepath.Join(t.TempDir(), "whisper")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestTranscribe(t *testing.T) {
	bin := fakeWhisper(t, `printf '{"result":{"language":"de"},"transcription":[{"offsets":{"from":0,"to":800},"text":" Hallo"}]}' > "$6.json"`)
	tr, err := New(bin, "model.bin", 0).Transcribe(context.Background(), "in.wav", t.TempDir())
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if tr.Language != "de" || len(tr.Segments) != 1 || tr.Segments[0].End != 0.8 {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
}

func TestTranscribeTimesOut(t *testing.T) {
	bin := fakeWhisper(t, "exec sleep 30")
	a := New(bin, "model.bin", 200*time.Millisecond)

	start := time.Now()
	_, err := a.Transcribe(context.Background(), "in.wav", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "timeout after 200ms") {
		t.Fatalf("err = %v, want timeout", err)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Fatalf("Transcribe returned after %s", d)
	}
}

func TestNewDefaultTimeout(t *testing.T) {
	if a := New("whisper", "m", 0); a.timeout != DefaultTimeout {
		t.Fatalf("timeout = %s", a.timeout)
	}
}
