package whispercpp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

var _ ports.Transcriber = (*Adapter)(nil)

// DefaultTimeout bounds one whisper.cpp invocation.
const DefaultTimeout = 10 * time.Minute

type Adapter struct {
	bin     string
	model   string
	timeout time.Duration
}

// New returns a whisper.cpp transcriber. A non-positive timeout uses
// DefaultTimeout.
func New(binPath, modelPath string, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{bin: binPath, model: modelPath, timeout: timeout}
}

// Transcribe expects a 16kHz mono wav.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, workDir string) (types.Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	outPrefix := filepath.Join(workDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	cmd.WaitDelay = 2 * time.Second
	b, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.Transcript{}, fmt.Errorf("whisper.cpp timeout after %s", a.timeout)
	}
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return parseOutput(jb)
}

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseOutput(b []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("parse whisper.cpp json: %w", err)
	}
	tr := types.Transcript{Language: out.Result.Language}
	texts := make([]string, 0, len(out.Transcription))
	for _, s := range out.Transcription {
		start := float64(s.Offsets.From) / 1000
		end := float64(s.Offsets.To) / 1000
		if end <= start {
			continue
		}
		text := strings.TrimSpace(s.Text)
		tr.Segments = append(tr.Segments, types.SpeechSegment{
			ID:    len(tr.Segments),
			Text:  text,
			Start: start,
			End:   end,
		})
		if text != "" {
			texts = append(texts, text)
		}
	}
	tr.Text = strings.Join(texts, " ")
	return tr, nil
}
