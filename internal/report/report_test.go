package report

import (
	"bytes"
	"os"
	"testing"

	"github.com/forPelevin/reelcut/internal/types"
)

func sample() types.Report {
	return types.Report{
		RunID:  "c0ffee",
		Mode:   "full",
		Input:  "in.mp4",
		Output: "out.mp4",
		Video:  types.VideoInfo{Width: 1080, Height: 1920, FPS: 30, Duration: 12.5, HasAudio: true},
		Timeline: types.TimelineStats{
			TotalSegments: 4, TextSegments: 3, AIImages: 1,
		},
		Warnings: types.Warnings{CaptionFallbacks: 2, SafeZonesMissing: true},
		Phases:   []types.PhaseTiming{{Name: "probe", Seconds: 0.2}},
		Images:   []types.ReportImage{{SegmentID: 3, Start: 4, End: 6, Score: 8.5, Path: "/tmp/seg.png"}},
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteJSON(dir, sample())
	if err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}
	got, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}
	if got.RunID != "c0ffee" || got.Warnings.Total() != 3 || got.Video.Height != 1920 {
		t.Fatalf("unexpected report: %+v", got)
	}
}

func TestWriteDocx(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteDocx(dir, sample())
	if err != nil {
		t.Fatalf("WriteDocx error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("PK")) {
		t.Fatalf("docx is not a zip container")
	}
}

func TestWarningLines(t *testing.T) {
	tests := []struct {
		name string
		w    types.Warnings
		want []string
	}{
		{name: "clean", w: types.Warnings{}, want: nil},
		{name: "counts", w: types.Warnings{AnalysisFallbacks: 1, ImagesSkipped: 2}, want: []string{"Analysis fallbacks", "Images skipped"}},
		{name: "transcription", w: types.Warnings{TranscriptionFailed: 1}, want: []string{"Transcription failures"}},
		{name: "flags", w: types.Warnings{SafeZonesMissing: true, CaptionsDisabled: true}, want: []string{"Safe zones", "Captions"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := warningLines(tt.w)
			if len(got) != len(tt.want) {
				t.Fatalf("lines = %v, want labels %v", got, tt.want)
			}
			for i, l := range got {
				if l[0] != tt.want[i] {
					t.Fatalf("line %d = %q, want %q", i, l[0], tt.want[i])
				}
			}
		})
	}
}
