package subtitles

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestReveal_CumulativeChunks(t *testing.T) {
	cues := Reveal("one two three four five", 10, 13, 0.35, 2)
	if len(cues) != 3 {
		t.Fatalf("expected 3 cues, got %d: %+v", len(cues), cues)
	}
	wantLines := [][]string{
		{"one two"},
		{"one two", "    three four"},
		{"one two", "    three four", "        five"},
	}
	for i, c := range cues {
		if !reflect.DeepEqual(c.Lines, wantLines[i]) {
			t.Fatalf("cue %d lines = %q, want %q", i, c.Lines, wantLines[i])
		}
	}
	if cues[0].Start != 10 || math.Abs(cues[1].Start-10.35) > 1e-9 {
		t.Fatalf("unexpected cue starts: %v %v", cues[0].Start, cues[1].Start)
	}
	if cues[0].End != cues[1].Start || cues[1].End != cues[2].Start {
		t.Fatalf("cues must be contiguous: %+v", cues)
	}
	if cues[2].End != 13 {
		t.Fatalf("last cue must hold until segment end, got %v", cues[2].End)
	}
}

func TestReveal_ShortSegmentKeepsLastStateToEnd(t *testing.T) {
	cues := Reveal("a b c d e f g h", 0, 0.5, 0.35, 2)
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %+v", cues)
	}
	if cues[1].End != 0.5 || len(cues[1].Lines) != 2 {
		t.Fatalf("unexpected final cue: %+v", cues[1])
	}
}

func TestReveal_Empty(t *testing.T) {
	if cues := Reveal("   ", 0, 2, 0.35, 2); cues != nil {
		t.Fatalf("expected no cues, got %+v", cues)
	}
	if cues := Reveal("hi", 2, 2, 0.35, 2); cues != nil {
		t.Fatalf("expected no cues for empty span, got %+v", cues)
	}
}

func TestRenderASS_PositionAndTint(t *testing.T) {
	caps := []Caption{
		{Start: 0, End: 2, Text: "so sad today", Sentiment: "sad", FontSizeModifier: 1.5, X: 540, Y: 1600},
		{Start: 3, End: 4, Text: "plain words", Sentiment: "neutral", X: 100, Y: 200},
	}
	ass := RenderASS(caps, 1080, 1920, DefaultStyle())

	if !strings.Contains(ass, "PlayResX: 1080") || !strings.Contains(ass, "PlayResY: 1920") {
		t.Fatalf("expected frame-sized script:\n%s", ass)
	}
	if !strings.Contains(ass, `{\an5\pos(540,1600)\fs63}`) {
		t.Fatalf("expected fixed position and scaled font size:\n%s", ass)
	}
	if got := strings.Count(ass, ",BoxNegative,,"); got != 2 {
		t.Fatalf("expected 2 negative box events, got %d:\n%s", got, ass)
	}
	if strings.Contains(ass, ",BoxPositive,,") {
		t.Fatalf("neutral caption must not get a box:\n%s", ass)
	}
	if !strings.Contains(ass, `so sad\N\h\h\h\htoday`) {
		t.Fatalf("expected staggered second line:\n%s", ass)
	}
	if !strings.Contains(ass, "Dialogue: 1,0:00:03.00,0:00:04.00,Caption,,0,0,0,,{\\an5\\pos(100,200)\\fs42}plain words") {
		t.Fatalf("expected neutral caption event:\n%s", ass)
	}
}

func TestRenderASS_EmphasisOnlyOnTextLayer(t *testing.T) {
	caps := []Caption{{Start: 0, End: 1, Text: "Thank you!", Sentiment: "grateful", EmphasisWords: []string{"thank"}}}
	ass := RenderASS(caps, 720, 1280, DefaultStyle())
	for _, line := range strings.Split(ass, "\n") {
		if strings.Contains(line, ",BoxPositive,,") && strings.Contains(line, `\c&H`) {
			t.Fatalf("box layer must not carry colour overrides: %s", line)
		}
	}
	if !strings.Contains(ass, `{\c&H00D7FF&}Thank{\c}`) {
		t.Fatalf("expected emphasised word:\n%s", ass)
	}
}

func TestSentimentTint(t *testing.T) {
	tests := map[string]Tint{
		"sad":       TintNegative,
		"Angry":     TintNegative,
		"worried":   TintNegative,
		"happy":     TintPositive,
		"important": TintPositive,
		"grateful":  TintPositive,
		"neutral":   TintNone,
		"":          TintNone,
	}
	for in, want := range tests {
		if got := SentimentTint(in); got != want {
			t.Fatalf("SentimentTint(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestAssTime_Format(t *testing.T) {
	got := assTime(61*time.Second + 234*time.Millisecond)
	if got != "0:01:01.23" {
		t.Fatalf("unexpected assTime: %s", got)
	}
	if got := assTime(dur(0.35)); got != "0:00:00.35" {
		t.Fatalf("expected rounding to keep 0.35, got %s", got)
	}
}
