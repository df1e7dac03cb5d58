package selection

import (
	"fmt"
	"testing"

	"github.com/forPelevin/reelcut/internal/types"
)

func TestSelect_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		flagged int
		total   int
		want    int
	}{
		{"many flagged", 8, 12, 5},
		{"exactly max", 5, 5, 5},
		{"between min and max", 4, 10, 4},
		{"exactly min", 3, 3, 3},
		{"few flagged falls back to top min", 1, 10, 3},
		{"none flagged", 0, 10, 3},
		{"fewer results than min", 0, 2, 2},
		{"empty", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in []types.Analysis
			for i := 0; i < tt.total; i++ {
				in = append(in, types.Analysis{
					SegmentID:          i,
					OriginalText:       fmt.Sprintf("segment %d", i),
					NeedsVisualization: i < tt.flagged,
					ImportanceScore:    float64(i % 10),
				})
			}
			got := Select(in, DefaultPolicy())
			if len(got) != tt.want {
				t.Fatalf("expected %d selections, got %d", tt.want, len(got))
			}
			for i := 1; i < len(got); i++ {
				if got[i].ImportanceScore > got[i-1].ImportanceScore {
					t.Fatalf("selection not sorted by score: %+v", got)
				}
			}
		})
	}
}

func TestSelect_PrefersFlaggedByScore(t *testing.T) {
	in := []types.Analysis{
		{SegmentID: 1, OriginalText: "text", NeedsVisualization: true, ImportanceScore: 3},
		{SegmentID: 2, OriginalText: "text", NeedsVisualization: false, ImportanceScore: 10},
		{SegmentID: 3, OriginalText: "text", NeedsVisualization: true, ImportanceScore: 9},
		{SegmentID: 4, OriginalText: "text", NeedsVisualization: true, ImportanceScore: 6},
		{SegmentID: 5, OriginalText: "text", NeedsVisualization: true, ImportanceScore: 6},
	}
	got := Select(in, DefaultPolicy())
	ids := fmt.Sprint(segmentIDs(got))
	if ids != "[3 4 5 1]" {
		t.Fatalf("unexpected selection order: %s", ids)
	}
}

func TestSelect_FallbackIgnoresFlag(t *testing.T) {
	in := []types.Analysis{
		{SegmentID: 1, OriginalText: "text", ImportanceScore: 2},
		{SegmentID: 2, OriginalText: "text", NeedsVisualization: true, ImportanceScore: 1},
		{SegmentID: 3, OriginalText: "text", ImportanceScore: 8},
		{SegmentID: 4, OriginalText: "text", ImportanceScore: 5},
	}
	got := Select(in, DefaultPolicy())
	if ids := fmt.Sprint(segmentIDs(got)); ids != "[3 4 1]" {
		t.Fatalf("unexpected fallback selection: %s", ids)
	}
}

func TestSelect_SkipsBlankText(t *testing.T) {
	in := []types.Analysis{
		{SegmentID: 1, OriginalText: "  ", ImportanceScore: 9},
		{SegmentID: 2, OriginalText: "Paris at dawn", ImportanceScore: 4},
		{SegmentID: 3, ImportanceScore: 7},
		{SegmentID: 4, OriginalText: "", NeedsVisualization: true, ImportanceScore: 8},
		{SegmentID: 5, OriginalText: "a quiet harbour", ImportanceScore: 1},
	}
	got := Select(in, DefaultPolicy())
	if ids := fmt.Sprint(segmentIDs(got)); ids != "[2 5]" {
		t.Fatalf("selection = %s, want [2 5]", ids)
	}
}

func TestSelect_DoesNotMutateInput(t *testing.T) {
	in := []types.Analysis{{SegmentID: 1, OriginalText: "text", ImportanceScore: 1}, {SegmentID: 2, OriginalText: "text", ImportanceScore: 9}}
	_ = Select(in, DefaultPolicy())
	if in[0].SegmentID != 1 {
		t.Fatalf("input was reordered")
	}
}

func TestContext(t *testing.T) {
	segs := []types.SpeechSegment{
		{ID: 0, Text: "zero"}, {ID: 1, Text: "one"}, {ID: 2, Text: "two"},
		{ID: 3, Text: "three"}, {ID: 4, Text: " "}, {ID: 5, Text: "five"},
	}
	tests := []struct {
		i      int
		before string
		after  string
	}{
		{0, "", "one two"},
		{2, "zero one", "three"},
		{5, "three", ""},
		{9, "", ""},
	}
	for _, tt := range tests {
		before, after := Context(segs, tt.i, DefaultContextWindow)
		if before != tt.before || after != tt.after {
			t.Fatalf("Context(%d) = (%q, %q), want (%q, %q)", tt.i, before, after, tt.before, tt.after)
		}
	}
}

func segmentIDs(as []types.Analysis) []int {
	out := make([]int, 0, len(as))
	for _, a := range as {
		out = append(out, a.SegmentID)
	}
	return out
}
