package phrases

import (
	"reflect"
	"testing"

	"github.com/forPelevin/reelcut/internal/types"
)

func TestBuild_SplitsOnMaxDuration(t *testing.T) {
	segs := []types.SpeechSegment{
		{ID: 1, Text: "hello", Start: 0, End: 2},
		{ID: 2, Text: "world", Start: 2, End: 3},
		{ID: 3, Text: "today", Start: 3, End: 9},
	}
	got := Build(segs, 5.0)
	want := []types.Phrase{
		{Text: "hello world", Start: 0, End: 3, SegmentIDs: []int{1, 2}},
		{Text: "today", Start: 3, End: 9, SegmentIDs: []int{3}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected phrases:\n got %+v\nwant %+v", got, want)
	}
}

func TestBuild_ClosedPhraseEndsAtTriggerStart(t *testing.T) {
	segs := []types.SpeechSegment{
		{ID: 0, Text: "a", Start: 0, End: 3},
		{ID: 1, Text: "b", Start: 4.5, End: 6},
	}
	got := Build(segs, 5.0)
	if len(got) != 2 {
		t.Fatalf("expected 2 phrases, got %d", len(got))
	}
	if got[0].End != 4.5 {
		t.Fatalf("expected first phrase to end at 4.5, got %v", got[0].End)
	}
}

func TestBuild_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		segs []types.SpeechSegment
		max  float64
		want int
	}{
		{"empty", nil, 5, 0},
		{"single long segment", []types.SpeechSegment{{ID: 1, Text: "long", Start: 0, End: 12}}, 5, 1},
		{"blank only", []types.SpeechSegment{{ID: 1, Text: "  ", Start: 0, End: 1}}, 5, 0},
		{"default max", []types.SpeechSegment{
			{ID: 1, Text: "a", Start: 0, End: 3},
			{ID: 2, Text: "b", Start: 3, End: 6},
		}, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Build(tt.segs, tt.max); len(got) != tt.want {
				t.Fatalf("expected %d phrases, got %d (%+v)", tt.want, len(got), got)
			}
		})
	}
}

func TestBuild_EveryIDOnceAndNoOverlap(t *testing.T) {
	var segs []types.SpeechSegment
	start := 0.0
	lengths := []float64{0.4, 1.2, 3.3, 0.7, 6.1, 0.2, 2.2, 2.9, 4.8, 0.9, 1.1}
	for i, l := range lengths {
		text := "word"
		if i == 5 {
			text = ""
		}
		segs = append(segs, types.SpeechSegment{ID: i, Text: text, Start: start, End: start + l})
		start += l + 0.1
	}
	segs = append(segs, types.SpeechSegment{ID: 99, Text: " ", Start: start, End: start + 1})

	got := Build(segs, 5.0)
	seen := map[int]int{}
	for i, p := range got {
		if p.End < p.Start {
			t.Fatalf("phrase %d has negative span: %+v", i, p)
		}
		if i > 0 && p.Start < got[i-1].End {
			t.Fatalf("phrase %d overlaps previous: %+v vs %+v", i, p, got[i-1])
		}
		for _, id := range p.SegmentIDs {
			seen[id]++
		}
	}
	for _, s := range segs {
		if seen[s.ID] != 1 {
			t.Fatalf("segment %d appears %d times", s.ID, seen[s.ID])
		}
	}
}
