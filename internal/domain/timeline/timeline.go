package timeline

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/forPelevin/reelcut/internal/types"
)

const (
	PriorityCustomImage = 100
	PriorityAIImage     = 50
	PriorityText        = 10
)

var (
	ErrInvalidSegment  = errors.New("invalid timeline segment")
	ErrInvalidDuration = errors.New("invalid video duration")
)

// Builder collects timed annotations for one video and turns them into a
// render plan. It is not safe for concurrent use.
type Builder struct {
	segments []types.TimelineSegment
}

func New() *Builder { return &Builder{} }

// Priority returns the fixed ordinal of a segment type.
func Priority(t types.SegmentType) (int, bool) {
	switch t {
	case types.SegmentCustomImage:
		return PriorityCustomImage, true
	case types.SegmentAIImage:
		return PriorityAIImage, true
	case types.SegmentText:
		return PriorityText, true
	default:
		return 0, false
	}
}

func (b *Builder) AddText(start, end float64, data types.SegmentData) error {
	if len(data.EmphasisWords) == 0 {
		data.EmphasisWords = nil
	}
	return b.add(types.SegmentText, start, end, data)
}

func (b *Builder) AddAIImage(start, end float64, imagePath string, analysis types.Analysis) error {
	a := analysis
	return b.add(types.SegmentAIImage, start, end, types.SegmentData{ImagePath: imagePath, Analysis: &a})
}

func (b *Builder) AddCustomImage(start, end float64, imagePath string) error {
	return b.add(types.SegmentCustomImage, start, end, types.SegmentData{ImagePath: imagePath})
}

func (b *Builder) add(t types.SegmentType, start, end float64, data types.SegmentData) error {
	prio, ok := Priority(t)
	if !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSegment, t)
	}
	if !finite(start) || !finite(end) || end <= start {
		return fmt.Errorf("%w: %s [%v, %v)", ErrInvalidSegment, t, start, end)
	}
	b.segments = append(b.segments, types.TimelineSegment{
		StartTime: start,
		EndTime:   end,
		Type:      t,
		Priority:  prio,
		Data:      data,
	})
	return nil
}

// Segments returns a copy of the segments in insertion order.
func (b *Builder) Segments() []types.TimelineSegment {
	out := make([]types.TimelineSegment, len(b.segments))
	copy(out, b.segments)
	return out
}

// Stats counts segments by type. Conflicts is the number of image segments
// that lose time to a higher-ranked image during the merge.
func (b *Builder) Stats() types.TimelineStats {
	st := types.TimelineStats{TotalSegments: len(b.segments)}
	for _, s := range b.segments {
		switch s.Type {
		case types.SegmentText:
			st.TextSegments++
		case types.SegmentAIImage:
			st.AIImages++
		case types.SegmentCustomImage:
			st.CustomImages++
		}
	}
	_, st.Conflicts = b.resolveImages(math.Inf(1))
	return st
}

// BuildRenderPlan flattens the segments into time-ordered render entries.
//
// Image segments form the backbone together with original_video fillers and
// tile [0, videoDuration) exactly. Overlapping images are merged: the higher
// priority keeps the disputed range, equal priorities favour the earlier
// start and then insertion order; the loser is truncated or split. Text
// segments become text_overlay entries layered on top.
func (b *Builder) BuildRenderPlan(videoDuration float64) ([]types.PlanEntry, error) {
	if !finite(videoDuration) || videoDuration <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, videoDuration)
	}

	pieces, _ := b.resolveImages(videoDuration)

	var plan []types.PlanEntry
	cursor := 0.0
	for _, p := range pieces {
		seg := b.segments[p.seg]
		if p.start > cursor {
			plan = append(plan, entry(types.EntryOriginalVideo, cursor, p.start, types.SegmentData{}))
		}
		plan = append(plan, entry(types.EntryType(seg.Type), p.start, p.end, seg.Data))
		cursor = p.end
	}
	if cursor < videoDuration {
		plan = append(plan, entry(types.EntryOriginalVideo, cursor, videoDuration, types.SegmentData{}))
	}

	for _, s := range b.segments {
		if s.Type != types.SegmentText {
			continue
		}
		start, end := clampSpan(s.StartTime, s.EndTime, videoDuration)
		if end <= start {
			continue
		}
		plan = append(plan, entry(types.EntryTextOverlay, start, end, s.Data))
	}

	sort.SliceStable(plan, func(i, j int) bool {
		if plan[i].Start != plan[j].Start {
			return plan[i].Start < plan[j].Start
		}
		return plan[i].Type.IsBackbone() && !plan[j].Type.IsBackbone()
	})
	return plan, nil
}

type piece struct {
	start, end float64
	seg        int
}

// resolveImages assigns every instant of [0, duration) to at most one image
// segment and returns the surviving pieces ordered by start, plus the number
// of image segments that were truncated, split or dropped.
func (b *Builder) resolveImages(duration float64) ([]piece, int) {
	var order []int
	for i, s := range b.segments {
		if s.Type.IsImage() {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, c := b.segments[order[i]], b.segments[order[j]]
		if a.Priority != c.Priority {
			return a.Priority > c.Priority
		}
		return a.StartTime < c.StartTime
	})

	var (
		taken     []piece
		conflicts int
	)
	for _, idx := range order {
		s := b.segments[idx]
		start, end := clampSpan(s.StartTime, s.EndTime, duration)
		if end <= start {
			continue
		}
		free := subtract(start, end, taken)
		if len(free) != 1 || free[0].start != start || free[0].end != end {
			conflicts++
		}
		for _, f := range free {
			taken = insertSorted(taken, piece{start: f.start, end: f.end, seg: idx})
		}
	}
	return taken, conflicts
}

// subtract returns the parts of [start, end) not covered by taken, which
// must be sorted and non-overlapping.
func subtract(start, end float64, taken []piece) []piece {
	var out []piece
	cur := start
	for _, t := range taken {
		if t.end <= cur {
			continue
		}
		if t.start >= end {
			break
		}
		if t.start > cur {
			out = append(out, piece{start: cur, end: t.start})
		}
		if t.end > cur {
			cur = t.end
		}
		if cur >= end {
			return out
		}
	}
	if cur < end {
		out = append(out, piece{start: cur, end: end})
	}
	return out
}

func insertSorted(ps []piece, p piece) []piece {
	i := sort.Search(len(ps), func(i int) bool { return ps[i].start >= p.start })
	ps = append(ps, piece{})
	copy(ps[i+1:], ps[i:])
	ps[i] = p
	return ps
}

func entry(t types.EntryType, start, end float64, data types.SegmentData) types.PlanEntry {
	return types.PlanEntry{Type: t, Start: start, End: end, Duration: end - start, Data: data}
}

func clampSpan(start, end, duration float64) (float64, float64) {
	return math.Max(start, 0), math.Min(end, duration)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
