package phrases

import (
	"strings"

	"github.com/forPelevin/reelcut/internal/types"
)

// DefaultMaxDuration is the caption span budget in seconds.
const DefaultMaxDuration = 5.0

// Build groups consecutive speech segments into caption phrases.
//
// A segment starts a new phrase when adding it would stretch the current
// phrase past maxDuration and the current phrase already has text. The closed
// phrase ends where the triggering segment starts. A single segment longer
// than maxDuration still becomes one phrase.
func Build(segs []types.SpeechSegment, maxDuration float64) []types.Phrase {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	if len(segs) == 0 {
		return nil
	}
	var out []types.Phrase
	cur := types.Phrase{Start: segs[0].Start}
	for _, s := range segs {
		text := strings.TrimSpace(s.Text)
		if s.End-cur.Start > maxDuration && cur.Text != "" {
			cur.End = s.Start
			out = append(out, cur)
			cur = types.Phrase{
				Text:       text,
				Start:      s.Start,
				End:        s.End,
				SegmentIDs: []int{s.ID},
			}
			continue
		}
		switch {
		case cur.Text == "":
			cur.Text = text
		case text != "":
			cur.Text += " " + text
		}
		cur.End = s.End
		cur.SegmentIDs = append(cur.SegmentIDs, s.ID)
	}
	switch {
	case cur.Text != "":
		out = append(out, cur)
	case len(out) > 0:
		// trailing silence keeps its ids without stretching the last caption
		last := &out[len(out)-1]
		last.SegmentIDs = append(last.SegmentIDs, cur.SegmentIDs...)
	}
	return out
}
