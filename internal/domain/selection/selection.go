package selection

import (
	"sort"
	"strings"

	"github.com/forPelevin/reelcut/internal/types"
)

const (
	DefaultMaxTotal      = 5
	DefaultMinGuaranteed = 3
	DefaultContextWindow = 2
)

// Policy bounds how many scored segments receive a generated image.
type Policy struct {
	MaxTotal      int
	MinGuaranteed int
}

func DefaultPolicy() Policy {
	return Policy{MaxTotal: DefaultMaxTotal, MinGuaranteed: DefaultMinGuaranteed}
}

// Select picks the segments to illustrate, highest importance first.
//
// With at least MaxTotal segments flagged for visualization the top MaxTotal
// are taken; with at least MinGuaranteed flagged all of them are taken;
// otherwise the top MinGuaranteed results are taken regardless of the flag.
// Equal scores keep their input order. Results without text are never picked.
func Select(results []types.Analysis, p Policy) []types.Analysis {
	if p.MaxTotal <= 0 {
		p.MaxTotal = DefaultMaxTotal
	}
	if p.MinGuaranteed < 0 {
		p.MinGuaranteed = 0
	}
	if p.MinGuaranteed > p.MaxTotal {
		p.MinGuaranteed = p.MaxTotal
	}

	ranked := make([]types.Analysis, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.OriginalText) != "" {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ImportanceScore > ranked[j].ImportanceScore
	})

	var flagged []types.Analysis
	for _, r := range ranked {
		if r.NeedsVisualization {
			flagged = append(flagged, r)
		}
	}

	switch {
	case len(flagged) >= p.MaxTotal:
		return flagged[:p.MaxTotal]
	case len(flagged) >= p.MinGuaranteed && len(flagged) > 0:
		return flagged
	default:
		return ranked[:min(p.MinGuaranteed, len(ranked))]
	}
}

// Context joins the text of up to window segments before and after index i.
func Context(segs []types.SpeechSegment, i, window int) (before, after string) {
	if i < 0 || i >= len(segs) || window <= 0 {
		return "", ""
	}
	lo := max(0, i-window)
	hi := min(len(segs), i+window+1)
	return joinText(segs[lo:i]), joinText(segs[i+1 : hi])
}

func joinText(segs []types.SpeechSegment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
