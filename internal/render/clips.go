package render

import (
	"fmt"
	"path/filepath"

	"github.com/forPelevin/reelcut/internal/types"
)

// clip is one backbone piece. Footage clips trim [start, end) from the
// source; image clips show image for end-start seconds.
type clip struct {
	start float64
	end   float64
	image string
}

// prepare fits image assets to the frame. Images that are missing or fail to
// decode fall back to source footage for their span; adjacent footage spans
// are merged.
func (e *Engine) prepare(workDir string, entries []types.PlanEntry, info types.VideoInfo) ([]clip, int) {
	var (
		out     []clip
		skipped int
	)
	for i, en := range entries {
		c := clip{start: en.Start, end: en.End}
		if en.Type == types.EntryAIImage || en.Type == types.EntryCustomImage {
			fitted := filepath.Join(workDir, fmt.Sprintf("image_%03d.png", i))
			if err := e.fitImage(en.Data.ImagePath, fitted, info); err != nil {
				e.log.Warn("image skipped", "start", en.Start, "end", en.End, "path", en.Data.ImagePath, "err", err)
				skipped++
			} else {
				c.image = fitted
			}
		}
		if n := len(out); n > 0 && c.image == "" && out[n-1].image == "" && out[n-1].end == c.start {
			out[n-1].end = c.end
			continue
		}
		out = append(out, c)
	}
	return out, skipped
}

func (e *Engine) fitImage(src, dst string, info types.VideoInfo) error {
	if src == "" {
		return fmt.Errorf("no image path")
	}
	return e.fitter.Fit(src, dst, info.Width, info.Height)
}

// carryShort folds clips shorter than one frame into their successor, or
// into the predecessor for a trailing one, so the encoded backbone keeps the
// plan's total duration. It also reports how many image clips were folded
// away.
func carryShort(clips []clip, frame float64) ([]clip, int) {
	if frame <= 0 || len(clips) < 2 {
		return clips, 0
	}
	out := make([]clip, 0, len(clips))
	carryStart, carry := 0.0, 0.0
	dropped := 0
	for _, c := range clips {
		d := c.end - c.start
		if d < frame {
			if carry == 0 {
				carryStart = c.start
			}
			carry += d
			if c.image != "" {
				dropped++
			}
			continue
		}
		if carry > 0 {
			if c.image == "" {
				c.start = carryStart
			} else {
				c.start -= carry
			}
			carry = 0
		}
		out = append(out, c)
	}
	if carry > 0 {
		if len(out) == 0 {
			return []clip{{start: carryStart, end: carryStart + carry}}, dropped
		}
		out[len(out)-1].end += carry
	}
	return out, dropped
}

func frameDuration(fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return 1 / fps
}
