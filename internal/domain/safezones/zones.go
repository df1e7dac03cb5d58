package safezones

import (
	"sort"

	"github.com/forPelevin/reelcut/internal/types"
)

const (
	gridSize = 3

	baseScore    = 100.0
	centerFine   = 10.0
	bottomBonus  = 15.0
	minZoneScore = 0.0
	maxZoneScore = 100.0

	// DefaultInterval samples every fifth frame.
	DefaultInterval = 5

	fallbackAnchorY = 0.82
)

// Compute scores the 3x3 grid of a width x height frame against detected
// faces and returns the nine zones best first. Ties keep row-major order.
//
// Grid cells are width/3 by height/3; the last column and row absorb the
// remainder so the cells tile the whole frame.
func Compute(width, height int, faces []types.Rect) []types.SafeZone {
	if width <= 0 || height <= 0 {
		return nil
	}
	cellW := width / gridSize
	cellH := height / gridSize

	zones := make([]types.SafeZone, 0, gridSize*gridSize)
	for row := 0; row < gridSize; row++ {
		for col := 0; col < gridSize; col++ {
			z := types.SafeZone{
				X:      col * cellW,
				Y:      row * cellH,
				Width:  cellW,
				Height: cellH,
				Score:  baseScore,
			}
			if col == gridSize-1 {
				z.Width = width - z.X
			}
			if row == gridSize-1 {
				z.Height = height - z.Y
			}
			for _, f := range faces {
				z.Score -= coveredPercent(z, f)
			}
			if row == 1 && col == 1 {
				z.Score -= centerFine
			}
			if row == gridSize-1 {
				z.Score += bottomBonus
			}
			z.Score = clamp(z.Score, minZoneScore, maxZoneScore)
			zones = append(zones, z)
		}
	}
	sort.SliceStable(zones, func(i, j int) bool { return zones[i].Score > zones[j].Score })
	return zones
}

// coveredPercent is the share of the zone's own area covered by f, in percent.
func coveredPercent(z types.SafeZone, f types.Rect) float64 {
	area := z.Width * z.Height
	if area == 0 || f.W <= 0 || f.H <= 0 {
		return 0
	}
	ox := min(z.X+z.Width, f.X+f.W) - max(z.X, f.X)
	oy := min(z.Y+z.Height, f.Y+f.H) - max(z.Y, f.Y)
	if ox <= 0 || oy <= 0 {
		return 0
	}
	return float64(ox*oy) / float64(area) * 100
}

// TextAnchor resolves the fixed caption anchor for a segment: the centre of
// the best zone sampled nearest the segment midpoint, or bottom centre when
// the map has no samples.
func TextAnchor(m types.SafeZoneMap, start, end float64, width, height int) (int, int) {
	zones, ok := m.Nearest((start + end) / 2)
	if !ok || len(zones) == 0 {
		return width / 2, int(float64(height) * fallbackAnchorY)
	}
	return zones[0].Center()
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
