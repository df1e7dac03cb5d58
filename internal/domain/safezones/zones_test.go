package safezones

import (
	"testing"

	"github.com/forPelevin/reelcut/internal/types"
)

func TestCompute_CenteredFacePrefersBottomRow(t *testing.T) {
	// 1080x1920 portrait frame, face centred and spilling past the middle cell.
	face := types.Rect{X: 300, Y: 510, W: 480, H: 900}
	zones := Compute(1080, 1920, []types.Rect{face})
	if len(zones) != 9 {
		t.Fatalf("expected 9 zones, got %d", len(zones))
	}
	if zones[0].Y != 1280 {
		t.Fatalf("expected a bottom-row zone first, got %+v", zones[0])
	}
	if zones[0].Score != 100 {
		t.Fatalf("expected clamped bottom score 100, got %v", zones[0].Score)
	}
	last := zones[len(zones)-1]
	if last.X != 360 || last.Y != 640 || last.Score != 0 {
		t.Fatalf("expected centre zone last with score 0, got %+v", last)
	}
}

func TestCompute_NoFacesScores(t *testing.T) {
	zones := Compute(300, 300, nil)
	counts := map[float64]int{}
	for _, z := range zones {
		counts[z.Score]++
	}
	if counts[100] != 8 || counts[90] != 1 {
		t.Fatalf("unexpected score distribution: %v", counts)
	}
	// ties stay in row-major order
	if zones[0].X != 0 || zones[0].Y != 0 || zones[1].X != 100 || zones[1].Y != 0 {
		t.Fatalf("expected row-major tie order, got %+v %+v", zones[0], zones[1])
	}
	if zones[8].X != 100 || zones[8].Y != 100 {
		t.Fatalf("expected centre zone last, got %+v", zones[8])
	}
}

func TestCompute_PenaltyIsShareOfZoneArea(t *testing.T) {
	// Face covers a quarter of the top-left 100x100 cell.
	zones := Compute(300, 300, []types.Rect{{X: 0, Y: 0, W: 50, H: 50}})
	for _, z := range zones {
		if z.X == 0 && z.Y == 0 {
			if z.Score != 75 {
				t.Fatalf("expected top-left score 75, got %v", z.Score)
			}
			return
		}
	}
	t.Fatalf("top-left zone missing")
}

func TestCompute_RemainderAbsorbedByLastCell(t *testing.T) {
	zones := Compute(1001, 502, nil)
	area := 0
	for _, z := range zones {
		area += z.Width * z.Height
		if z.Score < 0 || z.Score > 100 {
			t.Fatalf("score out of range: %+v", z)
		}
	}
	if area != 1001*502 {
		t.Fatalf("zones do not tile the frame: area %d", area)
	}
}

func TestCompute_InvalidFrame(t *testing.T) {
	if zones := Compute(0, 100, nil); zones != nil {
		t.Fatalf("expected no zones, got %+v", zones)
	}
}

func TestTextAnchor(t *testing.T) {
	m := types.SafeZoneMap{Samples: []types.SafeZoneSample{
		{Time: 0, Zones: []types.SafeZone{{X: 0, Y: 0, Width: 100, Height: 100, Score: 90}}},
		{Time: 2, Zones: []types.SafeZone{{X: 200, Y: 400, Width: 100, Height: 100, Score: 95}}},
	}}
	tests := []struct {
		name       string
		m          types.SafeZoneMap
		start, end float64
		wantX      int
		wantY      int
	}{
		{"nearest earlier", m, 0, 1.8, 50, 50},
		{"tie picks earlier", m, 0, 2, 50, 50},
		{"nearest later", m, 1, 3, 250, 450},
		{"past last sample", m, 10, 12, 250, 450},
		{"fallback", types.SafeZoneMap{}, 0, 1, 540, 1574},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := TextAnchor(tt.m, tt.start, tt.end, 1080, 1920)
			if x != tt.wantX || y != tt.wantY {
				t.Fatalf("TextAnchor = (%d,%d), want (%d,%d)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}
