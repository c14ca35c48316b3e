package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/laststand/components"
)

func TestSpatialGridQueryRadius(t *testing.T) {
	world := ecs.NewWorld()
	posMap := ecs.NewMap1[components.Position](world)
	grid := NewSpatialGrid(200, 200, 16)

	positions := []components.Position{
		{X: 0, Y: 0},
		{X: 5, Y: 5},
		{X: -30, Y: 0},
		{X: 99, Y: 99},
		{X: 150, Y: 0}, // outside the arena, kept in an edge cell
	}
	entities := make([]ecs.Entity, len(positions))
	for i := range positions {
		entities[i] = posMap.NewEntity(&positions[i])
		grid.Insert(entities[i], positions[i].X, positions[i].Y)
	}

	got := grid.QueryRadiusInto(nil, 0, 0, 10, posMap)
	if len(got) != 2 {
		t.Fatalf("found %d neighbors within 10, want 2", len(got))
	}
	for _, n := range got {
		if n.E != entities[0] && n.E != entities[1] {
			t.Errorf("unexpected neighbor %v", n.E)
		}
		if n.E == entities[1] && n.DistSq != 50 {
			t.Errorf("DistSq = %v, want 50", n.DistSq)
		}
	}

	if got := grid.QueryRadiusInto(nil, 100, 0, 55, posMap); len(got) != 1 || got[0].E != entities[4] {
		t.Errorf("edge query = %v, want the out-of-bounds entity", got)
	}

	grid.Clear()
	if got := grid.QueryRadiusInto(nil, 0, 0, 500, posMap); len(got) != 0 {
		t.Errorf("cleared grid returned %d neighbors", len(got))
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi / 2, math.Pi / 2},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{5 * math.Pi, math.Pi},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		got := NormalizeAngle(tt.in)
		if math.Abs(got-tt.want) > 1e-9 && !(math.Abs(math.Abs(got)-math.Pi) < 1e-9 && math.Abs(math.Abs(tt.want)-math.Pi) < 1e-9) {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRelativeBearing(t *testing.T) {
	if got := RelativeBearing(math.Pi-0.1, -math.Pi+0.1); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("bearing across the seam = %v, want 0.2", got)
	}
	if got := RelativeBearing(0, -math.Pi/2); math.Abs(got+math.Pi/2) > 1e-9 {
		t.Errorf("bearing = %v, want -pi/2", got)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 1) != 1 || Clamp(-5, 0, 1) != 0 || Clamp(0.5, 0, 1) != 0.5 {
		t.Error("Clamp out of range")
	}
}
