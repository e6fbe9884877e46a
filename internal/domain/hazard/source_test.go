package hazard

import (
	"math"
	"math/rand"
	"testing"
)

func TestDistanceTo(t *testing.T) {
	a := Vec2{X: 0, Y: 0}
	b := Vec2{X: 3, Y: 4}

	if got := a.DistanceTo(b); math.Abs(got-5) > 1e-9 {
		t.Errorf("Expected distance 5, got %v", got)
	}
}

func TestNewSourceStartsDisabled(t *testing.T) {
	s := NewSource("SRC-001", Vec2{X: 1, Y: 2})

	if s.Enabled || s.CollisionEnabled {
		t.Errorf("Expected new source to start with emission and collisions off")
	}
	if s.CurrentRate != 0 {
		t.Errorf("Expected new source rate 0, got %v", s.CurrentRate)
	}
}

func TestPlacePositionRespectsSpacing(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := Vec2{X: 0, Y: 0}
	existing := []*Source{NewSource("SRC-001", base)}

	// Plenty of clear seabed: sampling must find a spaced spot.
	pos := PlacePosition(rng, base, existing, 20, 6, 1)

	if pos.DistanceTo(base) < 6 {
		t.Errorf("Expected placement at least 6 from existing source, got %v", pos.DistanceTo(base))
	}
	if pos.DistanceTo(base) > 20 {
		t.Errorf("Expected placement inside spawn radius 20, got %v", pos.DistanceTo(base))
	}
}

func TestPlacePositionDeterministicFallback(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := Vec2{X: 0, Y: 0}
	existing := []*Source{NewSource("SRC-001", base)}

	// Spacing wider than the whole spawn disc: every sample is rejected,
	// so the spiral fallback must produce the indexed ring position.
	const spacing = 50.0
	const index = 1
	pos := PlacePosition(rng, base, existing, 20, spacing, index)

	angle := float64(index) * (2 * math.Pi / 5)
	want := Vec2{
		X: math.Cos(angle) * spacing * float64(index+1),
		Y: math.Sin(angle) * spacing * float64(index+1),
	}

	if math.Abs(pos.X-want.X) > 1e-9 || math.Abs(pos.Y-want.Y) > 1e-9 {
		t.Errorf("Expected fallback position %v, got %v", want, pos)
	}
}
