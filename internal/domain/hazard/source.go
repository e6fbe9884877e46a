// Package hazard defines the domain entity for an emission point.
// This package is PURE and must NOT import any infrastructure packages.
package hazard

import (
	"math"
	"math/rand"
)

// Vec2 is a position on the seabed plane. The core never simulates physics
// with it; it only enforces spacing and hands positions outward.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the euclidean distance between two positions.
func (v Vec2) DistanceTo(o Vec2) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Source represents one active emission point (one leak location).
type Source struct {
	ID               string  `json:"id"`
	Position         Vec2    `json:"position"`
	Enabled          bool    `json:"enabled"`
	CollisionEnabled bool    `json:"collision_enabled"`
	CurrentRate      float64 `json:"current_rate"`
}

// NewSource creates an emission point with emission and collisions off.
// The manager flips the flags when the run state allows it.
func NewSource(id string, pos Vec2) *Source {
	return &Source{
		ID:       id,
		Position: pos,
	}
}

// maxPlacementAttempts bounds the rejection sampling before the
// deterministic fallback kicks in.
const maxPlacementAttempts = 16

// PlacePosition picks a position for a new source: uniform samples inside
// spawnRadius around base, rejecting anything closer than minSpacing to an
// existing source. After maxPlacementAttempts failures it falls back to a
// deterministic ring offset derived from the source index, so spawning
// never stalls on a crowded field.
func PlacePosition(rng *rand.Rand, base Vec2, existing []*Source, spawnRadius, minSpacing float64, index int) Vec2 {
	for attempt := 0; attempt < maxPlacementAttempts; attempt++ {
		angle := rng.Float64() * 2 * math.Pi
		dist := rng.Float64() * spawnRadius
		candidate := Vec2{
			X: base.X + math.Cos(angle)*dist,
			Y: base.Y + math.Sin(angle)*dist,
		}
		if clearOf(candidate, existing, minSpacing) {
			return candidate
		}
	}

	// Deterministic fallback: walk outward on a fixed spiral.
	angle := float64(index) * (2 * math.Pi / 5)
	dist := minSpacing * float64(index+1)
	return Vec2{
		X: base.X + math.Cos(angle)*dist,
		Y: base.Y + math.Sin(angle)*dist,
	}
}

func clearOf(candidate Vec2, existing []*Source, minSpacing float64) bool {
	for _, s := range existing {
		if candidate.DistanceTo(s.Position) < minSpacing {
			return false
		}
	}
	return true
}
