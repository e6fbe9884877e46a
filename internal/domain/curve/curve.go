// Package curve contains the pure interpolation logic for difficulty pacing.
// This package is PURE and must NOT import any infrastructure packages.
package curve

// Easing selects the interpolation shape between the two endpoints.
type Easing int

const (
	// EaseLinear interpolates at a constant slope.
	EaseLinear Easing = iota
	// EaseSmoothStep is the ease-in-out shape (slow, fast, slow).
	EaseSmoothStep
)

// Curve is a two-keyframe interpolation: value V0 at time T0 rising to V1
// at time T1, with the chosen easing in between. Times are in seconds.
type Curve struct {
	T0, V0 float64
	T1, V1 float64
	Easing Easing
}

// Evaluate returns the curve value at time t, clamped to the endpoints
// outside [T0, T1].
func (c Curve) Evaluate(t float64) float64 {
	if c.T1 <= c.T0 {
		// Degenerate span, hold the starting value.
		return c.V0
	}
	u := (t - c.T0) / (c.T1 - c.T0)
	if u <= 0 {
		return c.V0
	}
	if u >= 1 {
		return c.V1
	}
	if c.Easing == EaseSmoothStep {
		u = u * u * (3 - 2*u)
	}
	return c.V0 + (c.V1-c.V0)*u
}

// Valid reports whether the curve has a usable time span.
// A missing endpoint is a configuration error the caller must surface.
func (c Curve) Valid() bool {
	return c.T1 > c.T0
}
