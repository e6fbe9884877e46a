package curve

import (
	"math"
	"testing"
)

func TestEvaluateEndpointsAndClamping(t *testing.T) {
	c := Curve{T0: 0, V0: 5, T1: 600, V1: 50, Easing: EaseSmoothStep}

	if got := c.Evaluate(0); got != 5 {
		t.Errorf("Expected start value 5 at t=0, got %v", got)
	}
	if got := c.Evaluate(600); got != 50 {
		t.Errorf("Expected end value 50 at t=600, got %v", got)
	}

	// Outside the span the curve holds its endpoints.
	if got := c.Evaluate(-10); got != 5 {
		t.Errorf("Expected clamp to 5 before T0, got %v", got)
	}
	if got := c.Evaluate(4000); got != 50 {
		t.Errorf("Expected clamp to 50 after T1, got %v", got)
	}
}

func TestEvaluateSmoothStepMidpoint(t *testing.T) {
	c := Curve{T0: 0, V0: 0, T1: 1, V1: 1, Easing: EaseSmoothStep}

	// Smoothstep passes through the midpoint exactly.
	if got := c.Evaluate(0.5); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected 0.5 at midpoint, got %v", got)
	}

	// Ease-in: the first quarter covers less than a quarter of the value.
	if got := c.Evaluate(0.25); got >= 0.25 {
		t.Errorf("Expected ease-in below linear at u=0.25, got %v", got)
	}
	// Ease-out mirrors it.
	if got := c.Evaluate(0.75); got <= 0.75 {
		t.Errorf("Expected ease-out above linear at u=0.75, got %v", got)
	}
}

func TestEvaluateLinear(t *testing.T) {
	c := Curve{T0: 0, V0: 1, T1: 10, V1: 3, Easing: EaseLinear}

	if got := c.Evaluate(5); math.Abs(got-2) > 1e-9 {
		t.Errorf("Expected linear midpoint 2, got %v", got)
	}
}

func TestDegenerateSpan(t *testing.T) {
	c := Curve{T0: 10, V0: 7, T1: 10, V1: 99}

	if c.Valid() {
		t.Errorf("Expected zero-length span to be invalid")
	}
	// Evaluate must still be safe and hold the starting value.
	if got := c.Evaluate(10); got != 7 {
		t.Errorf("Expected degenerate curve to hold V0=7, got %v", got)
	}
}
