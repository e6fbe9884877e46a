package engine

// EmissionBudgeter divides a total emission rate evenly across the active
// sources. Recomputed on any change to the total or the source count,
// keeping the sum invariant.
type EmissionBudgeter struct{}

// PerSource returns the per-source rate for the given total and active
// count. ok is false when there is nothing to distribute to; a rate-set
// request with zero active sources is a no-op, never a division.
func (EmissionBudgeter) PerSource(total float64, activeCount int) (rate float64, ok bool) {
	if activeCount <= 0 {
		return 0, false
	}
	return total / float64(activeCount), true
}
