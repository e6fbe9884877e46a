// Package engine contains the control core of the survival simulation.
//
// ARCHITECTURAL RULE: the core decides rates, budgets, and legal phase
// transitions. It does not simulate physics, render particles, or play
// audio; those are collaborators that feed it counters and consume its
// notifications. All state mutation is driven from a single tick loop.
package engine
