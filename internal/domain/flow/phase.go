// Package flow defines the lifecycle phases of a survival run.
// This package is PURE and must NOT import any infrastructure packages.
package flow

import (
	"fmt"
	"strings"
	"unicode"
)

// Phase is one discrete value of the lifecycle state machine.
type Phase string

const (
	PhaseMenu           Phase = "Menu"
	PhaseStarting       Phase = "Starting"
	PhaseRunning        Phase = "Running"
	PhasePaused         Phase = "Paused"
	PhaseEnding         Phase = "Ending"
	PhaseCleaning       Phase = "Cleaning"
	PhaseShowingResults Phase = "ShowingResults"
)

// forbiddenFragments are name fragments that would describe a winnable
// outcome. The game is fail-only: a run can be delayed, never won.
var forbiddenFragments = []string{
	"victory", "win", "winning", "success", "succeeded", "winner",
}

// DefaultAdjacency returns the authoritative transition table.
// Every run walks Menu → Starting → Running → … → ShowingResults → Menu;
// the only branches are pause and early termination.
func DefaultAdjacency() map[Phase][]Phase {
	return map[Phase][]Phase{
		PhaseMenu:           {PhaseStarting},
		PhaseStarting:       {PhaseRunning},
		PhaseRunning:        {PhasePaused, PhaseEnding},
		PhasePaused:         {PhaseRunning, PhaseEnding},
		PhaseEnding:         {PhaseCleaning},
		PhaseCleaning:       {PhaseShowingResults},
		PhaseShowingResults: {PhaseMenu},
	}
}

// ValidateName rejects any phase whose name contains a win-shaped word,
// case-insensitively. Names are split into words on camel-case and
// non-letter boundaries before matching, so "ShowingResults" is legal
// while "RunWon_Win" is not. A match is a configuration error, not
// something a caller should recover from at runtime.
func ValidateName(p Phase) error {
	for _, word := range splitWords(string(p)) {
		for _, frag := range forbiddenFragments {
			if strings.HasPrefix(word, frag) {
				return fmt.Errorf("phase %q names a winnable state (word %q matches %q): the simulation is fail-only", p, word, frag)
			}
		}
	}
	return nil
}

// splitWords breaks a phase name into lowercase words. A word ends at a
// non-letter rune or at a lower-to-upper camel-case boundary.
func splitWords(name string) []string {
	var words []string
	var current []rune
	prevLower := false

	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	for _, r := range name {
		if !unicode.IsLetter(r) {
			flush()
			prevLower = false
			continue
		}
		if unicode.IsUpper(r) && prevLower {
			flush()
		}
		current = append(current, unicode.ToLower(r))
		prevLower = unicode.IsLower(r)
	}
	flush()
	return words
}

// ValidateAdjacency checks every phase appearing in the table, keys and
// targets alike, against the forbidden-name rules.
func ValidateAdjacency(adjacency map[Phase][]Phase) error {
	for from, targets := range adjacency {
		if err := ValidateName(from); err != nil {
			return err
		}
		for _, to := range targets {
			if err := ValidateName(to); err != nil {
				return err
			}
		}
	}
	return nil
}
