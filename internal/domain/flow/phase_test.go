package flow

import "testing"

func TestValidateNameRejectsWinShapedPhases(t *testing.T) {
	forbidden := []Phase{
		"Victory",
		"Win",
		"Winning",
		"winner_screen",
		"GrandSuccess",
		"SucceededEnding",
		"RunWon_Win",
		"VictoryLap",
		"unSUCCESSful", // the word "successful" regardless of case or intent
	}

	for _, p := range forbidden {
		if err := ValidateName(p); err == nil {
			t.Errorf("Expected phase %q to be rejected as win-shaped", p)
		}
	}
}

func TestValidateNameAcceptsFailOnlyPhases(t *testing.T) {
	// "ShowingResults" embeds "win" across a letter run ("sho-win-g") and
	// must still pass: matching is per word, not raw substring.
	allowed := []Phase{
		PhaseMenu, PhaseStarting, PhaseRunning, PhasePaused,
		PhaseEnding, PhaseCleaning, PhaseShowingResults,
		"Drowning", "FinalCollapse", "Unwinnable",
	}

	for _, p := range allowed {
		if err := ValidateName(p); err != nil {
			t.Errorf("Expected phase %q to be accepted, got %v", p, err)
		}
	}
}

func TestDefaultAdjacencyCycle(t *testing.T) {
	adj := DefaultAdjacency()

	// The run must be able to walk the full loop back to Menu.
	path := []Phase{
		PhaseMenu, PhaseStarting, PhaseRunning,
		PhaseEnding, PhaseCleaning, PhaseShowingResults, PhaseMenu,
	}
	for i := 0; i < len(path)-1; i++ {
		if !contains(adj[path[i]], path[i+1]) {
			t.Errorf("Expected %s → %s to be legal", path[i], path[i+1])
		}
	}

	// Pause branches both ways.
	if !contains(adj[PhaseRunning], PhasePaused) || !contains(adj[PhasePaused], PhaseRunning) {
		t.Errorf("Expected Running ⇄ Paused to be legal both directions")
	}

	// Early termination from pause.
	if !contains(adj[PhasePaused], PhaseEnding) {
		t.Errorf("Expected Paused → Ending to be legal")
	}

	// No shortcut from Menu straight into Running.
	if contains(adj[PhaseMenu], PhaseRunning) {
		t.Errorf("Menu → Running must not be legal; runs go through Starting")
	}
}

func TestValidateAdjacencyRejectsPoisonedTable(t *testing.T) {
	adj := DefaultAdjacency()
	adj[PhaseShowingResults] = append(adj[PhaseShowingResults], Phase("VictoryLap"))

	if err := ValidateAdjacency(adj); err == nil {
		t.Errorf("Expected adjacency containing VictoryLap to be rejected")
	}
}

func contains(phases []Phase, p Phase) bool {
	for _, c := range phases {
		if c == p {
			return true
		}
	}
	return false
}
