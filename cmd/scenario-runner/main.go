// Package main - scenario-runner
// Executable to run scripted end-to-end scenarios against the core.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Norsninja/OilLeak-sub000/test"
)

func main() {
	fmt.Println("OIL LEAK CONTROL CORE - SCENARIO SUITE")
	fmt.Println("======================================")

	scenario, err := test.NewSurvivalRunScenario()
	if err != nil {
		fmt.Printf("Failed to build scenario: %v\n", err)
		os.Exit(1)
	}
	scenario.Run()

	results := scenario.Results()
	passed := 0
	failed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SCENARIO SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("   Passed: %d\n", passed)
	fmt.Printf("   Failed: %d\n", failed)

	if failed > 0 {
		fmt.Println("\nThe core needs recalibration before deployment")
		os.Exit(1)
	}
	fmt.Println("\nThe leak is ready. It always wins.")
}
