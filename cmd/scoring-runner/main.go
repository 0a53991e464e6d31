// scoring-runner executes a single prepared scoring directory and reports
// the script's verdict on stdout. It exits 0 when the script finished on
// its own, 1 on timeout or script failure and 2 when the invocation is
// wrong.
//
// Usage:
//
//	scoring-runner <scoring-dir>
//
// The directory must contain a config.json written by the scoring
// directory builder. The internal "-init" form is spawned by the runner
// itself and not meant to be called directly.
package main

import (
	"fmt"
	"os"

	"evograder/internal/grading/runner"
)

func main() {
	args := os.Args[1:]

	if len(args) == 2 && args[0] == "-init" {
		if err := runner.InitExec(args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(runner.ExitScoringFailure)
		}
		return
	}

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: scoring-runner <scoring-dir>")
		os.Exit(runner.ExitParamError)
	}

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "scoring-runner: %s is not a directory\n", dir)
		os.Exit(runner.ExitParamError)
	}

	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "scoring-runner: %v\n", err)
		os.Exit(runner.ExitScoringFailure)
	}

	os.Exit(runner.Run(dir, []string{exe, "-init"}, os.Stdout))
}
