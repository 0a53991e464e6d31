// grade-attempt drives one grading attempt to a terminal state. By
// default it acts as the crash-safety supervisor: it re-execs itself with
// -run as a child process to do the actual orchestration, waits for it,
// and force-finalizes the attempt as a dirty failure if the child died
// without finishing it. With -run it performs the orchestration in
// process.
//
// Usage:
//
//	grade-attempt [-config path] [-run] <attempt-id>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"evograder/internal/grading/app"
	"evograder/internal/grading/service"
)

func main() {
	configPath := flag.String("config", "configs/grading_worker.yaml", "path to config file")
	runMode := flag.Bool("run", false, "orchestrate in process (spawned internally)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: grade-attempt [-config path] [-run] <attempt-id>")
		os.Exit(2)
	}
	attemptID, err := strconv.ParseInt(flag.Arg(0), 10, 64)
	if err != nil || attemptID <= 0 {
		fmt.Fprintf(os.Stderr, "grade-attempt: bad attempt id %q\n", flag.Arg(0))
		os.Exit(2)
	}

	if err := run(*configPath, attemptID, *runMode); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, attemptID int64, runMode bool) error {
	a, err := app.New(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	attempt, err := a.Repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.Finished {
		return nil
	}

	if runMode {
		return a.Orchestrator.RunAttempt(ctx, attempt)
	}

	exe, err := os.Executable()
	if err != nil {
		return err
	}
	supervisor := service.NewSupervisor(a.Repo, a.Events, []string{
		exe, "-config", configPath, "-run",
	})
	return supervisor.RunAttempt(ctx, attempt)
}
