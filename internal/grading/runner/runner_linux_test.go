//go:build linux

package runner

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestMain lets the test binary stand in for the scoring-runner command:
// when invoked with "-init <dir>" it enters init mode instead of running
// tests, which is how Run spawns its child here.
func TestMain(m *testing.M) {
	if len(os.Args) == 3 && os.Args[1] == "-init" {
		if err := InitExec(os.Args[2]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(97)
		}
	}
	os.Exit(m.Run())
}

func testInitCmd() []string {
	return []string{os.Args[0], "-init"}
}

// writeScoringDir lays out a scoring directory around a /bin/sh script.
func writeScoringDir(t *testing.T, script string, timeLimitMS int64) string {
	t.Helper()
	dir := t.TempDir()

	mustWrite := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	cfg := ScoringConfig{
		WorkingDirectory: dir,
		ScoringScript:    mustWrite("scoring_script.sh", script),
		UserOutput:       mustWrite("user_output", "24\n"),
		Answer:           mustWrite("answer", "42\n"),
		ScoringLog:       mustWrite("scoring.log", ""),
		TimeLimitMS:      timeLimitMS,
		MemoryLimitBytes: 512 << 20,
		ScorerCommand:    "/bin/sh",
	}
	if err := cfg.WriteTo(dir); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRunAccepted(t *testing.T) {
	dir := writeScoringDir(t, "echo ACCEPTED\necho 42\n", 5000)

	var out bytes.Buffer
	if code := Run(dir, testInitCmd(), &out); code != ExitOK {
		t.Fatalf("exit code = %d, output %q", code, out.String())
	}
	if got := out.String(); got != "ACCEPTED\n42\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestRunScriptArguments(t *testing.T) {
	// The script receives the user output and answer paths and runs in
	// the scoring directory.
	dir := writeScoringDir(t, "echo REJECTED\necho \"got $(cat \"$1\" | tr -d '\\n') want $(cat \"$2\" | tr -d '\\n') in $(pwd)\"\n", 5000)

	var out bytes.Buffer
	if code := Run(dir, testInitCmd(), &out); code != ExitOK {
		t.Fatalf("exit code = %d, output %q", code, out.String())
	}
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := fmt.Sprintf("REJECTED\ngot 24 want 42 in %s\n", realDir)
	if got := out.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestRunStderrGoesToLog(t *testing.T) {
	dir := writeScoringDir(t, "echo 'checking line 1' >&2\necho ACCEPTED\necho 7\n", 5000)

	var out bytes.Buffer
	if code := Run(dir, testInitCmd(), &out); code != ExitOK {
		t.Fatalf("exit code = %d, output %q", code, out.String())
	}
	logData, err := os.ReadFile(filepath.Join(dir, "scoring.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logData), "checking line 1") {
		t.Fatalf("scoring log = %q", logData)
	}
	if strings.Contains(out.String(), "checking line 1") {
		t.Fatalf("stderr leaked into stdout: %q", out.String())
	}
}

func TestRunTimeout(t *testing.T) {
	dir := writeScoringDir(t, "sleep 10\necho ACCEPTED\necho 1\n", 300)

	start := time.Now()
	var out bytes.Buffer
	code := Run(dir, testInitCmd(), &out)
	elapsed := time.Since(start)

	if code != ExitScoringFailure {
		t.Fatalf("exit code = %d, output %q", code, out.String())
	}
	if got := out.String(); got != "scoring timed out after 300 ms\n" {
		t.Fatalf("output = %q", got)
	}
	if elapsed > 5*time.Second {
		t.Fatalf("runner took %v, timeout did not fire", elapsed)
	}
}

func TestRunScriptCrash(t *testing.T) {
	dir := writeScoringDir(t, "echo 'partial output'\nexit 3\n", 5000)

	var out bytes.Buffer
	if code := Run(dir, testInitCmd(), &out); code != ExitScoringFailure {
		t.Fatalf("exit code = %d, output %q", code, out.String())
	}
	if got := out.String(); got != "scoring script exited with code 3\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestRunMissingConfig(t *testing.T) {
	var out bytes.Buffer
	if code := Run(t.TempDir(), testInitCmd(), &out); code != ExitScoringFailure {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out.String(), "cannot load scoring config") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunOutputCapped(t *testing.T) {
	dir := writeScoringDir(t, "yes x | head -c 3000000\n", 10000)

	var out bytes.Buffer
	if code := Run(dir, testInitCmd(), &out); code != ExitOK {
		t.Fatalf("exit code = %d", code)
	}
	if out.Len() != MaxCapturedOutput {
		t.Fatalf("captured %d bytes, want %d", out.Len(), MaxCapturedOutput)
	}
}

func TestRunMemoryLimit(t *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not installed")
	}

	dir := t.TempDir()
	mustWrite := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	cfg := ScoringConfig{
		WorkingDirectory: dir,
		ScoringScript:    mustWrite("scoring_script.py", "x = bytearray(1024 * 1024 * 1024)\nprint('ACCEPTED')\nprint(1)\n"),
		UserOutput:       mustWrite("user_output", "24\n"),
		Answer:           mustWrite("answer", "42\n"),
		ScoringLog:       mustWrite("scoring.log", ""),
		TimeLimitMS:      10000,
		MemoryLimitBytes: 256 << 20,
		ScorerCommand:    python,
	}
	if err := cfg.WriteTo(dir); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if code := Run(dir, testInitCmd(), &out); code != ExitScoringFailure {
		t.Fatalf("exit code = %d, output %q", code, out.String())
	}
	if !strings.Contains(out.String(), "exited with code") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	dir := writeScoringDir(t, "echo ACCEPTED\necho 1\n", 5000)
	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}

	cfg.TimeLimitMS = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero time limit accepted")
	}
	cfg.TimeLimitMS = 1000
	cfg.ScorerCommand = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty scorer command accepted")
	}
}
