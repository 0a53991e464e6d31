//go:build linux

package runner

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const allowAllProfile = `{
	"defaultAction": "SCMP_ACT_ALLOW",
	"syscalls": []
}`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSeccompProfile(t *testing.T) {
	path := writeProfile(t, `{
		"defaultAction": "SCMP_ACT_ALLOW",
		"syscalls": [
			{"names": ["socket", "connect"], "action": "SCMP_ACT_KILL"}
		]
	}`)

	profile, err := loadSeccompProfile(path)
	if err != nil {
		t.Fatal(err)
	}
	if profile.DefaultAction != "SCMP_ACT_ALLOW" || len(profile.Syscalls) != 1 {
		t.Fatalf("profile = %+v", profile)
	}
	if len(profile.Syscalls[0].Names) != 2 || profile.Syscalls[0].Action != "SCMP_ACT_KILL" {
		t.Fatalf("profile = %+v", profile)
	}
}

func TestLoadSeccompProfileRejectsBadAction(t *testing.T) {
	path := writeProfile(t, `{
		"defaultAction": "SCMP_ACT_TRACE",
		"syscalls": []
	}`)
	if _, err := loadSeccompProfile(path); err == nil {
		t.Fatal("expected error for unsupported action")
	}
}

func TestLoadSeccompProfileMissingFile(t *testing.T) {
	if _, err := loadSeccompProfile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing profile")
	}
}

func TestRunWithSeccompProfile(t *testing.T) {
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
		ScoringScript:    mustWrite("scoring_script.sh", "echo ACCEPTED\necho 7\n"),
		UserOutput:       mustWrite("user_output", "24\n"),
		Answer:           mustWrite("answer", "42\n"),
		ScoringLog:       mustWrite("scoring.log", ""),
		TimeLimitMS:      5000,
		MemoryLimitBytes: 512 << 20,
		ScorerCommand:    "/bin/sh",
		SeccompProfile:   mustWrite("profile.json", allowAllProfile),
	}
	if err := cfg.WriteTo(dir); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if code := Run(dir, testInitCmd(), &out); code != ExitOK {
		t.Fatalf("exit code = %d, output %q", code, out.String())
	}
	if got := out.String(); got != "ACCEPTED\n7\n" {
		t.Fatalf("output = %q", got)
	}
}
