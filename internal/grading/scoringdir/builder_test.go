package scoringdir

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evograder/internal/common/storage"
	"evograder/internal/grading/model"
	"evograder/internal/grading/runner"
	apperrors "evograder/pkg/errors"
)

func seedBlob(t *testing.T, blobs storage.BlobStore, name, content string) string {
	t.Helper()
	key, err := blobs.Save(context.Background(), name, strings.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func testFixtures(t *testing.T) (*Builder, *model.GradingAttempt, *model.Submission, *model.DataGrader) {
	t.Helper()
	blobs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	scriptKey := seedBlob(t, blobs, "scoring-scripts", "print('ACCEPTED')\nprint(42)\n")
	outputKey := seedBlob(t, blobs, "submission-outputs", "24\n")
	answerKey := seedBlob(t, blobs, "answers", "42\n")

	b := NewBuilder(filepath.Join(t.TempDir(), "scoring"), blobs, "python3")
	attempt := &model.GradingAttempt{ID: 7, SubmissionID: 3}
	sub := &model.Submission{ID: 3, OutputKey: &outputKey}
	grader := &model.DataGrader{
		ID:               1,
		ScriptKey:        scriptKey,
		AnswerKey:        &answerKey,
		TimeLimitMS:      2000,
		MemoryLimitBytes: 64 << 20,
	}
	return b, attempt, sub, grader
}

func TestBuildLaysOutDirectory(t *testing.T) {
	b, attempt, sub, grader := testFixtures(t)

	dir, err := b.Build(context.Background(), attempt, sub, grader)
	if err != nil {
		t.Fatal(err)
	}

	read := func(name string) string {
		t.Helper()
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		return string(data)
	}
	if got := read(ScriptFileName); got != "print('ACCEPTED')\nprint(42)\n" {
		t.Fatalf("script = %q", got)
	}
	if got := read(OutputFileName); got != "24\n" {
		t.Fatalf("user output = %q", got)
	}
	if got := read(AnswerFileName); got != "42\n" {
		t.Fatalf("answer = %q", got)
	}
	if got := read(LogFileName); got != "" {
		t.Fatalf("scoring log not empty: %q", got)
	}

	cfg, err := runner.LoadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WorkingDirectory != dir {
		t.Fatalf("working directory = %q, want %q", cfg.WorkingDirectory, dir)
	}
	if cfg.TimeLimitMS != 2000 || cfg.MemoryLimitBytes != 64<<20 {
		t.Fatalf("limits = %d ms / %d bytes", cfg.TimeLimitMS, cfg.MemoryLimitBytes)
	}
	if cfg.ScorerCommand != "python3" {
		t.Fatalf("scorer command = %q", cfg.ScorerCommand)
	}
}

func TestBuildPassesSeccompProfile(t *testing.T) {
	b, attempt, sub, grader := testFixtures(t)
	b.SeccompProfile = "/etc/evograder/scorer-seccomp.json"

	dir, err := b.Build(context.Background(), attempt, sub, grader)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := runner.LoadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SeccompProfile != b.SeccompProfile {
		t.Fatalf("seccomp profile = %q", cfg.SeccompProfile)
	}
}

func TestBuildUniqueDirectories(t *testing.T) {
	b, attempt, sub, grader := testFixtures(t)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		dir, err := b.Build(context.Background(), attempt, sub, grader)
		if err != nil {
			t.Fatal(err)
		}
		if seen[dir] {
			t.Fatalf("duplicate scoring dir %q", dir)
		}
		seen[dir] = true
	}
}

func TestBuildMissingAnswerFallsBackToEmpty(t *testing.T) {
	b, attempt, sub, grader := testFixtures(t)
	grader.AnswerKey = nil

	dir, err := b.Build(context.Background(), attempt, sub, grader)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, AnswerFileName))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Fatalf("answer = %q, want empty", data)
	}
}

func TestBuildNoSubmissionOutput(t *testing.T) {
	b, attempt, sub, grader := testFixtures(t)
	sub.OutputKey = nil

	if _, err := b.Build(context.Background(), attempt, sub, grader); !apperrors.Is(err, apperrors.ScoringDirError) {
		t.Fatalf("err = %v", err)
	}
}

func TestBuildMissingBlobCleansUp(t *testing.T) {
	b, attempt, sub, grader := testFixtures(t)
	missing := "scoring-scripts/gone"
	grader.ScriptKey = missing

	if _, err := b.Build(context.Background(), attempt, sub, grader); err == nil {
		t.Fatal("expected error for missing script blob")
	}
	entries, err := os.ReadDir(b.Root)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("scoring root not cleaned up: %v", entries)
	}
}
