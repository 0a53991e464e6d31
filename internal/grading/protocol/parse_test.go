package protocol

import (
	"strings"
	"testing"

	"evograder/internal/grading/model"
)

func TestParseAccepted(t *testing.T) {
	v := Parse("ACCEPTED\n42\n")
	if v.Status != model.StatusAccepted {
		t.Fatalf("status %q, want accepted", v.Status)
	}
	if v.Score == nil || *v.Score != 42 {
		t.Fatalf("score %v, want 42", v.Score)
	}
	if v.Message != "" {
		t.Fatalf("message %q, want empty", v.Message)
	}
}

func TestParseAcceptedWithMessage(t *testing.T) {
	v := Parse("ACCEPTED\n42\nbla bla\nblah\n")
	if v.Status != model.StatusAccepted {
		t.Fatalf("status %q, want accepted", v.Status)
	}
	if v.Score == nil || *v.Score != 42 {
		t.Fatalf("score %v, want 42", v.Score)
	}
	if v.Message != "bla bla\nblah\n" {
		t.Fatalf("message %q", v.Message)
	}
}

func TestParseAcceptedFractionalScore(t *testing.T) {
	v := Parse("ACCEPTED\n13.375\n")
	if v.Status != model.StatusAccepted {
		t.Fatalf("status %q, want accepted", v.Status)
	}
	if v.Score == nil || *v.Score != 13.375 {
		t.Fatalf("score %v, want 13.375", v.Score)
	}
}

func TestParseRejected(t *testing.T) {
	v := Parse("REJECTED\nLine 42: Expected 42, but found 24\n")
	if v.Status != model.StatusRejected {
		t.Fatalf("status %q, want rejected", v.Status)
	}
	if v.Score != nil {
		t.Fatalf("score %v, want nil", v.Score)
	}
	if v.Message != "Line 42: Expected 42, but found 24\n" {
		t.Fatalf("message %q", v.Message)
	}
}

func TestParseRejectedNoMessage(t *testing.T) {
	v := Parse("REJECTED\n")
	if v.Status != model.StatusRejected {
		t.Fatalf("status %q, want rejected", v.Status)
	}
	if v.Message != "" {
		t.Fatalf("message %q, want empty", v.Message)
	}
}

func TestParseEmpty(t *testing.T) {
	v := Parse("")
	if v.Status != model.StatusError {
		t.Fatalf("status %q, want error", v.Status)
	}
	if v.Score != nil {
		t.Fatalf("score %v, want nil", v.Score)
	}
	if !strings.Contains(v.Message, "no output") {
		t.Fatalf("message %q does not mention no output", v.Message)
	}
}

func TestParseAcceptedWithoutScore(t *testing.T) {
	v := Parse("ACCEPTED\n")
	if v.Status != model.StatusError {
		t.Fatalf("status %q, want error", v.Status)
	}
	if v.Score != nil {
		t.Fatalf("score %v, want nil", v.Score)
	}
	if !strings.Contains(v.Message, "no score provided") {
		t.Fatalf("message %q", v.Message)
	}
}

func TestParseBadScore(t *testing.T) {
	v := Parse("ACCEPTED\nforty two\n")
	if v.Status != model.StatusError {
		t.Fatalf("status %q, want error", v.Status)
	}
	if !strings.Contains(v.Message, "bad score value") {
		t.Fatalf("message %q", v.Message)
	}
	if !strings.Contains(v.Message, "forty two") {
		t.Fatalf("message %q does not contain original text", v.Message)
	}
}

func TestParseGibberish(t *testing.T) {
	v := Parse("blah blah blah")
	if v.Status != model.StatusError {
		t.Fatalf("status %q, want error", v.Status)
	}
	if !strings.Contains(v.Message, "unrecognized first line") {
		t.Fatalf("message %q", v.Message)
	}
	if !strings.Contains(v.Message, "blah blah blah") {
		t.Fatalf("message %q does not preserve original text", v.Message)
	}
}

func TestParseCRLF(t *testing.T) {
	v := Parse("ACCEPTED\r\n42\r\nnote\r\n")
	if v.Status != model.StatusAccepted {
		t.Fatalf("status %q, want accepted", v.Status)
	}
	if v.Score == nil || *v.Score != 42 {
		t.Fatalf("score %v, want 42", v.Score)
	}
	if v.Message != "note\n" {
		t.Fatalf("message %q", v.Message)
	}
}

func TestParseTruncatesOversizedOutput(t *testing.T) {
	raw := "REJECTED\n" + strings.Repeat("x", MaxOutputBytes+1000)
	v := Parse(raw)
	if v.Status != model.StatusRejected {
		t.Fatalf("status %q, want rejected", v.Status)
	}
	if len(v.Message) > MaxOutputBytes {
		t.Fatalf("message length %d exceeds cap", len(v.Message))
	}
}

func TestParseReplacesInvalidUTF8(t *testing.T) {
	v := Parse("ACCEPTED\n42\n\xff\xfe\n")
	if v.Status != model.StatusAccepted {
		t.Fatalf("status %q, want accepted", v.Status)
	}
	if !strings.Contains(v.Message, "�") {
		t.Fatalf("message %q lacks replacement rune", v.Message)
	}
}
