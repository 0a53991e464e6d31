// Package protocol interprets scorer stdout under the line-oriented
// grading protocol:
//
//	ACCEPTED
//	<decimal score>
//	[free-form message lines...]
//
// or
//
//	REJECTED
//	[free-form message lines...]
//
// Anything else is a protocol violation surfaced as an error verdict with
// the raw output preserved for diagnosis.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"evograder/internal/grading/model"
)

// MaxOutputBytes caps how much scorer stdout is interpreted. Output beyond
// the cap is truncated before parsing.
const MaxOutputBytes = 1_000_000

// Verdict is the parsed result of scorer output.
type Verdict struct {
	Status  model.ScoringStatus
	Score   *float64
	Message string
}

// Parse turns raw scorer stdout into a Verdict. It never fails: protocol
// violations produce a Verdict with Status = error and a diagnostic message
// containing the complete original text.
func Parse(raw string) Verdict {
	if len(raw) > MaxOutputBytes {
		raw = raw[:MaxOutputBytes]
	}
	raw = strings.ToValidUTF8(raw, "�")

	lines := splitLines(raw)
	if len(lines) == 0 {
		return badOutput("no output", raw)
	}

	switch lines[0] {
	case "ACCEPTED":
		if len(lines) < 2 {
			return badOutput("Status ACCEPTED, but no score provided", raw)
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(lines[1]), 64)
		if err != nil {
			return badOutput(fmt.Sprintf("bad score value: %q", lines[1]), raw)
		}
		return Verdict{
			Status:  model.StatusAccepted,
			Score:   &score,
			Message: joinLines(lines[2:]),
		}
	case "REJECTED":
		return Verdict{
			Status:  model.StatusRejected,
			Message: joinLines(lines[1:]),
		}
	default:
		return badOutput(fmt.Sprintf("unrecognized first line: %s", lines[0]), raw)
	}
}

func badOutput(reason, raw string) Verdict {
	return Verdict{
		Status:  model.StatusError,
		Message: fmt.Sprintf("Bad scoring output (%s):\n%s", reason, raw),
	}
}

// splitLines splits on line breaks. A trailing terminator does not produce
// an empty final line; empty input produces no lines.
func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.TrimSuffix(raw, "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

// joinLines terminates every line, including the last.
func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
