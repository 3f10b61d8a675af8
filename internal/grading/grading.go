// Package grading compares submitted flags against configured answers.
package grading

import "strings"

// Verdict is the outcome of grading a submitted flag.
type Verdict string

const (
	// VerdictPassed means the candidate matched the configured flag.
	VerdictPassed Verdict = "passed"
	// VerdictIncorrect means the candidate did not match.
	VerdictIncorrect Verdict = "incorrect"
)

// Grade checks a submitted candidate against the expected flag. The
// candidate is trimmed of surrounding whitespace, then compared with exact
// case-sensitive equality. An empty candidate is always incorrect, even if
// the expected flag is empty. Grading is stateless; attempt counting belongs
// to the caller.
func Grade(candidate, expected string) Verdict {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return VerdictIncorrect
	}
	if candidate == expected {
		return VerdictPassed
	}
	return VerdictIncorrect
}
