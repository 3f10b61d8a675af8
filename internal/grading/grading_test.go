package grading

import "testing"

func TestGrade(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate string
		expected  string
		want      Verdict
	}{
		{"exact match", "FLAG{x}", "FLAG{x}", VerdictPassed},
		{"surrounding whitespace trimmed", " FLAG{x} ", "FLAG{x}", VerdictPassed},
		{"tab and newline trimmed", "\tFLAG{x}\n", "FLAG{x}", VerdictPassed},
		{"wrong flag", "FLAG{nope}", "FLAG{yes}", VerdictIncorrect},
		{"case sensitive", "flag{x}", "FLAG{x}", VerdictIncorrect},
		{"inner whitespace not trimmed", "FLAG {x}", "FLAG{x}", VerdictIncorrect},
		{"empty candidate", "", "FLAG{x}", VerdictIncorrect},
		{"whitespace-only candidate", "   ", "FLAG{x}", VerdictIncorrect},
		{"empty candidate against empty flag", "", "", VerdictIncorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Grade(tt.candidate, tt.expected); got != tt.want {
				t.Errorf("Grade(%q, %q) = %v, want %v", tt.candidate, tt.expected, got, tt.want)
			}
		})
	}
}
