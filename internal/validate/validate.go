// Package validate checks submitted solutions against stage rules.
package validate

import (
	"regexp"
	"strings"

	"github.com/verte-zerg/escaperoom/internal/model"
)

// Verdict is the outcome of checking one submission.
type Verdict int

// Verdicts.
const (
	Incorrect Verdict = iota
	Passed
	MalformedJSON
)

// Passed reports whether the submission was accepted.
func (v Verdict) Passed() bool {
	return v == Passed
}

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case Passed:
		return "passed"
	case MalformedJSON:
		return "malformed-json"
	default:
		return "incorrect"
	}
}

// Message returns the player-facing text for a verdict.
func (v Verdict) Message() string {
	switch v {
	case Passed:
		return "Correct!"
	case MalformedJSON:
		return "Not quite right. Make sure your JSON is valid!"
	default:
		return "Not quite right. Try again or use a hint!"
	}
}

// Rule checks a submission for one stage type.
type Rule func(solution, submitted string) Verdict

var rules = map[model.StageType]Rule{
	model.StageCodeFormat:      codeFormat,
	model.StageDebug:           textMatch,
	model.StageGenerateNumbers: generateNumbers,
	model.StageDataTransform:   dataTransform,
}

var loopPattern = regexp.MustCompile(`for\s*\(|while\s*\(`)

// Check validates a submission against the rule registered for the stage type.
// Unknown types use the plain text comparison.
func Check(stageType model.StageType, solution, submitted string) Verdict {
	rule, ok := rules[stageType]
	if !ok {
		rule = textMatch
	}
	return rule(solution, submitted)
}

// CheckStage is Check applied to a stage's own type and solution.
func CheckStage(stage model.Stage, submitted string) Verdict {
	return Check(stage.Type, stage.Solution, submitted)
}

// codeFormat accepts any multi-line indented text. It is a structure
// heuristic, not a formatter.
func codeFormat(solution, submitted string) Verdict {
	if strings.Contains(submitted, "\n") &&
		(strings.Contains(submitted, "  ") || strings.Contains(submitted, "\t")) {
		return Passed
	}
	return textMatch(solution, submitted)
}

func generateNumbers(solution, submitted string) Verdict {
	if loopPattern.MatchString(submitted) && strings.Contains(submitted, "1000") {
		return Passed
	}
	return textMatch(solution, submitted)
}

func dataTransform(solution, submitted string) Verdict {
	got, err := canonicalJSON(strings.TrimSpace(submitted))
	if err != nil {
		return MalformedJSON
	}
	want, err := canonicalJSON(strings.TrimSpace(solution))
	if err == nil && got == want {
		return Passed
	}
	return textMatch(solution, submitted)
}

// textMatch passes on whitespace-collapsed equality or trimmed equality.
func textMatch(solution, submitted string) Verdict {
	if collapse(submitted) == collapse(solution) {
		return Passed
	}
	if strings.TrimSpace(submitted) == strings.TrimSpace(solution) {
		return Passed
	}
	return Incorrect
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
