// Package risk turns a list of issues into a normalised risk score and status.
package risk

import (
	"math"

	"github.com/joseph-ayodele/termsheet-validator/constants"
	"github.com/joseph-ayodele/termsheet-validator/internal/rules"
)

// Weights per severity. The per-rule ceiling is the HIGH weight.
var Weights = map[rules.Severity]float64{
	rules.High:   0.5,
	rules.Medium: 0.3,
	rules.Low:    0.1,
}

// Scorer computes scores for a fixed number of rules.
type Scorer struct {
	ruleCount int
}

// NewScorer returns a scorer normalising against ruleCount rules at HIGH weight.
func NewScorer(ruleCount int) *Scorer {
	if ruleCount <= 0 {
		ruleCount = 1
	}
	return &Scorer{ruleCount: ruleCount}
}

// MaxPossible is the normalisation denominator (every rule firing at HIGH).
func (s *Scorer) MaxPossible() float64 {
	return float64(s.ruleCount) * Weights[rules.High]
}

// Score returns the risk score in [0,1] and the tri-state status.
func (s *Scorer) Score(issues []rules.Issue) (float64, constants.Status) {
	if len(issues) == 0 {
		return 0, constants.StatusValid
	}
	var weighted float64
	for _, is := range issues {
		weighted += Weights[is.Severity]
	}
	score := math.Min(1.0, weighted/s.MaxPossible())
	return score, Status(issues)
}

// Status is valid with no issues, invalid with any HIGH issue, warning otherwise.
func Status(issues []rules.Issue) constants.Status {
	switch {
	case len(issues) == 0:
		return constants.StatusValid
	case rules.HasHigh(issues):
		return constants.StatusInvalid
	default:
		return constants.StatusWarning
	}
}

// Percent converts a score to the 0-100 integer used by the flattened response.
// It truncates toward zero (0.222 -> 22).
func Percent(score float64) int {
	return int(score * 100)
}
