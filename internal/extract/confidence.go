package extract

import (
	"regexp"
	"strings"
)

var (
	reISODate = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	reCcyAmt  = regexp.MustCompile(`\b[A-Z]{3}\s*\d{1,3}(,\d{3})*(\.\d+)?\b`)
)

var termSheetLabels = []string{
	"trade date:", "settlement date:", "issuer:", "counterparty:", "product:",
	"principal amount:", "maturity date:", "coupon rate:", "coupon payment frequency:",
	"governing law:", "risk disclosure:",
}

// heuristicConfidence scores how much the text looks like a term sheet.
func heuristicConfidence(txt string) float32 {
	lower := strings.ToLower(txt)
	score := float32(0.2) // base

	labels := 0
	for _, l := range termSheetLabels {
		if strings.Contains(lower, l) {
			labels++
		}
	}
	score += 0.4 * float32(labels) / float32(len(termSheetLabels))

	if reISODate.MatchString(txt) {
		score += 0.15
	}
	if reCcyAmt.MatchString(txt) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
