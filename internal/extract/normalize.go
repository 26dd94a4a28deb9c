package extract

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)

	// A spaced label before its colon ("Issuer :") as OCR tends to emit it.
	reSpacedColon = regexp.MustCompile(`(?m)^([A-Za-z][A-Za-z ]*?[A-Za-z]) +:`)
	// ISO-looking dates where OCR read 0 as O/o or 1 as l/I.
	reOCRDate = regexp.MustCompile(`\b[0-9OoIl]{4}-[0-9OoIl]{2}-[0-9OoIl]{2}\b`)
	// Any "Label:" line, known or not.
	reLabelLine = regexp.MustCompile(`^[A-Za-z][A-Za-z ]{0,40}:`)

	dateDigits = strings.NewReplacer("O", "0", "o", "0", "I", "1", "l", "1")
	punct      = strings.NewReplacer("\u00a0", " ", "\u202f", " ", "\u2009", " ", "\uff1a", ":")
)

// Normalize cleans extracted text so the labeled-line parser sees one
// "Label: value" per line. Whitespace runs collapse, blank-line runs collapse
// to one, OCR digit confusions inside dates are repaired, and a known label
// left alone on its line is rejoined with the value on the next non-blank line.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = punct.Replace(s)
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	lines = rejoinSplitLabels(lines)
	s = strings.Join(lines, "\n")

	s = reSpacedColon.ReplaceAllString(s, "$1:")
	s = reOCRDate.ReplaceAllStringFunc(s, repairDate)
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// repairDate only touches tokens that are at least half digits, so words
// never turn into dates.
func repairDate(tok string) string {
	digits := 0
	for _, r := range tok {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 4 {
		return tok
	}
	return dateDigits.Replace(tok)
}

func isBareLabel(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	l = strings.Replace(l, " :", ":", 1)
	for _, lab := range termSheetLabels {
		if l == lab {
			return true
		}
	}
	return false
}

// rejoinSplitLabels merges "Trade Date:" / "2023-06-15" into one line. A label
// followed by another "Label:" line is left alone, so an empty field never
// swallows its neighbour.
func rejoinSplitLabels(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		if isBareLabel(lines[i]) {
			j := i + 1
			for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
				j++
			}
			if j < len(lines) && !reLabelLine.MatchString(strings.TrimSpace(lines[j])) {
				out = append(out, strings.TrimSpace(lines[i])+" "+strings.TrimSpace(lines[j]))
				i = j
				continue
			}
		}
		out = append(out, lines[i])
	}
	return out
}
