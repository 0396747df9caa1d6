package reader

import "strings"

// candidateDelimiters in preference order for ties. Comma first since
// most exports really are CSV despite the extension.
var candidateDelimiters = []rune{',', '\t', '|', ';'}

const delimiterSniffLines = 5

// DetectDelimiter counts candidate separators across the first few
// lines of decoded text and picks the most frequent one. A sample with
// no candidate at all falls back to comma.
func DetectDelimiter(sample string) rune {
	lines := strings.Split(sample, "\n")
	if len(lines) > delimiterSniffLines {
		lines = lines[:delimiterSniffLines]
	}

	best := ','
	bestCount := 0
	for _, d := range candidateDelimiters {
		count := 0
		for _, line := range lines {
			count += strings.Count(line, string(d))
		}
		if count > bestCount {
			best = d
			bestCount = count
		}
	}
	return best
}
