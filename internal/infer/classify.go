package infer

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the generic delimited calendar layouts tried before
// the 8-digit YYYYMMDD fallback. The source files mix ISO and
// slash/dot-separated forms.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"2006-1-2",
	"2006/1/2",
}

const yyyymmddLayout = "20060102"

// Classify runs every pattern classifier over the sample and returns
// the full verdict set.
//
// All classifiers run independently and unconditionally (no
// short-circuiting) so the resolver can compare relative strength. An
// empty sample yields zero matched fractions across the board.
func Classify(sample []string, cfg Config) Verdicts {
	cfg = cfg.normalized()

	vs := Verdicts{
		Date:          classifyDate(sample),
		Numeric:       classifyNumeric(sample),
		ZeroPadded:    classifyZeroPadded(sample),
		FixedLength:   classifyFixedLength(sample, cfg),
		NonContiguous: classifyNonContiguous(sample, cfg),
	}

	// The plain-text fraction is 1 minus the best competing fraction.
	// It is used only as a tie-break floor by the resolver.
	best := vs.Date.MatchedFraction
	for _, f := range []float64{
		vs.Numeric.MatchedFraction,
		vs.ZeroPadded.MatchedFraction,
		vs.FixedLength.MatchedFraction,
		vs.NonContiguous.MatchedFraction,
	} {
		if f > best {
			best = f
		}
	}
	vs.PlainText = Verdict{Kind: KindPlainText, MatchedFraction: 1 - best}
	if len(sample) == 0 {
		vs.PlainText.MatchedFraction = 0
	}

	return vs
}

// classifyDate attempts each value first as a generic delimited date,
// then as an 8-digit YYYYMMDD string.
//
// Sentinel handling: a digit string containing "9999" that either
// fails both passes or parses into year 9999 is tagged as the
// sentinel-max marker. Sentinels count as matches; they are recognized
// values that convert to MaxDate, not parse failures.
func classifyDate(sample []string) Verdict {
	v := Verdict{Kind: KindDate}
	if len(sample) == 0 {
		return v
	}

	matched := 0
	for _, s := range sample {
		t, ok := parseDateValue(s)
		switch {
		case ok && t.Year() == 9999:
			v.Sentinels++
			matched++
		case ok:
			matched++
		case isSentinelCandidate(s):
			v.Sentinels++
			matched++
		}
	}
	v.MatchedFraction = float64(matched) / float64(len(sample))
	return v
}

// parseDateValue runs the two-pass date parse shared by classification
// and conversion.
func parseDateValue(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, lay := range dateLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t, true
		}
	}
	if len(s) == 8 && isDigits(s) {
		if t, err := time.Parse(yyyymmddLayout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isSentinelCandidate reports whether a value that failed date parsing
// should still be treated as the source system's open-ended marker:
// an 8-digit string containing "9999" (e.g. 99991231, or malformed
// variants like 99999999 that no calendar accepts). Shorter digit
// strings containing 9999 are ordinary numbers, not sentinels.
func isSentinelCandidate(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) == 8 && isDigits(s) && strings.Contains(s, "9999")
}

// classifyNumeric counts values parseable as signed decimal numbers
// without losing information: parsing and reformatting must reproduce
// the input apart from surrounding whitespace.
//
// Digit strings with leading zeros (length > 1) are explicitly NOT
// matches; they are zero-padded-code candidates. This is the rule that
// keeps business codes from being silently coerced into numbers.
func classifyNumeric(sample []string) Verdict {
	v := Verdict{Kind: KindNumeric}
	if len(sample) == 0 {
		return v
	}

	matched := 0
	for _, s := range sample {
		if numericRoundTrips(s) {
			matched++
		}
	}
	v.MatchedFraction = float64(matched) / float64(len(sample))
	return v
}

func numericRoundTrips(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	if hasLeadingZero(s) {
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(i, 10) == s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return strconv.FormatFloat(f, 'f', -1, 64) == s ||
		strconv.FormatFloat(f, 'g', -1, 64) == s
}

// hasLeadingZero reports a digit string of length > 1 starting with 0.
func hasLeadingZero(s string) bool {
	return len(s) > 1 && s[0] == '0' && isDigits(s)
}

// classifyZeroPadded measures the fraction of values that are pure
// digit strings beginning with "0" and longer than one character.
// The resolver applies the >10% threshold.
func classifyZeroPadded(sample []string) Verdict {
	v := Verdict{Kind: KindZeroPaddedCode}
	if len(sample) == 0 {
		return v
	}

	matched := 0
	for _, s := range sample {
		if hasLeadingZero(strings.TrimSpace(s)) {
			matched++
		}
	}
	v.MatchedFraction = float64(matched) / float64(len(sample))
	return v
}

// classifyFixedLength detects fixed-width code schemes: at most
// cfg.FixedLengthMaxDistinct distinct string lengths across the sample
// with an average length of at least cfg.FixedLengthMinAvg.
//
// Allowing a second length tolerates the occasional truncated or
// padded variant while still recognizing a fixed-width scheme. The
// verdict is binary: matched fraction 1 when the shape holds, else 0.
func classifyFixedLength(sample []string, cfg Config) Verdict {
	v := Verdict{Kind: KindFixedLengthCode}
	if len(sample) == 0 {
		return v
	}

	lengths := make(map[int]struct{}, 4)
	total := 0
	for _, s := range sample {
		n := len([]rune(strings.TrimSpace(s)))
		lengths[n] = struct{}{}
		total += n
	}
	avg := float64(total) / float64(len(sample))

	if len(lengths) <= cfg.FixedLengthMaxDistinct && avg >= cfg.FixedLengthMinAvg {
		v.MatchedFraction = 1
	}
	return v
}

// classifyNonContiguous applies only to samples that parse fully as
// integers. It sorts the distinct values and flags the column as an
// identifier space when the largest successive gap exceeds the
// configured threshold; measured quantities rarely jump by thousands.
func classifyNonContiguous(sample []string, cfg Config) Verdict {
	v := Verdict{Kind: KindNonContiguousCode}
	if len(sample) == 0 {
		return v
	}

	distinct := make(map[int64]struct{}, len(sample))
	for _, s := range sample {
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return v
		}
		distinct[i] = struct{}{}
	}
	if len(distinct) < 2 {
		return v
	}

	sorted := make([]int64, 0, len(distinct))
	for i := range distinct {
		sorted = append(sorted, i)
	}
	sortInt64s(sorted)

	var maxGap int64
	for i := 1; i < len(sorted); i++ {
		if g := sorted[i] - sorted[i-1]; g > maxGap {
			maxGap = g
		}
	}
	if maxGap > cfg.NonContiguousGapThreshold {
		v.MatchedFraction = 1
	}
	return v
}

func sortInt64s(s []int64) {
	// Insertion sort: samples are capped at SampleMaxSize values.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
