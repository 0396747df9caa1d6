package infer

import (
	"strconv"
	"strings"
)

// Apply transforms a full column into its normalized representation
// under an already-made decision. The input column is never mutated.
//
// Behavior per kind:
//   - Date / DateWithSentinel: values re-parse with the same two-pass
//     strategy as classification and render as "2006-01-02" text.
//     Sentinel values map to MaxDate. Values unparseable after both
//     passes become nil and are counted in Skipped.
//   - Numeric: values parse to int64 when exact, float64 otherwise.
//     Parse failures become nil and count in Skipped.
//   - ZeroPaddedCode / FixedLengthCode / NonContiguousCode / PlainText:
//     values pass through as exact text, no reformatting.
//
// Input nulls stay nil in every mode and are never counted as skips.
func Apply(col Column, d Decision) Converted {
	out := Converted{
		Name:   col.Name,
		Kind:   d.FinalKind,
		Values: make([]any, len(col.Values)),
	}

	for i, raw := range col.Values {
		if raw == nil {
			continue
		}
		s := cellString(raw)
		if strings.TrimSpace(s) == "" {
			continue
		}

		switch d.FinalKind {
		case KindDate, KindDateWithSentinel:
			out.Values[i] = convertDate(s, &out.Skipped)
		case KindNumeric:
			out.Values[i] = convertNumeric(s, &out.Skipped)
		default:
			out.Values[i] = s
		}
	}
	return out
}

func convertDate(s string, skipped *int) any {
	if t, ok := parseDateValue(s); ok {
		if t.Year() == 9999 {
			return MaxDate.Format(DateLayout)
		}
		return t.Format(DateLayout)
	}
	if isSentinelCandidate(s) {
		return MaxDate.Format(DateLayout)
	}
	*skipped++
	return nil
}

func convertNumeric(s string, skipped *int) any {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	*skipped++
	return nil
}
