package infer

import (
	"fmt"
	"strings"
)

// Resolve combines column-name hints and classifier verdicts into one
// final decision.
//
// The precedence is a numbered total order:
//  1. Date wins when its matched fraction reaches the threshold, or a
//     date token in the column name lowers the bar. Column-name
//     semantics are a strong prior in this domain (登録日, 有効開始日 and
//     friends) and override a merely moderate content match.
//  2. A code-named column (code, コード) is never coerced to
//     numeric: zero-padded wins if it fired, else fixed-length, else
//     plain text. Leading-zero loss is a correctness bug here, not a
//     performance concern.
//  3. Otherwise the strongest of the content classifiers wins, with
//     ties going to the code-shaped classifiers before numeric.
//  4. Otherwise plain text.
//
// Reasons records the rule that fired and the competing fractions so
// every decision is auditable after the fact.
func Resolve(columnName string, vs Verdicts, cfg Config) Decision {
	cfg = cfg.normalized()

	// Rule 1: date content, optionally boosted by the column name.
	dateHint := nameHasToken(columnName, cfg.DateNameTokens)
	threshold := cfg.DateMatchThreshold
	if dateHint {
		threshold = cfg.DateMatchThresholdWithNameHint
	}
	if vs.Date.MatchedFraction >= threshold && vs.Date.MatchedFraction > 0 {
		kind := KindDate
		if vs.Date.Sentinels > 0 {
			kind = KindDateWithSentinel
		}
		return Decision{
			FinalKind: kind,
			Rule:      1,
			Reasons: []string{
				fmt.Sprintf("rule=1 date_fraction=%.2f threshold=%.2f name_hint=%v sentinels=%d",
					vs.Date.MatchedFraction, threshold, dateHint, vs.Date.Sentinels),
			},
		}
	}

	// Rule 2: code-named columns must keep exact text.
	if nameHasToken(columnName, cfg.CodeNameTokens) {
		d := Decision{Rule: 2}
		switch {
		case vs.ZeroPadded.MatchedFraction > cfg.ZeroPadThreshold:
			d.FinalKind = KindZeroPaddedCode
		case vs.FixedLength.MatchedFraction > 0:
			d.FinalKind = KindFixedLengthCode
		default:
			d.FinalKind = KindPlainText
		}
		d.Reasons = []string{
			fmt.Sprintf("rule=2 code_name_hint zero_padded=%.2f fixed_length=%.2f",
				vs.ZeroPadded.MatchedFraction, vs.FixedLength.MatchedFraction),
		}
		return d
	}

	// Rule 3: strongest content classifier above the plain-text floor.
	// Priority order breaks ties; numeric loses to the code shapes.
	zeroPadded := vs.ZeroPadded.MatchedFraction
	if zeroPadded <= cfg.ZeroPadThreshold {
		zeroPadded = 0
	}
	candidates := []Verdict{
		{Kind: KindZeroPaddedCode, MatchedFraction: zeroPadded},
		{Kind: KindFixedLengthCode, MatchedFraction: vs.FixedLength.MatchedFraction},
		{Kind: KindNonContiguousCode, MatchedFraction: vs.NonContiguous.MatchedFraction},
		{Kind: KindNumeric, MatchedFraction: vs.Numeric.MatchedFraction},
	}

	best := Verdict{Kind: KindPlainText}
	tied := 0
	for _, c := range candidates {
		switch {
		case c.MatchedFraction > best.MatchedFraction:
			best = c
			tied = 1
		case c.MatchedFraction > 0 && c.MatchedFraction == best.MatchedFraction:
			tied++
		}
	}

	if best.MatchedFraction > vs.PlainText.MatchedFraction {
		return Decision{
			FinalKind: best.Kind,
			Rule:      3,
			Ambiguous: tied > 1,
			Reasons: []string{
				fmt.Sprintf("rule=3 winner=%s fraction=%.2f ties=%d numeric=%.2f zero_padded=%.2f fixed_length=%.2f non_contiguous=%.2f",
					best.Kind, best.MatchedFraction, tied,
					vs.Numeric.MatchedFraction, zeroPadded,
					vs.FixedLength.MatchedFraction, vs.NonContiguous.MatchedFraction),
			},
		}
	}

	// Rule 4: nothing cleared the floor.
	return Decision{
		FinalKind: KindPlainText,
		Rule:      4,
		Reasons: []string{
			fmt.Sprintf("rule=4 fallback best=%s fraction=%.2f floor=%.2f",
				best.Kind, best.MatchedFraction, vs.PlainText.MatchedFraction),
		},
	}
}

// nameHasToken reports whether the column name contains any of the
// tokens, case-insensitively. Substring match: 有効開始日 matches 開始日.
func nameHasToken(name string, tokens []string) bool {
	lower := strings.ToLower(name)
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}
