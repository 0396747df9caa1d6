// Package infer implements per-column type inference and code-field
// normalization for tabular report files.
//
// The infer package is responsible for:
//   - Extracting a bounded sample of a column's non-null values
//   - Running independent pattern classifiers over the sample
//   - Resolving the classifier verdicts plus column-name hints into a
//     single ColumnType decision with an auditable reason trail
//   - Converting the full column into its normalized representation
//
// Design constraints:
//   - Classification must be bounded in memory and time (sample capped).
//   - All inference is per column; there is no cross-column state.
//   - Conversion is lenient: a single bad value never fails the column.
//
// The whole pipeline is pure computation with no I/O; feeding raw values
// in and persisting converted columns out belong to the caller.
package infer

import (
	"fmt"
	"strconv"
	"time"
)

// Kind is the resolved type of a column.
type Kind string

const (
	// KindPlainText is the fallback: values pass through as text.
	KindPlainText Kind = "plain_text"

	// KindDate marks columns whose values parse as calendar dates,
	// either in a delimited layout or as 8-digit YYYYMMDD strings.
	KindDate Kind = "date"

	// KindDateWithSentinel is a date column that also contains the
	// source system's "no expiry" sentinel (9999-prefixed values).
	// Sentinels convert to MaxDate instead of failing.
	KindDateWithSentinel Kind = "date_with_sentinel"

	// KindNumeric marks columns of measured quantities that survive an
	// exact numeric round-trip.
	KindNumeric Kind = "numeric"

	// KindZeroPaddedCode marks digit-string business codes with leading
	// zeros. They must never be coerced to numbers.
	KindZeroPaddedCode Kind = "zero_padded_code"

	// KindFixedLengthCode marks fixed-width code schemes (at most two
	// distinct lengths, average length >= 4).
	KindFixedLengthCode Kind = "fixed_length_code"

	// KindNonContiguousCode marks integer identifier spaces (order
	// numbers and the like) detected by large gaps between values.
	KindNonContiguousCode Kind = "non_contiguous_code"
)

// MaxDate is the designated maximum-date constant sentinel values map to.
// The source system uses 9999-12-31 to mean "open-ended".
var MaxDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// DateLayout is the normalized text form for converted date values.
const DateLayout = "2006-01-02"

// Column is one field of a tabular dataset being ingested.
//
// Values holds one raw cell per row in row order. Cells may be strings,
// numbers (int64/float64 from upstream parsers), or nil for missing.
type Column struct {
	Name   string
	Values []any
}

// validate checks the structural preconditions for classification.
func (c Column) validate() error {
	if c.Name == "" {
		return &InputError{Msg: "column name is empty"}
	}
	if c.Values == nil {
		return &InputError{Column: c.Name, Msg: "raw values sequence is nil"}
	}
	return nil
}

// Verdict is the output of one pattern classifier for one column.
//
// MatchedFraction is computed over non-null sample entries only; an
// empty sample always yields 0.
type Verdict struct {
	Kind            Kind
	MatchedFraction float64

	// Sentinels counts sample values recognized as the 9999 sentinel.
	// Only the date classifier sets it.
	Sentinels int
}

// Verdicts collects the verdict of every classifier for one column.
// All classifiers run unconditionally so the resolver can compare
// relative strength.
type Verdicts struct {
	Date          Verdict
	Numeric       Verdict
	ZeroPadded    Verdict
	FixedLength   Verdict
	NonContiguous Verdict
	PlainText     Verdict
}

// Decision is the resolved outcome for a column.
//
// Reasons records, in order, which signals contributed (rule number,
// name hints, competing fractions) so decisions stay auditable and
// testable. A Decision is computed once per ingestion pass and is
// immutable afterwards.
type Decision struct {
	FinalKind Kind

	// Rule is the resolver rule number that fired (1..4).
	Rule int

	Reasons []string

	// Ambiguous is set when two classifiers tied above threshold and
	// the precedence order broke the tie.
	Ambiguous bool
}

// Converted is the normalized representation of a column.
//
// Values has the same length and row order as the input column. Cells
// that could not be converted under the decided kind are nil and
// counted in Skipped; input nulls stay nil without counting.
type Converted struct {
	Name    string
	Kind    Kind
	Values  []any
	Skipped int
}

// InputError reports a structurally invalid column (empty name, nil
// value sequence). It is fatal for that column only; other columns of
// the same table proceed.
type InputError struct {
	Column string
	Msg    string
}

func (e *InputError) Error() string {
	if e.Column == "" {
		return "infer: " + e.Msg
	}
	return fmt.Sprintf("infer: column %q: %s", e.Column, e.Msg)
}

// cellString canonicalizes a raw cell to its text form.
//
// Numeric cells are rendered with the shortest exact representation so
// spreadsheet-style float cells (1234.0) behave like their text form.
// nil returns "".
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}
