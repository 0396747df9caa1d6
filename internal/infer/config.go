package infer

// Config carries the tunable thresholds and column-name token sets used
// by the classifiers and the resolver.
//
// The keyword lists historically lived in module-level globals; making
// them an explicit injectable object keeps threshold tuning testable
// per call and avoids hidden shared state.
//
// Zero values are not meaningful; start from DefaultConfig and override.
type Config struct {
	// SampleMaxSize caps how many non-null values are inspected per column.
	SampleMaxSize int

	// DateNameTokens are substrings (case-insensitive) of column names
	// that raise the date classifier's priority in the resolver.
	DateNameTokens []string

	// CodeNameTokens mark columns that must never be coerced to numeric.
	CodeNameTokens []string

	// ZeroPadThreshold is the minimum fraction of leading-zero digit
	// strings for a positive zero-padded-code verdict.
	ZeroPadThreshold float64

	// FixedLengthMaxDistinct is the maximum number of distinct value
	// lengths tolerated by the fixed-length-code classifier.
	FixedLengthMaxDistinct int

	// FixedLengthMinAvg is the minimum average value length for a
	// fixed-length-code verdict.
	FixedLengthMinAvg float64

	// NonContiguousGapThreshold is the sorted-distinct gap above which
	// an all-integer column is treated as an identifier space.
	NonContiguousGapThreshold int64

	// DateMatchThreshold is the matched fraction needed for a date
	// verdict without a name hint.
	DateMatchThreshold float64

	// DateMatchThresholdWithNameHint is the lowered acceptance bar when
	// the column name carries a date token.
	DateMatchThresholdWithNameHint float64
}

// DefaultConfig returns the threshold set used in production.
//
// The historical sources disagreed between "50% of sample valid as
// date" and stricter numeric thresholds; these defaults pick one
// consistent set. Treat them as tunable, not as hard requirements.
func DefaultConfig() Config {
	return Config{
		SampleMaxSize: 100,
		DateNameTokens: []string{
			"date", "day",
			"日付", "年月日", "登録日", "有効開始日", "有効終了日",
			"作成日", "更新日", "開始日", "終了日", "期限", "期日",
		},
		CodeNameTokens: []string{
			"code", "コード",
		},
		ZeroPadThreshold:               0.1,
		FixedLengthMaxDistinct:         2,
		FixedLengthMinAvg:              4.0,
		NonContiguousGapThreshold:      1000,
		DateMatchThreshold:             0.5,
		DateMatchThresholdWithNameHint: 0.3,
	}
}

// normalized returns a copy with unset fields replaced by defaults, so
// callers can override only the knobs they care about.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.SampleMaxSize <= 0 {
		c.SampleMaxSize = def.SampleMaxSize
	}
	if len(c.DateNameTokens) == 0 {
		c.DateNameTokens = def.DateNameTokens
	}
	if len(c.CodeNameTokens) == 0 {
		c.CodeNameTokens = def.CodeNameTokens
	}
	if c.ZeroPadThreshold <= 0 {
		c.ZeroPadThreshold = def.ZeroPadThreshold
	}
	if c.FixedLengthMaxDistinct <= 0 {
		c.FixedLengthMaxDistinct = def.FixedLengthMaxDistinct
	}
	if c.FixedLengthMinAvg <= 0 {
		c.FixedLengthMinAvg = def.FixedLengthMinAvg
	}
	if c.NonContiguousGapThreshold <= 0 {
		c.NonContiguousGapThreshold = def.NonContiguousGapThreshold
	}
	if c.DateMatchThreshold <= 0 {
		c.DateMatchThreshold = def.DateMatchThreshold
	}
	if c.DateMatchThresholdWithNameHint <= 0 {
		c.DateMatchThresholdWithNameHint = def.DateMatchThresholdWithNameHint
	}
	return c
}
