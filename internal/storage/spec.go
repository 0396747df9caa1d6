// TableSpec types live here so the engine and every backend can import
// them without circular deps.
package storage

import (
	"strings"

	"ingest/internal/infer"
)

// TableSpec describes one destination table derived from inference.
type TableSpec struct {
	Name    string
	Columns []ColumnSpec
}

// ColumnSpec carries what a backend needs to type and index a column.
type ColumnSpec struct {
	Name string
	Kind infer.Kind

	// DistinctRatio feeds the index heuristic. Values in [0, 1].
	DistinctRatio float64
}

// keyPatterns are column-name fragments that suggest an identifier
// worth indexing.
var keyPatterns = []string{"id", "code", "key", "no", "num", "コード", "番号"}

// IndexCandidates picks the columns worth a secondary index:
// identifier-named columns with a high distinct ratio, and every date
// column regardless of ratio.
func IndexCandidates(spec TableSpec) []string {
	var out []string
	for _, c := range spec.Columns {
		switch {
		case c.Kind == infer.KindDate || c.Kind == infer.KindDateWithSentinel:
			out = append(out, c.Name)
		case nameLooksLikeKey(c.Name) && c.DistinctRatio > 0.5:
			out = append(out, c.Name)
		}
	}
	return out
}

func nameLooksLikeKey(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range keyPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
