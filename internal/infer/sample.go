package infer

import "strings"

// ExtractSample produces the bounded sample the classifiers inspect.
//
// Behavior:
//   - nil cells and empty/whitespace-only strings are dropped
//   - remaining values keep their original order (no shuffling; any
//     positional bias in the source is preserved and classifiers must
//     tolerate it)
//   - at most max values are returned; max <= 0 falls back to the
//     default sample size
//
// An all-null column yields an empty sample, never an error. No side
// effects; the input slice is not modified.
func ExtractSample(values []any, max int) []string {
	if max <= 0 {
		max = DefaultConfig().SampleMaxSize
	}

	out := make([]string, 0, minInt(max, len(values)))
	for _, v := range values {
		if v == nil {
			continue
		}
		s := cellString(v)
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
		if len(out) >= max {
			break
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
