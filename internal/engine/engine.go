// Package engine runs column type inference over whole tables with a
// bounded worker pool and aggregates per-column outcomes.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ingest/internal/infer"
	"ingest/internal/metrics"
)

// Logger is the minimal logging interface used by the engine.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// distinctTrackCap bounds the per-column distinct set. Columns with
// more distinct values than this report a ratio computed at the cap.
const distinctTrackCap = 10000

// Table is one raw dataset: a name and its columns in source order.
type Table struct {
	Name    string
	Columns []infer.Column
}

// ColumnResult is the outcome for one column.
//
// Err is set only for structurally invalid input (*infer.InputError);
// the rest of the table still completes. A column with Err set has a
// zero Decision and Converted.
type ColumnResult struct {
	Name      string
	Decision  infer.Decision
	Converted infer.Converted

	// DistinctRatio is distinct non-null values over non-null count,
	// used downstream for index selection. Zero for all-null columns.
	DistinctRatio float64

	Duration time.Duration
	Err      error
}

// TableResult aggregates per-column outcomes in source column order.
type TableResult struct {
	Table   string
	Columns []ColumnResult
	Rows    int
	Failed  int
}

// Ok returns the successfully inferred columns in source order.
func (r *TableResult) Ok() []ColumnResult {
	out := make([]ColumnResult, 0, len(r.Columns))
	for _, c := range r.Columns {
		if c.Err == nil {
			out = append(out, c)
		}
	}
	return out
}

// Engine coordinates inference workers. Zero value works with defaults.
type Engine struct {
	Cfg     infer.Config
	Workers int
	Logger  Logger
}

// Run infers every column of the table concurrently.
//
// Edge cases:
//   - A column failing validation is recorded in its ColumnResult and
//     counted in Failed; other columns are unaffected.
//   - An empty table returns an empty result, not an error.
//
// Errors:
//   - Only context cancellation aborts the whole run.
func (e *Engine) Run(ctx context.Context, t Table) (*TableResult, error) {
	if t.Name == "" {
		return nil, fmt.Errorf("engine: table name is required")
	}

	logf := e.logger()
	workers := e.Workers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(t.Columns) && len(t.Columns) > 0 {
		workers = len(t.Columns)
	}

	results := make([]ColumnResult, len(t.Columns))

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = e.inferColumn(t.Columns[i])
			}
		}()
	}

	canceled := false
produce:
	for i := range t.Columns {
		select {
		case jobs <- i:
		case <-ctx.Done():
			canceled = true
			break produce
		}
	}
	close(jobs)
	wg.Wait()

	if canceled {
		return nil, ctx.Err()
	}

	res := &TableResult{Table: t.Name, Columns: results}
	for _, c := range results {
		if c.Err != nil {
			res.Failed++
			logf("table=%s column=%q status=error err=%v", t.Name, c.Name, c.Err)
			continue
		}
		if n := len(c.Converted.Values); n > res.Rows {
			res.Rows = n
		}
		logf("table=%s column=%q kind=%s rule=%d skipped=%d distinct_ratio=%.2f duration=%s",
			t.Name, c.Name, c.Decision.FinalKind, c.Decision.Rule,
			c.Converted.Skipped, c.DistinctRatio, c.Duration.Truncate(time.Millisecond))
	}

	metrics.IncCounter("ingest_rows_total", float64(res.Rows), metrics.Labels{"table": t.Name})
	return res, nil
}

func (e *Engine) inferColumn(col infer.Column) ColumnResult {
	start := time.Now()

	d, conv, err := infer.ClassifyColumn(col, e.Cfg)
	r := ColumnResult{
		Name:     col.Name,
		Duration: time.Since(start),
	}
	if err != nil {
		r.Err = err
		metrics.IncCounter("ingest_columns_total", 1, metrics.Labels{"kind": "error"})
		return r
	}

	r.Decision = d
	r.Converted = conv
	r.DistinctRatio = distinctRatio(conv.Values)

	metrics.IncCounter("ingest_columns_total", 1, metrics.Labels{"kind": string(d.FinalKind)})
	if conv.Skipped > 0 {
		metrics.IncCounter("ingest_values_skipped_total", float64(conv.Skipped), metrics.Labels{"column": col.Name})
	}
	metrics.ObserveHistogram("ingest_column_duration_seconds", r.Duration.Seconds(), metrics.Labels{"kind": string(d.FinalKind)})
	return r
}

func (e *Engine) logger() func(format string, v ...any) {
	if e.Logger == nil {
		l := log.New(discardWriter{}, "", 0)
		return l.Printf
	}
	return e.Logger.Printf
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// distinctRatio computes distinct over total for non-null values,
// tracking at most distinctTrackCap distinct entries.
func distinctRatio(values []any) float64 {
	seen := make(map[any]struct{}, 64)
	nonNull := 0
	for _, v := range values {
		if v == nil {
			continue
		}
		nonNull++
		if len(seen) < distinctTrackCap {
			seen[v] = struct{}{}
		}
	}
	if nonNull == 0 {
		return 0
	}
	return float64(len(seen)) / float64(nonNull)
}

// AssembleRows transposes successfully inferred columns into row-major
// form for storage. Short columns are padded with nil so every row has
// one cell per column.
func AssembleRows(cols []ColumnResult) [][]any {
	rows := 0
	for _, c := range cols {
		if n := len(c.Converted.Values); n > rows {
			rows = n
		}
	}
	out := make([][]any, rows)
	for i := range out {
		row := make([]any, len(cols))
		for j, c := range cols {
			if i < len(c.Converted.Values) {
				row[j] = c.Converted.Values[i]
			}
		}
		out[i] = row
	}
	return out
}
