package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"ingest/internal/infer"
)

func TestRunPreservesColumnOrder(t *testing.T) {
	t.Parallel()

	table := Table{
		Name: "orders",
		Columns: []infer.Column{
			{Name: "受注番号", Values: []any{"100", "5200", "9999999"}},
			{Name: "数量", Values: []any{"10", "25", "7"}},
			{Name: "登録日", Values: []any{"20240401", "20240402", "99991231"}},
			{Name: "備考", Values: []any{"a", nil, "b"}},
		},
	}

	e := &Engine{Workers: 3}
	res, err := e.Run(context.Background(), table)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantKinds := []infer.Kind{
		infer.KindNonContiguousCode,
		infer.KindNumeric,
		infer.KindDateWithSentinel,
		infer.KindPlainText,
	}
	if len(res.Columns) != len(wantKinds) {
		t.Fatalf("got %d column results, want %d", len(res.Columns), len(wantKinds))
	}
	for i, want := range wantKinds {
		if res.Columns[i].Err != nil {
			t.Fatalf("column %d error = %v", i, res.Columns[i].Err)
		}
		if got := res.Columns[i].Decision.FinalKind; got != want {
			t.Fatalf("column %d kind = %s, want %s", i, got, want)
		}
	}
	if res.Rows != 3 {
		t.Fatalf("Rows = %d, want 3", res.Rows)
	}
}

func TestRunIsolatesInvalidColumns(t *testing.T) {
	t.Parallel()

	table := Table{
		Name: "t",
		Columns: []infer.Column{
			{Name: "good", Values: []any{"1", "2"}},
			{Name: "", Values: []any{"x"}},
			{Name: "also_good", Values: []any{"a", "b"}},
		},
	}

	e := &Engine{Workers: 2}
	res, err := e.Run(context.Background(), table)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", res.Failed)
	}
	var inputErr *infer.InputError
	if !errors.As(res.Columns[1].Err, &inputErr) {
		t.Fatalf("column 1 error = %v, want *infer.InputError", res.Columns[1].Err)
	}
	if res.Columns[0].Err != nil || res.Columns[2].Err != nil {
		t.Fatal("valid columns must not be affected by a failing sibling")
	}
	if got := res.Ok(); len(got) != 2 {
		t.Fatalf("Ok() returned %d columns, want 2", len(got))
	}
}

func TestRunEmptyTable(t *testing.T) {
	t.Parallel()

	e := &Engine{}
	res, err := e.Run(context.Background(), Table{Name: "empty"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Columns) != 0 || res.Rows != 0 || res.Failed != 0 {
		t.Fatalf("unexpected result for empty table: %+v", res)
	}
}

func TestRunRequiresTableName(t *testing.T) {
	t.Parallel()

	e := &Engine{}
	if _, err := e.Run(context.Background(), Table{}); err == nil {
		t.Fatal("expected error for missing table name")
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cols := make([]infer.Column, 64)
	for i := range cols {
		cols[i] = infer.Column{Name: "c", Values: []any{"1"}}
	}

	e := &Engine{Workers: 1}
	if _, err := e.Run(ctx, Table{Name: "t", Columns: cols}); err != context.Canceled {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestDistinctRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []any
		want   float64
	}{
		{"all distinct", []any{"a", "b", "c"}, 1},
		{"half distinct", []any{"a", "a", "b", "b"}, 0.5},
		{"nulls excluded", []any{"a", nil, nil, "a"}, 0.5},
		{"all null", []any{nil, nil}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := distinctRatio(tt.values); got != tt.want {
				t.Fatalf("distinctRatio() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssembleRows(t *testing.T) {
	t.Parallel()

	cols := []ColumnResult{
		{Converted: infer.Converted{Values: []any{int64(1), int64(2), int64(3)}}},
		{Converted: infer.Converted{Values: []any{"a", "b"}}},
	}

	got := AssembleRows(cols)
	want := [][]any{
		{int64(1), "a"},
		{int64(2), "b"},
		{int64(3), nil},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AssembleRows() = %#v, want %#v", got, want)
	}
}
