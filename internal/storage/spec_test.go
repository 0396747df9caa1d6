package storage

import (
	"context"
	"reflect"
	"testing"

	"ingest/internal/infer"
)

func TestIndexCandidates(t *testing.T) {
	t.Parallel()

	spec := TableSpec{
		Name: "orders",
		Columns: []ColumnSpec{
			// Identifier name with high distinct ratio: indexed.
			{Name: "受注番号", Kind: infer.KindNonContiguousCode, DistinctRatio: 0.9},
			// Identifier name but mostly repeated values: skipped.
			{Name: "保管場所コード", Kind: infer.KindFixedLengthCode, DistinctRatio: 0.1},
			// Date columns are always indexed.
			{Name: "登録日", Kind: infer.KindDateWithSentinel, DistinctRatio: 0.05},
			// Plain measure: skipped.
			{Name: "数量", Kind: infer.KindNumeric, DistinctRatio: 0.9},
		},
	}

	got := IndexCandidates(spec)
	want := []string{"受注番号", "登録日"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("IndexCandidates() = %v, want %v", got, want)
	}
}

func TestNameLooksLikeKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"item_id", true},
		{"product_code", true},
		{"order_no", true},
		{"品目コード", true},
		{"伝票番号", true},
		{"数量", false},
		{"備考", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := nameLooksLikeKey(tt.name); got != tt.want {
				t.Fatalf("nameLooksLikeKey(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Config{Kind: "oracle"}); err == nil {
		t.Fatal("expected error for unregistered backend kind")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty backend kind")
	}
}

func TestRegisterPanics(t *testing.T) {
	t.Parallel()

	mustPanic := func(name string, f func()) {
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		f()
	}

	mustPanic("empty kind", func() { Register("", func(context.Context, Config) (Repository, error) { return nil, nil }) })
	mustPanic("nil factory", func() { Register("x", nil) })
}
