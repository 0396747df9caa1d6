package mssql

import (
	"strings"
	"testing"

	"ingest/internal/infer"
	"ingest/internal/storage"
)

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	spec := storage.TableSpec{
		Name: "orders",
		Columns: []storage.ColumnSpec{
			{Name: "品目コード", Kind: infer.KindZeroPaddedCode},
			{Name: "数量", Kind: infer.KindNumeric},
			{Name: "登録日", Kind: infer.KindDate},
		},
	}

	got, err := buildCreateTableSQL(spec)
	if err != nil {
		t.Fatalf("buildCreateTableSQL: %v", err)
	}
	for _, want := range []string{
		"[品目コード] NVARCHAR(400)",
		"[数量] NUMERIC(38, 10)",
		"[登録日] DATE",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("DDL missing %q:\n%s", want, got)
		}
	}
}

func TestBuildInsertSQLPlaceholderNumbering(t *testing.T) {
	t.Parallel()

	query, args := buildInsertSQL("t", []string{"a", "b"}, [][]any{
		{1, "x"},
		{2, "y"},
	})

	wantQuery := "INSERT INTO [t] ([a], [b]) VALUES (@p1, @p2), (@p3, @p4)"
	if query != wantQuery {
		t.Fatalf("query = %q, want %q", query, wantQuery)
	}
	if len(args) != 4 {
		t.Fatalf("args length = %d, want 4", len(args))
	}
}

func TestMssqlIdentEscapesBrackets(t *testing.T) {
	t.Parallel()

	if got := mssqlIdent("we]ird"); got != "[we]]ird]" {
		t.Fatalf("mssqlIdent = %q", got)
	}
}
