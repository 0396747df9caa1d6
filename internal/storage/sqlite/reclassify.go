package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Code-field reclassification repairs databases loaded before code
// detection existed: identifier columns stored as REAL/INTEGER lose
// leading zeros and break SAP's trailing-minus notation. The scan
// finds suspect columns; ConvertColumnToText rebuilds the table with
// the column retyped as TEXT.

// codeFieldPatterns mark column names that usually carry identifiers.
// Broader than the inference tokens on purpose: this runs against
// already-loaded tables where a false positive only costs a scan.
var codeFieldPatterns = []string{
	"code", "コード", "番号", "id", "no", "number",
	"伝票", "受注", "発注", "購買", "指図", "品目",
	"wbs", "ネットワーク", "得意先", "勘定", "保管場所", "評価クラス",
}

const (
	analyzeSampleLimit = 100

	// fixedLengthConvertRatio is how dominant one value length must be
	// before a numeric column is treated as a fixed-width code.
	fixedLengthConvertRatio = 0.8
)

// CodeField is one numeric column that matched the identifier name
// patterns, with the analysis verdict.
type CodeField struct {
	Table       string
	Column      string
	CurrentType string

	ShouldConvert bool
	Reasons       []string
	Samples       []string
}

// FindCodeFields scans every user table for numeric columns whose
// names look like identifiers and analyzes their values.
func FindCodeFields(ctx context.Context, db *sql.DB) ([]CodeField, error) {
	tables, err := listTables(ctx, db)
	if err != nil {
		return nil, err
	}

	var out []CodeField
	for _, table := range tables {
		cols, err := tableColumns(ctx, db, table)
		if err != nil {
			return nil, err
		}
		for _, col := range cols {
			if col.declType != "REAL" && col.declType != "INTEGER" {
				continue
			}
			if !matchesCodePattern(col.name) {
				continue
			}

			field := CodeField{Table: table, Column: col.name, CurrentType: col.declType}
			if err := analyzeField(ctx, db, &field); err != nil {
				return nil, fmt.Errorf("analyze %s.%s: %w", table, col.name, err)
			}
			out = append(out, field)
		}
	}
	return out, nil
}

func matchesCodePattern(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range codeFieldPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// analyzeField samples up to 100 non-null values and decides whether
// the column should be retyped. Conversion triggers on leading zeros,
// a dominant fixed width, or SAP trailing-minus values.
func analyzeField(ctx context.Context, db *sql.DB, f *CodeField) error {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL LIMIT %d",
		sqlIdent(f.Column), sqlIdent(f.Table), sqlIdent(f.Column), analyzeSampleLimit)

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return err
		}
		values = append(values, valueText(v))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(values) == 0 {
		f.Reasons = []string{"no values"}
		return nil
	}

	if n := len(values); n > 5 {
		f.Samples = values[:5]
	} else {
		f.Samples = values[:n]
	}

	hasLeadingZeros := false
	hasTrailingMinus := false
	lengthCounts := map[int]int{}
	for _, v := range values {
		if len(v) > 1 && strings.HasPrefix(v, "0") {
			hasLeadingZeros = true
		}
		if strings.HasSuffix(v, "-") {
			hasTrailingMinus = true
		}
		lengthCounts[len(v)]++
	}

	topLength, topCount := 0, 0
	for l, c := range lengthCounts {
		if c > topCount {
			topLength, topCount = l, c
		}
	}
	fixedRatio := float64(topCount) / float64(len(values))

	if hasLeadingZeros {
		f.Reasons = append(f.Reasons, "values with leading zeros")
	}
	if fixedRatio > fixedLengthConvertRatio {
		f.Reasons = append(f.Reasons, fmt.Sprintf("fixed width %d digits (%.0f%% of sample)", topLength, fixedRatio*100))
	}
	if hasTrailingMinus {
		f.Reasons = append(f.Reasons, "SAP trailing-minus values")
	}
	f.ShouldConvert = hasLeadingZeros || fixedRatio > fixedLengthConvertRatio || hasTrailingMinus
	return nil
}

func valueText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// ConvertColumnToText rebuilds table with column retyped as TEXT,
// copying all rows through CAST inside one transaction. Other columns
// keep their declared type, NOT NULL, default and primary key.
func ConvertColumnToText(ctx context.Context, db *sql.DB, table, column string) error {
	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("sqlite: table %s not found", table)
	}
	found := false
	for _, c := range cols {
		if c.name == column {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("sqlite: column %s.%s not found", table, column)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	temp := table + "_temp"
	steps := []string{
		fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", sqlIdent(temp), sqlIdent(table)),
		fmt.Sprintf("DROP TABLE %s", sqlIdent(table)),
		buildRetypedCreateSQL(table, cols, column),
		buildCopyBackSQL(table, temp, cols, column),
		fmt.Sprintf("DROP TABLE %s", sqlIdent(temp)),
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("rebuild %s: %w", table, err)
		}
	}
	return tx.Commit()
}

type columnInfo struct {
	name     string
	declType string
	notNull  bool
	dflt     sql.NullString
	pk       int
}

func listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]columnInfo, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", sqlIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []columnInfo
	for rows.Next() {
		var (
			cid     int
			c       columnInfo
			notNull int
		)
		if err := rows.Scan(&cid, &c.name, &c.declType, &notNull, &c.dflt, &c.pk); err != nil {
			return nil, err
		}
		c.notNull = notNull != 0
		c.declType = strings.ToUpper(strings.TrimSpace(c.declType))
		out = append(out, c)
	}
	return out, rows.Err()
}

func buildRetypedCreateSQL(table string, cols []columnInfo, retyped string) string {
	defs := make([]string, 0, len(cols))
	var pkCols []string
	for _, c := range cols {
		typ := c.declType
		if c.name == retyped {
			typ = "TEXT"
		}
		def := sqlIdent(c.name) + " " + typ
		if c.notNull {
			def += " NOT NULL"
		}
		if c.dflt.Valid {
			def += " DEFAULT " + c.dflt.String
		}
		defs = append(defs, def)
		if c.pk > 0 {
			pkCols = append(pkCols, sqlIdent(c.name))
		}
	}
	if len(pkCols) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(pkCols, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", sqlIdent(table), strings.Join(defs, ", "))
}

func buildCopyBackSQL(table, temp string, cols []columnInfo, retyped string) string {
	sel := make([]string, 0, len(cols))
	for _, c := range cols {
		if c.name == retyped {
			sel = append(sel, fmt.Sprintf("CAST(%s AS TEXT) AS %s", sqlIdent(c.name), sqlIdent(c.name)))
		} else {
			sel = append(sel, sqlIdent(c.name))
		}
	}
	return fmt.Sprintf("INSERT INTO %s SELECT %s FROM %s", sqlIdent(table), strings.Join(sel, ", "), sqlIdent(temp))
}
