// Package sqlite implements storage.Repository for SQLite files, the
// default destination for single-machine report ingestion.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "modernc.org/sqlite"

	"ingest/internal/infer"
	"ingest/internal/storage"
)

// maxBindParams stays under SQLite's historical 999-variable limit so
// batched inserts never trip it regardless of column count.
const maxBindParams = 900

// Repo implements storage.Repository for SQLite.
//
// Key design points:
//   - SQLite has no real date type; converted dates are stored as TEXT
//     in ISO form, which sorts and compares correctly.
//   - Code columns must be TEXT so leading zeros survive. NUMERIC
//     affinity would silently strip them.
type Repo struct {
	db     *sql.DB
	logger *log.Logger
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 10000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	return &Repo{db: db, logger: log.Default()}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureTable drops and recreates the destination table. Re-running a
// load of the same report replaces the previous contents.
func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return fmt.Errorf("sqlite: table name is empty")
	}

	if _, err := r.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlIdent(spec.Name)); err != nil {
		return fmt.Errorf("drop table %s: %w", spec.Name, err)
	}
	ddl, err := buildCreateTableSQL(spec)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return nil
}

// InsertRows bulk-inserts in batches bounded by the bind-variable cap.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 || len(columns) == 0 {
		return 0, nil
	}

	rowsPerBatch := maxBindParams / len(columns)
	if rowsPerBatch < 1 {
		rowsPerBatch = 1
	}

	var total int64
	for start := 0; start < len(rows); start += rowsPerBatch {
		end := start + rowsPerBatch
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		query, args := buildInsertSQL(table, columns, batch)
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("insert into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// CreateIndexes creates the heuristic indexes. Individual index
// failures are logged and skipped; the load already succeeded.
func (r *Repo) CreateIndexes(ctx context.Context, spec storage.TableSpec) error {
	for _, col := range storage.IndexCandidates(spec) {
		name := indexName(spec.Name, col)
		q := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			sqlIdent(name), sqlIdent(spec.Name), sqlIdent(col))
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			r.logger.Printf("sqlite: create index %s: %v", name, err)
		}
	}
	return nil
}

// Finalize runs SQLite's built-in maintenance.
func (r *Repo) Finalize(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "PRAGMA optimize")
	return err
}

// DB exposes the underlying handle for maintenance tooling
// (code-field reclassification works directly on the database).
func (r *Repo) DB() *sql.DB { return r.db }

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func indexName(table, column string) string {
	return "idx_" + table + "_" + column
}

// columnType maps an inferred kind onto a SQLite column type.
// Everything except numerics is TEXT on purpose.
func columnType(kind infer.Kind) string {
	if kind == infer.KindNumeric {
		return "NUMERIC"
	}
	return "TEXT"
}

func buildCreateTableSQL(spec storage.TableSpec) (string, error) {
	if len(spec.Columns) == 0 {
		return "", fmt.Errorf("sqlite: table %s has no columns", spec.Name)
	}

	parts := make([]string, 0, len(spec.Columns))
	for _, c := range spec.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("sqlite: table %s has an unnamed column", spec.Name)
		}
		parts = append(parts, fmt.Sprintf("%s %s", sqlIdent(c.Name), columnType(c.Kind)))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", sqlIdent(spec.Name), strings.Join(parts, ",\n  ")), nil
}

// buildInsertSQL is pure so insert statement shape is testable without
// a database.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	b.WriteString(strings.Join(colList, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		args = append(args, row...)
	}
	return b.String(), args
}
