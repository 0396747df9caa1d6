// Package postgres implements storage.Repository for PostgreSQL,
// used when typed report data feeds a shared warehouse instead of a
// local SQLite file.
package postgres

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"ingest/internal/infer"
	"ingest/internal/storage"
)

// batchRows bounds multi-row INSERT size. Postgres caps bind
// parameters at 65535; this stays far below it for any sane width.
const batchRows = 500

// Repo implements storage.Repository for Postgres.
type Repo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool, logger: log.Default()}, nil
}

func (r *Repo) Close() { r.pool.Close() }

// EnsureTable drops and recreates the destination table so a re-run
// replaces the previous load.
func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return fmt.Errorf("postgres: table name is empty")
	}

	if _, err := r.pool.Exec(ctx, "DROP TABLE IF EXISTS "+pgIdent(spec.Name)); err != nil {
		return fmt.Errorf("drop table %s: %w", spec.Name, err)
	}
	ddl, err := buildCreateTableSQL(spec)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return nil
}

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 || len(columns) == 0 {
		return 0, nil
	}

	var total int64
	for start := 0; start < len(rows); start += batchRows {
		end := start + batchRows
		if end > len(rows) {
			end = len(rows)
		}

		query, args := buildInsertSQL(table, columns, rows[start:end])
		cmd, err := r.pool.Exec(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("insert into %s: %w", table, err)
		}
		total += cmd.RowsAffected()
	}
	return total, nil
}

func (r *Repo) CreateIndexes(ctx context.Context, spec storage.TableSpec) error {
	for _, col := range storage.IndexCandidates(spec) {
		name := "idx_" + spec.Name + "_" + col
		q := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			pgIdent(name), pgIdent(spec.Name), pgIdent(col))
		if _, err := r.pool.Exec(ctx, q); err != nil {
			r.logger.Printf("postgres: create index %s: %v", name, err)
		}
	}
	return nil
}

// Finalize refreshes planner statistics for the fresh load.
func (r *Repo) Finalize(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, "ANALYZE")
	return err
}

func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// columnType maps an inferred kind onto a Postgres column type. Dates
// become real DATE columns; codes stay TEXT to keep exact form.
func columnType(kind infer.Kind) string {
	switch kind {
	case infer.KindDate, infer.KindDateWithSentinel:
		return "DATE"
	case infer.KindNumeric:
		return "NUMERIC"
	default:
		return "TEXT"
	}
}

func buildCreateTableSQL(spec storage.TableSpec) (string, error) {
	if len(spec.Columns) == 0 {
		return "", fmt.Errorf("postgres: table %s has no columns", spec.Name)
	}

	parts := make([]string, 0, len(spec.Columns))
	for _, c := range spec.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("postgres: table %s has an unnamed column", spec.Name)
		}
		parts = append(parts, fmt.Sprintf("%s %s", pgIdent(c.Name), columnType(c.Kind)))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", pgIdent(spec.Name), strings.Join(parts, ",\n  ")), nil
}

// buildInsertSQL constructs one multi-row INSERT with $n placeholders.
// Pure and deterministic so placeholder numbering is testable without
// a database.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	n := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			n++
		}
		b.WriteString(")")
		args = append(args, row...)
	}
	return b.String(), args
}
