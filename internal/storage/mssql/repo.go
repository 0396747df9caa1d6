// Package mssql implements storage.Repository for Microsoft SQL
// Server, for sites whose reporting warehouse runs on SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"ingest/internal/infer"
	"ingest/internal/storage"
)

// batchRows bounds multi-row INSERT size. SQL Server caps one
// statement at 2100 parameters and 1000 row value expressions.
const batchRows = 500

// Repo implements storage.Repository for SQL Server.
type Repo struct {
	db     *sql.DB
	logger *log.Logger
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}

	// Conservative defaults for bursty bulk loads.
	db.SetMaxOpenConns(64)
	db.SetMaxIdleConns(64)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db, logger: log.Default()}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return fmt.Errorf("mssql: table name is empty")
	}

	drop := fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s",
		spec.Name, mssqlIdent(spec.Name))
	if _, err := r.db.ExecContext(ctx, drop); err != nil {
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

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 || len(columns) == 0 {
		return 0, nil
	}

	perBatch := batchRows
	if maxByParams := 2000 / len(columns); maxByParams < perBatch {
		perBatch = maxByParams
	}
	if perBatch < 1 {
		perBatch = 1
	}

	var total int64
	for start := 0; start < len(rows); start += perBatch {
		end := start + perBatch
		if end > len(rows) {
			end = len(rows)
		}

		query, args := buildInsertSQL(table, columns, rows[start:end])
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("insert into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (r *Repo) CreateIndexes(ctx context.Context, spec storage.TableSpec) error {
	for _, col := range storage.IndexCandidates(spec) {
		name := "idx_" + spec.Name + "_" + col
		q := fmt.Sprintf(
			"IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'%s') CREATE INDEX %s ON %s (%s)",
			name, mssqlIdent(name), mssqlIdent(spec.Name), mssqlIdent(col))
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			r.logger.Printf("mssql: create index %s: %v", name, err)
		}
	}
	return nil
}

// Finalize refreshes optimizer statistics on the loaded table set.
func (r *Repo) Finalize(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "EXEC sp_updatestats")
	return err
}

func mssqlIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

// columnType maps an inferred kind onto a SQL Server column type.
// NVARCHAR keeps Japanese column values intact.
func columnType(kind infer.Kind) string {
	switch kind {
	case infer.KindDate, infer.KindDateWithSentinel:
		return "DATE"
	case infer.KindNumeric:
		return "NUMERIC(38, 10)"
	default:
		return "NVARCHAR(400)"
	}
}

func buildCreateTableSQL(spec storage.TableSpec) (string, error) {
	if len(spec.Columns) == 0 {
		return "", fmt.Errorf("mssql: table %s has no columns", spec.Name)
	}

	parts := make([]string, 0, len(spec.Columns))
	for _, c := range spec.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("mssql: table %s has an unnamed column", spec.Name)
		}
		parts = append(parts, fmt.Sprintf("%s %s", mssqlIdent(c.Name), columnType(c.Kind)))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", mssqlIdent(spec.Name), strings.Join(parts, ",\n  ")), nil
}

// buildInsertSQL constructs one multi-row INSERT with @pN placeholders.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
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
			b.WriteString("@p")
			b.WriteString(strconv.Itoa(n))
			n++
		}
		b.WriteString(")")
		args = append(args, row...)
	}
	return b.String(), args
}
