package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"ingest/internal/config"
	"ingest/internal/engine"
	"ingest/internal/reader"
	"ingest/internal/storage"
)

// run executes one pipeline: read the source table, infer and convert
// every column, then load the result into the configured backend.
func run(ctx context.Context, p *config.Pipeline, verbose bool) error {
	var lg *log.Logger
	if verbose {
		lg = log.New(os.Stderr, "", log.LstdFlags)
	}

	cols, err := reader.ReadFile(ctx, p.Source.Path, p.Source.ReaderOptions(), readerLogger(lg))
	if err != nil {
		return fmt.Errorf("read %s: %w", p.Source.Path, err)
	}
	if len(cols) == 0 {
		log.Printf("source %s is empty, nothing to load", p.Source.Path)
		return nil
	}

	eng := engine.Engine{
		Cfg:     p.InferConfig(),
		Workers: p.Runtime.Workers,
	}
	if lg != nil {
		// A typed-nil *log.Logger in the interface field would panic
		// inside the engine, so only set it when verbose.
		eng.Logger = lg
	}
	res, err := eng.Run(ctx, engine.Table{Name: p.Table, Columns: cols})
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		log.Printf("table=%s: %d of %d columns failed inference and were dropped",
			p.Table, res.Failed, len(res.Columns))
	}

	ok := res.Ok()
	if len(ok) == 0 {
		return fmt.Errorf("table %s: no usable columns", p.Table)
	}

	repo, err := storage.New(ctx, storage.Config{Kind: p.Storage.Kind, DSN: p.Storage.DSN})
	if err != nil {
		return fmt.Errorf("open %s backend: %w", p.Storage.Kind, err)
	}
	defer repo.Close()

	spec := buildTableSpec(p.Table, ok)
	if err := repo.EnsureTable(ctx, spec); err != nil {
		return err
	}

	names := make([]string, len(ok))
	for i, c := range ok {
		names[i] = c.Name
	}
	rows := engine.AssembleRows(ok)

	batch := p.Runtime.BatchSize
	if batch <= 0 {
		batch = len(rows)
	}
	var inserted int64
	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		n, err := repo.InsertRows(ctx, p.Table, names, rows[start:end])
		inserted += n
		if err != nil {
			return err
		}
	}
	log.Printf("table=%s columns=%d rows=%d inserted=%d", p.Table, len(ok), len(rows), inserted)

	if err := repo.CreateIndexes(ctx, spec); err != nil {
		return err
	}
	return repo.Finalize(ctx)
}

// readerLogger adapts the optional verbose logger; nil disables
// reader-level logging.
func readerLogger(lg *log.Logger) reader.Logger {
	if lg == nil {
		return nil
	}
	return lg
}
