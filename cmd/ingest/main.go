package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"ingest/internal/config"
	"ingest/internal/engine"
	"ingest/internal/metrics"
	"ingest/internal/metrics/datadog"
	"ingest/internal/storage"

	// Register all backends with the storage factory; the config picks
	// one at runtime.
	_ "ingest/internal/storage/mssql"
	_ "ingest/internal/storage/postgres"
	_ "ingest/internal/storage/sqlite"
)

// main is the entry point for the ingest binary. It loads the pipeline
// config, optionally initializes a metrics backend, and runs
// read -> infer -> convert -> load for one source file.
func main() {
	var (
		cfgPath           string
		sourcePath        string
		tableName         string
		backendKind       string
		dsn               string
		workers           int
		metricsBackendFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "", "pipeline config JSON path")
	flag.StringVar(&sourcePath, "source", "", "source file path (overrides config)")
	flag.StringVar(&tableName, "table", "", "target table name (overrides config)")
	flag.StringVar(&backendKind, "backend", "", "storage backend: sqlite, postgres or mssql (overrides config)")
	flag.StringVar(&dsn, "dsn", "", "storage DSN (overrides config)")
	flag.IntVar(&workers, "workers", 0, "inference worker count (overrides config)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (datadog, none)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	p := &config.Pipeline{}
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			fatalf("%v", err)
		}
		p = loaded
	}

	// Flag overrides beat config values.
	if sourcePath != "" {
		p.Source.Path = sourcePath
	}
	if tableName != "" {
		p.Table = tableName
	}
	if backendKind != "" {
		p.Storage.Kind = backendKind
	}
	if dsn != "" {
		p.Storage.DSN = dsn
	}
	if workers > 0 {
		p.Runtime.Workers = workers
	}

	issues := p.Validate()
	for _, iss := range issues {
		fmt.Fprintln(os.Stderr, iss)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid")
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid")
		os.Exit(0)
	}

	// Decide metrics backend: flag → env → default (disabled).
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "datadog":
		jobName := p.Job
		if jobName == "" {
			jobName = "ingest_job"
		}
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))

		// The backend starts its own periodic flush goroutine; Close()
		// stops it and performs one final Flush().
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: jobName,
			Tags:    extraTags,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=%v job_name=%v tags=%v", backendName, jobName, extraTags)
			metrics.SetBackend(b)
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("pipeline: source=%s storage=%s table=%s", p.Source.Path, p.Storage.Kind, p.Table)
	}

	if err := run(ctx, p, *verbose); err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

// buildTableSpec maps successfully inferred columns onto the storage
// schema contract.
func buildTableSpec(table string, cols []engine.ColumnResult) storage.TableSpec {
	spec := storage.TableSpec{Name: table}
	for _, c := range cols {
		spec.Columns = append(spec.Columns, storage.ColumnSpec{
			Name:          c.Name,
			Kind:          c.Decision.FinalKind,
			DistinctRatio: c.DistinctRatio,
		})
	}
	return spec
}
