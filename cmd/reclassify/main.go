package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"ingest/internal/storage/sqlite"
)

// main scans an already-loaded SQLite database for identifier columns
// stored as numbers and optionally retypes them as TEXT. Dry run by
// default; -apply performs the conversion.
func main() {
	var (
		dbPath string
		apply  bool
	)
	flag.StringVar(&dbPath, "db", "", "SQLite database path")
	flag.BoolVar(&apply, "apply", false, "convert flagged columns (default: report only)")
	flag.Parse()

	if dbPath == "" {
		fatalf("usage: reclassify -db <path> [-apply]")
	}
	if _, err := os.Stat(dbPath); err != nil {
		fatalf("open database: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	fields, err := sqlite.FindCodeFields(ctx, db)
	if err != nil {
		fatalf("scan: %v", err)
	}
	if len(fields) == 0 {
		fmt.Println("no identifier-named numeric columns found")
		return
	}

	var convert []sqlite.CodeField
	for _, f := range fields {
		status := "keep"
		if f.ShouldConvert {
			status = "convert"
			convert = append(convert, f)
		}
		fmt.Printf("%s.%s (%s): %s\n", f.Table, f.Column, f.CurrentType, status)
		if len(f.Reasons) > 0 {
			fmt.Printf("  reasons: %s\n", strings.Join(f.Reasons, "; "))
		}
		if len(f.Samples) > 0 {
			fmt.Printf("  samples: %s\n", strings.Join(f.Samples, ", "))
		}
	}

	if len(convert) == 0 {
		fmt.Println("nothing to convert")
		return
	}
	if !apply {
		fmt.Printf("%d column(s) flagged; re-run with -apply to convert\n", len(convert))
		return
	}

	for _, f := range convert {
		if err := sqlite.ConvertColumnToText(ctx, db, f.Table, f.Column); err != nil {
			log.Fatalf("convert %s.%s: %v", f.Table, f.Column, err)
		}
		fmt.Printf("converted %s.%s to TEXT\n", f.Table, f.Column)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
