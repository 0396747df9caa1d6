// Package reader turns raw delimited report files into per-column
// value sequences ready for type inference.
//
// Report files arrive as CSV or TSV, in UTF-8 or cp932, with or
// without a header row. Encoding and delimiter are autodetected from
// the head of the file unless the config pins them.
package reader

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"ingest/internal/config"
	"ingest/internal/infer"
)

// Logger is the minimal logging interface used by the reader.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

const sniffBytes = 4096

// ReadFile opens path and reads the whole table. See ReadTable.
func ReadFile(ctx context.Context, path string, opt config.Options, logger Logger) ([]infer.Column, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	return ReadTable(ctx, f, opt, logger)
}

// ReadTable reads a delimited table from src into column-major form.
//
// Options:
//   - "encoding": "utf-8" | "cp932" (default: autodetect)
//   - "delimiter": single-character separator (default: autodetect)
//   - "has_header": first row names the columns (default true)
//   - "trim_space": trim cell whitespace (default true)
//   - "lazy_quotes": tolerate bare quotes inside fields (default true)
//
// Rows whose field count differs from the header are skipped and
// counted, not fatal. Empty cells become nil so inference can tell
// missing from present.
func ReadTable(ctx context.Context, src io.Reader, opt config.Options, logger Logger) ([]infer.Column, error) {
	if logger == nil {
		logger = nopLogger{}
	}

	br := bufio.NewReaderSize(src, sniffBytes)

	encoding := normalizeEncoding(opt.String("encoding", ""))
	if opt.String("encoding", "") == "" {
		head, err := br.Peek(sniffBytes)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("sniff encoding: %w", err)
		}
		encoding = DetectEncoding(head)
	}
	switch encoding {
	case EncodingUTF8, EncodingCP932:
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}

	decoded := bufio.NewReaderSize(decodeReader(br, encoding), sniffBytes)

	comma := opt.Rune("delimiter", 0)
	if comma == 0 {
		head, err := decoded.Peek(sniffBytes)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("sniff delimiter: %w", err)
		}
		comma = DetectDelimiter(string(head))
	}
	logger.Printf("reader: encoding=%s delimiter=%q", encoding, comma)

	cr := csv.NewReader(decoded)
	cr.Comma = comma
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.Bool("lazy_quotes", true)
	cr.FieldsPerRecord = -1

	hasHeader := opt.Bool("has_header", true)
	trim := opt.Bool("trim_space", true)

	var names []string
	first, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read first row: %w", err)
	}
	first = stripBOM(first)

	var pending [][]string
	if hasHeader {
		names = headerNames(first, trim)
	} else {
		names = syntheticNames(len(first))
		pending = append(pending, cloneRecord(first))
	}

	values := make([][]any, len(names))
	var rows, skipped int

	appendRow := func(rec []string) {
		if len(rec) != len(names) {
			skipped++
			return
		}
		for i, v := range rec {
			if trim {
				v = strings.TrimSpace(v)
			}
			if v == "" {
				values[i] = append(values[i], nil)
			} else {
				values[i] = append(values[i], v)
			}
		}
		rows++
	}

	for _, rec := range pending {
		appendRow(rec)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			logger.Printf("reader: skipping malformed row: %v", err)
			continue
		}
		appendRow(rec)
	}

	if skipped > 0 {
		logger.Printf("reader: skipped %d misaligned or malformed rows (kept %d)", skipped, rows)
	}

	cols := make([]infer.Column, len(names))
	for i, name := range names {
		vals := values[i]
		if vals == nil {
			vals = []any{}
		}
		cols[i] = infer.Column{Name: name, Values: vals}
	}
	return cols, nil
}

// headerNames cleans the header row. Blank headers get positional
// names so every column stays addressable.
func headerNames(rec []string, trim bool) []string {
	names := make([]string, len(rec))
	for i, h := range rec {
		if trim {
			h = strings.TrimSpace(h)
		}
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		names[i] = h
	}
	return names
}

func syntheticNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("column_%d", i+1)
	}
	return names
}

func stripBOM(rec []string) []string {
	if len(rec) > 0 {
		rec[0] = strings.TrimPrefix(rec[0], "\uFEFF")
	}
	return rec
}

func cloneRecord(rec []string) []string {
	out := make([]string, len(rec))
	copy(out, rec)
	return out
}
