package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ingest/internal/infer"
)

func TestOptionsAccessors(t *testing.T) {
	t.Parallel()

	o := Options{
		"flag":      true,
		"count":     float64(42), // JSON numbers decode as float64
		"ratio":     0.25,
		"name":      "orders",
		"delim":     "\t",
		"tokens":    []any{"code", "コード"},
		"tokens_cs": "date, 日付 ,期日",
		"mistyped":  "not-a-number",
	}

	if got := o.Bool("flag", false); got != true {
		t.Fatalf("Bool(flag) = %v, want true", got)
	}
	if got := o.Bool("missing", true); got != true {
		t.Fatalf("Bool(missing) = %v, want default true", got)
	}
	if got := o.Int("count", 0); got != 42 {
		t.Fatalf("Int(count) = %d, want 42", got)
	}
	if got := o.Int("mistyped", 7); got != 7 {
		t.Fatalf("Int(mistyped) = %d, want default 7", got)
	}
	if got := o.Float("ratio", 0); got != 0.25 {
		t.Fatalf("Float(ratio) = %v, want 0.25", got)
	}
	if got := o.String("name", ""); got != "orders" {
		t.Fatalf("String(name) = %q, want orders", got)
	}
	if got := o.Rune("delim", ','); got != '\t' {
		t.Fatalf("Rune(delim) = %q, want tab", got)
	}
	if got := o.Rune("missing", ','); got != ',' {
		t.Fatalf("Rune(missing) = %q, want comma default", got)
	}
	if got := o.Strings("tokens"); !reflect.DeepEqual(got, []string{"code", "コード"}) {
		t.Fatalf("Strings(tokens) = %v", got)
	}
	if got := o.Strings("tokens_cs"); !reflect.DeepEqual(got, []string{"date", "日付", "期日"}) {
		t.Fatalf("Strings(tokens_cs) = %v", got)
	}
	if got := o.Strings("missing"); got != nil {
		t.Fatalf("Strings(missing) = %v, want nil", got)
	}
}

func TestHasHeaderDefaultsTrue(t *testing.T) {
	t.Parallel()

	var s Source
	if !s.HasHeader() {
		t.Fatal("HasHeader() = false for unset header_row, want true")
	}

	f := false
	s.HeaderRow = &f
	if s.HasHeader() {
		t.Fatal("HasHeader() = true for header_row=false")
	}
}

func TestReaderOptions(t *testing.T) {
	t.Parallel()

	f := false
	s := Source{
		Encoding:  "cp932",
		Delimiter: `\t`,
		HeaderRow: &f,
		Options:   Options{"lazy_quotes": false, "encoding": "utf-8"},
	}

	o := s.ReaderOptions()
	if got := o.String("encoding", ""); got != "cp932" {
		t.Fatalf("encoding = %q, want cp932 (dedicated field wins)", got)
	}
	if got := o.Rune("delimiter", 0); got != '\t' {
		t.Fatalf("delimiter = %q, want tab", got)
	}
	if o.Bool("has_header", true) {
		t.Fatal("has_header = true, want false")
	}
	if o.Bool("lazy_quotes", true) {
		t.Fatal("lazy_quotes = true, want false from option bag")
	}

	// Empty source pins nothing except the header default.
	o = Source{}.ReaderOptions()
	if got := o.String("encoding", ""); got != "" {
		t.Fatalf("encoding = %q, want empty for autodetect", got)
	}
	if !o.Bool("has_header", false) {
		t.Fatal("has_header default = false, want true")
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pipeline.json")
	doc := `{
		"job": "nightly",
		"table": "orders",
		"source": {"path": "orders.csv", "encoding": "cp932", "header_row": false},
		"infer": {"sample_max_size": 50, "zero_pad_threshold": 0.2},
		"storage": {"kind": "sqlite", "dsn": "file:out.db"},
		"runtime": {"workers": 8, "batch_size": 500}
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Job != "nightly" || p.Table != "orders" {
		t.Fatalf("job/table = %q/%q", p.Job, p.Table)
	}
	if p.Source.Encoding != "cp932" || p.Source.HasHeader() {
		t.Fatalf("source = %+v", p.Source)
	}
	if p.Storage.Kind != "sqlite" || p.Runtime.Workers != 8 {
		t.Fatalf("storage/runtime = %+v %+v", p.Storage, p.Runtime)
	}

	cfg := p.InferConfig()
	if cfg.SampleMaxSize != 50 {
		t.Fatalf("SampleMaxSize = %d, want 50", cfg.SampleMaxSize)
	}
	if cfg.ZeroPadThreshold != 0.2 {
		t.Fatalf("ZeroPadThreshold = %v, want 0.2", cfg.ZeroPadThreshold)
	}
	// Knobs absent from the config keep defaults.
	def := infer.DefaultConfig()
	if cfg.DateMatchThreshold != def.DateMatchThreshold {
		t.Fatalf("DateMatchThreshold = %v, want default %v", cfg.DateMatchThreshold, def.DateMatchThreshold)
	}
	if !reflect.DeepEqual(cfg.CodeNameTokens, def.CodeNameTokens) {
		t.Fatalf("CodeNameTokens = %v, want default %v", cfg.CodeNameTokens, def.CodeNameTokens)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestInferConfigNilOptions(t *testing.T) {
	t.Parallel()

	p := &Pipeline{}
	got := p.InferConfig()
	if !reflect.DeepEqual(got, infer.DefaultConfig()) {
		t.Fatalf("InferConfig with nil options = %+v, want defaults", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		p          Pipeline
		wantErrs   int
		wantWarns  int
		wantFields []string
	}{
		{
			name: "valid_minimal",
			p: Pipeline{
				Table:   "orders",
				Source:  Source{Path: "orders.csv"},
				Storage: Storage{Kind: "sqlite", DSN: "file:out.db"},
			},
		},
		{
			name:       "missing_everything",
			p:          Pipeline{},
			wantErrs:   3,
			wantFields: []string{"source.path", "table", "storage.kind"},
		},
		{
			name: "unknown_backend_and_missing_dsn",
			p: Pipeline{
				Table:   "orders",
				Source:  Source{Path: "orders.csv"},
				Storage: Storage{Kind: "oracle"},
			},
			wantErrs:   2,
			wantFields: []string{"storage.kind", "storage.dsn"},
		},
		{
			name: "unsupported_encoding",
			p: Pipeline{
				Table:   "orders",
				Source:  Source{Path: "orders.csv", Encoding: "euc-jp"},
				Storage: Storage{Kind: "sqlite", DSN: "file:out.db"},
			},
			wantErrs:   1,
			wantFields: []string{"source.encoding"},
		},
		{
			name: "warnings_only",
			p: Pipeline{
				Table:   "orders",
				Source:  Source{Path: "orders.csv", Delimiter: "||"},
				Storage: Storage{Kind: "postgres", DSN: "postgres://x"},
				Runtime: RuntimeConfig{Workers: -1},
				Infer:   Options{"date_match_threshold": 1.5},
			},
			wantWarns:  3,
			wantFields: []string{"source.delimiter", "runtime.workers", "infer.date_match_threshold"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			issues := tt.p.Validate()

			var errs, warns int
			for _, i := range issues {
				switch i.Severity {
				case SeverityError:
					errs++
				case SeverityWarning:
					warns++
				}
			}
			if errs != tt.wantErrs || warns != tt.wantWarns {
				t.Fatalf("issues = %v, want %d errors %d warnings", issues, tt.wantErrs, tt.wantWarns)
			}
			if HasErrors(issues) != (tt.wantErrs > 0) {
				t.Fatalf("HasErrors = %v", HasErrors(issues))
			}

			for _, field := range tt.wantFields {
				found := false
				for _, i := range issues {
					if i.Field == field {
						found = true
						break
					}
				}
				if !found {
					t.Fatalf("missing issue for field %q in %v", field, issues)
				}
			}
		})
	}
}

func TestIssueString(t *testing.T) {
	t.Parallel()

	i := Issue{SeverityError, "storage.dsn", "backend DSN is required"}
	if got := i.String(); got != "error: storage.dsn: backend DSN is required" {
		t.Fatalf("Issue.String() = %q", got)
	}
}
