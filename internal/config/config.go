// Package config defines the user-provided pipeline configuration and
// the free-form option bags passed to the reader and the inference
// engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"ingest/internal/infer"
)

// Pipeline is the top-level JSON config for one ingestion job.
type Pipeline struct {
	Job     string        `json:"job"`
	Source  Source        `json:"source"`
	Table   string        `json:"table"`
	Infer   Options       `json:"infer"`
	Storage Storage       `json:"storage"`
	Runtime RuntimeConfig `json:"runtime"`
}

// Source describes where the raw report file comes from and how to
// parse it. Empty Encoding/Delimiter mean autodetect.
type Source struct {
	Path      string  `json:"path"`
	Encoding  string  `json:"encoding"`
	Delimiter string  `json:"delimiter"`
	HeaderRow *bool   `json:"header_row,omitempty"`
	Options   Options `json:"options"`
}

// HasHeader defaults to true when the config leaves header_row unset.
func (s Source) HasHeader() bool {
	if s.HeaderRow == nil {
		return true
	}
	return *s.HeaderRow
}

// ReaderOptions merges the source's dedicated fields into its free-form
// option bag. Dedicated fields win over bag entries of the same name.
func (s Source) ReaderOptions() Options {
	o := make(Options, len(s.Options)+3)
	for k, v := range s.Options {
		o[k] = v
	}
	if s.Encoding != "" {
		o["encoding"] = s.Encoding
	}
	if s.Delimiter != "" {
		d := s.Delimiter
		if d == `\t` {
			d = "\t"
		}
		o["delimiter"] = d
	}
	o["has_header"] = s.HasHeader()
	return o
}

// Storage selects the backend and its DSN.
type Storage struct {
	// Backend kind: "sqlite" | "postgres" | "mssql"
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`
}

// RuntimeConfig controls execution behavior.
type RuntimeConfig struct {
	Workers   int `json:"workers"`
	BatchSize int `json:"batch_size"`
}

// Load reads and decodes a pipeline config file.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var p Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &p, nil
}

// InferConfig overlays the pipeline's infer options onto the built-in
// defaults. Only the knobs present in the config are overridden.
func (p *Pipeline) InferConfig() infer.Config {
	cfg := infer.DefaultConfig()
	o := p.Infer
	if o == nil {
		return cfg
	}
	cfg.SampleMaxSize = o.Int("sample_max_size", cfg.SampleMaxSize)
	if toks := o.Strings("date_name_tokens"); len(toks) > 0 {
		cfg.DateNameTokens = toks
	}
	if toks := o.Strings("code_name_tokens"); len(toks) > 0 {
		cfg.CodeNameTokens = toks
	}
	cfg.ZeroPadThreshold = o.Float("zero_pad_threshold", cfg.ZeroPadThreshold)
	cfg.FixedLengthMaxDistinct = o.Int("fixed_length_max_distinct", cfg.FixedLengthMaxDistinct)
	cfg.FixedLengthMinAvg = o.Float("fixed_length_min_avg", cfg.FixedLengthMinAvg)
	cfg.NonContiguousGapThreshold = int64(o.Int("non_contiguous_gap_threshold", int(cfg.NonContiguousGapThreshold)))
	cfg.DateMatchThreshold = o.Float("date_match_threshold", cfg.DateMatchThreshold)
	cfg.DateMatchThresholdWithNameHint = o.Float("date_match_threshold_with_name_hint", cfg.DateMatchThresholdWithNameHint)
	return cfg
}

// Severity grades validation findings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding with its config location.
type Issue struct {
	Severity Severity
	Field    string
	Msg      string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Field, i.Msg)
}

// Validate checks the pipeline config for use. Errors block execution;
// warnings are advisory and let the run proceed with defaults.
func (p *Pipeline) Validate() []Issue {
	var issues []Issue

	if p.Source.Path == "" {
		issues = append(issues, Issue{SeverityError, "source.path", "source file path is required"})
	}
	if p.Table == "" {
		issues = append(issues, Issue{SeverityError, "table", "target table name is required"})
	}

	switch p.Storage.Kind {
	case "sqlite", "postgres", "mssql":
	case "":
		issues = append(issues, Issue{SeverityError, "storage.kind", "backend kind is required"})
	default:
		issues = append(issues, Issue{SeverityError, "storage.kind",
			fmt.Sprintf("unknown backend %q (want sqlite, postgres or mssql)", p.Storage.Kind)})
	}
	if p.Storage.Kind != "" && p.Storage.DSN == "" {
		issues = append(issues, Issue{SeverityError, "storage.dsn", "backend DSN is required"})
	}

	switch p.Source.Encoding {
	case "", "utf-8", "utf8", "cp932", "shift_jis", "sjis":
	default:
		issues = append(issues, Issue{SeverityError, "source.encoding",
			fmt.Sprintf("unsupported encoding %q (want utf-8 or cp932)", p.Source.Encoding)})
	}
	if len(p.Source.Delimiter) > 1 && p.Source.Delimiter != "\\t" {
		issues = append(issues, Issue{SeverityWarning, "source.delimiter",
			"multi-character delimiter, only the first character is used"})
	}

	if p.Runtime.Workers < 0 {
		issues = append(issues, Issue{SeverityWarning, "runtime.workers", "negative worker count, using default"})
	}
	if th := p.Infer.Float("date_match_threshold", 0.5); th <= 0 || th > 1 {
		issues = append(issues, Issue{SeverityWarning, "infer.date_match_threshold",
			"threshold outside (0, 1], using default"})
	}

	return issues
}

// HasErrors reports whether any issue blocks execution.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
