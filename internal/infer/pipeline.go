package infer

// ClassifyColumn runs the full per-column pipeline: validate, sample,
// classify, resolve, convert.
//
// Errors: only *InputError, for a structurally invalid column (empty
// name or nil value sequence). Everything past validation is total; a
// column of garbage resolves to plain text rather than failing.
func ClassifyColumn(col Column, cfg Config) (Decision, Converted, error) {
	if err := col.validate(); err != nil {
		return Decision{}, Converted{}, err
	}
	cfg = cfg.normalized()

	sample := ExtractSample(col.Values, cfg.SampleMaxSize)
	verdicts := Classify(sample, cfg)
	decision := Resolve(col.Name, verdicts, cfg)
	converted := Apply(col, decision)
	return decision, converted, nil
}
