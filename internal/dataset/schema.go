package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema returns the JSON Schema of a normalized FinancialDataset.
func Schema() map[string]any {
	values := map[string]any{
		"type":                 "object",
		"propertyNames":        map[string]any{"pattern": "^[0-9]+$"},
		"additionalProperties": map[string]any{"type": "number"},
	}
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"company_name", "period", KeyBalanceStart, KeyBalanceEnd, KeyIncomeCurrent},
		"properties": map[string]any{
			"company_name":   map[string]any{"type": "string"},
			"period":         map[string]any{"type": "string"},
			KeyBalanceStart:  values,
			KeyBalanceEnd:    values,
			KeyIncomeCurrent: values,
		},
	}
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(Schema())
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("dataset.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("dataset.json")
	})
	return compiled, compileErr
}

// Validate checks a dataset against Schema.
func Validate(ds FinancialDataset) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	b, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal dataset: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("dataset does not match schema: %w", err)
	}
	return nil
}
