// Package contract validates backend responses against the embedded OpenAPI
// description of the survey OCR API.
package contract

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// Schema names defined in openapi.yaml.
const (
	UploadResponse  = "UploadResponse"
	StatusResponse  = "StatusResponse"
	ResultsResponse = "ResultsResponse"
	HealthResponse  = "HealthResponse"
)

//go:embed openapi.yaml
var document []byte

// ErrContractViolation wraps every schema mismatch reported by ValidateResponse.
var ErrContractViolation = errors.New("response violates api contract")

// Validator checks JSON bodies against component schemas.
type Validator struct {
	doc *openapi3.T
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// Default returns the validator for the embedded document, loading it once.
func Default() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = Load(context.Background(), document)
	})
	return defaultValidator, defaultErr
}

// Document returns the embedded OpenAPI document.
func Document() []byte {
	out := make([]byte, len(document))
	copy(out, document)
	return out
}

// Load parses and validates an OpenAPI document.
func Load(ctx context.Context, data []byte) (*Validator, error) {
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("contract: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("contract: validate document: %w", err)
	}
	return &Validator{doc: doc}, nil
}

// Schemas lists the component schema names, sorted.
func (v *Validator) Schemas() []string {
	names := make([]string, 0, len(v.doc.Components.Schemas))
	for name := range v.doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateResponse checks body against the named component schema.
func (v *Validator) ValidateResponse(schema string, body []byte) error {
	ref, ok := v.doc.Components.Schemas[schema]
	if !ok || ref == nil || ref.Value == nil {
		return fmt.Errorf("contract: unknown schema %q", schema)
	}
	var value interface{}
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("%w: %s: body is not json: %v", ErrContractViolation, schema, err)
	}
	if err := ref.Value.VisitJSON(value); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrContractViolation, schema, err)
	}
	return nil
}
