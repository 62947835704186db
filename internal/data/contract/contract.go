// Package contract checks backend payloads against the OpenAPI description of
// the analysis API before they are decoded.
package contract

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	maxSpecSizeBytes = 8 << 20 // 8 MiB

	AnalysisResultSchema = "AnalysisResult"
)

//go:embed analysis.yaml
var embeddedSpec []byte

// LoadSpec loads and validates an OpenAPI document from a file path or an
// http(s) URL. An empty source selects the embedded document.
func LoadSpec(ctx context.Context, source string) (*openapi3.T, error) {
	source = strings.TrimSpace(source)

	loader := openapi3.NewLoader()
	loader.Context = ctx

	var (
		doc *openapi3.T
		err error
	)
	switch {
	case source == "":
		doc, err = loader.LoadFromData(embeddedSpec)
		source = "embedded"
	case isHTTPSource(source):
		loader.IsExternalRefsAllowed = true
		doc, err = loadSpecFromURL(ctx, loader, source)
	default:
		if _, statErr := os.Stat(source); statErr != nil {
			return nil, fmt.Errorf("openapi spec path %q: %w", source, statErr)
		}
		loader.IsExternalRefsAllowed = true
		doc, err = loader.LoadFromFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("load openapi spec from %q: %w", source, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("openapi spec %q resolved to nil document", source)
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi spec %q: %w", source, err)
	}
	return doc, nil
}

func isHTTPSource(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func loadSpecFromURL(ctx context.Context, loader *openapi3.Loader, source string) (*openapi3.T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSpecSizeBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxSpecSizeBytes {
		return nil, fmt.Errorf("spec exceeds %d bytes", maxSpecSizeBytes)
	}
	return loader.LoadFromData(data)
}

// Validator checks raw JSON payloads against one component schema.
type Validator struct {
	schema *openapi3.Schema
}

// NewValidator resolves the named component schema from doc.
func NewValidator(doc *openapi3.T, schemaName string) (*Validator, error) {
	if doc == nil || doc.Components == nil {
		return nil, fmt.Errorf("openapi document has no components")
	}
	ref, ok := doc.Components.Schemas[schemaName]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("openapi document has no schema %q", schemaName)
	}
	return &Validator{schema: ref.Value}, nil
}

// NewAnalysisValidator loads source (or the embedded document) and returns a
// validator for analysis results.
func NewAnalysisValidator(ctx context.Context, source string) (*Validator, error) {
	doc, err := LoadSpec(ctx, source)
	if err != nil {
		return nil, err
	}
	return NewValidator(doc, AnalysisResultSchema)
}

// Validate reports the first schema violation in data, if any.
func (v *Validator) Validate(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("payload is not valid json: %w", err)
	}
	if err := v.schema.VisitJSON(value); err != nil {
		return fmt.Errorf("payload violates %s schema: %w", AnalysisResultSchema, err)
	}
	return nil
}
