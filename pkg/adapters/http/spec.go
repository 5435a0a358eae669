package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var rawSpec []byte

var (
	specOnce sync.Once
	specDoc  *openapi3.T
	specErr  error
)

// Spec returns the parsed and validated API document.
func Spec() (*openapi3.T, error) {
	specOnce.Do(func() {
		loader := openapi3.NewLoader()
		specDoc, specErr = loader.LoadFromData(rawSpec)
		if specErr != nil {
			specErr = fmt.Errorf("failed to load openapi document: %w", specErr)
			return
		}
		if err := specDoc.Validate(context.Background()); err != nil {
			specErr = fmt.Errorf("invalid openapi document: %w", err)
		}
	})
	return specDoc, specErr
}

// bodySchema finds the JSON request schema of method on path.
func bodySchema(doc *openapi3.T, method, path string) (*openapi3.Schema, error) {
	item := doc.Paths.Value(path)
	if item == nil {
		return nil, fmt.Errorf("openapi: no path %s", path)
	}
	op := item.GetOperation(method)
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil, fmt.Errorf("openapi: no request body for %s %s", method, path)
	}
	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil, fmt.Errorf("openapi: no json schema for %s %s", method, path)
	}
	return media.Schema.Value, nil
}

// decodeValidated checks raw against schema, then decodes it into dst.
func decodeValidated(schema *openapi3.Schema, raw []byte, dst any) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if err := schema.VisitJSON(doc); err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
