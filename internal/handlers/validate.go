package handlers

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const generateRequestSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["agreement_id", "batch_id"],
  "properties": {
    "agreement_id": {"type": "string", "pattern": "^[A-Za-z0-9-]{1,64}$"},
    "batch_id": {"type": "string", "pattern": "^[A-Za-z0-9-]{1,64}$"},
    "model": {"type": "string", "maxLength": 100}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func generateSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("generate-loader.json", strings.NewReader(generateRequestSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("generate-loader.json")
	})
	return compiledSchema, schemaErr
}

// decodeGenerateRequest validates the raw body against the schema before
// binding it.
func decodeGenerateRequest(body []byte) (generateRequest, error) {
	var req generateRequest
	schema, err := generateSchema()
	if err != nil {
		return req, fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return req, fmt.Errorf("unmarshal body: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return req, fmt.Errorf("body does not match schema: %w", err)
	}
	if err := json.Unmarshal(body, &req.GenerateLoaderRequest); err != nil {
		return req, fmt.Errorf("bind body: %w", err)
	}
	return req, nil
}
