package detect

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

var resultSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("result.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("result.json")
})

// ParseResult extracts the JSON object from a model reply, repairs it if
// needed, validates it and decodes it. A "not a product" verdict is returned
// as *NotAProductError.
func ParseResult(content string) (*Result, error) {
	start := strings.Index(content, "{")
	if start < 0 {
		return nil, ErrUnparsable
	}
	candidate := content[start:]
	if end := strings.LastIndex(candidate, "}"); end >= 0 {
		candidate = candidate[:end+1]
	}

	if !json.Valid([]byte(candidate)) {
		repaired, err := jsonrepair.JSONRepair(candidate)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnparsable, err)
		}
		candidate = repaired
	}

	schema, err := resultSchema()
	if err != nil {
		return nil, fmt.Errorf("compile result schema: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(candidate))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparsable, err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}

	var r Result
	if err := json.Unmarshal([]byte(candidate), &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparsable, err)
	}
	if r.IsProduct != nil && !*r.IsProduct {
		return nil, &NotAProductError{Reason: r.NonProductReason}
	}
	if r.Defects == nil {
		r.Defects = []Defect{}
	}
	return &r, nil
}
