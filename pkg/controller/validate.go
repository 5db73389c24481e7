package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/restweave-dev/restweave/pkg/jsonapi"
)

const specResourceName = "openapi.json"

// validator checks write request bodies against the component schemas of
// the generated OpenAPI document.
type validator struct {
	schemas map[string]*jsonschema.Schema
}

// newValidator compiles the named component schemas out of the document's
// JSON encoding. Nullable markers are relaxed into JSON Schema null types
// first so that null attribute values validate.
func newValidator(docJSON []byte, names []string) (*validator, error) {
	var tree any
	if err := json.Unmarshal(docJSON, &tree); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	relaxed, err := json.Marshal(relaxNullable(tree))
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(specResourceName, bytes.NewReader(relaxed)); err != nil {
		return nil, fmt.Errorf("adding document resource: %w", err)
	}
	v := &validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		s, err := compiler.Compile(specResourceName + "#/components/schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("compiling schema %q: %w", name, err)
		}
		v.schemas[name] = s
	}
	return v, nil
}

// validate checks a decoded request body against a named schema and turns
// violations into pointer-sourced error objects.
func (v *validator) validate(name string, body any) []*jsonapi.ErrorObject {
	s, ok := v.schemas[name]
	if !ok {
		return nil
	}
	err := s.Validate(body)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []*jsonapi.ErrorObject{jsonapi.InvalidPointer("", err.Error())}
	}
	var out []*jsonapi.ErrorObject
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, jsonapi.InvalidPointer("/"+trimPointer(e.InstanceLocation), e.Message))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return out
}

func trimPointer(loc string) string {
	for len(loc) > 0 && loc[0] == '/' {
		loc = loc[1:]
	}
	return loc
}

// relaxNullable rewrites OpenAPI nullable markers into JSON Schema type
// unions so a standard validator honors them.
func relaxNullable(node any) any {
	switch n := node.(type) {
	case map[string]any:
		for k, val := range n {
			n[k] = relaxNullable(val)
		}
		nullable, _ := n["nullable"].(bool)
		if !nullable {
			return n
		}
		delete(n, "nullable")
		if t, ok := n["type"].(string); ok {
			n["type"] = []any{t, "null"}
			return n
		}
		return map[string]any{"anyOf": []any{map[string]any{"type": "null"}, n}}
	case []any:
		for i := range n {
			n[i] = relaxNullable(n[i])
		}
		return n
	}
	return node
}
