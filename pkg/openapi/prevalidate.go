package openapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/swagger-2.0.json
var swagger20Schema string

const swagger20SchemaURL = "swagger-2.0.json"

var compileSwagger20Schema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.LoadURL = func(u string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("external schema references are forbidden: %s", u)
	}
	if err := compiler.AddResource(swagger20SchemaURL, strings.NewReader(swagger20Schema)); err != nil {
		return nil, err
	}
	return compiler.Compile(swagger20SchemaURL)
})

// preValidate checks the overall shape of a Swagger 2.0 document before it is
// handed to the converter.
func preValidate(doc map[string]any) error {
	schema, err := compileSwagger20Schema()
	if err != nil {
		return fmt.Errorf("compiling Swagger 2.0 schema: %w", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	// The validator expects numbers as json.Number.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return err
	}
	return schema.Validate(value)
}
