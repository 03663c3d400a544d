package protocol

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/host.schema.json
var hostSchemaJSON []byte

const hostSchemaURL = "host.schema.json"

var (
	hostSchemaOnce sync.Once
	hostSchema     *jsonschema.Schema
	hostSchemaErr  error
)

// HostSchema returns the compiled schema for host -> server messages.
func HostSchema() (*jsonschema.Schema, error) {
	hostSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft7
		if err := c.AddResource(hostSchemaURL, bytes.NewReader(hostSchemaJSON)); err != nil {
			hostSchemaErr = err
			return
		}
		hostSchema, hostSchemaErr = c.Compile(hostSchemaURL)
	})
	return hostSchema, hostSchemaErr
}

// ValidateHost checks a raw host message against the schema.
func ValidateHost(b []byte) error {
	s, err := HostSchema()
	if err != nil {
		return fmt.Errorf("host schema: %w", err)
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.Validate(v)
}
