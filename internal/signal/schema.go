package signal

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// payloadSchema pins the shape and caps the symbol length. Field semantics
// (side values, price sign) are checked in Normalize so they map to their
// own error kinds.
const payloadSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "symbol": {"type": "string", "maxLength": 32},
    "price":  {"type": ["number", "string", "null"]}
  }
}`

var compiledPayloadSchema = mustCompileSchema("signal_payload.json", payloadSchema)

func mustCompileSchema(name, doc string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(doc)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}

func validateShape(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return compiledPayloadSchema.Validate(doc)
}
