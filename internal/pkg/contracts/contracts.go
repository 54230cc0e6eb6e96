// Package contracts validates request bodies against the JSON schemas
// embedded in schemas/.
package contracts

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	ListingCreate    = "listing_create"
	MessageSend      = "message_send"
	SendMessageEmail = "send_message_email"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

var ErrInvalidJSON = errors.New("Request body must be valid JSON")

func load() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		names := []string{ListingCreate, MessageSend, SendMessageEmail}
		for _, name := range names {
			b, err := schemaFS.ReadFile("schemas/" + name + ".json")
			if err != nil {
				compileErr = err
				return
			}
			if err := compiler.AddResource(name+".json", bytes.NewReader(b)); err != nil {
				compileErr = fmt.Errorf("add schema %s: %w", name, err)
				return
			}
		}
		compiled = make(map[string]*jsonschema.Schema, len(names))
		for _, name := range names {
			s, err := compiler.Compile(name + ".json")
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = s
		}
	})
	return compiled, compileErr
}

// Validate checks body against the named schema.
func Validate(name string, body []byte) error {
	schemas, err := load()
	if err != nil {
		return err
	}
	schema, ok := schemas[name]
	if !ok {
		return fmt.Errorf("schema %q not found", name)
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return ErrInvalidJSON
	}
	return schema.Validate(v)
}

// Message turns a validation error into a short client-facing message naming
// the offending field.
func Message(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		return "Invalid request: " + ve.Message
	}
	return fmt.Sprintf("Invalid %s: %s", field, ve.Message)
}
