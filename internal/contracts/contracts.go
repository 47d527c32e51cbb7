// Package contracts holds the JSON Schemas that request bodies are checked
// against before they reach the services.
package contracts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"roomfinder/internal/models"
)

// Schema names.
const (
	Login          = "login.json"
	SignUp         = "signup.json"
	BookingRequest = "booking_request.json"
	ListingBasic   = "listing_basic.json"
	Facilities     = "facilities.json"
	Location       = "location.json"
	Preferences    = "preferences.json"
	Decline        = "decline.json"
	Device         = "device.json"
)

const baseURL = "mem://roomfinder/"

// quoted picks property names out of "missing properties" messages.
var quoted = regexp.MustCompile(`['"]([^'"]+)['"]`)

//go:embed schemas/*.json
var schemaFS embed.FS

// Validator checks raw JSON documents against the compiled schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles every embedded schema.
func New() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		raw, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, err
		}
		if err := compiler.AddResource(baseURL+e.Name(), bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", e.Name(), err)
		}
		names = append(names, e.Name())
	}

	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		s, err := compiler.Compile(baseURL + name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = s
	}
	return v, nil
}

// MustNew is New for process start-up, where a broken embedded schema is a
// programming error.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks body against the named schema. Violations come back as a
// models.ValidationError keyed by the offending JSON pointer.
func (v *Validator) Validate(name string, body []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("contracts: unknown schema %q", name)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return models.ValidationError{"body": "Invalid JSON body"}
	}

	err := schema.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	return toValidationError(ve)
}

func toValidationError(ve *jsonschema.ValidationError) models.ValidationError {
	out := models.ValidationError{}
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			if strings.HasSuffix(e.KeywordLocation, "/required") {
				if names := quoted.FindAllStringSubmatch(e.Message, -1); len(names) > 0 {
					for _, m := range names {
						out[fieldName(e.InstanceLocation+"/"+m[1])] = "is required"
					}
					return
				}
			}
			field := fieldName(e.InstanceLocation)
			if _, seen := out[field]; !seen {
				out[field] = e.Message
			}
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	if len(out) == 0 {
		out["body"] = ve.Message
	}
	return out
}

// fieldName turns "/location/coordinates/0" into "location.coordinates.0".
func fieldName(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return "body"
	}
	return strings.ReplaceAll(pointer, "/", ".")
}

// Names lists the compiled schemas.
func (v *Validator) Names() []string {
	out := make([]string, 0, len(v.schemas))
	for name := range v.schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
