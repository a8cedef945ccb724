package settings

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aman-churiwal/api-manager/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "apimanager://settings.json"

// Validator checks settings documents and single categories against the
// embedded JSON Schema before they are written.
type Validator struct {
	document   *jsonschema.Schema
	categories map[models.Category]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal settings schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add settings schema: %w", err)
	}

	document, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile settings schema: %w", err)
	}

	categories := make(map[models.Category]*jsonschema.Schema, len(models.Categories))
	for _, category := range models.Categories {
		compiled, err := c.Compile(schemaURL + "#/properties/" + string(category))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", category, err)
		}
		categories[category] = compiled
	}

	return &Validator{document: document, categories: categories}, nil
}

// Validates a (possibly partial) settings document
func (v *Validator) ValidateDocument(raw []byte) error {
	return validate(v.document, raw)
}

func (v *Validator) ValidateCategory(category models.Category, raw []byte) error {
	schema, ok := v.categories[category]
	if !ok {
		return fmt.Errorf("invalid settings category: %q", category)
	}
	return validate(schema, raw)
}

// Validates raw and applies each category it carries onto base, replacing
// that category wholesale. Categories absent from raw keep their base value.
func (v *Validator) Merge(base models.Settings, raw []byte) (models.Settings, error) {
	if err := v.ValidateDocument(raw); err != nil {
		return base, err
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil {
		return base, err
	}

	for name, section := range sections {
		category, err := models.ParseCategory(name)
		if err != nil {
			return base, err
		}
		if err := base.ReplaceSection(category, section); err != nil {
			return base, err
		}
	}

	return base, nil
}

// Replaces a single category of base after validating it
func (v *Validator) MergeCategory(base models.Settings, category models.Category, raw []byte) (models.Settings, error) {
	if err := v.ValidateCategory(category, raw); err != nil {
		return base, err
	}
	if err := base.ReplaceSection(category, raw); err != nil {
		return base, err
	}
	return base, nil
}

// SchemaError carries one message per failed schema keyword
type SchemaError struct {
	Messages []string
}

func (e *SchemaError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func validate(schema *jsonschema.Schema, raw []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &SchemaError{Messages: []string{"settings must be valid JSON"}}
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	return &SchemaError{Messages: messages(verr)}
}

// Flattens the validation error tree into its leaf messages
func messages(verr *jsonschema.ValidationError) []string {
	lines := strings.Split(verr.Error(), "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if i == 0 && len(lines) > 1 {
			continue
		}
		line = strings.TrimPrefix(line, "- ")
		if line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		out = append(out, verr.Error())
	}
	return out
}
