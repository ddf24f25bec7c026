package dashboard

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Built-in schema names.
const (
	SchemaDescriptor   = "dashboard.descriptor"
	SchemaCreateWidget = "dashboard.create_widget"
)

const descriptorSchema = `{
  "type": "object",
  "required": ["dashboardId", "widgets"],
  "properties": {
    "dashboardId": {"type": "string", "minLength": 1},
    "columns": {"type": "integer", "minimum": 0},
    "refreshInterval": {"type": "integer", "minimum": 0},
    "widgets": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["layoutId"],
        "properties": {
          "layoutId": {"type": "string", "minLength": 1},
          "displayOrder": {"type": "integer"},
          "layoutConfig": {
            "type": "object",
            "properties": {
              "x": {"type": "integer", "minimum": 0},
              "y": {"type": "integer", "minimum": 0},
              "w": {"type": "integer", "minimum": 1},
              "h": {"type": "integer", "minimum": 1},
              "minW": {"type": "integer", "minimum": 1},
              "minH": {"type": "integer", "minimum": 1},
              "static": {"type": "boolean"}
            }
          }
        }
      }
    }
  }
}`

const createWidgetSchema = `{
  "type": "object",
  "required": ["deviceTypeId", "widgetTypeId", "propertyIds"],
  "properties": {
    "deviceTypeId": {"type": ["integer", "string"], "minLength": 1},
    "widgetTypeId": {"type": ["integer", "string"], "minLength": 1},
    "propertyIds": {
      "type": "array",
      "minItems": 1,
      "uniqueItems": true,
      "items": {"type": ["integer", "string"], "minLength": 1}
    },
    "displayName": {"type": "string", "maxLength": 100}
  }
}`

// SchemaValidator compiles JSON schemas once and validates payloads against
// them. Failures wrap ErrValidation.
type SchemaValidator struct {
	mu       sync.RWMutex
	sources  map[string]string
	compiled map[string]*jsonschema.Schema
}

// NewSchemaValidator builds a validator with the built-in schemas registered.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		sources: map[string]string{
			SchemaDescriptor:   descriptorSchema,
			SchemaCreateWidget: createWidgetSchema,
		},
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Register adds or replaces a named schema.
func (v *SchemaValidator) Register(name, schema string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sources[name] = schema
	delete(v.compiled, name)
}

// Validate checks payload against the named schema. The payload is first
// round-tripped through JSON so struct tags apply.
func (v *SchemaValidator) Validate(name string, payload any) error {
	schema, err := v.schemaFor(name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("dashboard: marshal %s payload: %w", name, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("dashboard: normalize %s payload: %w", name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrValidation, name, err)
	}
	return nil
}

// ValidateCreateWidget checks a wizard submission.
func (v *SchemaValidator) ValidateCreateWidget(req CreateWidgetRequest) error {
	return v.Validate(SchemaCreateWidget, req)
}

// ValidateDescriptor checks a decoded dashboard descriptor.
func (v *SchemaValidator) ValidateDescriptor(doc *DashboardDescriptor) error {
	return v.Validate(SchemaDescriptor, doc)
}

func (v *SchemaValidator) schemaFor(name string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[name]
	source, known := v.sources[name]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	if !known {
		return nil, fmt.Errorf("dashboard: unknown schema %s", name)
	}
	compiler := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, strings.NewReader(source)); err != nil {
		return nil, fmt.Errorf("dashboard: load schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("dashboard: compile schema %s: %w", name, err)
	}
	v.mu.Lock()
	v.compiled[name] = compiled
	v.mu.Unlock()
	return compiled, nil
}
