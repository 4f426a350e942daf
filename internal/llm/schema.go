// internal/llm/schema.go
package llm

// Schema types understood by the Gemini response schema.
const (
	TypeObject  = "OBJECT"
	TypeArray   = "ARRAY"
	TypeString  = "STRING"
	TypeInteger = "INTEGER"
	TypeBoolean = "BOOLEAN"
)

// Schema is the OpenAPI subset accepted as a structured-output constraint.
type Schema struct {
	Type             string             `json:"type"`
	Description      string             `json:"description,omitempty"`
	Properties       map[string]*Schema `json:"properties,omitempty"`
	PropertyOrdering []string           `json:"propertyOrdering,omitempty"`
	Required         []string           `json:"required,omitempty"`
	Items            *Schema            `json:"items,omitempty"`
}

// String returns a string schema with a description.
func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

// StringArray returns an array-of-strings schema.
func StringArray(description string) *Schema {
	return &Schema{Type: TypeArray, Description: description, Items: &Schema{Type: TypeString}}
}

// Field is a named property used to build objects in a fixed order.
type Field struct {
	Name   string
	Schema *Schema
}

// Object returns an object schema whose fields are all required and keep
// their declaration order.
func Object(fields ...Field) *Schema {
	s := &Schema{
		Type:       TypeObject,
		Properties: make(map[string]*Schema, len(fields)),
	}
	for _, f := range fields {
		s.Properties[f.Name] = f.Schema
		s.PropertyOrdering = append(s.PropertyOrdering, f.Name)
		s.Required = append(s.Required, f.Name)
	}
	return s
}
