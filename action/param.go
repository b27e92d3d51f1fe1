package action

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// ParamType is the JSON schema type of a parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// ParameterSpec describes one named argument. Enum applies to string
// parameters; Items describes array elements and ignores its own Name.
type ParameterSpec struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Enum        []string
	Items       *ParameterSpec
}

// Definition is the callable schema of an action.
type Definition struct {
	Name        string
	Description string
	Parameters  []ParameterSpec
}

// Schema renders the parameter list as a JSON object schema. The required
// list holds exactly the parameters marked Required, in declaration order.
func (d Definition) Schema() map[string]interface{} {
	properties := make(map[string]interface{}, len(d.Parameters))
	required := []string{}
	for _, p := range d.Parameters {
		properties[p.Name] = p.schema()
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func (p ParameterSpec) schema() map[string]interface{} {
	s := map[string]interface{}{"type": string(p.Type)}
	if p.Description != "" {
		s["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		s["enum"] = slices.Clone(p.Enum)
	}
	if p.Items != nil {
		s["items"] = p.Items.schema()
	}
	return s
}

// check verifies v against the declared type and enum.
func (p ParameterSpec) check(v interface{}) error {
	if !conforms(p.Type, v) {
		return &ValidationError{
			Parameter: p.Name,
			Message:   fmt.Sprintf("Invalid parameter %s: expected %s, got %s", p.Name, p.Type, jsonType(v)),
		}
	}
	if len(p.Enum) > 0 {
		s, _ := v.(string)
		if !slices.Contains(p.Enum, s) {
			return &ValidationError{
				Parameter: p.Name,
				Message:   fmt.Sprintf("Unsupported %s: %s", p.Name, s),
			}
		}
	}
	if p.Type == TypeArray && p.Items != nil {
		for i, item := range v.([]interface{}) {
			elem := *p.Items
			elem.Name = fmt.Sprintf("%s[%d]", p.Name, i)
			if err := elem.check(item); err != nil {
				return err
			}
		}
	}
	return nil
}

func conforms(t ParamType, v interface{}) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeNumber:
		switch v.(type) {
		case float64, json.Number, int:
			return true
		}
		return false
	case TypeInteger:
		switch n := v.(type) {
		case int:
			return true
		case float64:
			return n == math.Trunc(n)
		case json.Number:
			_, err := n.Int64()
			return err == nil
		}
		return false
	case TypeArray:
		_, ok := v.([]interface{})
		return ok
	case TypeObject:
		_, ok := v.(map[string]interface{})
		return ok
	default:
		return true
	}
}

func jsonType(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number, int:
		return "number"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Validate checks args against the definition's parameters. Unknown
// arguments are ignored.
func (d Definition) Validate(args Args) error {
	for _, p := range d.Parameters {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				return &ValidationError{
					Parameter: p.Name,
					Message:   fmt.Sprintf("Missing required parameter: %s", p.Name),
				}
			}
			continue
		}
		if err := p.check(v); err != nil {
			return err
		}
	}
	return nil
}
