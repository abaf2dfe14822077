// Copyright 2025 The Kube Resource Orchestrator Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may
// not use this file except in compliance with the License. A copy of the
// License is located at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either
// express or implied. See the License for the specific language governing
// permissions and limitations under the License.

package crd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	extv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
)

// atomicTypes maps the simple-schema atomic type names to their
// OpenAPI counterparts.
var atomicTypes = map[string]string{
	"string":  "string",
	"integer": "integer",
	"int":     "integer",
	"boolean": "boolean",
	"bool":    "boolean",
	"float":   "number",
	"number":  "number",
}

// ToOpenAPISpec converts a simple-schema object to an OpenAPI schema.
// The input maps field names to either a type declaration string, e.g.
// "string | default=web required=true", or a nested object. Status
// fields holding ${...} expressions are typed as their eventual
// resolved value is unknown at compile time, so they become untyped
// with unknown fields preserved.
func ToOpenAPISpec(obj map[string]interface{}) (*extv1.JSONSchemaProps, error) {
	schema := &extv1.JSONSchemaProps{
		Type:       "object",
		Properties: map[string]extv1.JSONSchemaProps{},
	}

	for key, value := range obj {
		fieldSchema, err := transformField(key, value, schema)
		if err != nil {
			return nil, err
		}
		schema.Properties[key] = *fieldSchema
	}

	return schema, nil
}

func transformField(key string, value interface{}, parent *extv1.JSONSchemaProps) (*extv1.JSONSchemaProps, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		return ToOpenAPISpec(v)
	case string:
		if strings.Contains(v, "${") {
			return &extv1.JSONSchemaProps{
				XPreserveUnknownFields: boolPtr(true),
			}, nil
		}
		return parseFieldSchema(key, v, parent)
	default:
		return nil, fmt.Errorf("unknown type in schema: key: %s, value: %v", key, value)
	}
}

func parseFieldSchema(key, declaration string, parent *extv1.JSONSchemaProps) (*extv1.JSONSchemaProps, error) {
	fieldType, markers := splitMarkers(declaration)

	schema, err := schemaForType(key, fieldType)
	if err != nil {
		return nil, err
	}
	if err := applyMarkers(schema, markers, key, parent); err != nil {
		return nil, fmt.Errorf("failed to apply markers for %s: %w", key, err)
	}
	return schema, nil
}

func schemaForType(key, fieldType string) (*extv1.JSONSchemaProps, error) {
	if openAPIType, ok := atomicTypes[fieldType]; ok {
		return &extv1.JSONSchemaProps{Type: openAPIType}, nil
	}

	if strings.HasPrefix(fieldType, "[]") {
		item, err := schemaForType(key, strings.TrimPrefix(fieldType, "[]"))
		if err != nil {
			return nil, err
		}
		return &extv1.JSONSchemaProps{
			Type:  "array",
			Items: &extv1.JSONSchemaPropsOrArray{Schema: item},
		}, nil
	}

	if strings.HasPrefix(fieldType, "map[") {
		closing := strings.Index(fieldType, "]")
		if closing < 0 {
			return nil, fmt.Errorf("malformed map type for %s: %s", key, fieldType)
		}
		if keyType := fieldType[4:closing]; keyType != "string" {
			return nil, fmt.Errorf("map key type must be string for %s, got %s", key, keyType)
		}
		value, err := schemaForType(key, fieldType[closing+1:])
		if err != nil {
			return nil, err
		}
		return &extv1.JSONSchemaProps{
			Type: "object",
			AdditionalProperties: &extv1.JSONSchemaPropsOrBool{
				Allows: true,
				Schema: value,
			},
		}, nil
	}

	return nil, fmt.Errorf("unknown type for %s: %s", key, fieldType)
}

// splitMarkers separates a type declaration from its trailing markers,
// e.g. "string | default=web required=true" -> "string", markers.
func splitMarkers(declaration string) (string, []string) {
	fieldType, rest, found := strings.Cut(declaration, "|")
	fieldType = strings.TrimSpace(fieldType)
	if !found {
		return fieldType, nil
	}
	return fieldType, strings.Fields(rest)
}

func applyMarkers(schema *extv1.JSONSchemaProps, markers []string, key string, parent *extv1.JSONSchemaProps) error {
	for _, marker := range markers {
		name, value, found := strings.Cut(marker, "=")
		if !found {
			return fmt.Errorf("malformed marker: %s", marker)
		}
		switch name {
		case "required":
			required, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid required marker value %q: %w", value, err)
			}
			if required && parent != nil {
				parent.Required = append(parent.Required, key)
			}
		case "default":
			raw, err := markerValueJSON(schema.Type, value)
			if err != nil {
				return fmt.Errorf("invalid default for %s: %w", key, err)
			}
			schema.Default = &extv1.JSON{Raw: raw}
		case "description":
			schema.Description = strings.Trim(value, `"`)
		default:
			return fmt.Errorf("unknown marker: %s", name)
		}
	}
	return nil
}

// markerValueJSON encodes a marker value as JSON matching the field's
// declared type, so integer defaults are not stored as strings.
func markerValueJSON(openAPIType, value string) ([]byte, error) {
	switch openAPIType {
	case "integer":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, err
		}
		return json.Marshal(n)
	case "number":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, err
		}
		return json.Marshal(f)
	case "boolean":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, err
		}
		return json.Marshal(b)
	default:
		return json.Marshal(strings.Trim(value, `"`))
	}
}

func boolPtr(b bool) *bool {
	return &b
}
