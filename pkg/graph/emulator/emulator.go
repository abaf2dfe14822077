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

// Package emulator generates sample custom resources from OpenAPI
// schemas. The output is deterministic: declared defaults win,
// everything else gets a fixed placeholder per type, so generated
// documents are stable across runs and usable as starting points for
// instance manifests.
package emulator

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/kube-openapi/pkg/validation/spec"
)

// kubernetesTopLevelFields are common to every resource and are filled
// from the GVK instead of the schema.
var kubernetesTopLevelFields = []string{"apiVersion", "kind", "metadata", "status"}

// Emulator generates sample CRs from OpenAPI schemas.
type Emulator struct{}

// NewEmulator creates a new Emulator.
func NewEmulator() *Emulator {
	return &Emulator{}
}

// GenerateSampleCR generates a sample CR for the given GVK based on
// the provided schema.
func (e *Emulator) GenerateSampleCR(gvk schema.GroupVersionKind, s *spec.Schema) (*unstructured.Unstructured, error) {
	if s == nil {
		return nil, fmt.Errorf("schema is nil for %v", gvk)
	}

	cr := &unstructured.Unstructured{Object: map[string]interface{}{}}
	for name, property := range s.Properties {
		if contains(kubernetesTopLevelFields, name) {
			continue
		}
		value, err := e.generateValue(name, &property)
		if err != nil {
			return nil, fmt.Errorf("error generating field %s: %w", name, err)
		}
		cr.Object[name] = value
	}

	cr.SetAPIVersion(gvk.GroupVersion().String())
	cr.SetKind(gvk.Kind)
	cr.SetName(fmt.Sprintf("%s-sample", strings.ToLower(gvk.Kind)))
	cr.SetNamespace("default")
	return cr, nil
}

func (e *Emulator) generateValue(name string, s *spec.Schema) (interface{}, error) {
	if s == nil {
		return nil, fmt.Errorf("schema is nil")
	}
	if s.Default != nil {
		return s.Default, nil
	}
	if enabled, ok := s.VendorExtensible.Extensions["x-kubernetes-preserve-unknown-fields"]; ok && enabled == true {
		return map[string]interface{}{}, nil
	}

	if len(s.Type) == 0 {
		if len(s.Properties) > 0 {
			return e.generateObject(name, s)
		}
		return nil, fmt.Errorf("schema for %s has no type and no properties", name)
	}
	if len(s.Type) != 1 {
		return nil, fmt.Errorf("schema for %s is not a single type: %v", name, s.Type)
	}

	switch s.Type[0] {
	case "object":
		if len(s.Properties) > 0 {
			return e.generateObject(name, s)
		}
		if s.AdditionalProperties != nil && s.AdditionalProperties.Schema != nil {
			value, err := e.generateValue(name, s.AdditionalProperties.Schema)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"key": value}, nil
		}
		return map[string]interface{}{}, nil
	case "array":
		if s.Items == nil || s.Items.Schema == nil {
			return []interface{}{}, nil
		}
		item, err := e.generateValue(name, s.Items.Schema)
		if err != nil {
			return nil, err
		}
		return []interface{}{item}, nil
	case "string":
		if len(s.Enum) > 0 {
			return s.Enum[0], nil
		}
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		return name + "-value", nil
	case "integer":
		return int64(1), nil
	case "number":
		return float64(1), nil
	case "boolean":
		return false, nil
	default:
		return nil, fmt.Errorf("unsupported schema type %q for %s", s.Type[0], name)
	}
}

func (e *Emulator) generateObject(name string, s *spec.Schema) (interface{}, error) {
	object := make(map[string]interface{}, len(s.Properties))
	for property, propertySchema := range s.Properties {
		value, err := e.generateValue(name+"."+property, &propertySchema)
		if err != nil {
			return nil, err
		}
		object[property] = value
	}
	return object, nil
}

func contains(list []string, s string) bool {
	for _, entry := range list {
		if entry == s {
			return true
		}
	}
	return false
}
