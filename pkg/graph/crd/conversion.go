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

	extv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/kube-openapi/pkg/validation/spec"
)

// ToSpecSchema converts an extv1.JSONSchemaProps into a kube-openapi
// spec.Schema. Only the subset the simple-schema transformer emits is
// carried: types, properties, items, additionalProperties, required,
// defaults, descriptions and the preserve-unknown-fields extension.
func ToSpecSchema(props *extv1.JSONSchemaProps) (*spec.Schema, error) {
	if props == nil {
		return nil, nil
	}

	s := &spec.Schema{
		SchemaProps: spec.SchemaProps{
			Description: props.Description,
			Required:    props.Required,
		},
	}
	if props.Type != "" {
		s.Type = spec.StringOrArray{props.Type}
	}
	if props.Default != nil {
		var value interface{}
		if err := json.Unmarshal(props.Default.Raw, &value); err != nil {
			return nil, fmt.Errorf("failed decoding default: %w", err)
		}
		s.Default = value
	}

	if len(props.Properties) > 0 {
		s.Properties = make(map[string]spec.Schema, len(props.Properties))
		for name, prop := range props.Properties {
			nested, err := ToSpecSchema(&prop)
			if err != nil {
				return nil, fmt.Errorf("failed converting property %s: %w", name, err)
			}
			s.Properties[name] = *nested
		}
	}

	if props.Items != nil && props.Items.Schema != nil {
		items, err := ToSpecSchema(props.Items.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed converting items: %w", err)
		}
		s.Items = &spec.SchemaOrArray{Schema: items}
	}

	if props.AdditionalProperties != nil && props.AdditionalProperties.Schema != nil {
		additional, err := ToSpecSchema(props.AdditionalProperties.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed converting additionalProperties: %w", err)
		}
		s.AdditionalProperties = &spec.SchemaOrBool{Allows: true, Schema: additional}
	}

	if props.XPreserveUnknownFields != nil && *props.XPreserveUnknownFields {
		s.VendorExtensible.AddExtension("x-kubernetes-preserve-unknown-fields", true)
	}
	return s, nil
}
