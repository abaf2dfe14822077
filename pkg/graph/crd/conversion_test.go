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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	extv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
)

func TestToSpecSchema(t *testing.T) {
	preserve := true
	props := &extv1.JSONSchemaProps{
		Type:     "object",
		Required: []string{"name"},
		Properties: map[string]extv1.JSONSchemaProps{
			"name": {Type: "string", Description: "instance name"},
			"replicas": {
				Type:    "integer",
				Default: &extv1.JSON{Raw: []byte(`3`)},
			},
			"tags": {
				Type:  "array",
				Items: &extv1.JSONSchemaPropsOrArray{Schema: &extv1.JSONSchemaProps{Type: "string"}},
			},
			"labels": {
				Type: "object",
				AdditionalProperties: &extv1.JSONSchemaPropsOrBool{
					Allows: true,
					Schema: &extv1.JSONSchemaProps{Type: "string"},
				},
			},
			"raw": {XPreserveUnknownFields: &preserve},
		},
	}

	s, err := ToSpecSchema(props)
	require.NoError(t, err)

	assert.Equal(t, []string{"object"}, []string(s.Type))
	assert.Equal(t, []string{"name"}, s.Required)

	name := s.Properties["name"]
	assert.Equal(t, []string{"string"}, []string(name.Type))
	assert.Equal(t, "instance name", name.Description)

	replicas := s.Properties["replicas"]
	assert.Equal(t, float64(3), replicas.Default)

	tags := s.Properties["tags"]
	require.NotNil(t, tags.Items)
	assert.Equal(t, []string{"string"}, []string(tags.Items.Schema.Type))

	labels := s.Properties["labels"]
	require.NotNil(t, labels.AdditionalProperties)
	assert.Equal(t, []string{"string"}, []string(labels.AdditionalProperties.Schema.Type))

	raw := s.Properties["raw"]
	assert.Equal(t, true, raw.VendorExtensible.Extensions["x-kubernetes-preserve-unknown-fields"])
}

func TestToSpecSchemaNil(t *testing.T) {
	s, err := ToSpecSchema(nil)
	require.NoError(t, err)
	assert.Nil(t, s)
}
