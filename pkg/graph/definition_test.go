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

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/kro-run/kro-sdk/api/v1alpha1"
	"github.com/kro-run/kro-sdk/pkg/graph/dag"
)

func rgdResource(id, template string) *v1alpha1.Resource {
	return &v1alpha1.Resource{
		ID:       id,
		Template: runtime.RawExtension{Raw: []byte(template)},
	}
}

func TestValidateDefinition(t *testing.T) {
	rgd := &v1alpha1.ResourceGraphDefinition{
		Spec: v1alpha1.ResourceGraphDefinitionSpec{
			Schema: &v1alpha1.Schema{Kind: "WebStack"},
			Resources: []*v1alpha1.Resource{
				rgdResource("db", `{"apiVersion":"apps/v1","kind":"Deployment","metadata":{"name":"db"}}`),
				rgdResource("web", `{"apiVersion":"apps/v1","kind":"Deployment","metadata":{"name":"${schema.spec.name}"},"spec":{"paused":"${db.status.readyReplicas > 0}"}}`),
			},
		},
	}
	assert.NoError(t, ValidateDefinition(rgd))
}

func TestValidateDefinitionUnknownReference(t *testing.T) {
	rgd := &v1alpha1.ResourceGraphDefinition{
		Spec: v1alpha1.ResourceGraphDefinitionSpec{
			Resources: []*v1alpha1.Resource{
				rgdResource("web", `{"spec":{"paused":"${missing.status.ready}"}}`),
			},
		},
	}
	err := ValidateDefinition(rgd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource")
}

func TestValidateDefinitionCycle(t *testing.T) {
	rgd := &v1alpha1.ResourceGraphDefinition{
		Spec: v1alpha1.ResourceGraphDefinitionSpec{
			Resources: []*v1alpha1.Resource{
				rgdResource("a", `{"data":{"v":"${b.metadata.name}"}}`),
				rgdResource("b", `{"data":{"v":"${a.metadata.name}"}}`),
			},
		},
	}
	err := ValidateDefinition(rgd)
	require.Error(t, err)

	var cycle *dag.CycleError[string]
	require.ErrorAs(t, err, &cycle)
}

func TestValidateDefinitionDuplicateID(t *testing.T) {
	rgd := &v1alpha1.ResourceGraphDefinition{
		Spec: v1alpha1.ResourceGraphDefinitionSpec{
			Resources: []*v1alpha1.Resource{
				rgdResource("db", `{}`),
				rgdResource("db", `{}`),
			},
		},
	}
	err := ValidateDefinition(rgd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateDefinitionBadExpression(t *testing.T) {
	rgd := &v1alpha1.ResourceGraphDefinition{
		Spec: v1alpha1.ResourceGraphDefinitionSpec{
			Resources: []*v1alpha1.Resource{
				rgdResource("db", `{"data":{"v":"${>>>}"}}`),
			},
		},
	}
	err := ValidateDefinition(rgd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid expression")
}

func TestValidateDefinitionReadyWhen(t *testing.T) {
	rgd := &v1alpha1.ResourceGraphDefinition{
		Spec: v1alpha1.ResourceGraphDefinitionSpec{
			Resources: []*v1alpha1.Resource{
				{
					ID:        "db",
					Template:  runtime.RawExtension{Raw: []byte(`{}`)},
					ReadyWhen: []string{"${unknownthing.status.ready}"},
				},
			},
		},
	}
	err := ValidateDefinition(rgd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource")
}

func TestExtractExpressions(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"plain", nil},
		{"${a.b}", []string{"a.b"}},
		{"x-${a.b}-y-${c.d}", []string{"a.b", "c.d"}},
		{`${has(a.b) ? {"k": 1} : {}}`, []string{`has(a.b) ? {"k": 1} : {}`}},
		{"${unterminated", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractExpressions(tt.input), "input: %s", tt.input)
	}
}
