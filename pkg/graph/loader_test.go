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

	"github.com/kro-run/kro-sdk/api/v1alpha1"
	"github.com/kro-run/kro-sdk/pkg/expr"
)

func TestFromDefinition(t *testing.T) {
	rgd := &v1alpha1.ResourceGraphDefinition{
		Spec: v1alpha1.ResourceGraphDefinitionSpec{
			Schema: &v1alpha1.Schema{Kind: "WebStack"},
			Resources: []*v1alpha1.Resource{
				rgdResource("web", `{
					"apiVersion": "apps/v1",
					"kind": "Deployment",
					"metadata": {"name": "${schema.spec.name}-web"},
					"spec": {"paused": "${db.status.readyReplicas > 0}"}
				}`),
				rgdResource("db", `{
					"apiVersion": "apps/v1",
					"kind": "Deployment",
					"metadata": {"name": "db"}
				}`),
			},
		},
	}

	g, err := FromDefinition(rgd)
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "web"}, g.TopologicalOrder)

	web := g.Resources["web"]
	require.NotNil(t, web)
	assert.Equal(t, []string{"db"}, web.GetDependencies())
	assert.Equal(t, "Deployment", web.GetGroupVersionKind().Kind)
	assert.True(t, web.IsNamespaced())

	byPath := map[string]expr.FieldDescriptor{}
	for _, field := range web.GetFields() {
		byPath[field.Path] = field
	}
	require.Len(t, byPath, 2)

	paused := byPath["spec.paused"]
	assert.True(t, paused.StandaloneExpression)
	assert.Equal(t, "${db.status.readyReplicas > 0}", paused.Expression)
	require.Len(t, paused.References, 1)
	assert.Equal(t, "db", paused.References[0].ResourceID)

	name := byPath["metadata.name"]
	assert.False(t, name.StandaloneExpression)
	assert.Equal(t, "${schema.spec.name}", name.Expression)
	require.Len(t, name.References, 1)
	assert.True(t, name.References[0].IsSchema())
}

func TestFromDefinitionListFields(t *testing.T) {
	rgd := &v1alpha1.ResourceGraphDefinition{
		Spec: v1alpha1.ResourceGraphDefinitionSpec{
			Resources: []*v1alpha1.Resource{
				rgdResource("cm", `{
					"apiVersion": "v1",
					"kind": "ConfigMap",
					"metadata": {"name": "cm"}
				}`),
				rgdResource("pod", `{
					"apiVersion": "v1",
					"kind": "Pod",
					"metadata": {"name": "pod"},
					"spec": {"containers": [{"image": "${cm.data.image}"}]}
				}`),
			},
		},
	}

	g, err := FromDefinition(rgd)
	require.NoError(t, err)

	pod := g.Resources["pod"]
	require.Len(t, pod.GetFields(), 1)
	assert.Equal(t, "spec.containers[0].image", pod.GetFields()[0].Path)
	assert.Equal(t, []string{"cm"}, pod.GetDependencies())
}

func TestFromDefinitionFieldOrderDeterministic(t *testing.T) {
	rgd := &v1alpha1.ResourceGraphDefinition{
		Spec: v1alpha1.ResourceGraphDefinitionSpec{
			Resources: []*v1alpha1.Resource{
				rgdResource("cm", `{
					"apiVersion": "v1",
					"kind": "ConfigMap",
					"metadata": {"name": "cm"},
					"data": {
						"zeta": "${schema.spec.z}",
						"alpha": "${schema.spec.a}",
						"mid": "${schema.spec.m}"
					}
				}`),
			},
		},
	}

	first, err := FromDefinition(rgd)
	require.NoError(t, err)
	paths := make([]string, 0, 3)
	for _, field := range first.Resources["cm"].GetFields() {
		paths = append(paths, field.Path)
	}
	assert.Equal(t, []string{"data.alpha", "data.mid", "data.zeta"}, paths)

	for i := 0; i < 5; i++ {
		g, err := FromDefinition(rgd)
		require.NoError(t, err)
		assert.Equal(t, first.Resources["cm"].GetFields(), g.Resources["cm"].GetFields())
	}
}

func TestFromDefinitionMissingGVK(t *testing.T) {
	rgd := &v1alpha1.ResourceGraphDefinition{
		Spec: v1alpha1.ResourceGraphDefinitionSpec{
			Resources: []*v1alpha1.Resource{
				rgdResource("cm", `{"metadata": {"name": "cm"}}`),
			},
		},
	}
	_, err := FromDefinition(rgd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cm")
}

func TestFromDefinitionInvalidPropagates(t *testing.T) {
	rgd := &v1alpha1.ResourceGraphDefinition{
		Spec: v1alpha1.ResourceGraphDefinitionSpec{
			Resources: []*v1alpha1.Resource{
				rgdResource("web", `{"apiVersion":"v1","kind":"Pod","spec":{"x":"${missing.status.ready}"}}`),
			},
		},
	}
	_, err := FromDefinition(rgd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource")
}
