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

	"github.com/kro-run/kro-sdk/pkg/expr"
	"github.com/kro-run/kro-sdk/pkg/graph/dag"
)

func deploymentTemplate(name string, replicas interface{}) map[string]interface{} {
	return map[string]interface{}{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata": map[string]interface{}{
			"name": name,
		},
		"spec": map[string]interface{}{
			"replicas": replicas,
		},
	}
}

func TestBuildTwoNodeGraph(t *testing.T) {
	g, err := NewBuilder().
		WithResource(ResourceDefinition{
			ID:       "db",
			Template: deploymentTemplate("db", int64(1)),
		}).
		WithResource(ResourceDefinition{
			ID: "web",
			Template: map[string]interface{}{
				"apiVersion": "apps/v1",
				"kind":       "Deployment",
				"metadata": map[string]interface{}{
					"name": "web",
				},
				"spec": map[string]interface{}{
					"paused": expr.Binary(">",
						expr.Ref("db", "status.readyReplicas"),
						expr.Literal(int64(0))),
				},
			},
		}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"db", "web"}, g.TopologicalOrder)
	assert.Equal(t, []string{"db"}, g.Resources["web"].GetDependencies())

	fields := g.Resources["web"].GetFields()
	require.Len(t, fields, 1)
	assert.Equal(t, "spec.paused", fields[0].Path)
	assert.Equal(t, "${db.status.readyReplicas > 0}", fields[0].Expression)
}

func TestBuildFloatLiteralComparison(t *testing.T) {
	g, err := NewBuilder().
		WithResource(ResourceDefinition{
			ID:       "db",
			Template: deploymentTemplate("db", int64(1)),
		}).
		WithResource(ResourceDefinition{
			ID: "web",
			Template: map[string]interface{}{
				"apiVersion": "apps/v1",
				"kind":       "Deployment",
				"metadata": map[string]interface{}{
					"name": "web",
				},
				"spec": map[string]interface{}{
					"paused": expr.Binary(">",
						expr.Ref("db", "status.cpuUtilization"),
						expr.Literal(1.5)),
				},
			},
		}).
		Build()
	require.NoError(t, err)

	fields := g.Resources["web"].GetFields()
	require.Len(t, fields, 1)
	assert.Equal(t, "${db.status.cpuUtilization > 1.5}", fields[0].Expression)
}

func TestBuildDanglingReference(t *testing.T) {
	_, err := NewBuilder().
		WithResource(ResourceDefinition{
			ID: "web",
			Template: map[string]interface{}{
				"apiVersion": "apps/v1",
				"kind":       "Deployment",
				"metadata":   map[string]interface{}{"name": "web"},
				"spec": map[string]interface{}{
					"replicas": expr.Ref("missing", "status.readyReplicas"),
				},
			},
		}).
		Build()
	require.Error(t, err)

	var unknown *dag.UnknownNodeError[string]
	require.ErrorAs(t, err, &unknown)
}

func TestBuildRejectsCycle(t *testing.T) {
	_, err := NewBuilder().
		WithResource(ResourceDefinition{
			ID: "a",
			Template: map[string]interface{}{
				"apiVersion": "v1",
				"kind":       "ConfigMap",
				"metadata":   map[string]interface{}{"name": "a"},
				"data": map[string]interface{}{
					"peer": expr.Ref("b", "metadata.name"),
				},
			},
		}).
		WithResource(ResourceDefinition{
			ID: "b",
			Template: map[string]interface{}{
				"apiVersion": "v1",
				"kind":       "ConfigMap",
				"metadata":   map[string]interface{}{"name": "b"},
				"data": map[string]interface{}{
					"peer": expr.Ref("a", "metadata.name"),
				},
			},
		}).
		Build()
	require.Error(t, err)

	var cycle *dag.CycleError[string]
	require.ErrorAs(t, err, &cycle)
}

func TestBuildDuplicateID(t *testing.T) {
	_, err := NewBuilder().
		WithResource(ResourceDefinition{ID: "db", Template: deploymentTemplate("one", int64(1))}).
		WithResource(ResourceDefinition{ID: "db", Template: deploymentTemplate("two", int64(1))}).
		Build()
	require.Error(t, err)

	var duplicate *dag.DuplicateNodeError[string]
	require.ErrorAs(t, err, &duplicate)
}

func TestBuildRejectsReservedID(t *testing.T) {
	_, err := NewBuilder().
		WithResource(ResourceDefinition{ID: "schema", Template: deploymentTemplate("db", int64(1))}).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
}

func TestBuildRejectsInvalidID(t *testing.T) {
	_, err := NewBuilder().
		WithResource(ResourceDefinition{ID: "My-Db", Template: deploymentTemplate("db", int64(1))}).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrNamingConvention)
}

func TestDerivedIDIsDeterministic(t *testing.T) {
	template := map[string]interface{}{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata": map[string]interface{}{
			"name":      "web-app",
			"namespace": "prod",
		},
	}

	var first string
	for i := 0; i < 5; i++ {
		g, err := NewBuilder().
			WithResource(ResourceDefinition{Template: template}).
			Build()
		require.NoError(t, err)
		require.Len(t, g.TopologicalOrder, 1)
		if i == 0 {
			first = g.TopologicalOrder[0]
			assert.Equal(t, "deploymentWebAppProd", first)
		} else {
			assert.Equal(t, first, g.TopologicalOrder[0])
		}
	}
}

func TestDerivedIDRequiresLiteralName(t *testing.T) {
	_, err := NewBuilder().
		WithResource(ResourceDefinition{
			Template: map[string]interface{}{
				"apiVersion": "apps/v1",
				"kind":       "Deployment",
				"metadata": map[string]interface{}{
					"name": expr.SchemaRef("spec.name"),
				},
			},
		}).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "explicit id")
}

func TestBuildForwardReference(t *testing.T) {
	// Declaration order is web before db; the builder must still wire
	// the edge and order db first.
	g, err := NewBuilder().
		WithResource(ResourceDefinition{
			ID: "web",
			Template: map[string]interface{}{
				"apiVersion": "apps/v1",
				"kind":       "Deployment",
				"metadata":   map[string]interface{}{"name": "web"},
				"spec": map[string]interface{}{
					"replicas": expr.Ref("db", "status.readyReplicas"),
				},
			},
		}).
		WithResource(ResourceDefinition{ID: "db", Template: deploymentTemplate("db", int64(1))}).
		Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "web"}, g.TopologicalOrder)
}

func TestBuildNamespacedFlag(t *testing.T) {
	g, err := NewBuilder().
		WithResource(ResourceDefinition{
			ID: "ns",
			Template: map[string]interface{}{
				"apiVersion": "v1",
				"kind":       "Namespace",
				"metadata":   map[string]interface{}{"name": "demo"},
			},
		}).
		WithResource(ResourceDefinition{ID: "db", Template: deploymentTemplate("db", int64(1))}).
		Build()
	require.NoError(t, err)

	assert.False(t, g.Resources["ns"].IsNamespaced())
	assert.True(t, g.Resources["db"].IsNamespaced())
}

func TestBuildGVRDerivation(t *testing.T) {
	g, err := NewBuilder().
		WithResource(ResourceDefinition{ID: "db", Template: deploymentTemplate("db", int64(1))}).
		Build()
	require.NoError(t, err)

	gvr := g.Resources["db"].GetGroupVersionResource()
	assert.Equal(t, "apps", gvr.Group)
	assert.Equal(t, "v1", gvr.Version)
	assert.Equal(t, "deployments", gvr.Resource)
}
