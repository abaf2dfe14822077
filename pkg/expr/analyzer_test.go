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

package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeValuePlainLiterals(t *testing.T) {
	input := map[string]interface{}{
		"apiVersion": "v1",
		"metadata": map[string]interface{}{
			"name": "config",
		},
		"data": map[string]interface{}{
			"count": 3,
		},
	}

	analysis, err := AnalyzeValue(input)
	require.NoError(t, err)
	assert.False(t, analysis.RequiresConversion)
	assert.Empty(t, analysis.Fields)
	assert.Equal(t, input, analysis.Value)
}

func TestAnalyzeValueReplacesExpressionLeaves(t *testing.T) {
	input := map[string]interface{}{
		"metadata": map[string]interface{}{
			"name":      Template(SchemaRef("spec.name"), "-web"),
			"namespace": Ref("ns", "metadata.name"),
		},
		"spec": map[string]interface{}{
			"replicas": SchemaRef("spec.replicas"),
			"paused":   false,
			"containers": []interface{}{
				map[string]interface{}{
					"image": "nginx",
					"env": []interface{}{
						map[string]interface{}{
							"name":  "DB_HOST",
							"value": Ref("db", "status.endpoint"),
						},
					},
				},
			},
		},
	}

	analysis, err := AnalyzeValue(input)
	require.NoError(t, err)
	assert.True(t, analysis.RequiresConversion)
	require.Len(t, analysis.Fields, 4)

	byPath := make(map[string]FieldDescriptor)
	for _, f := range analysis.Fields {
		byPath[f.Path] = f
	}

	name := byPath["metadata.name"]
	assert.Equal(t, `${schema.spec.name + "-web"}`, name.Expression)
	assert.True(t, name.StandaloneExpression)
	assert.Empty(t, name.Dependencies(), "schema references are not resource dependencies")

	ns := byPath["metadata.namespace"]
	assert.Equal(t, "${ns.metadata.name}", ns.Expression)
	assert.Equal(t, []string{"ns"}, ns.Dependencies())

	env := byPath["spec.containers[0].env[0].value"]
	assert.Equal(t, "${db.status.endpoint}", env.Expression)
	assert.Equal(t, []string{"db"}, env.Dependencies())

	// The rewritten tree has strings where the nodes were, and the
	// untouched literals are still in place.
	rewritten := analysis.Value.(map[string]interface{})
	metadata := rewritten["metadata"].(map[string]interface{})
	assert.Equal(t, "${ns.metadata.name}", metadata["namespace"])
	spec := rewritten["spec"].(map[string]interface{})
	assert.Equal(t, false, spec["paused"])
	assert.Equal(t, "${schema.spec.replicas}", spec["replicas"])

	// The input tree still holds the original nodes.
	originalMeta := input["metadata"].(map[string]interface{})
	_, stillNode := originalMeta["namespace"].(Node)
	assert.True(t, stillNode, "input must not be mutated")
}

func TestAnalyzeValueLiteralNodeUnwraps(t *testing.T) {
	input := map[string]interface{}{
		"value": Literal("plain"),
	}
	analysis, err := AnalyzeValue(input)
	require.NoError(t, err)
	assert.False(t, analysis.RequiresConversion)
	assert.Equal(t, "plain", analysis.Value.(map[string]interface{})["value"])
}

func TestAnalyzeValueSingleNode(t *testing.T) {
	analysis, err := AnalyzeValue(Binary(">", Ref("db", "status.readyReplicas"), Literal(0)))
	require.NoError(t, err)
	assert.True(t, analysis.RequiresConversion)
	require.Len(t, analysis.Fields, 1)
	assert.Equal(t, "", analysis.Fields[0].Path)
	assert.Equal(t, "${db.status.readyReplicas > 0}", analysis.Value)
}

func TestAnalyzeValueUnsupportedNamesPath(t *testing.T) {
	input := map[string]interface{}{
		"spec": map[string]interface{}{
			"bad": Binary("<=>", Literal(1), Literal(2)),
		},
	}
	_, err := AnalyzeValue(input)
	var unsupported *UnsupportedExpressionError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "spec.bad", unsupported.Path)
}

func TestAnalysisReferencesDeduplicated(t *testing.T) {
	input := map[string]interface{}{
		"a": Ref("db", "status.host"),
		"b": Ref("db", "status.host"),
		"c": Ref("db", "status.port"),
	}
	analysis, err := AnalyzeValue(input)
	require.NoError(t, err)
	assert.Len(t, analysis.References(), 2)
}
