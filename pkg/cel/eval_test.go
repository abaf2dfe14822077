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

package cel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIndexAccess(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"service.status.loadBalancer.ingress.0.ip", "service.status.loadBalancer.ingress[0].ip"},
		{"a.items.0.1.name", "a.items[0][1].name"},
		{"db.status.readyReplicas > 0", "db.status.readyReplicas > 0"},
		{"schema.spec.ratio > 1.5", "schema.spec.ratio > 1.5"},
		{"db.status.cpu > 1.5", "db.status.cpu > 1.5"},
		{"schema.spec.ratio >= 2.5e3", "schema.spec.ratio >= 2.5e3"},
		{`"prefix-" + schema.spec.name`, `"prefix-" + schema.spec.name`},
		{`"v1.5-" + schema.spec.name`, `"v1.5-" + schema.spec.name`},
		{`'v1.5-' + schema.spec.name`, `'v1.5-' + schema.spec.name`},
		{`"quoted \" 1.5" + items.0.name`, `"quoted \" 1.5" + items[0].name`},
		{"items.0.ratio > 1.5", "items[0].ratio > 1.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeIndexAccess(tt.in), tt.in)
	}
}

func TestUnwrapExpression(t *testing.T) {
	inner, ok := UnwrapExpression("${db.status.host}")
	assert.True(t, ok)
	assert.Equal(t, "db.status.host", inner)

	same, ok := UnwrapExpression("plain")
	assert.False(t, ok)
	assert.Equal(t, "plain", same)

	multi, ok := UnwrapExpression("${a}-${b}")
	assert.False(t, ok)
	assert.Equal(t, "${a}-${b}", multi)
}

func TestValidateExpression(t *testing.T) {
	err := ValidateExpression("${db.status.readyReplicas > 0}", []string{"db"})
	require.NoError(t, err)

	err = ValidateExpression("${service.status.loadBalancer.ingress.0.ip}", []string{"service"})
	require.NoError(t, err, "dotted index access must normalize before compiling")

	err = ValidateExpression("${db.status.cpu > 1.5}", []string{"db"})
	require.NoError(t, err, "float literals must not be mistaken for index access")

	err = ValidateExpression("${db.status.readyReplicas >}", []string{"db"})
	require.Error(t, err)

	err = ValidateExpression("${undeclared.status.x}", []string{"db"})
	require.Error(t, err)
}

func TestEvaluateExpression(t *testing.T) {
	env, err := DefaultEnvironment(WithResourceIDs([]string{"db", "schema"}))
	require.NoError(t, err)

	context := map[string]interface{}{
		"db": map[string]interface{}{
			"status": map[string]interface{}{
				"readyReplicas": int64(3),
				"endpoints": []interface{}{
					map[string]interface{}{"host": "db-0.internal"},
				},
			},
		},
		"schema": map[string]interface{}{
			"spec": map[string]interface{}{"name": "shop"},
		},
	}

	got, err := EvaluateExpression(env, context, "${db.status.readyReplicas > 0}")
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = EvaluateExpression(env, context, `${"prefix-" + schema.spec.name}`)
	require.NoError(t, err)
	assert.Equal(t, "prefix-shop", got)

	got, err = EvaluateExpression(env, context, `${"v1.5-" + schema.spec.name}`)
	require.NoError(t, err)
	assert.Equal(t, "v1.5-shop", got, "dotted numbers inside string literals must survive")

	got, err = EvaluateExpression(env, context, "${db.status.endpoints.0.host}")
	require.NoError(t, err)
	assert.Equal(t, "db-0.internal", got)

	_, err = EvaluateExpression(env, context, "${db.status.missing.field}")
	require.Error(t, err)
}
