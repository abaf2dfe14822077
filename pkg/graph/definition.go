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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kro-run/kro-sdk/api/v1alpha1"
	"github.com/kro-run/kro-sdk/pkg/cel/ast"
	"github.com/kro-run/kro-sdk/pkg/expr"
	"github.com/kro-run/kro-sdk/pkg/graph/dag"
)

// ValidateDefinition checks a compiled ResourceGraphDefinition
// document: naming conventions, duplicate ids, expression syntax,
// dangling references and dependency cycles. It validates the handoff
// contract without rebuilding the graph's resources.
func ValidateDefinition(rgd *v1alpha1.ResourceGraphDefinition) error {
	if rgd.Spec.Schema != nil {
		if err := validateKindName(rgd.Spec.Schema.Kind); err != nil {
			return err
		}
	}

	ids := make([]string, 0, len(rgd.Spec.Resources))
	seen := make(map[string]struct{}, len(rgd.Spec.Resources))
	for _, resource := range rgd.Spec.Resources {
		if err := validateResourceID(resource.ID); err != nil {
			return err
		}
		if _, duplicate := seen[resource.ID]; duplicate {
			return fmt.Errorf("duplicate resource id %q", resource.ID)
		}
		seen[resource.ID] = struct{}{}
		ids = append(ids, resource.ID)
	}

	inspector, err := ast.NewInspector(ids)
	if err != nil {
		return fmt.Errorf("failed creating inspector: %w", err)
	}

	d := dag.NewDirectedAcyclicGraph[string]()
	for _, id := range ids {
		if err := d.AddNode(id); err != nil {
			return err
		}
	}

	for _, resource := range rgd.Spec.Resources {
		dependencies, err := inspectResource(inspector, resource)
		if err != nil {
			return err
		}
		for _, dep := range dependencies {
			if err := d.AddEdge(resource.ID, dep); err != nil {
				return err
			}
		}
	}

	if _, err := d.TopologicalOrder(); err != nil {
		return err
	}
	return nil
}

// inspectResource checks every expression in the resource's template
// and readiness conditions, returning the distinct sibling resources
// it references.
func inspectResource(inspector *ast.Inspector, resource *v1alpha1.Resource) ([]string, error) {
	var expressions []string
	if len(resource.Template.Raw) > 0 {
		var template interface{}
		if err := json.Unmarshal(resource.Template.Raw, &template); err != nil {
			return nil, fmt.Errorf("resource %s: malformed template: %w", resource.ID, err)
		}
		expressions = collectExpressions(template, expressions)
	}
	expressions = append(expressions, resource.ReadyWhen...)
	expressions = append(expressions, resource.IncludeWhen...)

	var dependencies []string
	seen := make(map[string]struct{})
	for _, expression := range expressions {
		inspection, err := inspector.Inspect(expression)
		if err != nil {
			return nil, fmt.Errorf("resource %s: invalid expression %q: %w", resource.ID, expression, err)
		}
		for _, unknown := range inspection.UnknownResources {
			return nil, fmt.Errorf("resource %s: expression %q references unknown resource %q",
				resource.ID, expression, unknown.ID)
		}
		for _, dependency := range inspection.ResourceDependencies {
			if dependency.ID == expr.SchemaResourceID {
				continue
			}
			if _, dup := seen[dependency.ID]; !dup {
				seen[dependency.ID] = struct{}{}
				dependencies = append(dependencies, dependency.ID)
			}
		}
	}
	return dependencies, nil
}

// collectExpressions walks a template tree gathering every ${...}
// segment from its string leaves.
func collectExpressions(value interface{}, out []string) []string {
	switch v := value.(type) {
	case map[string]interface{}:
		for _, entry := range v {
			out = collectExpressions(entry, out)
		}
	case []interface{}:
		for _, entry := range v {
			out = collectExpressions(entry, out)
		}
	case string:
		out = append(out, extractExpressions(v)...)
	}
	return out
}

// extractExpressions scans a string for balanced ${...} segments and
// returns their inner expressions.
func extractExpressions(s string) []string {
	var expressions []string
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			return expressions
		}
		depth := 0
		end := -1
		for i := start + 2; i < len(s); i++ {
			switch s[i] {
			case '{':
				depth++
			case '}':
				if depth == 0 {
					end = i
				} else {
					depth--
				}
			}
			if end >= 0 {
				break
			}
		}
		if end < 0 {
			return expressions
		}
		expressions = append(expressions, s[start+2:end])
		s = s[end+1:]
	}
}
