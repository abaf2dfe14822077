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
	"sort"
	"strings"

	"golang.org/x/exp/maps"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kro-run/kro-sdk/api/v1alpha1"
	krocel "github.com/kro-run/kro-sdk/pkg/cel"
	"github.com/kro-run/kro-sdk/pkg/cel/ast"
	"github.com/kro-run/kro-sdk/pkg/expr"
	"github.com/kro-run/kro-sdk/pkg/graph/dag"
	"github.com/kro-run/kro-sdk/pkg/graph/fieldpath"
	"github.com/kro-run/kro-sdk/pkg/metadata"
)

// FromDefinition reconstructs a deployable Graph from a compiled
// ResourceGraphDefinition. The templates already carry rendered
// ${...} expressions; their fields and dependencies are rediscovered
// by walking the template trees.
func FromDefinition(rgd *v1alpha1.ResourceGraphDefinition) (*Graph, error) {
	if err := ValidateDefinition(rgd); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rgd.Spec.Resources))
	for _, resource := range rgd.Spec.Resources {
		ids = append(ids, resource.ID)
	}
	inspector, err := ast.NewInspector(ids)
	if err != nil {
		return nil, fmt.Errorf("failed creating inspector: %w", err)
	}

	resources := make(map[string]*Resource, len(rgd.Spec.Resources))
	d := dag.NewDirectedAcyclicGraph[string]()
	for _, entry := range rgd.Spec.Resources {
		resource, err := loadResource(inspector, entry)
		if err != nil {
			return nil, err
		}
		if err := d.AddNode(resource.id); err != nil {
			return nil, err
		}
		resources[resource.id] = resource
	}
	for _, id := range ids {
		for _, dep := range resources[id].dependencies {
			if err := d.AddEdge(id, dep); err != nil {
				return nil, err
			}
		}
	}

	topo, err := d.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	return &Graph{
		DAG:              d,
		Resources:        resources,
		TopologicalOrder: topo,
	}, nil
}

func loadResource(inspector *ast.Inspector, entry *v1alpha1.Resource) (*Resource, error) {
	var template map[string]interface{}
	if err := json.Unmarshal(entry.Template.Raw, &template); err != nil {
		return nil, fmt.Errorf("resource %s: malformed template: %w", entry.ID, err)
	}

	gvk, err := metadata.ExtractGVKFromUnstructured(template)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", entry.ID, err)
	}

	fields, err := parseTemplateFields(inspector, template, nil)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", entry.ID, err)
	}

	resource := &Resource{
		id:         entry.ID,
		gvk:        gvk,
		template:   &unstructured.Unstructured{Object: template},
		fields:     fields,
		namespaced: isNamespaced(gvk.Kind),
	}
	for _, field := range fields {
		for _, dep := range field.Dependencies() {
			resource.addDependency(dep)
		}
	}
	return resource, nil
}

// parseTemplateFields walks a rendered template depth first and
// rebuilds a field descriptor for every string leaf that carries
// expressions. A leaf that is exactly one wrapped expression is
// standalone; anything else is embedded interpolation.
func parseTemplateFields(
	inspector *ast.Inspector,
	value interface{},
	path []fieldpath.Segment,
) ([]expr.FieldDescriptor, error) {
	var fields []expr.FieldDescriptor
	switch v := value.(type) {
	case map[string]interface{}:
		keys := maps.Keys(v)
		sort.Strings(keys)
		for _, key := range keys {
			nested, err := parseTemplateFields(inspector, v[key], append(path, fieldpath.Named(key)))
			if err != nil {
				return nil, err
			}
			fields = append(fields, nested...)
		}
	case []interface{}:
		for i, entry := range v {
			nested, err := parseTemplateFields(inspector, entry, append(path, fieldpath.Indexed(i)))
			if err != nil {
				return nil, err
			}
			fields = append(fields, nested...)
		}
	case string:
		descriptors, err := parseStringLeaf(inspector, v, fieldpath.Build(path))
		if err != nil {
			return nil, err
		}
		fields = append(fields, descriptors...)
	}
	return fields, nil
}

func parseStringLeaf(inspector *ast.Inspector, leaf, path string) ([]expr.FieldDescriptor, error) {
	if _, standalone := krocel.UnwrapExpression(leaf); standalone {
		references, err := inspectReferences(inspector, leaf, path)
		if err != nil {
			return nil, err
		}
		return []expr.FieldDescriptor{{
			Path:                 path,
			Expression:           leaf,
			References:           references,
			StandaloneExpression: true,
		}}, nil
	}

	var fields []expr.FieldDescriptor
	for _, inner := range extractExpressions(leaf) {
		expression := "${" + inner + "}"
		references, err := inspectReferences(inspector, expression, path)
		if err != nil {
			return nil, err
		}
		fields = append(fields, expr.FieldDescriptor{
			Path:       path,
			Expression: expression,
			References: references,
		})
	}
	return fields, nil
}

func inspectReferences(inspector *ast.Inspector, expression, path string) ([]expr.Reference, error) {
	inspection, err := inspector.Inspect(expression)
	if err != nil {
		return nil, fmt.Errorf("field %s: invalid expression %q: %w", path, expression, err)
	}
	references := make([]expr.Reference, 0, len(inspection.ResourceDependencies))
	for _, dep := range inspection.ResourceDependencies {
		references = append(references, expr.Reference{
			ResourceID: dep.ID,
			FieldPath:  strings.TrimPrefix(dep.Path, dep.ID+"."),
			Type:       expr.TypeAny,
		})
	}
	return references, nil
}
