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
	"fmt"
	"strings"

	"github.com/gobuffalo/flect"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	krocel "github.com/kro-run/kro-sdk/pkg/cel"
	"github.com/kro-run/kro-sdk/pkg/expr"
	"github.com/kro-run/kro-sdk/pkg/graph/dag"
	"github.com/kro-run/kro-sdk/pkg/metadata"
	"github.com/kro-run/kro-sdk/pkg/readiness"
)

// clusterScopedKinds lists the well-known kinds that never carry a
// namespace. Anything else is treated as namespaced.
var clusterScopedKinds = map[string]struct{}{
	"APIService":                     {},
	"ClusterRole":                    {},
	"ClusterRoleBinding":             {},
	"CustomResourceDefinition":       {},
	"MutatingWebhookConfiguration":   {},
	"Namespace":                      {},
	"Node":                           {},
	"PersistentVolume":               {},
	"PriorityClass":                  {},
	"StorageClass":                   {},
	"ValidatingWebhookConfiguration": {},
}

// ResourceDefinition is the builder-facing declaration of one
// resource. The template is a manifest tree whose leaves may be
// expression nodes instead of literals.
type ResourceDefinition struct {
	// ID is the stable identifier of the resource within the graph.
	// When empty, a deterministic id is derived from the template's
	// kind, name and namespace.
	ID string
	// Template is the manifest of the resource. apiVersion, kind and
	// metadata.name must be literal values.
	Template map[string]interface{}
	// ReadinessEvaluator optionally overrides the registry evaluator
	// for this resource during deployment.
	ReadinessEvaluator readiness.Evaluator
}

// Builder assembles resource definitions into a validated Graph.
type Builder struct {
	definitions []ResourceDefinition
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithResource appends a resource definition. Validation happens at
// Build time so definitions can be added in any order.
func (b *Builder) WithResource(def ResourceDefinition) *Builder {
	b.definitions = append(b.definitions, def)
	return b
}

// Build validates the definitions and produces the dependency graph:
// ids are checked and derived, every template is analyzed for
// expression fields, edges are wired from the discovered references,
// cycles are rejected and every rendered expression is compile-checked
// against the set of known resource ids. No partial graph is returned
// on error.
func (b *Builder) Build() (*Graph, error) {
	if len(b.definitions) == 0 {
		return nil, fmt.Errorf("no resources defined")
	}

	resources := make(map[string]*Resource, len(b.definitions))
	d := dag.NewDirectedAcyclicGraph[string]()
	var order []string

	for _, def := range b.definitions {
		resource, err := b.buildResource(def)
		if err != nil {
			return nil, err
		}
		if err := d.AddNode(resource.id); err != nil {
			return nil, err
		}
		resources[resource.id] = resource
		order = append(order, resource.id)
	}

	// Wire edges after all nodes exist so forward references between
	// definitions work regardless of declaration order.
	for _, id := range order {
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

	known := append([]string{expr.SchemaResourceID}, order...)
	for _, id := range order {
		for _, field := range resources[id].fields {
			if err := krocel.ValidateExpression(field.Expression, known); err != nil {
				return nil, fmt.Errorf("resource %s, field %s: %w", id, field.Path, err)
			}
		}
	}

	return &Graph{
		DAG:              d,
		Resources:        resources,
		TopologicalOrder: topo,
	}, nil
}

func (b *Builder) buildResource(def ResourceDefinition) (*Resource, error) {
	if def.Template == nil {
		return nil, fmt.Errorf("resource %q has no template", def.ID)
	}

	analysis, err := expr.AnalyzeValue(def.Template)
	if err != nil {
		return nil, fmt.Errorf("failed analyzing template of resource %q: %w", def.ID, err)
	}
	rewritten, ok := analysis.Value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("resource %q template is not an object", def.ID)
	}

	gvk, err := metadata.ExtractGVKFromUnstructured(rewritten)
	if err != nil {
		return nil, fmt.Errorf("resource %q: %w", def.ID, err)
	}

	id := def.ID
	if id == "" {
		id, err = deriveResourceID(gvk.Kind, rewritten)
		if err != nil {
			return nil, err
		}
	}
	if err := validateResourceID(id); err != nil {
		return nil, err
	}

	resource := &Resource{
		id:                 id,
		gvk:                gvk,
		template:           &unstructured.Unstructured{Object: rewritten},
		fields:             analysis.Fields,
		readinessEvaluator: def.ReadinessEvaluator,
		namespaced:         isNamespaced(gvk.Kind),
	}
	for _, field := range analysis.Fields {
		for _, dep := range field.Dependencies() {
			resource.addDependency(dep)
		}
	}
	return resource, nil
}

// deriveResourceID produces a stable id from the template's kind,
// name and namespace. The same inputs always yield the same id so
// compiled artifacts diff cleanly across runs.
func deriveResourceID(kind string, template map[string]interface{}) (string, error) {
	name, found, err := unstructured.NestedString(template, "metadata", "name")
	if err != nil || !found || name == "" || strings.Contains(name, "${") {
		return "", fmt.Errorf("cannot derive an id for a %s without a literal metadata.name; set an explicit id", kind)
	}
	parts := []string{strings.ToLower(kind), name}
	if ns, found, _ := unstructured.NestedString(template, "metadata", "namespace"); found && ns != "" {
		if strings.Contains(ns, "${") {
			return "", fmt.Errorf("cannot derive an id for %s/%s with a non-literal namespace; set an explicit id", kind, name)
		}
		parts = append(parts, ns)
	}
	return flect.Camelize(sanitizeIDInput(strings.Join(parts, "-"))), nil
}

// sanitizeIDInput maps characters that are legal in Kubernetes names
// but not in resource ids onto separators flect understands.
func sanitizeIDInput(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
}

func isNamespaced(kind string) bool {
	_, clusterScoped := clusterScopedKinds[kind]
	return !clusterScoped
}
