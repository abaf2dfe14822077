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

// Package ast inspects parsed target expressions to discover which
// resources they reference. It operates on cel-go's native AST
// representation and only parses, never type-checks, so expressions
// can be inspected before the full set of declarations is known.
package ast

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"

	krocel "github.com/kro-run/kro-sdk/pkg/cel"
)

// ResourceDependency represents a resource and its accessed path
// within an expression. For "deployment.spec.replicas > 0", ID is
// "deployment" and Path is "deployment.spec.replicas".
type ResourceDependency struct {
	// ID is the root resource identifier.
	ID string
	// Path is the full access path including nested fields.
	Path string
}

// UnknownResource represents a root identifier in the expression that
// wasn't declared in the known resources list. This helps identify
// missing or misspelled resource ids.
type UnknownResource struct {
	ID   string
	Path string
}

// ExpressionInspection contains the findings from analyzing a single
// expression.
type ExpressionInspection struct {
	ResourceDependencies []ResourceDependency
	UnknownResources     []UnknownResource
}

// Inspector analyzes expressions against a set of known resource ids.
type Inspector struct {
	env       *cel.Env
	resources map[string]struct{}
}

// NewInspector creates an Inspector for the given resource ids. The
// schema sentinel is always considered known.
func NewInspector(resourceIDs []string) (*Inspector, error) {
	env, err := krocel.DefaultEnvironment(krocel.WithResourceIDs(resourceIDs))
	if err != nil {
		return nil, fmt.Errorf("failed creating environment: %w", err)
	}
	resources := make(map[string]struct{}, len(resourceIDs)+1)
	for _, id := range resourceIDs {
		resources[id] = struct{}{}
	}
	resources["schema"] = struct{}{}
	return &Inspector{env: env, resources: resources}, nil
}

// Inspect parses the expression and reports the resources it touches.
// The ${...} wrapper is optional, and dotted index access is
// normalized before parsing.
func (i *Inspector) Inspect(expression string) (ExpressionInspection, error) {
	inner, _ := krocel.UnwrapExpression(expression)
	parsed, issues := i.env.Parse(krocel.NormalizeIndexAccess(inner))
	if issues != nil && issues.Err() != nil {
		return ExpressionInspection{}, fmt.Errorf("failed parsing expression %s: %w", expression, issues.Err())
	}

	inspection := &ExpressionInspection{}
	i.visit(parsed.NativeRep().Expr(), map[string]struct{}{}, inspection)
	return *inspection, nil
}

// visit walks the expression tree. bound holds comprehension-scoped
// variable names, which are not resource references.
func (i *Inspector) visit(e celast.Expr, bound map[string]struct{}, out *ExpressionInspection) {
	switch e.Kind() {
	case celast.SelectKind:
		if root, path, ok := flattenSelect(e); ok {
			if _, isBound := bound[root]; !isBound {
				i.record(root, path, out)
			}
			return
		}
		i.visit(e.AsSelect().Operand(), bound, out)

	case celast.IdentKind:
		name := e.AsIdent()
		if _, isBound := bound[name]; isBound || strings.HasPrefix(name, "__") {
			return
		}
		i.record(name, name, out)

	case celast.CallKind:
		call := e.AsCall()
		if call.IsMemberFunction() {
			i.visit(call.Target(), bound, out)
		}
		for _, arg := range call.Args() {
			i.visit(arg, bound, out)
		}

	case celast.ListKind:
		for _, elem := range e.AsList().Elements() {
			i.visit(elem, bound, out)
		}

	case celast.MapKind:
		for _, entry := range e.AsMap().Entries() {
			mapEntry := entry.AsMapEntry()
			i.visit(mapEntry.Key(), bound, out)
			i.visit(mapEntry.Value(), bound, out)
		}

	case celast.ComprehensionKind:
		comp := e.AsComprehension()
		i.visit(comp.IterRange(), bound, out)

		scoped := make(map[string]struct{}, len(bound)+2)
		for name := range bound {
			scoped[name] = struct{}{}
		}
		scoped[comp.IterVar()] = struct{}{}
		scoped[comp.AccuVar()] = struct{}{}

		i.visit(comp.AccuInit(), scoped, out)
		i.visit(comp.LoopCondition(), scoped, out)
		i.visit(comp.LoopStep(), scoped, out)
		i.visit(comp.Result(), scoped, out)
	}
}

func (i *Inspector) record(root, path string, out *ExpressionInspection) {
	if _, known := i.resources[root]; known {
		for _, dep := range out.ResourceDependencies {
			if dep.Path == path {
				return
			}
		}
		out.ResourceDependencies = append(out.ResourceDependencies, ResourceDependency{ID: root, Path: path})
		return
	}
	for _, unknown := range out.UnknownResources {
		if unknown.Path == path {
			return
		}
	}
	out.UnknownResources = append(out.UnknownResources, UnknownResource{ID: root, Path: path})
}

// flattenSelect descends a chain of field selections and returns the
// root identifier plus the dotted access path. Chains not rooted at a
// plain identifier (e.g. a function call result) report ok=false.
func flattenSelect(e celast.Expr) (root string, path string, ok bool) {
	var fields []string
	current := e
	for current.Kind() == celast.SelectKind {
		sel := current.AsSelect()
		fields = append(fields, sel.FieldName())
		current = sel.Operand()
	}
	if current.Kind() != celast.IdentKind {
		return "", "", false
	}
	root = current.AsIdent()

	var sb strings.Builder
	sb.WriteString(root)
	for i := len(fields) - 1; i >= 0; i-- {
		sb.WriteString(".")
		sb.WriteString(fields[i])
	}
	return root, sb.String(), true
}
