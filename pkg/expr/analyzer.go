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
	"errors"
	"fmt"

	"github.com/kro-run/kro-sdk/pkg/graph/fieldpath"
)

// FieldDescriptor records one field of a configuration tree whose
// value was an expression. Path locates the field, Expression is the
// rendered target-language form, References are the resource fields
// the expression depends on.
type FieldDescriptor struct {
	// Path is the JSONPath-like location of the field in the resource,
	// e.g. spec.template.spec.containers[0].env[0].value.
	Path string
	// Expression is the rendered ${...} target expression.
	Expression string
	// References lists the resource fields the expression depends on,
	// in first-appearance order, de-duplicated.
	References []Reference
	// StandaloneExpression is true when the expression occupies the
	// whole field, as opposed to being embedded in a larger string.
	// Standalone expressions keep the resolved value's type; embedded
	// ones are string-interpolated.
	StandaloneExpression bool
}

// Dependencies returns the distinct resource ids this field depends
// on, excluding the schema sentinel.
func (f FieldDescriptor) Dependencies() []string {
	var ids []string
	for _, ref := range f.References {
		if ref.IsSchema() {
			continue
		}
		if !containsString(ids, ref.ResourceID) {
			ids = append(ids, ref.ResourceID)
		}
	}
	return ids
}

// Analysis is the result of walking a configuration value.
type Analysis struct {
	// Value is a deep copy of the input with every expression leaf
	// replaced by its rendered target expression string. Literal
	// leaves are untouched.
	Value interface{}
	// Fields describes each replaced leaf.
	Fields []FieldDescriptor
	// RequiresConversion is true iff at least one leaf was an
	// expression rather than a literal.
	RequiresConversion bool
}

// References returns every reference discovered across all fields,
// de-duplicated in first-appearance order.
func (a *Analysis) References() []Reference {
	var refs []Reference
	for _, f := range a.Fields {
		for _, ref := range f.References {
			dup := false
			for _, existing := range refs {
				if existing.Equal(ref) {
					dup = true
					break
				}
			}
			if !dup {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

// AnalyzeValue walks a configuration value structurally, recursing into
// every map entry and slice element, replacing the leaves that are
// expression nodes with their rendered target expressions and leaving
// literal leaves untouched. The input is never mutated.
//
// Values that are themselves a single expression node are handled as a
// one-leaf tree rooted at the empty path.
func AnalyzeValue(value interface{}) (*Analysis, error) {
	a := &Analysis{}
	rewritten, err := a.walk(value, nil)
	if err != nil {
		return nil, err
	}
	a.Value = rewritten
	return a, nil
}

func (a *Analysis) walk(value interface{}, path []fieldpath.Segment) (interface{}, error) {
	switch v := value.(type) {
	case Node:
		return a.replaceLeaf(v, path)

	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, child := range v {
			rewritten, err := a.walk(child, append(path, fieldpath.Named(key)))
			if err != nil {
				return nil, err
			}
			out[key] = rewritten
		}
		return out, nil

	case []interface{}:
		out := make([]interface{}, len(v))
		for i, child := range v {
			rewritten, err := a.walk(child, append(path, fieldpath.Indexed(i)))
			if err != nil {
				return nil, err
			}
			out[i] = rewritten
		}
		return out, nil

	default:
		// Plain literal leaf: passes through untouched.
		return value, nil
	}
}

// replaceLeaf renders an expression node found at a leaf position and
// records its field descriptor. A literal node unwraps back to its
// plain value without counting as a conversion.
func (a *Analysis) replaceLeaf(node Node, path []fieldpath.Segment) (interface{}, error) {
	if lit, ok := node.(*LiteralNode); ok {
		return lit.Value, nil
	}

	fieldPath := fieldpath.Build(path)
	rendered, refs, err := Render(node)
	if err != nil {
		var unsupported *UnsupportedExpressionError
		if errors.As(err, &unsupported) && unsupported.Path == "" {
			return nil, &UnsupportedExpressionError{Construct: unsupported.Construct, Path: fieldPath}
		}
		return nil, fmt.Errorf("rendering expression at %s: %w", fieldPath, err)
	}

	a.Fields = append(a.Fields, FieldDescriptor{
		Path:                 fieldPath,
		Expression:           rendered,
		References:           refs,
		StandaloneExpression: true,
	})
	a.RequiresConversion = true
	return rendered, nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
