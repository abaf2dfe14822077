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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kro-run/kro-sdk/pkg/graph/fieldpath"
)

// UnsupportedExpressionError is returned when the renderer encounters a
// construct it cannot turn into a target expression. It names the
// unhandled construct so the failure is actionable; the analyzer adds
// the offending field path when walking a configuration tree.
type UnsupportedExpressionError struct {
	// Construct describes the unhandled node shape or operator.
	Construct string
	// Path is the configuration field path where the construct was
	// found, when known.
	Path string
}

func (e *UnsupportedExpressionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("unsupported expression at %s: %s", e.Path, e.Construct)
	}
	return fmt.Sprintf("unsupported expression: %s", e.Construct)
}

// operatorMapping translates source comparison operators to their
// target-language spelling. Operators not present pass through
// unchanged, after being checked against supportedOperators.
var operatorMapping = map[string]string{
	"===": "==",
	"!==": "!=",
}

var supportedOperators = map[string]struct{}{
	"==": {}, "!=": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
	"&&": {}, "||": {},
	"+": {}, "-": {}, "*": {}, "/": {}, "%": {},
}

// Render converts an expression tree into a single target-language
// expression string plus the list of resource fields it depends on.
// Rendering is deterministic: the same tree always yields the same
// bytes, and dependencies come out in first-appearance order with
// duplicates removed.
//
// A lone literal renders as its JSON encoding without the ${...}
// wrapper, since it needs no runtime resolution. A template consisting
// of exactly one reference and no literal parts renders as the bare
// reference form.
func Render(node Node) (string, []Reference, error) {
	if lit, ok := node.(*LiteralNode); ok {
		encoded, err := encodeLiteral(lit.Value)
		if err != nil {
			return "", nil, err
		}
		return encoded, nil, nil
	}

	r := &renderer{}
	inner, err := r.render(node)
	if err != nil {
		return "", nil, err
	}
	return "${" + inner + "}", r.deps, nil
}

// Dependencies returns the references a tree depends on without
// rendering it.
func Dependencies(node Node) []Reference {
	r := &renderer{}
	// Rendering errors are irrelevant for dependency discovery of
	// well-formed trees; collect what we can.
	_, _ = r.render(node)
	return r.deps
}

type renderer struct {
	deps []Reference
}

func (r *renderer) addDep(ref Reference) {
	for _, d := range r.deps {
		if d.Equal(ref) {
			return
		}
	}
	r.deps = append(r.deps, ref)
}

// render returns the expression text without the ${...} wrapper.
func (r *renderer) render(node Node) (string, error) {
	switch n := node.(type) {
	case *LiteralNode:
		return encodeLiteral(n.Value)

	case *ReferenceNode:
		r.addDep(n.Ref)
		return renderReference(n.Ref)

	case *BinaryNode:
		op, ok := operatorMapping[n.Op]
		if !ok {
			op = n.Op
		}
		if _, ok := supportedOperators[op]; !ok {
			return "", &UnsupportedExpressionError{Construct: fmt.Sprintf("binary operator %q", n.Op)}
		}
		left, err := r.render(n.Left)
		if err != nil {
			return "", err
		}
		right, err := r.render(n.Right)
		if err != nil {
			return "", err
		}
		return left + " " + op + " " + right, nil

	case *ConditionalNode:
		cond, err := r.render(n.Cond)
		if err != nil {
			return "", err
		}
		then, err := r.render(n.Then)
		if err != nil {
			return "", err
		}
		els, err := r.render(n.Else)
		if err != nil {
			return "", err
		}
		return cond + " ? " + then + " : " + els, nil

	case *TemplateNode:
		return r.renderTemplate(n)

	case *CallNode:
		target, err := r.render(n.Target)
		if err != nil {
			return "", err
		}
		args := make([]string, 0, len(n.Args))
		for _, a := range n.Args {
			rendered, err := r.render(a)
			if err != nil {
				return "", err
			}
			args = append(args, rendered)
		}
		return target + "." + n.Method + "(" + strings.Join(args, ", ") + ")", nil

	case nil:
		return "", &UnsupportedExpressionError{Construct: "nil expression node"}

	default:
		return "", &UnsupportedExpressionError{Construct: fmt.Sprintf("%T", node)}
	}
}

// renderTemplate joins literal parts as quoted string literals and
// expression parts as bare sub-expressions with +. Consecutive literal
// parts each render as their own quoted segment.
func (r *renderer) renderTemplate(n *TemplateNode) (string, error) {
	// A template that is exactly one reference renders as the bare
	// reference form.
	if len(n.Parts) == 1 {
		if ref, ok := n.Parts[0].(*ReferenceNode); ok {
			r.addDep(ref.Ref)
			return renderReference(ref.Ref)
		}
	}
	if len(n.Parts) == 0 {
		return `""`, nil
	}

	segments := make([]string, 0, len(n.Parts))
	for _, part := range n.Parts {
		if lit, ok := part.(*LiteralNode); ok {
			segments = append(segments, quoteTemplateLiteral(lit.Value))
			continue
		}
		rendered, err := r.render(part)
		if err != nil {
			return "", err
		}
		segments = append(segments, rendered)
	}
	return strings.Join(segments, " + "), nil
}

// renderReference renders the target-language form of a reference:
// the resource id followed by the dotted field path. Bracketed index
// access in the source path renders as a dotted numeric segment, so
// status.loadBalancer.ingress[0].ip becomes
// status.loadBalancer.ingress.0.ip.
func renderReference(ref Reference) (string, error) {
	segments, err := fieldpath.Parse(ref.FieldPath)
	if err != nil {
		return "", fmt.Errorf("invalid field path %q: %w", ref.FieldPath, err)
	}

	var sb strings.Builder
	sb.WriteString(ref.ResourceID)
	for _, s := range segments {
		sb.WriteString(".")
		if s.Index >= 0 {
			sb.WriteString(strconv.Itoa(s.Index))
		} else {
			sb.WriteString(s.Name)
		}
	}
	return sb.String(), nil
}

// quoteTemplateLiteral renders a template literal part as a
// double-quoted string. Backslashes and double quotes are escaped with
// a backslash; everything else passes through verbatim. Non-string
// values are stringified first, since a template always produces a
// string.
func quoteTemplateLiteral(v interface{}) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	default:
		s = fmt.Sprintf("%v", t)
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// encodeLiteral JSON-encodes a literal value as the target literal
// syntax. json.Marshal sorts map keys, which keeps the output
// deterministic.
func encodeLiteral(v interface{}) (string, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", &UnsupportedExpressionError{Construct: fmt.Sprintf("literal of type %T", v)}
	}
	return string(encoded), nil
}
