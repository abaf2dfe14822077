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

// Package expr defines the typed expression tree used to describe
// cross-resource references and computed values inside resource
// templates. Configuration authors build these nodes explicitly; no
// runtime interception is involved. The renderer turns a tree into a
// single ${...} expression understood by the kro controller, together
// with the list of resource fields the expression depends on.
package expr

// SchemaResourceID is the sentinel resource id identifying the graph's
// external input schema. References against it render as
// ${schema.<path>}.
const SchemaResourceID = "schema"

// TypeTag is a coarse type annotation carried on references. It is
// informational: the controller resolves the actual type at runtime.
type TypeTag string

const (
	TypeAny    TypeTag = "any"
	TypeString TypeTag = "string"
	TypeInt    TypeTag = "integer"
	TypeBool   TypeTag = "boolean"
	TypeFloat  TypeTag = "float"
	TypeObject TypeTag = "object"
	TypeList   TypeTag = "list"
)

// Reference is a typed handle identifying a field of another resource
// in the graph, or of the graph's input schema. Two references are
// equal iff their ResourceID and FieldPath match. References are
// immutable once created.
type Reference struct {
	// ResourceID is the stable id of the referenced resource, or
	// SchemaResourceID for the graph's external input.
	ResourceID string
	// FieldPath is the JSONPath-like path of the referenced field,
	// e.g. "status.loadBalancer.ingress[0].ip".
	FieldPath string
	// Type is the expected type of the referenced field.
	Type TypeTag
}

// Equal reports whether two references identify the same field.
// The type tag does not participate in equality.
func (r Reference) Equal(other Reference) bool {
	return r.ResourceID == other.ResourceID && r.FieldPath == other.FieldPath
}

// IsSchema reports whether the reference targets the input schema.
func (r Reference) IsSchema() bool {
	return r.ResourceID == SchemaResourceID
}

// Node is a node of the expression tree. The set of implementations is
// closed: LiteralNode, ReferenceNode, BinaryNode, ConditionalNode,
// TemplateNode and CallNode. The renderer dispatches exhaustively on
// this set and rejects anything else with an UnsupportedExpressionError.
//
// Nodes are built once and never mutated after construction.
type Node interface {
	exprNode()
}

// LiteralNode wraps a plain Go value. It renders as the JSON encoding
// of the value and carries no dependencies.
type LiteralNode struct {
	Value interface{}
}

// ReferenceNode embeds a Reference in an expression.
type ReferenceNode struct {
	Ref Reference
}

// BinaryNode is a comparison, logical or arithmetic operation over two
// sub-expressions.
type BinaryNode struct {
	Op    string
	Left  Node
	Right Node
}

// ConditionalNode is a ternary: Cond ? Then : Else.
type ConditionalNode struct {
	Cond Node
	Then Node
	Else Node
}

// TemplateNode is a string interpolation: literal parts are rendered
// as quoted string literals and reference/expression parts as bare
// sub-expressions, joined with +.
type TemplateNode struct {
	Parts []Node
}

// CallNode is a method-style transform applied to a target expression,
// e.g. mapping over a list field.
type CallNode struct {
	Target Node
	Method string
	Args   []Node
}

func (*LiteralNode) exprNode()     {}
func (*ReferenceNode) exprNode()   {}
func (*BinaryNode) exprNode()      {}
func (*ConditionalNode) exprNode() {}
func (*TemplateNode) exprNode()    {}
func (*CallNode) exprNode()        {}

// Literal builds a literal node.
func Literal(v interface{}) *LiteralNode {
	return &LiteralNode{Value: v}
}

// Ref builds a reference to a field of another resource in the graph.
func Ref(resourceID, fieldPath string) *ReferenceNode {
	return &ReferenceNode{Ref: Reference{ResourceID: resourceID, FieldPath: fieldPath, Type: TypeAny}}
}

// TypedRef builds a reference carrying an explicit type tag.
func TypedRef(resourceID, fieldPath string, t TypeTag) *ReferenceNode {
	return &ReferenceNode{Ref: Reference{ResourceID: resourceID, FieldPath: fieldPath, Type: t}}
}

// SchemaRef builds a reference to a field of the graph's input schema.
func SchemaRef(fieldPath string) *ReferenceNode {
	return &ReferenceNode{Ref: Reference{ResourceID: SchemaResourceID, FieldPath: fieldPath, Type: TypeAny}}
}

// Binary builds a binary operation node.
func Binary(op string, left, right Node) *BinaryNode {
	return &BinaryNode{Op: op, Left: left, Right: right}
}

// Conditional builds a ternary node.
func Conditional(cond, then, els Node) *ConditionalNode {
	return &ConditionalNode{Cond: cond, Then: then, Else: els}
}

// Template builds a string-interpolation node. String arguments are a
// convenience and are wrapped as literal parts.
func Template(parts ...interface{}) *TemplateNode {
	nodes := make([]Node, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case Node:
			nodes = append(nodes, v)
		default:
			nodes = append(nodes, Literal(v))
		}
	}
	return &TemplateNode{Parts: nodes}
}

// Call builds a method-call node.
func Call(target Node, method string, args ...Node) *CallNode {
	return &CallNode{Target: target, Method: method, Args: args}
}
