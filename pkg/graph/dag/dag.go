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

package dag

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Vertex represents a node in the directed acyclic graph.
type Vertex[T cmp.Ordered] struct {
	// ID is a unique identifier for the node.
	ID T
	// Order records the insertion order. It is used to keep the
	// topological sort stable: among simultaneously-ready nodes,
	// the one added first is emitted first.
	Order int
	// DependsOn stores the IDs of the nodes this node depends on.
	// This node must appear after all of them in the topological sort.
	DependsOn map[T]struct{}
	// DependedBy stores the IDs of the nodes that depend on this node.
	// Maintained alongside DependsOn so that reverse traversals
	// (rollback, delete ordering) don't need to re-derive edges.
	DependedBy map[T]struct{}
}

func (v *Vertex[T]) String() string {
	deps := sortedKeys(v.DependsOn)
	parts := make([]string, 0, len(deps))
	for _, d := range deps {
		parts = append(parts, fmt.Sprintf("%v", d))
	}
	return fmt.Sprintf("Vertex[ID: %v, Order: %d, DependsOn: %s]", v.ID, v.Order, strings.Join(parts, ","))
}

// DirectedAcyclicGraph represents a directed acyclic graph over node
// identifiers. Edges are kept in both directions so that forward
// (apply) and reverse (delete) traversals are equally cheap.
type DirectedAcyclicGraph[T cmp.Ordered] struct {
	// Vertices stores the nodes in the graph, keyed by ID.
	Vertices map[T]*Vertex[T]
}

// NewDirectedAcyclicGraph creates a new directed acyclic graph.
func NewDirectedAcyclicGraph[T cmp.Ordered]() *DirectedAcyclicGraph[T] {
	return &DirectedAcyclicGraph[T]{
		Vertices: make(map[T]*Vertex[T]),
	}
}

// DuplicateNodeError is returned when a node with the same ID is added
// to the graph twice. This is a programming error on the caller's side,
// not a recoverable condition.
type DuplicateNodeError[T cmp.Ordered] struct {
	ID T
}

func (e *DuplicateNodeError[T]) Error() string {
	return fmt.Sprintf("node %v already exists in the graph", e.ID)
}

// UnknownNodeError is returned when an edge references a node that was
// never added to the graph.
type UnknownNodeError[T cmp.Ordered] struct {
	ID T
}

func (e *UnknownNodeError[T]) Error() string {
	return fmt.Sprintf("node %v does not exist in the graph", e.ID)
}

// CycleError is returned when the graph contains a cycle. Cycle holds
// one concrete offending cycle as a closed walk: the first ID is
// repeated at the end.
type CycleError[T cmp.Ordered] struct {
	Cycle []T
}

func (e *CycleError[T]) Error() string {
	return fmt.Sprintf("graph contains a cycle: %s", formatCycle(e.Cycle))
}

func formatCycle[T cmp.Ordered](cycle []T) string {
	var builder strings.Builder
	for i, s := range cycle {
		builder.WriteString(fmt.Sprintf("%v", s))
		if i < len(cycle)-1 {
			builder.WriteString(" -> ")
		}
	}
	return builder.String()
}

// AddNode adds a new node to the graph.
func (d *DirectedAcyclicGraph[T]) AddNode(id T) error {
	if _, exists := d.Vertices[id]; exists {
		return &DuplicateNodeError[T]{ID: id}
	}
	d.Vertices[id] = &Vertex[T]{
		ID:         id,
		Order:      len(d.Vertices),
		DependsOn:  make(map[T]struct{}),
		DependedBy: make(map[T]struct{}),
	}
	return nil
}

// AddEdge records that "dependent" depends on "dependency", meaning
// "dependency" must occur before "dependent". Both adjacency sets are
// updated so the edge is visible from either endpoint.
func (d *DirectedAcyclicGraph[T]) AddEdge(dependent, dependency T) error {
	from, ok := d.Vertices[dependent]
	if !ok {
		return &UnknownNodeError[T]{ID: dependent}
	}
	to, ok := d.Vertices[dependency]
	if !ok {
		return &UnknownNodeError[T]{ID: dependency}
	}
	if dependent == dependency {
		return fmt.Errorf("self references are not allowed: %v", dependent)
	}
	from.DependsOn[dependency] = struct{}{}
	to.DependedBy[dependent] = struct{}{}
	return nil
}

// HasNode reports whether the given ID exists in the graph.
func (d *DirectedAcyclicGraph[T]) HasNode(id T) bool {
	_, ok := d.Vertices[id]
	return ok
}

// Dependencies returns the direct dependencies of a node, sorted for
// deterministic output.
func (d *DirectedAcyclicGraph[T]) Dependencies(id T) []T {
	v, ok := d.Vertices[id]
	if !ok {
		return nil
	}
	return sortedKeys(v.DependsOn)
}

// Dependents returns the direct dependents of a node, sorted for
// deterministic output.
func (d *DirectedAcyclicGraph[T]) Dependents(id T) []T {
	v, ok := d.Vertices[id]
	if !ok {
		return nil
	}
	return sortedKeys(v.DependedBy)
}

// TopologicalOrder returns the nodes in dependency order using Kahn's
// algorithm: every dependency appears strictly before its dependents.
// Ties between simultaneously-ready nodes are broken by insertion
// order, which keeps the output deterministic.
//
// If the graph contains a cycle, a CycleError carrying one concrete
// offending cycle is returned.
func (d *DirectedAcyclicGraph[T]) TopologicalOrder() ([]T, error) {
	inDegree := make(map[T]int, len(d.Vertices))
	for id, v := range d.Vertices {
		inDegree[id] = len(v.DependsOn)
	}

	// Seed the queue with zero-in-degree nodes in insertion order.
	var queue []*Vertex[T]
	for _, v := range d.verticesByOrder() {
		if inDegree[v.ID] == 0 {
			queue = append(queue, v)
		}
	}

	order := make([]T, 0, len(d.Vertices))
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v.ID)

		// Releasing v may unblock its dependents. Visit them in
		// insertion order to keep the queue stable.
		for _, dep := range d.sortedByOrder(v.DependedBy) {
			inDegree[dep.ID]--
			if inDegree[dep.ID] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) < len(d.Vertices) {
		// The nodes still blocked are part of, or downstream of, a
		// cycle. Recover a concrete cycle to report.
		cycles := d.FindCycles()
		if len(cycles) == 0 {
			// Unexpected: a shortfall implies a cycle.
			return nil, &CycleError[T]{}
		}
		return nil, &CycleError[T]{Cycle: cycles[0]}
	}
	return order, nil
}

// FindCycles returns the cycles present in the graph, each as a closed
// walk with the first ID repeated at the end. Independent cycles are
// reported separately; an acyclic graph yields nil.
func (d *DirectedAcyclicGraph[T]) FindCycles() [][]T {
	visited := make(map[T]bool)
	recStack := make(map[T]bool)
	var cycles [][]T
	var path []T

	var dfs func(node T) bool
	dfs = func(node T) bool {
		visited[node] = true
		recStack[node] = true
		path = append(path, node)

		for _, dep := range d.sortedByOrder(d.Vertices[node].DependsOn) {
			if !visited[dep.ID] {
				if dfs(dep.ID) {
					return true
				}
			} else if recStack[dep.ID] {
				// Close the cycle: slice the path from the first
				// occurrence of the revisited node and append it again.
				start := slices.Index(path, dep.ID)
				cycle := append(slices.Clone(path[start:]), dep.ID)
				cycles = append(cycles, cycle)
				return true
			}
		}

		recStack[node] = false
		path = path[:len(path)-1]
		return false
	}

	for _, v := range d.verticesByOrder() {
		if !visited[v.ID] {
			path = path[:0]
			clear(recStack)
			dfs(v.ID)
		}
	}
	return cycles
}

// RootNodes returns the nodes with no dependencies, i.e. the safe
// apply-first candidates. Output is in insertion order.
func (d *DirectedAcyclicGraph[T]) RootNodes() []T {
	var roots []T
	for _, v := range d.verticesByOrder() {
		if len(v.DependsOn) == 0 {
			roots = append(roots, v.ID)
		}
	}
	return roots
}

// LeafNodes returns the nodes with no dependents, i.e. the safe
// delete-first candidates. Output is in insertion order.
func (d *DirectedAcyclicGraph[T]) LeafNodes() []T {
	var leaves []T
	for _, v := range d.verticesByOrder() {
		if len(v.DependedBy) == 0 {
			leaves = append(leaves, v.ID)
		}
	}
	return leaves
}

// Subgraph returns a new graph containing only the given IDs and the
// edges whose both endpoints are in the set. Unknown IDs are ignored.
// The returned graph is fully independent of the original.
func (d *DirectedAcyclicGraph[T]) Subgraph(ids []T) *DirectedAcyclicGraph[T] {
	keep := make(map[T]struct{}, len(ids))
	for _, id := range ids {
		if d.HasNode(id) {
			keep[id] = struct{}{}
		}
	}

	sub := NewDirectedAcyclicGraph[T]()
	for _, v := range d.verticesByOrder() {
		if _, ok := keep[v.ID]; !ok {
			continue
		}
		sub.Vertices[v.ID] = &Vertex[T]{
			ID:         v.ID,
			Order:      len(sub.Vertices),
			DependsOn:  make(map[T]struct{}),
			DependedBy: make(map[T]struct{}),
		}
	}
	for id := range keep {
		for dep := range d.Vertices[id].DependsOn {
			if _, ok := keep[dep]; ok {
				sub.Vertices[id].DependsOn[dep] = struct{}{}
				sub.Vertices[dep].DependedBy[id] = struct{}{}
			}
		}
	}
	return sub
}

// Clone returns a deep-independent copy of the graph. Mutating the
// clone never affects the original.
func (d *DirectedAcyclicGraph[T]) Clone() *DirectedAcyclicGraph[T] {
	clone := NewDirectedAcyclicGraph[T]()
	for id, v := range d.Vertices {
		cv := &Vertex[T]{
			ID:         id,
			Order:      v.Order,
			DependsOn:  make(map[T]struct{}, len(v.DependsOn)),
			DependedBy: make(map[T]struct{}, len(v.DependedBy)),
		}
		for dep := range v.DependsOn {
			cv.DependsOn[dep] = struct{}{}
		}
		for dep := range v.DependedBy {
			cv.DependedBy[dep] = struct{}{}
		}
		clone.Vertices[id] = cv
	}
	return clone
}

// verticesByOrder returns all vertices sorted by insertion order.
func (d *DirectedAcyclicGraph[T]) verticesByOrder() []*Vertex[T] {
	vertices := make([]*Vertex[T], 0, len(d.Vertices))
	for _, v := range d.Vertices {
		vertices = append(vertices, v)
	}
	slices.SortFunc(vertices, func(a, b *Vertex[T]) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return vertices
}

// sortedByOrder returns the vertices for the given ID set in insertion
// order.
func (d *DirectedAcyclicGraph[T]) sortedByOrder(ids map[T]struct{}) []*Vertex[T] {
	vertices := make([]*Vertex[T], 0, len(ids))
	for id := range ids {
		vertices = append(vertices, d.Vertices[id])
	}
	slices.SortFunc(vertices, func(a, b *Vertex[T]) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return vertices
}

func sortedKeys[T cmp.Ordered](m map[T]struct{}) []T {
	out := make([]T, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
