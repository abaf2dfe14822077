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
	"slices"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/kro-run/kro-sdk/pkg/expr"
	"github.com/kro-run/kro-sdk/pkg/metadata"
	"github.com/kro-run/kro-sdk/pkg/readiness"
)

// Resource is one node of a built resource graph. It owns the
// reference-rewritten template and the metadata the compiler and the
// deployer both need.
type Resource struct {
	// id is the stable identifier of the resource within the graph.
	id string
	// gvk is the group, version and kind of the resource.
	gvk schema.GroupVersionKind
	// template is the resource manifest with every expression leaf
	// replaced by its rendered ${...} form.
	template *unstructured.Unstructured
	// fields describes each expression field of the template.
	fields []expr.FieldDescriptor
	// dependencies are the ids of the resources this resource
	// references, in discovery order.
	dependencies []string
	// readinessEvaluator, when set, overrides the registry evaluator
	// for this resource during deployment.
	readinessEvaluator readiness.Evaluator
	// namespaced marks whether the resource kind is namespace scoped.
	namespaced bool
}

// GetID returns the id of the resource.
func (r *Resource) GetID() string {
	return r.id
}

// GetGroupVersionKind returns the GVK of the resource.
func (r *Resource) GetGroupVersionKind() schema.GroupVersionKind {
	return r.gvk
}

// GetGroupVersionResource returns the GVR of the resource, derived
// from the kind by pluralization.
func (r *Resource) GetGroupVersionResource() schema.GroupVersionResource {
	return metadata.GVKtoGVR(r.gvk)
}

// Unstructured returns the reference-rewritten template.
func (r *Resource) Unstructured() *unstructured.Unstructured {
	return r.template
}

// GetFields returns the expression field descriptors of the template.
func (r *Resource) GetFields() []expr.FieldDescriptor {
	return r.fields
}

// GetDependencies returns the ids of the resources this resource
// depends on.
func (r *Resource) GetDependencies() []string {
	return r.dependencies
}

// HasDependency checks if the resource depends on the given resource.
func (r *Resource) HasDependency(dep string) bool {
	return slices.Contains(r.dependencies, dep)
}

// GetReadinessEvaluator returns the per-resource readiness override,
// or nil when the registry evaluator should be used.
func (r *Resource) GetReadinessEvaluator() readiness.Evaluator {
	return r.readinessEvaluator
}

// IsNamespaced returns whether the resource kind is namespace scoped.
func (r *Resource) IsNamespaced() bool {
	return r.namespaced
}

// DeepCopy returns a copy of the resource that shares no mutable
// state with the original.
func (r *Resource) DeepCopy() *Resource {
	return &Resource{
		id:                 r.id,
		gvk:                r.gvk,
		template:           r.template.DeepCopy(),
		fields:             slices.Clone(r.fields),
		dependencies:       slices.Clone(r.dependencies),
		readinessEvaluator: r.readinessEvaluator,
		namespaced:         r.namespaced,
	}
}

func (r *Resource) addDependency(dep string) {
	if !r.HasDependency(dep) {
		r.dependencies = append(r.dependencies, dep)
	}
}
