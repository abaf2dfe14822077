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

// Package v1alpha1 holds the serialized shape of compiled resource
// graph definitions: the declarative artifact handed to the kro
// controller for continuous reference resolution. The SDK only writes
// these documents; the controller owns their runtime semantics.
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

const (
	// KroDomainName is the domain name owning the kro API group and
	// the label namespace.
	KroDomainName = "kro.run"
	// GroupVersion is the apiVersion of compiled artifacts.
	GroupVersion = KroDomainName + "/v1alpha1"
	// ResourceGraphDefinitionKind is the kind of compiled artifacts.
	ResourceGraphDefinitionKind = "ResourceGraphDefinition"
)

// ResourceGraphDefinitionSpec defines the desired state of a resource
// graph definition.
type ResourceGraphDefinitionSpec struct {
	// Schema defines the API of the graph instance: its kind,
	// apiVersion, and the user-facing spec and status fields. Cross
	// resource references against the graph input resolve into the
	// spec fields declared here.
	Schema *Schema `json:"schema,omitempty"`

	// Resources is the list of resources the graph manages. Each
	// template may contain ${...} expressions referencing the schema
	// or sibling resources.
	Resources []*Resource `json:"resources,omitempty"`
}

// Schema represents the attributes that define an instance of a
// resource graph definition.
type Schema struct {
	// Kind is the kind of the graph instance, e.g. "WebApp".
	Kind string `json:"kind,omitempty"`
	// APIVersion is the version of the graph instance API, e.g.
	// "v1alpha1".
	APIVersion string `json:"apiVersion,omitempty"`
	// Spec holds the field definitions of the instance spec.
	Spec runtime.RawExtension `json:"spec,omitempty"`
	// Status holds the field definitions of the instance status.
	// Status fields are typically expressions over the managed
	// resources' observed state.
	Status runtime.RawExtension `json:"status,omitempty"`
}

// Resource is one managed resource entry of the graph.
type Resource struct {
	// ID is the stable identifier other resources use to reference
	// this resource's fields.
	ID string `json:"id,omitempty"`
	// Template is the resource manifest with every cross-resource
	// reference rewritten as a target expression.
	Template runtime.RawExtension `json:"template,omitempty"`
	// ReadyWhen lists expressions that must all evaluate to true
	// before the resource is considered ready.
	ReadyWhen []string `json:"readyWhen,omitempty"`
	// IncludeWhen lists expressions over the schema deciding whether
	// the resource is instantiated at all.
	IncludeWhen []string `json:"includeWhen,omitempty"`
}

// ResourceGraphDefinition is the compiled, reference-rewritten
// declarative artifact for the kro controller.
type ResourceGraphDefinition struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ResourceGraphDefinitionSpec `json:"spec,omitempty"`
}

// ResourceGraphDefinitionList contains a list of ResourceGraphDefinition.
type ResourceGraphDefinitionList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ResourceGraphDefinition `json:"items"`
}
