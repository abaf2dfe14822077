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

// Package graph builds dependency graphs of Kubernetes resources whose
// manifests reference each other through expression fields, and
// compiles them into ResourceGraphDefinition documents.
package graph

import (
	"encoding/json"
	"fmt"

	extv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/kube-openapi/pkg/validation/spec"
	"sigs.k8s.io/yaml"

	"github.com/kro-run/kro-sdk/api/v1alpha1"
	"github.com/kro-run/kro-sdk/pkg/graph/crd"
	"github.com/kro-run/kro-sdk/pkg/graph/dag"
	"github.com/kro-run/kro-sdk/pkg/graph/emulator"
)

// Graph is a validated resource graph: the DAG over resource ids, the
// analyzed resources and their deterministic topological order.
type Graph struct {
	// DAG is the directed acyclic graph over the resource ids.
	DAG *dag.DirectedAcyclicGraph[string]
	// Resources maps each id to its analyzed resource.
	Resources map[string]*Resource
	// TopologicalOrder lists the ids dependency-first.
	TopologicalOrder []string
}

// ReferenceRecord is one discovered cross-resource reference: the
// dependent resource, the resource it reads from and the field path it
// reads.
type ReferenceRecord struct {
	From  string
	To    string
	Field string
}

// References returns every cross-resource reference in the graph, in
// topological order of the referencing resource. Schema references are
// not included; they point outside the graph.
func (g *Graph) References() []ReferenceRecord {
	var records []ReferenceRecord
	for _, id := range g.TopologicalOrder {
		for _, field := range g.Resources[id].GetFields() {
			for _, ref := range field.References {
				if ref.IsSchema() {
					continue
				}
				records = append(records, ReferenceRecord{
					From:  id,
					To:    ref.ResourceID,
					Field: ref.FieldPath,
				})
			}
		}
	}
	return records
}

// SchemaDefinition describes the instance schema of the compiled
// artifact: the API the external controller serves for this graph.
type SchemaDefinition struct {
	// Kind is the UpperCamelCase kind of the instance API.
	Kind string
	// APIVersion is the served version, e.g. "v1alpha1".
	APIVersion string
	// Spec holds the simple-schema input field definitions.
	Spec map[string]interface{}
	// Status holds the simple-schema output field definitions.
	Status map[string]interface{}
}

// CompileOptions names the compiled artifact and describes its
// instance schema.
type CompileOptions struct {
	Name      string
	Namespace string
	Schema    SchemaDefinition
}

// Compile emits the graph as a ResourceGraphDefinition document. The
// resources section lists every resource in topological order with its
// reference-rewritten template; the order is deterministic so repeated
// compiles of the same graph produce byte-identical output.
func (g *Graph) Compile(opts CompileOptions) (*v1alpha1.ResourceGraphDefinition, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("compile requires a name")
	}
	if err := validateKindName(opts.Schema.Kind); err != nil {
		return nil, err
	}

	schema := &v1alpha1.Schema{
		Kind:       opts.Schema.Kind,
		APIVersion: opts.Schema.APIVersion,
	}
	if schema.APIVersion == "" {
		schema.APIVersion = "v1alpha1"
	}
	var err error
	if schema.Spec, err = rawExtension(opts.Schema.Spec); err != nil {
		return nil, fmt.Errorf("failed encoding schema spec: %w", err)
	}
	if schema.Status, err = rawExtension(opts.Schema.Status); err != nil {
		return nil, fmt.Errorf("failed encoding schema status: %w", err)
	}

	resources := make([]*v1alpha1.Resource, 0, len(g.TopologicalOrder))
	for _, id := range g.TopologicalOrder {
		resource := g.Resources[id]
		template, err := rawExtension(resource.Unstructured().Object)
		if err != nil {
			return nil, fmt.Errorf("failed encoding template of resource %s: %w", id, err)
		}
		resources = append(resources, &v1alpha1.Resource{
			ID:       id,
			Template: template,
		})
	}

	return &v1alpha1.ResourceGraphDefinition{
		TypeMeta: metav1.TypeMeta{
			APIVersion: v1alpha1.GroupVersion,
			Kind:       v1alpha1.ResourceGraphDefinitionKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      opts.Name,
			Namespace: opts.Namespace,
		},
		Spec: v1alpha1.ResourceGraphDefinitionSpec{
			Schema:    schema,
			Resources: resources,
		},
	}, nil
}

// InstanceCRD synthesizes the CustomResourceDefinition serving the
// graph's instance API, so the schema can be installed on clusters
// running the external controller.
func (g *Graph) InstanceCRD(def SchemaDefinition) (*extv1.CustomResourceDefinition, error) {
	if err := validateKindName(def.Kind); err != nil {
		return nil, err
	}
	apiVersion := def.APIVersion
	if apiVersion == "" {
		apiVersion = "v1alpha1"
	}
	spec, err := crd.ToOpenAPISpec(def.Spec)
	if err != nil {
		return nil, fmt.Errorf("failed building spec schema: %w", err)
	}
	status, err := crd.ToOpenAPISpec(def.Status)
	if err != nil {
		return nil, fmt.Errorf("failed building status schema: %w", err)
	}
	return crd.SynthesizeCRD(apiVersion, def.Kind, *spec, *status), nil
}

// SampleInstance generates a sample instance manifest for the graph's
// schema: declared defaults, deterministic placeholders for everything
// else. Useful as a starting point for instance documents.
func (g *Graph) SampleInstance(def SchemaDefinition) (*unstructured.Unstructured, error) {
	if err := validateKindName(def.Kind); err != nil {
		return nil, err
	}
	apiVersion := def.APIVersion
	if apiVersion == "" {
		apiVersion = "v1alpha1"
	}
	specProps, err := crd.ToOpenAPISpec(def.Spec)
	if err != nil {
		return nil, fmt.Errorf("failed building spec schema: %w", err)
	}
	specSchema, err := crd.ToSpecSchema(specProps)
	if err != nil {
		return nil, fmt.Errorf("failed converting spec schema: %w", err)
	}
	root := &spec.Schema{
		SchemaProps: spec.SchemaProps{
			Type:       spec.StringOrArray{"object"},
			Properties: map[string]spec.Schema{"spec": *specSchema},
		},
	}
	gvk := schema.GroupVersionKind{
		Group:   v1alpha1.KroDomainName,
		Version: apiVersion,
		Kind:    def.Kind,
	}
	return emulator.NewEmulator().GenerateSampleCR(gvk, root)
}

// CompileToYAML compiles the graph and marshals the document to YAML.
func (g *Graph) CompileToYAML(opts CompileOptions) ([]byte, error) {
	rgd, err := g.Compile(opts)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(rgd)
}

func rawExtension(v interface{}) (runtime.RawExtension, error) {
	if v == nil {
		return runtime.RawExtension{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return runtime.RawExtension{}, err
	}
	return runtime.RawExtension{Raw: raw}, nil
}
