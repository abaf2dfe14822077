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

package metadata

import (
	"errors"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kro-run/kro-sdk/api/v1alpha1"
)

const (
	// LabelKroPrefix is the label key prefix used to identify kro
	// owned resources.
	LabelKroPrefix = v1alpha1.KroDomainName + "/"
)

const (
	OwnedLabel      = LabelKroPrefix + "owned"
	NodeIDLabel     = LabelKroPrefix + "node-id"
	GraphNameLabel  = LabelKroPrefix + "graph-name"
	DeploymentLabel = LabelKroPrefix + "deployment-id"
)

var (
	ErrDuplicatedLabels = errors.New("duplicate labels")
)

var _ Labeler = GenericLabeler{}

// Labeler is an interface that defines a set of labels that can be
// applied to a resource.
type Labeler interface {
	Labels() map[string]string
	ApplyLabels(metav1.Object)
	Merge(Labeler) (Labeler, error)
}

// GenericLabeler is a map of labels that can be applied to a resource.
// It implements the Labeler interface.
type GenericLabeler map[string]string

// Labels returns the labels.
func (gl GenericLabeler) Labels() map[string]string {
	return gl
}

// ApplyLabels applies the labels to the resource.
func (gl GenericLabeler) ApplyLabels(meta metav1.Object) {
	for k, v := range gl {
		setLabel(meta, k, v)
	}
}

// Merge merges the labels from the other labeler into the current
// labeler. If there are any duplicate keys, an error is returned.
func (gl GenericLabeler) Merge(other Labeler) (Labeler, error) {
	newLabels := gl.Copy()
	for k, v := range other.Labels() {
		if _, ok := newLabels[k]; ok {
			return nil, fmt.Errorf("%w: found key '%s' in both maps", ErrDuplicatedLabels, k)
		}
		newLabels[k] = v
	}
	return GenericLabeler(newLabels), nil
}

// Copy returns a copy of the labels.
func (gl GenericLabeler) Copy() map[string]string {
	newGenericLabeler := map[string]string{}
	for k, v := range gl {
		newGenericLabeler[k] = v
	}
	return newGenericLabeler
}

// NewGraphLabeler returns a labeler that marks a resource as owned by
// the named graph node.
func NewGraphLabeler(graphName, nodeID string) GenericLabeler {
	return GenericLabeler{
		OwnedLabel:     "true",
		GraphNameLabel: graphName,
		NodeIDLabel:    nodeID,
	}
}

// IsOwned returns true if the resource carries the kro owned label.
func IsOwned(meta metav1.Object) bool {
	v, ok := meta.GetLabels()[OwnedLabel]
	return ok && v == "true"
}

func setLabel(meta metav1.Object, key, value string) {
	labels := meta.GetLabels()
	if labels == nil {
		labels = map[string]string{}
	}
	labels[key] = value
	meta.SetLabels(labels)
}
