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
	"fmt"
	"strings"

	"github.com/gobuffalo/flect"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// ExtractGVKFromUnstructured extracts the GroupVersionKind from an
// unstructured object's apiVersion and kind fields.
func ExtractGVKFromUnstructured(obj map[string]interface{}) (schema.GroupVersionKind, error) {
	kind, ok := obj["kind"].(string)
	if !ok || kind == "" {
		return schema.GroupVersionKind{}, fmt.Errorf("kind not found or not a string")
	}

	apiVersion, ok := obj["apiVersion"].(string)
	if !ok || apiVersion == "" {
		return schema.GroupVersionKind{}, fmt.Errorf("apiVersion not found or not a string")
	}

	parts := strings.Split(apiVersion, "/")
	if len(parts) > 2 {
		return schema.GroupVersionKind{}, fmt.Errorf("invalid apiVersion format: %s", apiVersion)
	}

	var group, version string
	if len(parts) == 2 {
		group, version = parts[0], parts[1]
	} else {
		version = parts[0]
	}

	return schema.GroupVersionKind{
		Group:   group,
		Version: version,
		Kind:    kind,
	}, nil
}

// GVKtoGVR derives the GroupVersionResource for a kind by
// pluralization. Custom resources with irregular plurals need an
// explicit resource name instead.
func GVKtoGVR(gvk schema.GroupVersionKind) schema.GroupVersionResource {
	plural := flect.Pluralize(gvk.Kind)
	return schema.GroupVersionResource{
		Group:    gvk.Group,
		Version:  gvk.Version,
		Resource: strings.ToLower(plural),
	}
}

// GVRtoGVK is the inverse of GVKtoGVR for regular plurals.
func GVRtoGVK(gvr schema.GroupVersionResource) schema.GroupVersionKind {
	singular := flect.Singularize(gvr.Resource)
	return schema.GroupVersionKind{
		Group:   gvr.Group,
		Version: gvr.Version,
		Kind:    flect.Pascalize(singular),
	}
}
