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

package crd

import (
	extv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
)

var (
	defaultStateType = extv1.JSONSchemaProps{
		Type: "string",
	}
	defaultConditionsType = extv1.JSONSchemaProps{
		Type: "array",
		Items: &extv1.JSONSchemaPropsOrArray{
			Schema: &extv1.JSONSchemaProps{
				Type: "object",
				Properties: map[string]extv1.JSONSchemaProps{
					"type": {
						Type: "string",
					},
					"status": {
						Type: "string",
					},
					"reason": {
						Type: "string",
					},
					"message": {
						Type: "string",
					},
					"lastTransitionTime": {
						Type: "string",
					},
					"observedGeneration": {
						Type: "integer",
					},
				},
			},
		},
	}

	// defaultAdditionalPrinterColumns specifies additional columns
	// returned in Table output for graph instances.
	defaultAdditionalPrinterColumns = []extv1.CustomResourceColumnDefinition{
		{
			Name:        "State",
			Description: "The state of a graph instance",
			Priority:    0,
			Type:        "string",
			JSONPath:    ".status.state",
		},
		{
			Name:        "Synced",
			Description: "Whether a graph instance has all its subresources ready",
			Priority:    0,
			Type:        "string",
			JSONPath:    ".status.conditions[?(@.type==\"InstanceSynced\")].status",
		},
		{
			Name:        "Age",
			Description: "Age of the resource",
			Priority:    0,
			Type:        "date",
			JSONPath:    ".metadata.creationTimestamp",
		},
	}
)
