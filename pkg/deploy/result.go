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

package deploy

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kro-run/kro-sdk/pkg/readiness"
)

// Status summarizes a whole deployment.
type Status string

const (
	// StatusSucceeded means every resource applied and became ready.
	StatusSucceeded Status = "succeeded"
	// StatusPartial means some resources succeeded and some failed,
	// timed out or were skipped.
	StatusPartial Status = "partial"
	// StatusFailed means nothing usable was applied.
	StatusFailed Status = "failed"
)

// AppliedResource records one successfully applied resource.
type AppliedResource struct {
	// ID is the resource's graph id.
	ID string
	// Manifest is the resolved manifest as applied to the cluster.
	Manifest *unstructured.Unstructured
	// Readiness is the evaluator verdict that unblocked dependents.
	Readiness readiness.Result
}

// ResourceError records one failed resource.
type ResourceError struct {
	ResourceID string
	Err        error
}

// Result is the immutable outcome of one deployment invocation.
type Result struct {
	// Status distinguishes succeeded, partial and failed outcomes.
	Status Status
	// AppliedResources lists the resources applied, in completion
	// order.
	AppliedResources []AppliedResource
	// Errors lists per-resource failures, including skipped
	// dependents of failed resources.
	Errors []ResourceError
	// Skipped lists the ids never attempted because a dependency
	// failed or the deployment was cancelled.
	Skipped []string
}

// Applied reports whether the given resource id was applied.
func (r *Result) Applied(id string) bool {
	for _, applied := range r.AppliedResources {
		if applied.ID == id {
			return true
		}
	}
	return false
}

func (r *Result) finalize() {
	switch {
	case len(r.Errors) == 0 && len(r.Skipped) == 0:
		r.Status = StatusSucceeded
	case len(r.AppliedResources) == 0:
		r.Status = StatusFailed
	default:
		r.Status = StatusPartial
	}
}
