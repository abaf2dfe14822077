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
	"fmt"
	"time"
)

// ResourceApplyError wraps an API failure while creating or patching a
// resource, carrying enough identity for a user-facing message.
type ResourceApplyError struct {
	ResourceID string
	Kind       string
	Name       string
	Err        error
}

func (e *ResourceApplyError) Error() string {
	return fmt.Sprintf("failed to apply resource %s (%s/%s): %v", e.ResourceID, e.Kind, e.Name, e.Err)
}

func (e *ResourceApplyError) Unwrap() error {
	return e.Err
}

// ReadinessTimeoutError reports that a resource did not become ready
// within its wait budget. Distinct from ReadinessFailureError: the
// resource may still converge after the deployer gave up.
type ReadinessTimeoutError struct {
	ResourceID string
	Kind       string
	Timeout    time.Duration
	// LastReason is the reason of the last evaluator verdict, when one
	// was observed.
	LastReason string
}

func (e *ReadinessTimeoutError) Error() string {
	msg := fmt.Sprintf("resource %s (%s) did not become ready within %s", e.ResourceID, e.Kind, e.Timeout)
	if e.LastReason != "" {
		msg += fmt.Sprintf(": last reason: %s", e.LastReason)
	}
	return msg
}

// ReadinessFailureError reports that a readiness evaluator observed an
// explicit failure condition. The resource will not converge without
// intervention.
type ReadinessFailureError struct {
	ResourceID string
	Kind       string
	Reason     string
	Message    string
}

func (e *ReadinessFailureError) Error() string {
	return fmt.Sprintf("resource %s (%s) failed readiness: %s: %s", e.ResourceID, e.Kind, e.Reason, e.Message)
}

// SkippedDependencyError marks a resource that was never attempted
// because a dependency failed.
type SkippedDependencyError struct {
	ResourceID string
	Dependency string
}

func (e *SkippedDependencyError) Error() string {
	return fmt.Sprintf("resource %s skipped: dependency %s failed", e.ResourceID, e.Dependency)
}
