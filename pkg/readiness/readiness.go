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

// Package readiness maps resource kinds to pure predicate functions
// over live resource state. The registry is injected into the
// deployment orchestrator rather than being a process-wide singleton,
// so concurrent deployments never share hidden mutable state.
package readiness

import (
	"sync"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Result is the outcome of one readiness evaluation. Results are never
// cached past a single evaluation: live state can change between polls.
type Result struct {
	// Ready is true when the resource has reached its desired state.
	Ready bool `json:"ready"`
	// Failed is true when the resource has reached an explicit failure
	// condition that waiting will not fix. Failed implies !Ready.
	Failed bool `json:"failed,omitempty"`
	// Reason is a short machine-oriented cause, e.g. "ReplicasPending".
	Reason string `json:"reason,omitempty"`
	// Message is a human-oriented diagnostic.
	Message string `json:"message,omitempty"`
	// Details carries evaluator-specific observations.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Ready returns the ready result.
func Ready() Result {
	return Result{Ready: true}
}

// NotReady returns a not-ready result with a diagnostic.
func NotReady(reason, message string) Result {
	return Result{Reason: reason, Message: message}
}

// Failure returns an explicit failure result. The orchestrator treats
// this as fatal for the resource, distinct from a timeout.
func Failure(reason, message string) Result {
	return Result{Failed: true, Reason: reason, Message: message}
}

// Evaluator inspects a live resource's observed state and reports
// whether it is ready. Evaluators must be pure and must never panic on
// missing status fields: absence of status is a valid not-ready
// outcome, not an error.
type Evaluator func(obj *unstructured.Unstructured) Result

// Registry is a lookup table from resource kind to readiness
// evaluator. Registration is last-write-wins per kind. The registry is
// safe for concurrent use; reads vastly outnumber writes, which only
// happen at resource-definition time.
type Registry struct {
	mu         sync.RWMutex
	evaluators map[string]Evaluator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{evaluators: make(map[string]Evaluator)}
}

// RegisterForKind registers an evaluator for a resource kind,
// replacing any previous registration for that kind.
func (r *Registry) RegisterForKind(kind string, evaluator Evaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluators[kind] = evaluator
}

// EvaluatorForKind returns the evaluator registered for a kind, or nil
// when none is registered. The "assume ready once it exists" fallback
// for unregistered kinds is the caller's policy, not the registry's.
func (r *Registry) EvaluatorForKind(kind string) Evaluator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.evaluators[kind]
}

// HasEvaluatorForKind reports whether a kind has a registered
// evaluator.
func (r *Registry) HasEvaluatorForKind(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.evaluators[kind]
	return ok
}

// Kinds returns the registered kinds, for diagnostics.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.evaluators))
	for kind := range r.evaluators {
		kinds = append(kinds, kind)
	}
	return kinds
}
