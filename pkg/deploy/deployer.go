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

// Package deploy applies a resource graph directly to a cluster,
// resolving cross-resource references against live state as the
// rollout advances through the graph's topological order.
package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/exp/maps"
	"golang.org/x/time/rate"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/dynamic"

	krocel "github.com/kro-run/kro-sdk/pkg/cel"
	"github.com/kro-run/kro-sdk/pkg/expr"
	"github.com/kro-run/kro-sdk/pkg/graph"
	"github.com/kro-run/kro-sdk/pkg/metadata"
	"github.com/kro-run/kro-sdk/pkg/readiness"
	"github.com/kro-run/kro-sdk/pkg/runtime/resolver"
)

// Deployer rolls a resource graph out to a cluster. A Deployer is
// reusable across graphs; each Deploy call owns its graph exclusively
// for the duration of the call.
type Deployer struct {
	client   dynamic.Interface
	registry *readiness.Registry
	log      logr.Logger
	opts     Options
	limiter  *rate.Limiter
}

// NewDeployer creates a Deployer. The registry decides readiness per
// kind; a nil registry means no kind has an evaluator.
func NewDeployer(client dynamic.Interface, registry *readiness.Registry, log logr.Logger, opts Options) *Deployer {
	opts.applyDefaults()
	if registry == nil {
		registry = readiness.NewRegistry()
	}
	d := &Deployer{
		client:   client,
		registry: registry,
		log:      log.WithName("deployer"),
		opts:     opts,
	}
	if opts.QPS > 0 {
		d.limiter = rate.NewLimiter(opts.QPS, opts.Burst)
	}
	return d
}

// Deploy applies every resource of the graph in dependency order.
// Independent subtrees advance concurrently; a node is dispatched only
// after all its dependencies are ready so its expressions always
// resolve against fully-ready live state. A failure halts only the
// failed resource's dependents; sibling subtrees finish. Cancelling
// the context stops new dispatches, lets in-flight applies finish and
// returns a result reflecting exactly what was applied.
func (d *Deployer) Deploy(ctx context.Context, g *graph.Graph, inputs map[string]interface{}) (*Result, error) {
	if d.opts.DeploymentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.DeploymentTimeout)
		defer cancel()
	}
	run := &deployRun{
		deployer: d,
		graph:    g,
		inputs:   inputs,
		live:     make(map[string]interface{}),
		skipped:  make(map[string]struct{}),
		result:   &Result{},
	}
	return run.execute(ctx), nil
}

// deployRun is the per-invocation scheduler state. Only the
// coordinating goroutine touches it; workers communicate through the
// completions channel.
type deployRun struct {
	deployer *Deployer
	graph    *graph.Graph
	inputs   map[string]interface{}
	live     map[string]interface{}
	skipped  map[string]struct{}
	result   *Result
}

type completion struct {
	id      string
	applied *unstructured.Unstructured
	verdict readiness.Result
	err     error
}

func (r *deployRun) execute(ctx context.Context) *Result {
	remaining := make(map[string]int, len(r.graph.Resources))
	var queue []string
	for _, id := range r.graph.TopologicalOrder {
		remaining[id] = len(r.graph.Resources[id].GetDependencies())
		if remaining[id] == 0 {
			queue = append(queue, id)
		}
	}

	completions := make(chan completion)
	inFlight := 0

	for len(queue) > 0 || inFlight > 0 {
		if ctx.Err() != nil {
			for _, id := range queue {
				r.skipSubtree(id)
			}
			queue = nil
		}

		for len(queue) > 0 && inFlight < r.deployer.opts.MaxConcurrency {
			id := queue[0]
			queue = queue[1:]
			resource := r.graph.Resources[id]
			evalContext := r.evalContext(id)
			inFlight++
			go func() {
				applied, verdict, err := r.deployer.processResource(ctx, resource, evalContext)
				completions <- completion{id: id, applied: applied, verdict: verdict, err: err}
			}()
		}

		if inFlight == 0 {
			break
		}
		c := <-completions
		inFlight--

		if c.err != nil {
			r.result.Errors = append(r.result.Errors, ResourceError{ResourceID: c.id, Err: c.err})
			r.skipDependents(c.id)
			continue
		}
		r.result.AppliedResources = append(r.result.AppliedResources, AppliedResource{
			ID:        c.id,
			Manifest:  c.applied,
			Readiness: c.verdict,
		})
		r.live[c.id] = c.applied.Object
		for _, dependent := range r.graph.DAG.Dependents(c.id) {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	r.result.finalize()
	return r.result
}

// evalContext snapshots the live state the resource's expressions may
// read: its dependencies' applied objects plus the schema inputs. The
// snapshot is taken on the coordinating goroutine so workers never
// race on the live map.
func (r *deployRun) evalContext(id string) map[string]interface{} {
	evalContext := map[string]interface{}{
		expr.SchemaResourceID: r.inputs,
	}
	for _, dep := range r.graph.Resources[id].GetDependencies() {
		if state, ok := r.live[dep]; ok {
			evalContext[dep] = state
		}
	}
	return evalContext
}

func (r *deployRun) skip(id string) {
	if _, done := r.skipped[id]; done {
		return
	}
	r.skipped[id] = struct{}{}
	r.result.Skipped = append(r.result.Skipped, id)
}

// skipSubtree marks a never-dispatched node and everything depending
// on it as skipped. Used on cancellation, where unlike a failure no
// per-resource error is recorded: nodes blocked on a drained
// dependency would otherwise vanish from the result.
func (r *deployRun) skipSubtree(id string) {
	if _, done := r.skipped[id]; done {
		return
	}
	r.skip(id)
	for _, dependent := range r.graph.DAG.Dependents(id) {
		r.skipSubtree(dependent)
	}
}

// skipDependents marks the whole dependent subtree of a failed
// resource as skipped: none of them can resolve a value the failed
// resource never produced.
func (r *deployRun) skipDependents(id string) {
	for _, dependent := range r.graph.DAG.Dependents(id) {
		if _, done := r.skipped[dependent]; done {
			continue
		}
		r.skip(dependent)
		r.result.Errors = append(r.result.Errors, ResourceError{
			ResourceID: dependent,
			Err:        &SkippedDependencyError{ResourceID: dependent, Dependency: id},
		})
		r.skipDependents(dependent)
	}
}

// processResource runs the per-resource state machine: resolve the
// template against live dependency state, apply it, then wait for
// readiness.
func (d *Deployer) processResource(
	ctx context.Context,
	resource *graph.Resource,
	evalContext map[string]interface{},
) (*unstructured.Unstructured, readiness.Result, error) {
	log := d.log.WithValues("resourceID", resource.GetID())
	kind := resource.GetGroupVersionKind().Kind

	resolved, err := d.resolveResource(resource, evalContext)
	if err != nil {
		resourcesFailedTotal.WithLabelValues(kind, "resolve").Inc()
		return nil, readiness.Result{}, err
	}

	metadata.NewGraphLabeler(d.opts.GraphName, resource.GetID()).ApplyLabels(resolved)

	rc := d.resourceClient(resource, resolved)
	applied, err := d.applyResource(ctx, rc, resource, resolved)
	if err != nil {
		resourcesFailedTotal.WithLabelValues(kind, "apply").Inc()
		return nil, readiness.Result{}, err
	}
	log.V(1).Info("Applied resource", "kind", kind, "name", applied.GetName())

	final, verdict, err := d.awaitReady(ctx, rc, resource, applied)
	if err != nil {
		return nil, verdict, err
	}
	resourcesAppliedTotal.WithLabelValues(kind).Inc()
	return final, verdict, nil
}

// resolveResource substitutes every expression field of the template
// with its value evaluated against the dependencies' live state. A
// dependency missing from the context is an invariant violation: the
// scheduler only dispatches a node after all its dependencies are
// ready.
func (d *Deployer) resolveResource(
	resource *graph.Resource,
	evalContext map[string]interface{},
) (*unstructured.Unstructured, error) {
	resolved := resource.Unstructured().DeepCopy()
	fields := resource.GetFields()
	if len(fields) == 0 {
		return resolved, nil
	}

	for _, dep := range resource.GetDependencies() {
		if _, ok := evalContext[dep]; !ok {
			return nil, fmt.Errorf("invariant violation: dependency %s of resource %s has no live state", dep, resource.GetID())
		}
	}

	env, err := krocel.DefaultEnvironment(krocel.WithResourceIDs(maps.Keys(evalContext)))
	if err != nil {
		return nil, fmt.Errorf("failed creating environment for resource %s: %w", resource.GetID(), err)
	}

	data := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		value, err := krocel.EvaluateExpression(env, evalContext, field.Expression)
		if err != nil {
			return nil, fmt.Errorf("failed resolving field %s of resource %s: %w", field.Path, resource.GetID(), err)
		}
		data[field.Expression] = value
	}

	summary := resolver.NewResolver(resolved.Object, data).Resolve(fields)
	if len(summary.Errors) > 0 {
		return nil, fmt.Errorf("failed resolving resource %s: %v", resource.GetID(), summary.Errors[0])
	}
	return resolved, nil
}

func (d *Deployer) resourceClient(resource *graph.Resource, resolved *unstructured.Unstructured) dynamic.ResourceInterface {
	gvr := resource.GetGroupVersionResource()
	if !resource.IsNamespaced() {
		return d.client.Resource(gvr)
	}
	namespace := resolved.GetNamespace()
	if namespace == "" {
		namespace = d.opts.Namespace
	}
	return d.client.Resource(gvr).Namespace(namespace)
}

// applyResource creates the resource, falling back to a merge patch
// when it already exists. Transient API failures are retried per the
// retry policy. The apply itself runs on a context that survives
// cancellation: an already-dispatched write is never abandoned
// mid-flight.
func (d *Deployer) applyResource(
	ctx context.Context,
	rc dynamic.ResourceInterface,
	resource *graph.Resource,
	resolved *unstructured.Unstructured,
) (*unstructured.Unstructured, error) {
	applyCtx := context.WithoutCancel(ctx)

	var applied *unstructured.Unstructured
	var lastErr error
	err := wait.ExponentialBackoff(d.opts.RetryPolicy.Backoff(), func() (bool, error) {
		if d.limiter != nil {
			if err := d.limiter.Wait(applyCtx); err != nil {
				return false, err
			}
		}
		created, err := rc.Create(applyCtx, resolved, metav1.CreateOptions{})
		if err == nil {
			applied = created
			return true, nil
		}
		if apierrors.IsAlreadyExists(err) {
			raw, merr := json.Marshal(resolved.Object)
			if merr != nil {
				return false, merr
			}
			patched, perr := rc.Patch(applyCtx, resolved.GetName(), types.MergePatchType, raw, metav1.PatchOptions{})
			if perr != nil {
				if isTransient(perr) {
					lastErr = perr
					return false, nil
				}
				return false, perr
			}
			applied = patched
			return true, nil
		}
		if isTransient(err) {
			lastErr = err
			return false, nil
		}
		return false, err
	})
	if err != nil {
		if wait.Interrupted(err) && lastErr != nil {
			err = lastErr
		}
		return nil, &ResourceApplyError{
			ResourceID: resource.GetID(),
			Kind:       resource.GetGroupVersionKind().Kind,
			Name:       resolved.GetName(),
			Err:        err,
		}
	}
	return applied, nil
}

func isTransient(err error) bool {
	return apierrors.IsServerTimeout(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err) ||
		apierrors.IsInternalError(err) ||
		apierrors.IsConflict(err)
}

// awaitReady polls the kind's readiness evaluator against freshly
// read live state. An explicit failure verdict is fatal immediately; a
// wait budget overrun fails with a distinct timeout error. A kind with
// no evaluator is ready as soon as the apply succeeds.
func (d *Deployer) awaitReady(
	ctx context.Context,
	rc dynamic.ResourceInterface,
	resource *graph.Resource,
	applied *unstructured.Unstructured,
) (*unstructured.Unstructured, readiness.Result, error) {
	kind := resource.GetGroupVersionKind().Kind
	evaluator := resource.GetReadinessEvaluator()
	if evaluator == nil {
		evaluator = d.registry.EvaluatorForKind(kind)
	}
	if evaluator == nil || !d.opts.WaitForReady {
		return applied, readiness.Ready(), nil
	}

	start := time.Now()
	defer func() {
		readinessWaitDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	timeout := time.NewTimer(d.opts.ReadinessTimeout)
	defer timeout.Stop()
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	current := applied
	for {
		verdict := evaluator(current)
		if verdict.Failed {
			resourcesFailedTotal.WithLabelValues(kind, "readiness_failure").Inc()
			return nil, verdict, &ReadinessFailureError{
				ResourceID: resource.GetID(),
				Kind:       kind,
				Reason:     verdict.Reason,
				Message:    verdict.Message,
			}
		}
		if verdict.Ready {
			return current, verdict, nil
		}

		select {
		case <-ctx.Done():
			resourcesFailedTotal.WithLabelValues(kind, "cancelled").Inc()
			return nil, verdict, fmt.Errorf("readiness wait for resource %s interrupted: %w", resource.GetID(), ctx.Err())
		case <-timeout.C:
			resourcesFailedTotal.WithLabelValues(kind, "readiness_timeout").Inc()
			return nil, verdict, &ReadinessTimeoutError{
				ResourceID: resource.GetID(),
				Kind:       kind,
				Timeout:    d.opts.ReadinessTimeout,
				LastReason: verdict.Reason,
			}
		case <-ticker.C:
			observed, err := rc.Get(ctx, applied.GetName(), metav1.GetOptions{})
			if err != nil {
				// Transient read failure; the next tick retries.
				d.log.V(1).Info("Failed reading live state during readiness wait",
					"resourceID", resource.GetID(), "error", err.Error())
				continue
			}
			current = observed
		}
	}
}
