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
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	krocel "github.com/kro-run/kro-sdk/pkg/cel"
	"github.com/kro-run/kro-sdk/pkg/expr"
	"github.com/kro-run/kro-sdk/pkg/graph"
	"github.com/kro-run/kro-sdk/pkg/runtime/resolver"
)

// Destroy tears the graph down in reverse topological order: leaves
// first, so a resource is deleted only after everything depending on
// it is gone. Deleting a resource that no longer exists is success,
// not an error. A resource whose name cannot be resolved from the
// schema inputs alone is reported as an error; the teardown still
// proceeds past it.
func (d *Deployer) Destroy(ctx context.Context, g *graph.Graph, inputs map[string]interface{}) error {
	env, err := krocel.DefaultEnvironment(krocel.WithResourceIDs([]string{expr.SchemaResourceID}))
	if err != nil {
		return fmt.Errorf("failed creating environment: %w", err)
	}
	evalContext := map[string]interface{}{expr.SchemaResourceID: inputs}

	var errs []error
	order := g.TopologicalOrder
	for i := len(order) - 1; i >= 0; i-- {
		resource := g.Resources[order[i]]
		if err := d.destroyResource(ctx, env, evalContext, resource); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Deployer) destroyResource(
	ctx context.Context,
	env *cel.Env,
	evalContext map[string]interface{},
	resource *graph.Resource,
) error {
	resolved, err := d.resolveIdentity(env, evalContext, resource)
	if err != nil {
		return err
	}
	name := resolved.GetName()
	if name == "" {
		return fmt.Errorf("resource %s has no resolvable metadata.name", resource.GetID())
	}

	rc := d.resourceClient(resource, resolved)
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	err = rc.Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed deleting resource %s (%s/%s): %w",
			resource.GetID(), resource.GetGroupVersionKind().Kind, name, err)
	}
	d.log.V(1).Info("Deleted resource", "resourceID", resource.GetID(), "name", name)
	return nil
}

// resolveIdentity resolves only the metadata fields of the template,
// enough to address the live object for deletion. Identity fields may
// reference the schema inputs but not sibling resources; teardown has
// no live dependency state to read from.
func (d *Deployer) resolveIdentity(
	env *cel.Env,
	evalContext map[string]interface{},
	resource *graph.Resource,
) (*unstructured.Unstructured, error) {
	resolved := resource.Unstructured().DeepCopy()

	var identityFields []expr.FieldDescriptor
	for _, field := range resource.GetFields() {
		if !strings.HasPrefix(field.Path, "metadata.") {
			continue
		}
		if deps := field.Dependencies(); len(deps) > 0 {
			return nil, fmt.Errorf("cannot destroy resource %s: field %s references %s, which has no live state during teardown",
				resource.GetID(), field.Path, deps[0])
		}
		identityFields = append(identityFields, field)
	}
	if len(identityFields) == 0 {
		return resolved, nil
	}

	data := make(map[string]interface{}, len(identityFields))
	for _, field := range identityFields {
		value, err := krocel.EvaluateExpression(env, evalContext, field.Expression)
		if err != nil {
			return nil, fmt.Errorf("failed resolving field %s of resource %s: %w", field.Path, resource.GetID(), err)
		}
		data[field.Expression] = value
	}
	summary := resolver.NewResolver(resolved.Object, data).Resolve(identityFields)
	if len(summary.Errors) > 0 {
		return nil, fmt.Errorf("failed resolving resource %s: %v", resource.GetID(), summary.Errors[0])
	}
	return resolved, nil
}
