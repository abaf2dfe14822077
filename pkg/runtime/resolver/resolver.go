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

// Package resolver substitutes resolved expression values into
// resource objects at their recorded field paths.
package resolver

import (
	"fmt"
	"strings"

	"github.com/kro-run/kro-sdk/pkg/expr"
	"github.com/kro-run/kro-sdk/pkg/graph/fieldpath"
)

// Result represents the outcome of resolving a single field.
type Result struct {
	Path     string
	Resolved bool
	Original string
	Replaced interface{}
	Error    error
}

// Summary aggregates the resolution of all fields of one resource.
type Summary struct {
	TotalFields    int
	ResolvedFields int
	Results        []Result
	Errors         []error
}

// Resolver substitutes evaluated expression values into a resource
// object. The resource is mutated in place; callers pass a copy when
// they need the template preserved.
type Resolver struct {
	// resource is the object whose expression fields get replaced.
	resource map[string]interface{}
	// data maps rendered expressions to their evaluated values. The
	// caller populates it only with expressions it has been able to
	// evaluate.
	data map[string]interface{}
}

// NewResolver creates a new Resolver instance.
func NewResolver(resource map[string]interface{}, data map[string]interface{}) *Resolver {
	return &Resolver{
		resource: resource,
		data:     data,
	}
}

// Resolve substitutes the value of every given field descriptor whose
// expression has an entry in the data map.
func (r *Resolver) Resolve(fields []expr.FieldDescriptor) Summary {
	summary := Summary{
		TotalFields: len(fields),
		Results:     make([]Result, 0, len(fields)),
	}

	for _, field := range fields {
		result := r.resolveField(field)
		summary.Results = append(summary.Results, result)
		if result.Resolved {
			summary.ResolvedFields++
		}
		if result.Error != nil {
			summary.Errors = append(summary.Errors, result.Error)
		}
	}

	return summary
}

// UpsertValueAtPath sets a value in the resource, creating
// intermediate maps and growing arrays as needed.
func (r *Resolver) UpsertValueAtPath(path string, value interface{}) error {
	return r.setValueAtPath(path, value)
}

func (r *Resolver) resolveField(field expr.FieldDescriptor) Result {
	result := Result{
		Path:     field.Path,
		Original: field.Expression,
	}

	if field.StandaloneExpression {
		value, ok := r.data[field.Expression]
		if !ok {
			result.Error = fmt.Errorf("no data provided for expression: %s", field.Expression)
			return result
		}
		if err := r.setValueAtPath(field.Path, value); err != nil {
			result.Error = fmt.Errorf("error setting value at %s: %w", field.Path, err)
			return result
		}
		result.Resolved = true
		result.Replaced = value
		return result
	}

	// Embedded expression: the field holds a larger string with one or
	// more ${...} segments spliced in. Values are string-interpolated.
	current, err := r.getValueFromPath(field.Path)
	if err != nil {
		result.Error = fmt.Errorf("error getting value at %s: %w", field.Path, err)
		return result
	}
	strValue, ok := current.(string)
	if !ok {
		result.Error = fmt.Errorf("expected string value for path %s, got %T", field.Path, current)
		return result
	}

	value, ok := r.data[field.Expression]
	if !ok {
		result.Error = fmt.Errorf("no data provided for expression: %s", field.Expression)
		return result
	}
	replaced := strings.ReplaceAll(strValue, field.Expression, fmt.Sprintf("%v", value))
	if err := r.setValueAtPath(field.Path, replaced); err != nil {
		result.Error = fmt.Errorf("error setting value at %s: %w", field.Path, err)
		return result
	}
	result.Resolved = true
	result.Replaced = replaced
	return result
}

// getValueFromPath retrieves a value from the resource at a parsed
// field path.
func (r *Resolver) getValueFromPath(path string) (interface{}, error) {
	segments, err := fieldpath.Parse(strings.TrimPrefix(path, "."))
	if err != nil {
		return nil, fmt.Errorf("invalid path '%s': %w", path, err)
	}

	current := interface{}(r.resource)
	for _, segment := range segments {
		if segment.Index >= 0 {
			array, ok := current.([]interface{})
			if !ok {
				return nil, fmt.Errorf("expected array at path segment: %v", segment)
			}
			if segment.Index >= len(array) {
				return nil, fmt.Errorf("array index out of bounds: %d", segment.Index)
			}
			current = array[segment.Index]
		} else {
			currentMap, ok := current.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("expected map at path segment: %v", segment)
			}
			value, ok := currentMap[segment.Name]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", segment.Name)
			}
			current = value
		}
	}
	return current, nil
}

// setValueAtPath sets a value in the resource at a parsed field path.
// Intermediate maps and arrays are created, and arrays grown, along
// the way; the parent chain is rewired whenever a new container
// replaces an old one.
func (r *Resolver) setValueAtPath(path string, value interface{}) error {
	segments, err := fieldpath.Parse(strings.TrimPrefix(path, "."))
	if err != nil {
		return fmt.Errorf("invalid path '%s': %w", path, err)
	}
	if len(segments) == 0 {
		return nil
	}

	var parent interface{} = r.resource
	var current interface{} = r.resource
	var parentKey string
	var parentIndex int

	for i, segment := range segments {
		if segment.Index >= 0 {
			grown, err := ensureArray(current, parent, segment, parentKey, parentIndex)
			if err != nil {
				return err
			}
			current = grown

			if i == len(segments)-1 {
				current.([]interface{})[segment.Index] = value
				return nil
			}
			parent = current
			parentIndex = segment.Index
			current = getOrCreateNext(current.([]interface{}), segment.Index, segments[i+1].Index >= 0)
		} else {
			currentMap, ok := current.(map[string]interface{})
			if !ok {
				return fmt.Errorf("expected map at path segment: %v", segment)
			}

			if i == len(segments)-1 {
				currentMap[segment.Name] = value
				return nil
			}

			parent = currentMap
			parentKey = segment.Name
			if currentMap[segment.Name] == nil {
				if segments[i+1].Index >= 0 {
					currentMap[segment.Name] = make([]interface{}, 0)
				} else {
					currentMap[segment.Name] = make(map[string]interface{})
				}
			}
			current = currentMap[segment.Name]
		}
	}

	return nil
}

// ensureArray makes sure the current position holds an array large
// enough for the segment's index, creating or growing it and updating
// the parent's reference when a new backing array is allocated.
func ensureArray(
	current, parent interface{},
	segment fieldpath.Segment,
	parentKey string,
	parentIndex int,
) (interface{}, error) {
	array, ok := current.([]interface{})
	if !ok && current == nil {
		array = make([]interface{}, segment.Index+1)
		updateParent(parent, parentKey, parentIndex, array)
		return array, nil
	} else if !ok {
		return nil, fmt.Errorf("expected array or nil at segment %v, got %T", segment, current)
	}

	if segment.Index >= len(array) {
		grown := make([]interface{}, segment.Index+1)
		copy(grown, array)
		updateParent(parent, parentKey, parentIndex, grown)
		return grown, nil
	}
	return array, nil
}

// getOrCreateNext ensures the next element in the path exists,
// initializing an array or map depending on the next segment.
func getOrCreateNext(array []interface{}, index int, nextIsArray bool) interface{} {
	if array[index] == nil {
		if nextIsArray {
			array[index] = make([]interface{}, 0)
		} else {
			array[index] = make(map[string]interface{})
		}
	}
	return array[index]
}

// updateParent rewires the parent's reference to a newly-allocated
// container so the object structure stays connected.
func updateParent(parent interface{}, key string, index int, value interface{}) {
	switch p := parent.(type) {
	case map[string]interface{}:
		p[key] = value
	case []interface{}:
		p[index] = value
	}
}
