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

package graph

import (
	"fmt"
	"regexp"
	"slices"
)

// ErrNamingConvention is the base error message for naming convention
// violations.
const ErrNamingConvention = "naming convention violation"

var (
	lowerCamelCaseRegex = regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`)
	upperCamelCaseRegex = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)

	// reservedKeyWords are identifiers with a fixed meaning in the
	// expression language and the compiled document; none of them may
	// be used as a resource id.
	reservedKeyWords = []string{
		"apiVersion",
		"each",
		"graph",
		"instance",
		"kind",
		"metadata",
		"namespace",
		"object",
		"resource",
		"resources",
		"schema",
		"spec",
		"status",
	}
)

// isValidResourceID checks if the given id is lowerCamelCase.
func isValidResourceID(id string) bool {
	return lowerCamelCaseRegex.MatchString(id)
}

// isValidKindName checks if the given name is UpperCamelCase.
func isValidKindName(name string) bool {
	return upperCamelCaseRegex.MatchString(name)
}

// isReservedWord checks if the given word is reserved.
func isReservedWord(word string) bool {
	return slices.Contains(reservedKeyWords, word)
}

// validateResourceID checks a single id against the naming
// convention: lowerCamelCase, not a reserved word.
func validateResourceID(id string) error {
	if isReservedWord(id) {
		return fmt.Errorf("%s: id %q is a reserved keyword", ErrNamingConvention, id)
	}
	if !isValidResourceID(id) {
		return fmt.Errorf("%s: id %q is not a valid resource id: must be lowerCamelCase", ErrNamingConvention, id)
	}
	return nil
}

// validateKindName checks a schema kind name against the naming
// convention.
func validateKindName(kind string) error {
	if !isValidKindName(kind) {
		return fmt.Errorf("%s: kind %q is not a valid kind name: must be UpperCamelCase", ErrNamingConvention, kind)
	}
	return nil
}
