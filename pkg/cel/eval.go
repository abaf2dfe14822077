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

package cel

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// NormalizeIndexAccess rewrites dotted index segments in a target
// expression into CEL index syntax: "ingress.0.ip" becomes
// "ingress[0].ip". Applied before compiling or evaluating a rendered
// expression.
//
// Only a ".N" segment continuing a select chain is rewritten: one
// following an identifier, an index or a call. String literals are
// copied verbatim and numeric literals (1.5) are consumed whole, so
// neither is ever mistaken for index access.
func NormalizeIndexAccess(expression string) string {
	var out strings.Builder
	out.Grow(len(expression) + 8)

	// chain is true when the preceding token can be indexed into.
	chain := false
	for i := 0; i < len(expression); {
		c := expression[i]
		switch {
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(expression) {
				if expression[j] == '\\' && j+1 < len(expression) {
					j += 2
					continue
				}
				if expression[j] == c {
					j++
					break
				}
				j++
			}
			out.WriteString(expression[i:j])
			i = j
			chain = false
		case isIdentStart(c):
			j := i + 1
			for j < len(expression) && isIdentChar(expression[j]) {
				j++
			}
			out.WriteString(expression[i:j])
			i = j
			chain = true
		case isDigit(c) && !chain:
			out.WriteString(expression[i:numberEnd(expression, i)])
			i = numberEnd(expression, i)
			chain = false
		case c == '.' && chain && i+1 < len(expression) && isDigit(expression[i+1]):
			j := i + 1
			for j < len(expression) && isDigit(expression[j]) {
				j++
			}
			out.WriteByte('[')
			out.WriteString(expression[i+1 : j])
			out.WriteByte(']')
			i = j
		default:
			out.WriteByte(c)
			if c == ']' || c == ')' {
				chain = true
			} else if c != '.' {
				chain = false
			}
			i++
		}
	}
	return out.String()
}

// numberEnd returns the index one past a numeric literal starting at
// i: digits with an optional fraction, exponent and uint suffix.
func numberEnd(s string, i int) int {
	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	if j < len(s) && s[j] == '.' && j+1 < len(s) && isDigit(s[j+1]) {
		j++
		for j < len(s) && isDigit(s[j]) {
			j++
		}
	}
	if j < len(s) && (s[j] == 'e' || s[j] == 'E') {
		k := j + 1
		if k < len(s) && (s[k] == '+' || s[k] == '-') {
			k++
		}
		if k < len(s) && isDigit(s[k]) {
			for k < len(s) && isDigit(s[k]) {
				k++
			}
			j = k
		}
	}
	if j < len(s) && (s[j] == 'u' || s[j] == 'U') {
		j++
	}
	return j
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// UnwrapExpression strips the ${...} wrapper from a rendered target
// expression. Returns the input unchanged, and false, when the value
// is not a standalone wrapped expression.
func UnwrapExpression(s string) (string, bool) {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		inner := s[2 : len(s)-1]
		// Reject strings like "${a}-${b}" that only look wrapped.
		if !strings.Contains(inner, "${") {
			return inner, true
		}
	}
	return s, false
}

// ValidateExpression compiles a rendered target expression against an
// environment declaring the given resource ids, without evaluating it.
// The ${...} wrapper is optional.
func ValidateExpression(expression string, resourceIDs []string) error {
	env, err := DefaultEnvironment(WithResourceIDs(resourceIDs))
	if err != nil {
		return fmt.Errorf("failed creating environment: %w", err)
	}
	inner, _ := UnwrapExpression(expression)
	_, issues := env.Compile(NormalizeIndexAccess(inner))
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("failed compiling expression %s: %w", expression, issues.Err())
	}
	return nil
}

// EvaluateExpression compiles and evaluates a target expression in the
// given environment and returns the result as a native Go value. The
// ${...} wrapper is optional.
func EvaluateExpression(env *cel.Env, context map[string]interface{}, expression string) (interface{}, error) {
	inner, _ := UnwrapExpression(expression)
	ast, issues := env.Compile(NormalizeIndexAccess(inner))
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed compiling expression %s: %w", expression, issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed programming expression %s: %w", expression, err)
	}
	val, _, err := program.Eval(context)
	if err != nil {
		return nil, fmt.Errorf("failed evaluating expression %s: %w", expression, err)
	}
	return GoNativeType(val)
}
