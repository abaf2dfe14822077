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

// Package fieldpath parses and builds JSONPath-like field paths such as
// spec.template.spec.containers[0].env[0].value. Paths are produced by
// the expression analyzer and consumed by the runtime resolver; keys
// containing dots must be quoted, e.g. metadata.annotations["kro.run/owned"].
package fieldpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment represents a single part of a path.
type Segment struct {
	// Name is the field name, without quotes. Empty for array access.
	Name string
	// Index is the array index, or -1 if this is not an array access.
	Index int
}

// Named creates a field-access segment.
func Named(name string) Segment {
	return Segment{Name: name, Index: -1}
}

// Indexed creates an array-access segment.
func Indexed(index int) Segment {
	return Segment{Index: index}
}

// Parse parses a path string into segments. Dictionary access with
// keys that contain dots must be quoted.
//
// example paths:
//   - spec["my.field.name"].items[0]["other.field"]
//   - status.loadBalancer.ingress[0].ip
func Parse(path string) ([]Segment, error) {
	p := &parser{input: path, len: len(path)}
	return p.parse()
}

// Build renders segments back into the canonical path string. Field
// names containing dots or brackets come out quoted, so the result
// always round-trips through Parse.
func Build(segments []Segment) string {
	var sb strings.Builder
	for i, s := range segments {
		if s.Index >= 0 {
			sb.WriteString("[")
			sb.WriteString(strconv.Itoa(s.Index))
			sb.WriteString("]")
			continue
		}
		if strings.ContainsAny(s.Name, ".[]\"") {
			sb.WriteString("[\"")
			sb.WriteString(s.Name)
			sb.WriteString("\"]")
			continue
		}
		if i > 0 {
			sb.WriteString(".")
		}
		sb.WriteString(s.Name)
	}
	return sb.String()
}

type parser struct {
	input string
	pos   int
	len   int
}

func (p *parser) parse() ([]Segment, error) {
	var segments []Segment

	for p.pos < p.len {
		// Quoted field, e.g. ["my.field.name"].
		if p.pos+1 < p.len && p.input[p.pos] == '[' && p.input[p.pos+1] == '"' {
			field, err := p.parseQuotedField()
			if err != nil {
				return nil, err
			}
			segments = append(segments, Segment{Name: field, Index: -1})
		} else if p.pos < p.len && p.input[p.pos] != '[' {
			field, err := p.parseUnquotedField()
			if err != nil {
				return nil, err
			}
			segments = append(segments, Segment{Name: field, Index: -1})
		}

		// Array index, e.g. [0].
		if p.pos < p.len && p.input[p.pos] == '[' && (p.pos+1 >= p.len || p.input[p.pos+1] != '"') {
			idx, err := p.parseArrayIndex()
			if err != nil {
				return nil, err
			}
			segments = append(segments, Segment{Name: "", Index: idx})
		}

		if p.pos < p.len && p.input[p.pos] == '.' {
			p.pos++
		}
	}

	return segments, nil
}

// parseQuotedField parses a quoted field. The current position must be
// at the opening bracket and quote, e.g. ["my.field.name"].
func (p *parser) parseQuotedField() (string, error) {
	p.pos += 2 // skip [ and opening quote

	start := p.pos
	for p.pos < p.len {
		if p.input[p.pos] != '"' {
			p.pos++
			continue
		}
		field := p.input[start:p.pos]
		p.pos++ // skip closing quote

		if p.pos < p.len && p.input[p.pos] == ']' {
			p.pos++ // skip closing bracket
			return field, nil
		}
		return "", fmt.Errorf("expected closing bracket after quote at position %d", p.pos)
	}
	return "", fmt.Errorf("unterminated quoted string starting at position %d", start)
}

// parseUnquotedField parses a plain field name up to the next '.' or '['.
func (p *parser) parseUnquotedField() (string, error) {
	start := p.pos
	for p.pos < p.len {
		if p.input[p.pos] == '.' || p.input[p.pos] == '[' {
			break
		}
		p.pos++
	}

	if start == p.pos {
		return "", fmt.Errorf("empty field name at position %d", start)
	}
	return p.input[start:p.pos], nil
}

// parseArrayIndex parses a bracketed numeric index, e.g. [12].
func (p *parser) parseArrayIndex() (int, error) {
	p.pos++ // skip [

	start := p.pos
	for p.pos < p.len && p.input[p.pos] != ']' {
		p.pos++
	}
	if p.pos >= p.len {
		return 0, fmt.Errorf("unterminated array index starting at position %d", start)
	}

	idx, err := strconv.Atoi(p.input[start:p.pos])
	if err != nil {
		return 0, fmt.Errorf("invalid array index %q at position %d", p.input[start:p.pos], start)
	}
	if idx < 0 {
		return 0, fmt.Errorf("negative array index %d at position %d", idx, start)
	}
	p.pos++ // skip ]
	return idx, nil
}
