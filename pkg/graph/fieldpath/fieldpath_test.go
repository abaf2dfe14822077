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

package fieldpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    []Segment
		wantErr bool
	}{
		{
			name: "simple dotted path",
			path: "spec.replicas",
			want: []Segment{Named("spec"), Named("replicas")},
		},
		{
			name: "array access",
			path: "status.loadBalancer.ingress[0].ip",
			want: []Segment{
				Named("status"), Named("loadBalancer"),
				Named("ingress"), Indexed(0), Named("ip"),
			},
		},
		{
			name: "quoted key with dots",
			path: `metadata.annotations["kro.run/owned"]`,
			want: []Segment{Named("metadata"), Named("annotations"), Named("kro.run/owned")},
		},
		{
			name: "mixed quoted and indexed",
			path: `spec["my.field"].items[2]["other.field"]`,
			want: []Segment{
				Named("spec"), Named("my.field"),
				Named("items"), Indexed(2), Named("other.field"),
			},
		},
		{
			name:    "unterminated quote",
			path:    `spec["broken`,
			wantErr: true,
		},
		{
			name:    "unterminated index",
			path:    "items[3",
			wantErr: true,
		},
		{
			name:    "non numeric index",
			path:    "items[x]",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildRoundTrip(t *testing.T) {
	paths := []string{
		"spec.replicas",
		"status.loadBalancer.ingress[0].ip",
		`metadata.annotations["kro.run/owned"]`,
		"spec.template.spec.containers[0].env[1].value",
	}
	for _, path := range paths {
		segments, err := Parse(path)
		require.NoError(t, err, path)
		assert.Equal(t, path, Build(segments), path)
	}
}
