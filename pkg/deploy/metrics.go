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
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	// Register metrics with the global prometheus registry
	metrics.Registry.MustRegister(
		resourcesAppliedTotal,
		resourcesFailedTotal,
		readinessWaitDuration,
	)
}

var (
	// resourcesAppliedTotal tracks successfully applied resources per kind
	resourcesAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deploy_resources_applied_total",
			Help: "Total number of resources successfully applied per kind",
		},
		[]string{"kind"},
	)
	resourcesFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deploy_resources_failed_total",
			Help: "Total number of resources that failed to apply or become ready per kind",
		},
		[]string{"kind", "reason"},
	)
	// tracking the time spent waiting for readiness per kind
	readinessWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deploy_readiness_wait_duration_seconds",
			Help:    "Time spent waiting for resources to become ready per kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)
