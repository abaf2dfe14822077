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
	"time"

	"golang.org/x/time/rate"
	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	defaultPollInterval     = 2 * time.Second
	defaultReadinessTimeout = 5 * time.Minute
	defaultMaxConcurrency   = 4
	defaultNamespace        = "default"
)

// RetryPolicy bounds the retries of transient apply failures. It is a
// configuration value; the zero value disables retries.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// BackoffMultiplier scales the delay after each retry.
	BackoffMultiplier float64
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
}

// Backoff converts the policy into an apimachinery wait.Backoff.
func (p RetryPolicy) Backoff() wait.Backoff {
	factor := p.BackoffMultiplier
	if factor < 1 {
		factor = 1
	}
	duration := p.InitialDelay
	if duration <= 0 {
		duration = time.Second
	}
	return wait.Backoff{
		Steps:    p.MaxRetries + 1,
		Duration: duration,
		Factor:   factor,
		Cap:      p.MaxDelay,
	}
}

// Options configures a Deployer. The zero value is usable; defaults
// are filled in at construction time.
type Options struct {
	// GraphName names the deployment for labeling and log scoping.
	GraphName string
	// Namespace is the fallback namespace for namespaced resources
	// whose template does not set one.
	Namespace string
	// WaitForReady makes the deployer poll each resource's readiness
	// evaluator before advancing to its dependents.
	WaitForReady bool
	// PollInterval is the readiness polling interval.
	PollInterval time.Duration
	// ReadinessTimeout is the per-resource readiness wait budget.
	ReadinessTimeout time.Duration
	// DeploymentTimeout is an optional deployment-wide ceiling; zero
	// means no ceiling beyond the caller's context.
	DeploymentTimeout time.Duration
	// MaxConcurrency bounds how many independent resources are
	// processed at once.
	MaxConcurrency int
	// RetryPolicy bounds retries of transient apply failures.
	RetryPolicy RetryPolicy
	// QPS rate-limits cluster mutations; zero disables limiting.
	QPS rate.Limit
	// Burst is the rate limiter burst size when QPS is set.
	Burst int
}

func (o *Options) applyDefaults() {
	if o.GraphName == "" {
		o.GraphName = "graph"
	}
	if o.Namespace == "" {
		o.Namespace = defaultNamespace
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.ReadinessTimeout <= 0 {
		o.ReadinessTimeout = defaultReadinessTimeout
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = defaultMaxConcurrency
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
}
