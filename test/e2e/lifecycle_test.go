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

package e2e_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"

	"github.com/kro-run/kro-sdk/pkg/deploy"
	"github.com/kro-run/kro-sdk/pkg/expr"
	"github.com/kro-run/kro-sdk/pkg/graph"
	"github.com/kro-run/kro-sdk/pkg/readiness"
)

var _ = Describe("Graph lifecycle", func() {
	var (
		ctx    context.Context
		client *dynamicfake.FakeDynamicClient
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = dynamicfake.NewSimpleDynamicClient(newScheme())
	})

	configMapGVR := schema.GroupVersionResource{Version: "v1", Resource: "configmaps"}

	getConfigMap := func(name string) (*unstructured.Unstructured, error) {
		return client.Resource(configMapGVR).Namespace("default").
			Get(ctx, name, metav1.GetOptions{})
	}

	It("builds, compiles, reloads, deploys and destroys a graph", func() {
		built, err := graph.NewBuilder().
			WithResource(graph.ResourceDefinition{
				ID: "base",
				Template: map[string]interface{}{
					"apiVersion": "v1",
					"kind":       "ConfigMap",
					"metadata":   map[string]interface{}{"name": "base-config", "namespace": "default"},
					"data": map[string]interface{}{
						"environment": expr.SchemaRef("spec.environment"),
					},
				},
			}).
			WithResource(graph.ResourceDefinition{
				ID: "derived",
				Template: map[string]interface{}{
					"apiVersion": "v1",
					"kind":       "ConfigMap",
					"metadata":   map[string]interface{}{"name": "derived-config", "namespace": "default"},
					"data": map[string]interface{}{
						"parent": expr.Ref("base", "metadata.name"),
						"banner": expr.Template("env is ", expr.Ref("base", "data.environment")),
					},
				},
			}).
			Build()
		Expect(err).NotTo(HaveOccurred())

		rgd, err := built.Compile(graph.CompileOptions{
			Name: "lifecycle-stack",
			Schema: graph.SchemaDefinition{
				Kind: "LifecycleStack",
				Spec: map[string]interface{}{"environment": "string"},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(graph.ValidateDefinition(rgd)).To(Succeed())

		// Round-trip through the compiled form, as a consumer of the
		// published definition would.
		reloaded, err := graph.FromDefinition(rgd)
		Expect(err).NotTo(HaveOccurred())
		Expect(reloaded.TopologicalOrder).To(Equal([]string{"base", "derived"}))

		deployer := deploy.NewDeployer(client, readiness.DefaultRegistry(), logr.Discard(), deploy.Options{
			GraphName:    "lifecycle-stack",
			WaitForReady: true,
			PollInterval: 10 * time.Millisecond,
		})
		inputs := map[string]interface{}{
			"spec": map[string]interface{}{"environment": "staging"},
		}
		result, err := deployer.Deploy(ctx, reloaded, inputs)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(deploy.StatusSucceeded))
		Expect(result.AppliedResources).To(HaveLen(2))

		base, err := getConfigMap("base-config")
		Expect(err).NotTo(HaveOccurred())
		Expect(base.Object["data"]).To(HaveKeyWithValue("environment", "staging"))

		derived, err := getConfigMap("derived-config")
		Expect(err).NotTo(HaveOccurred())
		Expect(derived.Object["data"]).To(HaveKeyWithValue("parent", "base-config"))
		Expect(derived.Object["data"]).To(HaveKeyWithValue("banner", "env is staging"))
		Expect(derived.GetLabels()).To(HaveKeyWithValue("kro.run/graph-name", "lifecycle-stack"))

		Expect(deployer.Destroy(ctx, reloaded, inputs)).To(Succeed())
		_, err = getConfigMap("base-config")
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
		_, err = getConfigMap("derived-config")
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("gates dependents on registry readiness", func() {
		deploymentGVR := schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}

		// Pre-seed the deployment with a ready status; the apply path
		// patches it and the default evaluator sees it ready.
		seeded := &unstructured.Unstructured{Object: map[string]interface{}{
			"apiVersion": "apps/v1",
			"kind":       "Deployment",
			"metadata":   map[string]interface{}{"name": "web", "namespace": "default"},
			"spec":       map[string]interface{}{"replicas": int64(1)},
			"status":     map[string]interface{}{"readyReplicas": int64(1)},
		}}
		_, err := client.Resource(deploymentGVR).Namespace("default").
			Create(ctx, seeded, metav1.CreateOptions{})
		Expect(err).NotTo(HaveOccurred())

		g, err := graph.NewBuilder().
			WithResource(graph.ResourceDefinition{
				ID: "web",
				Template: map[string]interface{}{
					"apiVersion": "apps/v1",
					"kind":       "Deployment",
					"metadata":   map[string]interface{}{"name": "web", "namespace": "default"},
					"spec":       map[string]interface{}{"replicas": int64(1)},
				},
			}).
			WithResource(graph.ResourceDefinition{
				ID: "cm",
				Template: map[string]interface{}{
					"apiVersion": "v1",
					"kind":       "ConfigMap",
					"metadata":   map[string]interface{}{"name": "web-state", "namespace": "default"},
					"data": map[string]interface{}{
						"ready": expr.Binary(">", expr.Ref("web", "status.readyReplicas"), expr.Literal(0)),
					},
				},
			}).
			Build()
		Expect(err).NotTo(HaveOccurred())

		deployer := deploy.NewDeployer(client, readiness.DefaultRegistry(), logr.Discard(), deploy.Options{
			WaitForReady:     true,
			PollInterval:     10 * time.Millisecond,
			ReadinessTimeout: 2 * time.Second,
		})
		result, err := deployer.Deploy(ctx, g, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(deploy.StatusSucceeded))
		Expect(result.Applied("web")).To(BeTrue())

		cm, err := getConfigMap("web-state")
		Expect(err).NotTo(HaveOccurred())
		Expect(cm.Object["data"]).To(HaveKeyWithValue("ready", true))
	})
})
