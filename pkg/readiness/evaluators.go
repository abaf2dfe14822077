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

package readiness

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

// DefaultRegistry returns a registry pre-populated with evaluators for
// the common built-in kinds. Callers may override any of them.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterForKind("Deployment", DeploymentReady)
	r.RegisterForKind("StatefulSet", StatefulSetReady)
	r.RegisterForKind("Service", ServiceReady)
	r.RegisterForKind("Pod", PodReady)
	r.RegisterForKind("Job", JobComplete)
	r.RegisterForKind("PersistentVolumeClaim", PVCBound)
	r.RegisterForKind("Namespace", NamespaceActive)
	return r
}

// DeploymentReady reports ready when the observed ready replica count
// meets the desired replica count.
func DeploymentReady(obj *unstructured.Unstructured) Result {
	var deployment appsv1.Deployment
	if err := fromUnstructured(obj, &deployment); err != nil {
		return NotReady("ConversionError", err.Error())
	}

	desired := int32(1)
	if deployment.Spec.Replicas != nil {
		desired = *deployment.Spec.Replicas
	}
	if deployment.Status.ReadyReplicas >= desired {
		return Ready()
	}
	return Result{
		Reason:  "ReplicasPending",
		Message: fmt.Sprintf("%d/%d replicas ready", deployment.Status.ReadyReplicas, desired),
		Details: map[string]interface{}{
			"readyReplicas":   deployment.Status.ReadyReplicas,
			"desiredReplicas": desired,
		},
	}
}

// StatefulSetReady reports ready when every desired replica is ready.
func StatefulSetReady(obj *unstructured.Unstructured) Result {
	var sts appsv1.StatefulSet
	if err := fromUnstructured(obj, &sts); err != nil {
		return NotReady("ConversionError", err.Error())
	}

	desired := int32(1)
	if sts.Spec.Replicas != nil {
		desired = *sts.Spec.Replicas
	}
	if sts.Status.ReadyReplicas >= desired {
		return Ready()
	}
	return NotReady("ReplicasPending",
		fmt.Sprintf("%d/%d replicas ready", sts.Status.ReadyReplicas, desired))
}

// ReplicasAtLeast returns an evaluator that reports ready once the
// observed ready replica count reaches a target captured at
// resource-construction time.
func ReplicasAtLeast(target int32) Evaluator {
	return func(obj *unstructured.Unstructured) Result {
		ready, found, err := unstructured.NestedInt64(obj.Object, "status", "readyReplicas")
		if err != nil {
			return NotReady("StatusError", err.Error())
		}
		if !found {
			return NotReady("NoStatus", "status.readyReplicas not reported yet")
		}
		if ready >= int64(target) {
			return Ready()
		}
		return NotReady("ReplicasPending", fmt.Sprintf("%d/%d replicas ready", ready, target))
	}
}

// ServiceReady reports ready when the service is addressable. Only
// LoadBalancer services wait on observed state: an ingress entry with
// an IP or hostname assigned.
func ServiceReady(obj *unstructured.Unstructured) Result {
	var service corev1.Service
	if err := fromUnstructured(obj, &service); err != nil {
		return NotReady("ConversionError", err.Error())
	}

	if service.Spec.Type != corev1.ServiceTypeLoadBalancer {
		return Ready()
	}
	for _, ingress := range service.Status.LoadBalancer.Ingress {
		if ingress.IP != "" || ingress.Hostname != "" {
			return Ready()
		}
	}
	return NotReady("IngressPending", "load balancer ingress has no IP or hostname assigned")
}

// PodReady scans the condition list for the Ready condition. A missing
// condition list means the pod is still coming up, not an error.
func PodReady(obj *unstructured.Unstructured) Result {
	var pod corev1.Pod
	if err := fromUnstructured(obj, &pod); err != nil {
		return NotReady("ConversionError", err.Error())
	}

	if pod.Status.Phase == corev1.PodFailed {
		return Failure("PodFailed", pod.Status.Message)
	}
	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodReady {
			if condition.Status == corev1.ConditionTrue {
				return Ready()
			}
			return NotReady(condition.Reason, condition.Message)
		}
	}
	return NotReady("ConditionPending", "Ready condition not reported yet")
}

// JobComplete scans the condition list for Complete or Failed. A
// Failed condition is an explicit failure, distinct from a job that is
// still running.
func JobComplete(obj *unstructured.Unstructured) Result {
	var job batchv1.Job
	if err := fromUnstructured(obj, &job); err != nil {
		return NotReady("ConversionError", err.Error())
	}

	for _, condition := range job.Status.Conditions {
		if condition.Status != corev1.ConditionTrue {
			continue
		}
		switch condition.Type {
		case batchv1.JobComplete:
			return Ready()
		case batchv1.JobFailed:
			return Failure("JobFailed", condition.Message)
		}
	}
	return NotReady("JobRunning",
		fmt.Sprintf("%d active, %d succeeded", job.Status.Active, job.Status.Succeeded))
}

// PVCBound reports ready once the claim is bound to a volume.
func PVCBound(obj *unstructured.Unstructured) Result {
	var pvc corev1.PersistentVolumeClaim
	if err := fromUnstructured(obj, &pvc); err != nil {
		return NotReady("ConversionError", err.Error())
	}

	switch pvc.Status.Phase {
	case corev1.ClaimBound:
		return Ready()
	case corev1.ClaimLost:
		return Failure("ClaimLost", "persistent volume claim lost its volume")
	default:
		return NotReady("ClaimPending", string(pvc.Status.Phase))
	}
}

// NamespaceActive reports ready while the namespace is not
// terminating.
func NamespaceActive(obj *unstructured.Unstructured) Result {
	var ns corev1.Namespace
	if err := fromUnstructured(obj, &ns); err != nil {
		return NotReady("ConversionError", err.Error())
	}

	// A namespace with no reported phase was just created; treat it
	// as active.
	if ns.Status.Phase == "" || ns.Status.Phase == corev1.NamespaceActive {
		return Ready()
	}
	return NotReady("Terminating", "namespace is terminating")
}

func fromUnstructured(obj *unstructured.Unstructured, into interface{}) error {
	return runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, into)
}
