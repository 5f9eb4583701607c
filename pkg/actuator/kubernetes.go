package actuator

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/rs/zerolog/log"
)

// KubernetesActuator applies a target replica count by patching a
// Deployment's spec.replicas.
type KubernetesActuator struct {
	client         kubernetes.Interface
	namespace      string
	deploymentName string
}

// NewKubernetesActuator builds a KubernetesActuator around an already
// constructed client.
func NewKubernetesActuator(client kubernetes.Interface, namespace, deploymentName string) *KubernetesActuator {
	return &KubernetesActuator{client: client, namespace: namespace, deploymentName: deploymentName}
}

// Apply fetches the Deployment, sets its replica count, and updates it.
// Idempotent: setting the same target twice is a no-op update on the
// second call.
func (a *KubernetesActuator) Apply(ctx context.Context, target int) bool {
	ctx, cancel := context.WithTimeout(ctx, HardTimeout)
	defer cancel()

	deployment, err := a.client.AppsV1().Deployments(a.namespace).Get(ctx, a.deploymentName, metav1.GetOptions{})
	if err != nil {
		log.Error().Err(err).Str("deployment", a.deploymentName).Msg("actuation failed: get deployment")
		return false
	}

	replicas := int32(target)
	deployment.Spec.Replicas = &replicas

	if _, err := a.client.AppsV1().Deployments(a.namespace).Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		log.Error().Err(err).Str("deployment", a.deploymentName).Msg("actuation failed: update deployment")
		return false
	}

	log.Info().Int("target", target).Str("deployment", a.deploymentName).Msg("actuation succeeded")
	return true
}
