package replicasource

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/rs/zerolog/log"
)

// BuildKubeClient constructs a kubernetes.Interface from a kubeconfig path,
// or the in-cluster config when kubeconfigPath is empty. Shared with
// pkg/actuator's Kubernetes backend so both read the same client config.
func BuildKubeClient(kubeconfigPath string) (kubernetes.Interface, error) {
	var cfg *rest.Config
	var err error

	if kubeconfigPath != "" {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	} else {
		cfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(cfg)
}

// KubernetesSource counts the ready replicas of a Deployment.
type KubernetesSource struct {
	client         kubernetes.Interface
	namespace      string
	deploymentName string
	minReplicas    int
}

// NewKubernetesSource builds a KubernetesSource around an already
// constructed client.
func NewKubernetesSource(client kubernetes.Interface, namespace, deploymentName string, minReplicas int) *KubernetesSource {
	return &KubernetesSource{client: client, namespace: namespace, deploymentName: deploymentName, minReplicas: minReplicas}
}

// CurrentReplicas returns the Deployment's ReadyReplicas count. Any failure
// returns minReplicas, matching the Docker backend's conservative default.
func (k *KubernetesSource) CurrentReplicas(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	deployment, err := k.client.AppsV1().Deployments(k.namespace).Get(ctx, k.deploymentName, metav1.GetOptions{})
	if err != nil {
		log.Warn().Err(err).Str("deployment", k.deploymentName).Msg("replica read failed, reporting floor")
		return k.minReplicas
	}
	return int(deployment.Status.ReadyReplicas)
}
