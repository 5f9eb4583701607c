package replicasource

import (
	"context"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/stretchr/testify/assert"
)

func deploymentWithReadyReplicas(name string, ready int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Status:     appsv1.DeploymentStatus{ReadyReplicas: ready},
	}
}

func TestKubernetesSource_CurrentReplicas_ReadsReadyReplicas(t *testing.T) {
	client := fake.NewSimpleClientset(deploymentWithReadyReplicas("webapp", 4))
	src := NewKubernetesSource(client, "default", "webapp", 1)

	assert.Equal(t, 4, src.CurrentReplicas(context.Background()))
}

func TestKubernetesSource_CurrentReplicas_NotFoundReturnsFloor(t *testing.T) {
	client := fake.NewSimpleClientset()
	src := NewKubernetesSource(client, "default", "missing", 2)

	assert.Equal(t, 2, src.CurrentReplicas(context.Background()))
}
