package actuator

import (
	"context"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKubernetesActuator_ApplyPatchesReplicas(t *testing.T) {
	replicas := int32(2)
	client := fake.NewSimpleClientset(&appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "webapp", Namespace: "default"},
		Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
	})
	a := NewKubernetesActuator(client, "default", "webapp")

	ok := a.Apply(context.Background(), 5)
	require.True(t, ok)

	got, err := client.AppsV1().Deployments("default").Get(context.Background(), "webapp", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(5), *got.Spec.Replicas)
}

func TestKubernetesActuator_ApplyMissingDeploymentFails(t *testing.T) {
	client := fake.NewSimpleClientset()
	a := NewKubernetesActuator(client, "default", "missing")

	assert.False(t, a.Apply(context.Background(), 3))
}

func TestKubernetesActuator_ApplyIsIdempotent(t *testing.T) {
	replicas := int32(2)
	client := fake.NewSimpleClientset(&appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "webapp", Namespace: "default"},
		Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
	})
	a := NewKubernetesActuator(client, "default", "webapp")

	require.True(t, a.Apply(context.Background(), 4))
	require.True(t, a.Apply(context.Background(), 4))

	got, err := client.AppsV1().Deployments("default").Get(context.Background(), "webapp", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(4), *got.Spec.Replicas)
}
