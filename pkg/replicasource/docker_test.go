package replicasource

import (
	"context"
	"errors"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"

	"github.com/stretchr/testify/assert"
)

type fakeDockerClient struct {
	containers []types.Container
	err        error
}

func (f *fakeDockerClient) ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.containers, nil
}

func TestDockerSource_CurrentReplicas_CountsDistinctNames(t *testing.T) {
	cli := &fakeDockerClient{containers: []types.Container{
		{Names: []string{"/webapp_web_1"}},
		{Names: []string{"/webapp_web_2"}},
		{Names: []string{"/webapp_web_2"}}, // duplicate name, e.g. repeated alias
	}}
	src := NewDockerSourceWithClient(cli, "web", 1)

	assert.Equal(t, 2, src.CurrentReplicas(context.Background()))
}

func TestDockerSource_CurrentReplicas_NoContainersIsZero(t *testing.T) {
	cli := &fakeDockerClient{containers: nil}
	src := NewDockerSourceWithClient(cli, "web", 1)

	assert.Equal(t, 0, src.CurrentReplicas(context.Background()))
}

func TestDockerSource_CurrentReplicas_FailureReturnsFloor(t *testing.T) {
	cli := &fakeDockerClient{err: errors.New("daemon unreachable")}
	src := NewDockerSourceWithClient(cli, "web", 3)

	assert.Equal(t, 3, src.CurrentReplicas(context.Background()))
}
