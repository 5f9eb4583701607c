// Package replicasource implements the Replica Source Adapter: counting the
// currently running replicas of a service, via one of two backends.
package replicasource

import (
	"context"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog/log"
)

const readTimeout = 10 * time.Second

// DockerAPIClient is the subset of *client.Client this adapter depends on,
// kept narrow for mockability in tests.
type DockerAPIClient interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
}

// DockerSource counts running containers belonging to a Docker Compose
// service, identified by the "com.docker.compose.service" label.
type DockerSource struct {
	cli         DockerAPIClient
	serviceName string
	minReplicas int
}

// NewDockerSource dials the local Docker daemon using the standard
// environment-derived configuration.
func NewDockerSource(serviceName string, minReplicas int) (*DockerSource, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &DockerSource{cli: cli, serviceName: serviceName, minReplicas: minReplicas}, nil
}

// NewDockerSourceWithClient builds a DockerSource around an already
// constructed client, used by tests to inject a fake.
func NewDockerSourceWithClient(cli DockerAPIClient, serviceName string, minReplicas int) *DockerSource {
	return &DockerSource{cli: cli, serviceName: serviceName, minReplicas: minReplicas}
}

// CurrentReplicas returns the count of running containers for the service.
// Any failure (timeout, Docker API error) returns minReplicas, which is
// load-bearing: it stops a broken adapter from ever requesting scale-down
// below the floor.
func (d *DockerSource) CurrentReplicas(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	f := filters.NewArgs()
	f.Add("label", "com.docker.compose.service="+d.serviceName)
	f.Add("status", "running")

	containers, err := d.cli.ContainerList(ctx, container.ListOptions{Filters: f})
	if err != nil {
		log.Warn().Err(err).Str("service", d.serviceName).Msg("replica read failed, reporting floor")
		return d.minReplicas
	}

	count := 0
	seen := map[string]bool{}
	for _, c := range containers {
		for _, name := range c.Names {
			n := strings.TrimPrefix(name, "/")
			if !seen[n] {
				seen[n] = true
				count++
			}
		}
	}
	return count
}
