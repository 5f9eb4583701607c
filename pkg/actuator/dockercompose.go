// Package actuator implements the Actuator Adapter: converging the running
// replica count of a service to a target, via one of two backends.
package actuator

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// HardTimeout is the actuator's fixed call ceiling: blocking, with a hard
// 120-second bound, per the Actuator Adapter contract.
const HardTimeout = 120 * time.Second

// commandExecutor is overridden in tests to avoid invoking a real shell.
var commandExecutor = exec.CommandContext

// ComposeActuator applies a target replica count via
// `docker compose up -d --scale`, matching the reference implementation's
// process-invocation mechanism.
type ComposeActuator struct {
	projectName string
	serviceName string
	composeCmd  []string
}

// NewComposeActuator builds a ComposeActuator. composeCommand is the
// detected invocation ("docker compose" or "docker-compose"); when empty it
// is autodetected by probing `docker compose version`.
func NewComposeActuator(projectName, serviceName, composeCommand string) *ComposeActuator {
	if composeCommand == "" {
		composeCommand = detectComposeCommand()
	}
	return &ComposeActuator{
		projectName: projectName,
		serviceName: serviceName,
		composeCmd:  strings.Fields(composeCommand),
	}
}

func detectComposeCommand() string {
	if err := exec.Command("docker", "compose", "version").Run(); err == nil {
		return "docker compose"
	}
	return "docker-compose"
}

// Apply invokes the compose tool to scale the service to target replicas.
// It is idempotent: invoking it twice with the same target converges to the
// same steady state, since compose treats --scale as the desired count.
func (a *ComposeActuator) Apply(ctx context.Context, target int) bool {
	ctx, cancel := context.WithTimeout(ctx, HardTimeout)
	defer cancel()

	args := append([]string{}, a.composeCmd[1:]...)
	args = append(args, "-p", a.projectName, "up", "-d", "--scale",
		fmt.Sprintf("%s=%d", a.serviceName, target), "--no-recreate", a.serviceName)

	cmd := commandExecutor(ctx, a.composeCmd[0], args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Error().Err(err).Str("output", string(output)).Int("target", target).Msg("actuation failed")
		return false
	}
	if ctx.Err() != nil {
		log.Error().Int("target", target).Msg("actuation timed out")
		return false
	}
	log.Info().Int("target", target).Str("service", a.serviceName).Msg("actuation succeeded")
	return true
}
