package actuator

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fakeSuccessCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "true")
}

func fakeFailureCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "false")
}

func TestComposeActuator_ApplySuccess(t *testing.T) {
	orig := commandExecutor
	commandExecutor = fakeSuccessCommand
	defer func() { commandExecutor = orig }()

	a := NewComposeActuator("webapp", "web", "docker compose")
	assert.True(t, a.Apply(context.Background(), 3))
}

func TestComposeActuator_ApplyFailureReturnsFalse(t *testing.T) {
	orig := commandExecutor
	commandExecutor = fakeFailureCommand
	defer func() { commandExecutor = orig }()

	a := NewComposeActuator("webapp", "web", "docker compose")
	assert.False(t, a.Apply(context.Background(), 3))
}

func TestComposeActuator_IdempotentOnRepeatedTarget(t *testing.T) {
	orig := commandExecutor
	commandExecutor = fakeSuccessCommand
	defer func() { commandExecutor = orig }()

	a := NewComposeActuator("webapp", "web", "docker compose")
	assert.True(t, a.Apply(context.Background(), 3))
	assert.True(t, a.Apply(context.Background(), 3))
}
