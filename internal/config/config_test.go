package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Default(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9090", cfg.PrometheusURL)
	assert.Equal(t, "webapp", cfg.ServiceName)
	assert.Equal(t, 0.6, cfg.ScaleUpThreshold)
	assert.Equal(t, 0.2, cfg.ScaleDownThreshold)
	assert.Equal(t, 1, cfg.MinReplicas)
	assert.Equal(t, 6, cfg.MaxReplicas)
	assert.Equal(t, 10*time.Second, cfg.CheckInterval)
	assert.Equal(t, 30*time.Second, cfg.ScaleUpCooldown)
	assert.Equal(t, 60*time.Second, cfg.ScaleDownCooldown)
	assert.Equal(t, 2, cfg.ScaleUpBreachesRequired)
	assert.Equal(t, 3, cfg.ScaleDownBreachesRequired)
	assert.Equal(t, BackendCompose, cfg.ActuatorBackend)
	assert.Equal(t, "webapp", cfg.KubeDeployment)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	os.Setenv("SERVICE_NAME", "orders-api")
	os.Setenv("MAX_REPLICAS", "12")
	os.Setenv("MIN_REPLICAS", "2")
	os.Setenv("SCALE_UP_THRESHOLD", "0.8")
	os.Setenv("SCALE_DOWN_THRESHOLD", "0.3")
	os.Setenv("ACTUATOR_BACKEND", "kubernetes")
	defer func() {
		os.Unsetenv("SERVICE_NAME")
		os.Unsetenv("MAX_REPLICAS")
		os.Unsetenv("MIN_REPLICAS")
		os.Unsetenv("SCALE_UP_THRESHOLD")
		os.Unsetenv("SCALE_DOWN_THRESHOLD")
		os.Unsetenv("ACTUATOR_BACKEND")
	}()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "orders-api", cfg.ServiceName)
	assert.Equal(t, 12, cfg.MaxReplicas)
	assert.Equal(t, 2, cfg.MinReplicas)
	assert.Equal(t, 0.8, cfg.ScaleUpThreshold)
	assert.Equal(t, 0.3, cfg.ScaleDownThreshold)
	assert.Equal(t, BackendKubernetes, cfg.ActuatorBackend)
	assert.Equal(t, "orders-api", cfg.KubeDeployment)
}

func TestValidateConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateConfig_MinGreaterThanMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinReplicas = 10
	cfg.MaxReplicas = 2
	assert.Error(t, cfg.Validate())
}

func TestValidateConfig_InvertedThresholdBand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScaleUpThreshold = 0.2
	cfg.ScaleDownThreshold = 0.6
	assert.Error(t, cfg.Validate())
}

func TestValidateConfig_NonPositiveCheckInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateConfig_UnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ActuatorBackend = "ssh"
	assert.Error(t, cfg.Validate())
}

func TestPolicy_MapsFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	p := cfg.Policy()
	assert.Equal(t, cfg.ScaleUpThreshold, p.ScaleUpThreshold)
	assert.Equal(t, cfg.MaxReplicas, p.MaxReplicas)
	assert.Equal(t, cfg.ScaleDownCooldown, p.ScaleDownCooldown)
}
