// Package config loads and validates the controller's configuration via
// viper, binding the environment variables that make up the recognized
// configuration surface.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/scaleloop/autoscaler/pkg/ctlerrors"
	"github.com/scaleloop/autoscaler/pkg/scaling"
)

// ActuatorBackend selects which infrastructure-change driver the controller
// talks to.
type ActuatorBackend string

const (
	BackendCompose    ActuatorBackend = "compose"
	BackendKubernetes ActuatorBackend = "kubernetes"
)

// Config is the complete, immutable-after-load configuration for one
// controller instance.
type Config struct {
	PrometheusURL string
	ServiceName   string

	ScaleUpThreshold   float64
	ScaleDownThreshold float64
	MinReplicas        int
	MaxReplicas        int
	CheckInterval      time.Duration
	ScaleUpCooldown    time.Duration
	ScaleDownCooldown  time.Duration

	ScaleUpBreachesRequired   int
	ScaleDownBreachesRequired int

	MetricQuery string

	ActuatorBackend    ActuatorBackend
	ComposeProjectName string
	ComposeCommand     string
	KubeNamespace      string
	KubeDeployment     string
	Kubeconfig         string

	MetricsServerListen string
}

// DefaultConfig returns the configuration surface's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		PrometheusURL: "http://localhost:9090",
		ServiceName:   "webapp",

		ScaleUpThreshold:   0.6,
		ScaleDownThreshold: 0.2,
		MinReplicas:        1,
		MaxReplicas:        6,
		CheckInterval:      10 * time.Second,
		ScaleUpCooldown:    30 * time.Second,
		ScaleDownCooldown:  60 * time.Second,

		ScaleUpBreachesRequired:   2,
		ScaleDownBreachesRequired: 3,

		MetricQuery: `avg(http_request_duration_seconds{job="webapp"})`,

		ActuatorBackend:    BackendCompose,
		ComposeProjectName: "webapp",
		ComposeCommand:     "",
		KubeNamespace:      "default",
		KubeDeployment:     "",
		Kubeconfig:         "",

		MetricsServerListen: "0.0.0.0:9091",
	}
}

// Load reads configFile (if non-empty), binds the documented environment
// variables over it, and validates the result. The environment always wins
// over the file, matching the teacher's viper.AutomaticEnv precedence.
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetDefault("prometheus_url", cfg.PrometheusURL)
	v.SetDefault("service_name", cfg.ServiceName)
	v.SetDefault("scale_up_threshold", cfg.ScaleUpThreshold)
	v.SetDefault("scale_down_threshold", cfg.ScaleDownThreshold)
	v.SetDefault("max_replicas", cfg.MaxReplicas)
	v.SetDefault("min_replicas", cfg.MinReplicas)
	v.SetDefault("check_interval", int(cfg.CheckInterval.Seconds()))
	v.SetDefault("scale_up_cooldown", int(cfg.ScaleUpCooldown.Seconds()))
	v.SetDefault("scale_down_cooldown", int(cfg.ScaleDownCooldown.Seconds()))
	v.SetDefault("scale_up_breaches_required", cfg.ScaleUpBreachesRequired)
	v.SetDefault("scale_down_breaches_required", cfg.ScaleDownBreachesRequired)
	v.SetDefault("metric_query", cfg.MetricQuery)
	v.SetDefault("actuator_backend", string(cfg.ActuatorBackend))
	v.SetDefault("compose_project_name", cfg.ComposeProjectName)
	v.SetDefault("compose_command", cfg.ComposeCommand)
	v.SetDefault("kube_namespace", cfg.KubeNamespace)
	v.SetDefault("kube_deployment", cfg.KubeDeployment)
	v.SetDefault("kubeconfig", cfg.Kubeconfig)
	v.SetDefault("metrics_server_listen", cfg.MetricsServerListen)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, ctlerrors.Config("read config file", err)
		}
	}

	bindings := map[string]string{
		"prometheus_url":               "PROMETHEUS_URL",
		"service_name":                 "SERVICE_NAME",
		"scale_up_threshold":           "SCALE_UP_THRESHOLD",
		"scale_down_threshold":         "SCALE_DOWN_THRESHOLD",
		"max_replicas":                 "MAX_REPLICAS",
		"min_replicas":                 "MIN_REPLICAS",
		"check_interval":               "CHECK_INTERVAL",
		"scale_up_cooldown":            "SCALE_UP_COOLDOWN",
		"scale_down_cooldown":          "SCALE_DOWN_COOLDOWN",
		"scale_up_breaches_required":   "SCALE_UP_BREACHES_REQUIRED",
		"scale_down_breaches_required": "SCALE_DOWN_BREACHES_REQUIRED",
		"metric_query":                 "METRIC_QUERY",
		"actuator_backend":             "ACTUATOR_BACKEND",
		"compose_project_name":         "COMPOSE_PROJECT_NAME",
		"compose_command":              "COMPOSE_COMMAND",
		"kube_namespace":               "KUBE_NAMESPACE",
		"kube_deployment":              "KUBE_DEPLOYMENT",
		"kubeconfig":                   "KUBECONFIG",
		"metrics_server_listen":        "METRICS_SERVER_LISTEN",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, ctlerrors.Config("bind env "+env, err)
		}
	}

	cfg.PrometheusURL = v.GetString("prometheus_url")
	cfg.ServiceName = v.GetString("service_name")
	cfg.ScaleUpThreshold = v.GetFloat64("scale_up_threshold")
	cfg.ScaleDownThreshold = v.GetFloat64("scale_down_threshold")
	cfg.MaxReplicas = v.GetInt("max_replicas")
	cfg.MinReplicas = v.GetInt("min_replicas")
	cfg.CheckInterval = time.Duration(v.GetInt("check_interval")) * time.Second
	cfg.ScaleUpCooldown = time.Duration(v.GetInt("scale_up_cooldown")) * time.Second
	cfg.ScaleDownCooldown = time.Duration(v.GetInt("scale_down_cooldown")) * time.Second
	cfg.ScaleUpBreachesRequired = v.GetInt("scale_up_breaches_required")
	cfg.ScaleDownBreachesRequired = v.GetInt("scale_down_breaches_required")
	cfg.MetricQuery = v.GetString("metric_query")
	cfg.ActuatorBackend = ActuatorBackend(v.GetString("actuator_backend"))
	cfg.ComposeProjectName = v.GetString("compose_project_name")
	cfg.ComposeCommand = v.GetString("compose_command")
	cfg.KubeNamespace = v.GetString("kube_namespace")
	cfg.KubeDeployment = v.GetString("kube_deployment")
	cfg.Kubeconfig = v.GetString("kubeconfig")
	cfg.MetricsServerListen = v.GetString("metrics_server_listen")

	if cfg.KubeDeployment == "" {
		cfg.KubeDeployment = cfg.ServiceName
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the decision engine or control loop could
// not run safely: inverted replica bounds, non-positive thresholds, an
// inverted threshold band, and non-positive cadence/confirmation counts.
func (c *Config) Validate() error {
	if c.MinReplicas < 1 {
		return ctlerrors.Config("validate", fmt.Errorf("min_replicas must be >= 1, got %d", c.MinReplicas))
	}
	if c.MaxReplicas < c.MinReplicas {
		return ctlerrors.Config("validate", fmt.Errorf("max_replicas (%d) must be >= min_replicas (%d)", c.MaxReplicas, c.MinReplicas))
	}
	if c.ScaleUpThreshold <= 0 || c.ScaleDownThreshold <= 0 {
		return ctlerrors.Config("validate", fmt.Errorf("thresholds must be positive"))
	}
	if c.ScaleDownThreshold >= c.ScaleUpThreshold {
		return ctlerrors.Config("validate", fmt.Errorf("scale_down_threshold (%v) must be < scale_up_threshold (%v)", c.ScaleDownThreshold, c.ScaleUpThreshold))
	}
	if c.CheckInterval <= 0 {
		return ctlerrors.Config("validate", fmt.Errorf("check_interval must be positive"))
	}
	if c.ScaleUpCooldown < 0 || c.ScaleDownCooldown < 0 {
		return ctlerrors.Config("validate", fmt.Errorf("cooldowns must be non-negative"))
	}
	if c.ScaleUpBreachesRequired < 1 || c.ScaleDownBreachesRequired < 1 {
		return ctlerrors.Config("validate", fmt.Errorf("breaches-required counts must be >= 1"))
	}
	if c.ServiceName == "" {
		return ctlerrors.Config("validate", fmt.Errorf("service_name must not be empty"))
	}
	if c.PrometheusURL == "" {
		return ctlerrors.Config("validate", fmt.Errorf("prometheus_url must not be empty"))
	}
	switch c.ActuatorBackend {
	case BackendCompose, BackendKubernetes:
	default:
		return ctlerrors.Config("validate", fmt.Errorf("actuator_backend must be %q or %q, got %q", BackendCompose, BackendKubernetes, c.ActuatorBackend))
	}
	return nil
}

// Policy extracts the scaling.Policy subset of the configuration.
func (c *Config) Policy() scaling.Policy {
	return scaling.Policy{
		ScaleUpThreshold:          c.ScaleUpThreshold,
		ScaleDownThreshold:        c.ScaleDownThreshold,
		MinReplicas:               c.MinReplicas,
		MaxReplicas:               c.MaxReplicas,
		ScaleUpBreachesRequired:   c.ScaleUpBreachesRequired,
		ScaleDownBreachesRequired: c.ScaleDownBreachesRequired,
		ScaleUpCooldown:           c.ScaleUpCooldown,
		ScaleDownCooldown:         c.ScaleDownCooldown,
		MetricQuery:               c.MetricQuery,
		ServiceName:               c.ServiceName,
	}
}
