// Command autoscaler runs the latency-driven replica controller.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/scaleloop/autoscaler/internal/config"
	"github.com/scaleloop/autoscaler/internal/obslog"
	"github.com/scaleloop/autoscaler/internal/statusserver"
	"github.com/scaleloop/autoscaler/pkg/actuator"
	"github.com/scaleloop/autoscaler/pkg/ctlerrors"
	"github.com/scaleloop/autoscaler/pkg/loop"
	"github.com/scaleloop/autoscaler/pkg/metricsource"
	"github.com/scaleloop/autoscaler/pkg/replicasource"
)

var (
	configFile    string
	backendFlag   string
	logLevelFlag  string
	logFormatFlag string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autoscaler",
		Short: "Latency-driven replica autoscaling controller",
		RunE:  run,
	}

	cmd.Flags().StringVar(&configFile, "config", "", "path to a config file (optional, env vars always win)")
	cmd.Flags().StringVar(&backendFlag, "backend", "", "override ACTUATOR_BACKEND (compose|kubernetes)")
	cmd.Flags().StringVar(&logLevelFlag, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormatFlag, "log-format", "console", "log format (console, json)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	obslog.Configure(logLevelFlag, obslog.Format(logFormatFlag))

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if backendFlag != "" {
		cfg.ActuatorBackend = config.ActuatorBackend(backendFlag)
		if verr := cfg.Validate(); verr != nil {
			return verr
		}
	}

	metricSource, err := metricsource.New(cfg.PrometheusURL, cfg.MetricQuery)
	if err != nil {
		return err
	}

	replicaSrc, act, err := buildBackend(cfg)
	if err != nil {
		return err
	}

	metrics := statusserver.NewMetrics(cfg.ServiceName)
	status := statusserver.NewServer(cfg.MetricsServerListen, metrics)
	status.Start()

	controlLoop := loop.New(cfg, metricSource, replicaSrc, act, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- controlLoop.Run(ctx)
	}()
	status.SetReady(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown requested")
		cancel()
		if err := <-runErrCh; err != nil {
			log.Error().Err(err).Msg("control loop returned error during shutdown")
		}
	case err := <-runErrCh:
		if err != nil {
			log.Error().Err(err).Msg("control loop exited")
			shutdownStatusServer(status)
			return err
		}
	}

	shutdownStatusServer(status)
	log.Info().Msg("autoscaler stopped")
	return nil
}

func shutdownStatusServer(status *statusserver.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := status.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("status server shutdown error")
	}
}

func buildBackend(cfg *config.Config) (loop.ReplicaSource, loop.Actuator, error) {
	switch cfg.ActuatorBackend {
	case config.BackendKubernetes:
		client, err := replicasource.BuildKubeClient(cfg.Kubeconfig)
		if err != nil {
			return nil, nil, ctlerrors.Startup("build kubernetes client", err)
		}
		rs := replicasource.NewKubernetesSource(client, cfg.KubeNamespace, cfg.KubeDeployment, cfg.MinReplicas)
		act := actuator.NewKubernetesActuator(client, cfg.KubeNamespace, cfg.KubeDeployment)
		return rs, act, nil

	case config.BackendCompose:
		rs, err := replicasource.NewDockerSource(cfg.ServiceName, cfg.MinReplicas)
		if err != nil {
			return nil, nil, ctlerrors.Startup("build docker client", err)
		}
		act := actuator.NewComposeActuator(cfg.ComposeProjectName, cfg.ServiceName, cfg.ComposeCommand)
		return rs, act, nil

	default:
		return nil, nil, ctlerrors.Config("select backend", fmt.Errorf("unknown actuator backend %q", cfg.ActuatorBackend))
	}
}
