// Package metricsource implements the Metrics Source Adapter against a
// Prometheus-compatible instant-query API.
package metricsource

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog/log"

	"github.com/scaleloop/autoscaler/pkg/ctlerrors"
)

const queryTimeout = 5 * time.Second

// PrometheusSource queries a Prometheus (or API-compatible) backend for the
// configured metric and probes its readiness endpoint at startup.
type PrometheusSource struct {
	baseURL string
	query   string
	api     v1.API
	client  *http.Client
}

// New builds a PrometheusSource against baseURL, issuing query on every
// Query call.
func New(baseURL, query string) (*PrometheusSource, error) {
	c, err := api.NewClient(api.Config{Address: baseURL})
	if err != nil {
		return nil, ctlerrors.Config("build prometheus client", err)
	}
	return &PrometheusSource{
		baseURL: baseURL,
		query:   query,
		api:     v1.NewAPI(c),
		client:  &http.Client{Timeout: queryTimeout},
	}, nil
}

// Query issues the configured instant query and returns (value, true) on
// success, or (0, false) for any of: network failure, timeout, a
// non-success response envelope, an empty result set, or a non-numeric
// sample value. Absence is a first-class in-band signal, not an error, so
// this method never returns an error for these conditions.
func (p *PrometheusSource) Query(ctx context.Context) (float64, bool) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, warnings, err := p.api.Query(ctx, p.query, time.Now())
	if err != nil {
		log.Warn().Err(err).Str("query", p.query).Msg("metric query failed")
		return 0, false
	}
	for _, w := range warnings {
		log.Warn().Str("warning", w).Msg("metric query warning")
	}

	vector, ok := result.(model.Vector)
	if !ok || len(vector) == 0 {
		return 0, false
	}

	sample := vector[0]
	value := float64(sample.Value)
	if value != value { // NaN: unparseable/absent in effect
		return 0, false
	}
	return value, true
}

// IsReady reports whether the backend's health probe returns 200.
func (p *PrometheusSource) IsReady(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/-/healthy", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// String satisfies fmt.Stringer for logging.
func (p *PrometheusSource) String() string {
	return fmt.Sprintf("prometheus(%s)", p.baseURL)
}
