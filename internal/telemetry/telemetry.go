// Package telemetry holds the metric set for the orchestration pipeline.
// Each Telemetry owns its own prometheus registry, so multiple
// orchestrators (and tests) never fight over metric registration.
package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry bundles the pipeline's metrics and tracer.
type Telemetry struct {
	registry *prometheus.Registry
	tracer   trace.Tracer

	Queries         *prometheus.CounterVec
	Iterations      prometheus.Histogram
	ToolInvocations *prometheus.CounterVec
	SelfCorrections prometheus.Counter
	PatternHits     prometheus.Counter
	QueryDuration   prometheus.Histogram
	FinalScores     prometheus.Histogram
}

// New creates a telemetry set on a fresh registry.
func New(serviceName string) *Telemetry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Telemetry{
		registry: reg,
		tracer:   otel.Tracer(serviceName),
		Queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dualmind_queries_total",
			Help: "Queries processed, by final status.",
		}, []string{"status"}),
		Iterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dualmind_refinement_iterations",
			Help:    "Critique iterations per query.",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
		ToolInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dualmind_tool_invocations_total",
			Help: "Tool step executions, by tool and status.",
		}, []string{"tool", "status"}),
		SelfCorrections: factory.NewCounter(prometheus.CounterOpts{
			Name: "dualmind_self_corrections_total",
			Help: "Queries that needed at least one correction pass.",
		}),
		PatternHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "dualmind_pattern_hits_total",
			Help: "Queries planned with memoized pattern hints.",
		}),
		QueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dualmind_query_duration_seconds",
			Help:    "Wall time per query.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		FinalScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dualmind_final_plan_score",
			Help:    "Critic score of the executed plan.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}

// Tracer returns the tracer for span creation.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracer
}

// Handler serves this registry's metrics.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for gathering in tests.
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// ServeMetrics starts a standalone metrics listener on port.
func (t *Telemetry) ServeMetrics(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()
	return srv
}
