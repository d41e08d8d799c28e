package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neku_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "neku_pipeline_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	ActivePipelines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "neku_active_pipelines",
			Help: "Number of pipeline requests currently in flight",
		},
	)

	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neku_messages_received_total",
			Help: "Total number of command messages received per channel",
		},
		[]string{"channel"},
	)

	EncoderInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neku_encoder_invocations_total",
			Help: "Total number of external encoder invocations by operation and status",
		},
		[]string{"op", "status"},
	)
)
