package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProfilesBuilt counts profile rebuilds. Labels: outcome (built, not_ready, error)
	ProfilesBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alpha",
		Subsystem: "risk",
		Name:      "profiles_built_total",
		Help:      "Risk profile rebuilds by outcome",
	}, []string{"outcome"})

	// OverallRiskScore is the distribution of computed overall scores.
	OverallRiskScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "alpha",
		Subsystem: "risk",
		Name:      "overall_score",
		Help:      "Distribution of overall risk scores",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	// RuleEvaluations counts per-rule outcomes. Labels: rule_type, outcome (triggered, not_triggered, error)
	RuleEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alpha",
		Subsystem: "rules",
		Name:      "evaluations_total",
		Help:      "Alert rule evaluations by outcome",
	}, []string{"rule_type", "outcome"})

	// AlertsCreated counts persisted alerts. Labels: alert_type
	AlertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alpha",
		Subsystem: "alerts",
		Name:      "created_total",
		Help:      "Alerts created by type",
	}, []string{"alert_type"})

	// AlertsDeduplicated counts triggers suppressed by an existing active alert.
	AlertsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "alpha",
		Subsystem: "alerts",
		Name:      "deduplicated_total",
		Help:      "Triggered rules suppressed by an active alert for the same case and rule",
	})

	// AlertTransitions counts lifecycle operations. Labels: action, outcome (ok, rejected, error)
	AlertTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alpha",
		Subsystem: "alerts",
		Name:      "transitions_total",
		Help:      "Alert lifecycle operations by outcome",
	}, []string{"action", "outcome"})

	// Notifications counts notification rows by channel and final status.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alpha",
		Subsystem: "notifications",
		Name:      "total",
		Help:      "Notifications by channel and status",
	}, []string{"channel", "status"})

	// StreamMessages counts consumed pipeline messages. Labels: stream, outcome (ok, error)
	StreamMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alpha",
		Subsystem: "pipeline",
		Name:      "messages_total",
		Help:      "Pipeline stream messages processed",
	}, []string{"stream", "outcome"})

	// StreamLatency measures handler time per message.
	StreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "alpha",
		Subsystem: "pipeline",
		Name:      "handler_seconds",
		Help:      "Pipeline handler latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stream"})

	// JobRuns counts scheduled job executions. Labels: job, outcome
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "alpha",
		Subsystem: "scheduler",
		Name:      "job_runs_total",
		Help:      "Scheduled job runs by outcome",
	}, []string{"job", "outcome"})
)
