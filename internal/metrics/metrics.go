package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FlowTransitions counts orchestrator state transitions by target state
	FlowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_flow_transitions_total",
			Help: "Total number of bridge flow state transitions",
		},
		[]string{"state"},
	)

	// AllowanceChecks counts allowance inspections by result
	AllowanceChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_allowance_checks_total",
			Help: "Total number of allowance checks",
		},
		[]string{"result"},
	)

	// Approvals counts approval transactions by status
	Approvals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_approvals_total",
			Help: "Total number of approval transactions",
		},
		[]string{"status"},
	)

	// Submissions counts lock submissions by status
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_submissions_total",
			Help: "Total number of lock submissions",
		},
		[]string{"status"},
	)

	// ConfirmationPolls counts confirmation backend lookups by result
	ConfirmationPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_confirmation_polls_total",
			Help: "Total number of confirmation lookups",
		},
		[]string{"result"},
	)

	// ConfirmationWait tracks time from submission to a terminal confirmation outcome
	ConfirmationWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_confirmation_wait_seconds",
			Help:    "Time spent waiting for confirmation in seconds",
			Buckets: []float64{10, 30, 60, 120, 300, 600},
		},
		[]string{"outcome"},
	)

	// GasUsed tracks gas used by wallet transactions
	GasUsed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_gas_used",
			Help:    "Gas used for wallet transactions",
			Buckets: []float64{21000, 50000, 100000, 200000, 300000, 500000},
		},
		[]string{"operation"},
	)

	// ErrorsTotal counts errors by type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// InflightFlows tracks flows that hold a submission guard
	InflightFlows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_inflight_flows",
			Help: "Number of flows with a submission in flight",
		},
	)
)
