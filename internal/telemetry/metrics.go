// Package telemetry (metrics.go) defines the Prometheus metrics served on
// the daemon's /metrics endpoint.
//
// Metric naming follows Prometheus conventions:
//   - operator_ prefix for all custom metrics
//   - _total suffix for counters
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the daemon's Prometheus registry, served on /metrics by
// whatever HTTP server the caller wires up — a plain prometheus.Registry,
// not the controller-runtime default registry the teacher uses, since this
// daemon runs no Kubernetes controller manager.
var Registry = prometheus.NewRegistry()

var (
	// ApprovalsTotal counts approval-queue transitions by terminal status
	// (approved, rejected, expired, executed).
	ApprovalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operator_approvals_total",
			Help: "Total approval-queue transitions by status.",
		},
		[]string{"status"},
	)

	// ScheduledJobsTotal counts scheduled-job terminal outcomes.
	ScheduledJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operator_scheduled_jobs_total",
			Help: "Total scheduled jobs by terminal status (executed, failed).",
		},
		[]string{"status"},
	)

	// ResearchItemsTotal counts research pipeline items by stage outcome.
	ResearchItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operator_research_items_total",
			Help: "Total research items processed by stage (scraped, evaluated, submitted).",
		},
		[]string{"stage"},
	)

	// NotificationsTotal counts notification sends by channel and result.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operator_notifications_total",
			Help: "Total notification sends by channel and result (sent, skipped, failed).",
		},
		[]string{"channel", "result"},
	)

	// GrowthActionsTotal counts growth-pipeline feature runs by feature and outcome.
	GrowthActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operator_growth_actions_total",
			Help: "Total growth-pipeline feature runs by feature and outcome.",
		},
		[]string{"feature", "outcome"},
	)

	// OperationsPollsTotal counts dashboard inbox poll runs by outcome.
	OperationsPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operator_operations_polls_total",
			Help: "Total dashboard inbox poll runs by outcome (processed, error).",
		},
		[]string{"outcome"},
	)

	// KillSwitchActive reports the current kill-switch state (0 or 1).
	KillSwitchActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "operator_kill_switch_active",
			Help: "1 if the kill switch is currently active, 0 otherwise.",
		},
	)
)

func init() {
	Registry.MustRegister(
		ApprovalsTotal,
		ScheduledJobsTotal,
		ResearchItemsTotal,
		NotificationsTotal,
		GrowthActionsTotal,
		OperationsPollsTotal,
		KillSwitchActive,
	)
}

// Handler returns the HTTP handler serving Registry in the Prometheus
// exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordApproval records a single approval-queue terminal transition.
func RecordApproval(status string) {
	ApprovalsTotal.WithLabelValues(status).Inc()
}

// RecordScheduledJob records a single scheduled-job terminal outcome.
func RecordScheduledJob(status string) {
	ScheduledJobsTotal.WithLabelValues(status).Inc()
}

// RecordResearchItem records a single research-pipeline stage outcome.
func RecordResearchItem(stage string) {
	ResearchItemsTotal.WithLabelValues(stage).Inc()
}

// RecordNotification records a single notification send attempt.
func RecordNotification(channel, result string) {
	NotificationsTotal.WithLabelValues(channel, result).Inc()
}

// RecordGrowthAction records a single growth-pipeline feature run.
func RecordGrowthAction(feature, outcome string) {
	GrowthActionsTotal.WithLabelValues(feature, outcome).Inc()
}

// RecordOperationsPoll records a single dashboard inbox poll run.
func RecordOperationsPoll(outcome string) {
	OperationsPollsTotal.WithLabelValues(outcome).Inc()
}

// SetKillSwitchActive updates the kill-switch gauge.
func SetKillSwitchActive(active bool) {
	if active {
		KillSwitchActive.Set(1)
	} else {
		KillSwitchActive.Set(0)
	}
}
