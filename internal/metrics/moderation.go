package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "update_requests",
			Name:      "submitted_total",
			Help:      "Update request submissions by outcome.",
		},
		[]string{"outcome"},
	)

	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "update_requests",
			Name:      "resolved_total",
			Help:      "Update request resolutions by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "logins_total",
			Help:      "Admin login attempts by result.",
		},
		[]string{"result"},
	)
)

// RecordSubmission counts one update request submission.
func RecordSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordResolution counts one resolve attempt. Unknown actions are folded
// into a single label value to keep cardinality bounded.
func RecordResolution(action, outcome string) {
	if action != "approve" && action != "reject" {
		action = "invalid"
	}
	resolutionsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordLogin counts one admin login attempt.
func RecordLogin(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	loginsTotal.WithLabelValues(result).Inc()
}
