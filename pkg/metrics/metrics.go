// Package metrics exposes the prometheus collectors for the access-decision
// and audit engines. Collectors register on the default registry; hosts serve
// them through their own promhttp handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AccessDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagate_access_decisions_total",
		Help: "Access decisions by result.",
	}, []string{"result"})

	UnauthorizedAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datagate_unauthorized_access_attempts_total",
		Help: "Denied cross-company access checks that raised a compliance event.",
	})

	AttemptLogFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datagate_access_attempt_log_failures_total",
		Help: "Access-attempt records that could not be persisted.",
	})

	AuditEventsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagate_audit_events_written_total",
		Help: "Audit events written by event type.",
	}, []string{"event_type"})

	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datagate_audit_write_failures_total",
		Help: "Audit events whose write failed and aborted the triggering operation.",
	})
)
