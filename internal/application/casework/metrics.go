package casework

import "time"

// Outcome labels for completed transitions
const (
	OutcomeOK                = "ok"
	OutcomeUnauthorized      = "unauthorized"
	OutcomeIllegalTransition = "illegal_transition"
	OutcomeValidation        = "validation_error"
	OutcomeConflict          = "conflict"
	OutcomeError             = "error"
)

// Metrics receives case engine measurements
type Metrics interface {
	TransitionCompleted(entity, transition, outcome string, elapsed time.Duration)
	StaleSnapshot(entity string)
	SnapshotsRefreshed(entity string, count int)
	CasesExpired(entity string, count int)
}

type nopMetrics struct{}

func (nopMetrics) TransitionCompleted(string, string, string, time.Duration) {}
func (nopMetrics) StaleSnapshot(string) {}
func (nopMetrics) SnapshotsRefreshed(string, int) {}
func (nopMetrics) CasesExpired(string, int) {}

func orNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
