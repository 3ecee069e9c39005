// Package metrics persists per-operation performance records in SQLite and
// derives usage reports from them. Recording is best-effort: a failure to
// write a metric is logged and swallowed so instrumentation can never break
// the operation it observes.
package metrics

import "time"

// Record is a single measured execution of a named operation.
type Record struct {
	Operation string
	Duration  float64 // seconds
	Timestamp time.Time
	Success   bool
	Metadata  map[string]any
}

// UsageStatistic is the per-operation aggregate with derived fields.
// AvgDuration and SuccessRate are zero when Count is zero.
type UsageStatistic struct {
	OperationType string    `json:"operation"`
	Count         int64     `json:"count"`
	AvgDuration   float64   `json:"avg_duration"`
	SuccessRate   float64   `json:"success_rate"` // fraction in [0, 1]
	LastExecution time.Time `json:"last_execution"`
}
