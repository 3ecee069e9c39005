package metrics

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"callqa/pkg/logger"
)

// Reporting thresholds. A record over slowRecordSeconds is listed as slow;
// an operation whose average exceeds slowAvgSeconds or whose success rate
// falls under reliabilityFloor earns a recommendation.
const (
	slowRecordSeconds = 2.0
	slowAvgSeconds    = 5.0
	reliabilityFloor  = 0.9
	recentWindow      = 50
	topOperations     = 10
	maxSlowListed     = 5
)

const noUsageDataMessage = "No usage data available"

// ReportSummary aggregates across every known operation type.
type ReportSummary struct {
	TotalOperations int64 `json:"total_operations"`
	OperationTypes  int   `json:"operation_types"`
	// AverageSuccessRate is the unweighted mean of per-operation rates,
	// as a percentage rounded to two decimals. Rarely-used operations
	// weigh the same as busy ones.
	AverageSuccessRate  float64 `json:"average_success_rate"`
	SlowOperationsCount int     `json:"slow_operations_count"`
}

// SlowOperation is one raw record that crossed the slow threshold.
type SlowOperation struct {
	Operation string    `json:"operation"`
	Duration  float64   `json:"duration"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
}

// PerformanceReport is the full performance snapshot. When generation fails
// only Error is set.
type PerformanceReport struct {
	GeneratedAt          string           `json:"report_generated,omitempty"`
	Summary              *ReportSummary   `json:"summary,omitempty"`
	OperationStats       []UsageStatistic `json:"operation_stats,omitempty"`
	RecentSlowOperations []SlowOperation  `json:"recent_slow_operations,omitempty"`
	Error                string           `json:"error,omitempty"`
}

// OperationHighlight names one operation and whichever figure made it
// notable. Absent figures are nil, not zero.
type OperationHighlight struct {
	Name        string   `json:"name"`
	Count       *int64   `json:"count,omitempty"`
	SuccessRate *float64 `json:"success_rate,omitempty"` // fraction in [0, 1]
	AvgDuration *float64 `json:"avg_duration,omitempty"` // seconds
}

// UsageInsights highlights notable operations and suggests follow-ups.
// With no recorded usage only Message is set; when generation fails only
// Error is set.
type UsageInsights struct {
	GeneratedAt     string              `json:"insights_generated,omitempty"`
	Message         string              `json:"message,omitempty"`
	MostUsed        *OperationHighlight `json:"most_used_operation,omitempty"`
	LeastReliable   *OperationHighlight `json:"least_reliable_operation,omitempty"`
	Slowest         *OperationHighlight `json:"slowest_operation,omitempty"`
	Recommendations []string            `json:"recommendations,omitempty"`
	Error           string              `json:"error,omitempty"`
}

// Analytics derives reports from a metrics store.
type Analytics struct {
	store  *Store
	logger *zap.Logger
}

// NewAnalytics creates an analytics reader over store.
func NewAnalytics(store *Store) *Analytics {
	return &Analytics{store: store, logger: logger.Get()}
}

// PerformanceReport summarizes aggregates plus recent slow records. An empty
// store produces a valid zero report.
func (a *Analytics) PerformanceReport(ctx context.Context) *PerformanceReport {
	stats, err := a.store.queryUsageStats(ctx)
	if err != nil {
		a.logger.Error("performance report failed", zap.Error(err))
		return &PerformanceReport{Error: err.Error()}
	}
	recent, err := a.store.queryRecentMetrics(ctx, recentWindow)
	if err != nil {
		a.logger.Error("performance report failed", zap.Error(err))
		return &PerformanceReport{Error: err.Error()}
	}

	var (
		totalOps int64
		rateSum  float64
	)
	for _, st := range stats {
		totalOps += st.Count
		rateSum += st.SuccessRate
	}
	avgRate := 0.0
	if len(stats) > 0 {
		avgRate = math.Round(rateSum/float64(len(stats))*100*100) / 100
	}

	var slow []SlowOperation
	for _, rec := range recent {
		if rec.Duration > slowRecordSeconds {
			slow = append(slow, SlowOperation{
				Operation: rec.Operation,
				Duration:  rec.Duration,
				Timestamp: rec.Timestamp,
				Success:   rec.Success,
			})
		}
	}

	top := stats
	if len(top) > topOperations {
		top = top[:topOperations]
	}
	listed := slow
	if len(listed) > maxSlowListed {
		listed = listed[:maxSlowListed]
	}

	return &PerformanceReport{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Summary: &ReportSummary{
			TotalOperations:     totalOps,
			OperationTypes:      len(stats),
			AverageSuccessRate:  avgRate,
			SlowOperationsCount: len(slow),
		},
		OperationStats:       top,
		RecentSlowOperations: listed,
	}
}

// UsageInsights picks out the most used, least reliable and slowest
// operations and builds recommendations from the reporting thresholds.
func (a *Analytics) UsageInsights(ctx context.Context) *UsageInsights {
	stats, err := a.store.queryUsageStats(ctx)
	if err != nil {
		a.logger.Error("usage insights failed", zap.Error(err))
		return &UsageInsights{Error: err.Error()}
	}
	if len(stats) == 0 {
		return &UsageInsights{Message: noUsageDataMessage}
	}

	mostUsed := stats[0] // stats arrive ordered by count
	leastReliable := stats[0]
	slowest := stats[0]
	for _, st := range stats[1:] {
		if st.SuccessRate < leastReliable.SuccessRate {
			leastReliable = st
		}
		if st.AvgDuration > slowest.AvgDuration {
			slowest = st
		}
	}

	var recommendations []string
	for _, st := range stats {
		if st.SuccessRate < reliabilityFloor {
			recommendations = append(recommendations,
				fmt.Sprintf("Consider improving error handling for %s (current success rate: %.1f%%)",
					st.OperationType, st.SuccessRate*100))
		}
		if st.AvgDuration > slowAvgSeconds {
			recommendations = append(recommendations,
				fmt.Sprintf("Optimize %s performance (current avg duration: %.1fs)",
					st.OperationType, st.AvgDuration))
		}
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "System performance looks good! 🎉")
	}

	return &UsageInsights{
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
		MostUsed:        &OperationHighlight{Name: mostUsed.OperationType, Count: ptr(mostUsed.Count)},
		LeastReliable:   &OperationHighlight{Name: leastReliable.OperationType, SuccessRate: ptr(leastReliable.SuccessRate)},
		Slowest:         &OperationHighlight{Name: slowest.OperationType, AvgDuration: ptr(slowest.AvgDuration)},
		Recommendations: recommendations,
	}
}

func ptr[T any](v T) *T {
	return &v
}
