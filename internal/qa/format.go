package qa

import (
	"fmt"
	"strings"

	"callqa/internal/health"
	"callqa/internal/metrics"
)

const (
	thinRule  = "────────────────────────────────────────"
	thickRule = "════════════════════════════════════════════════════════════"
	graphURL  = "http://localhost:7474"
)

// FormatSearchResults renders an ask result for the console.
func FormatSearchResults(result *AskResult) string {
	if result == nil || len(result.Results) == 0 {
		query := ""
		if result != nil {
			query = result.Query
		}
		return fmt.Sprintf("\n🔍 No results found for: %q\n%s", query, thinRule)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n🔍 Found %d result(s) for: %q\n%s\n", len(result.Results), result.Query, thickRule)
	for i, r := range result.Results {
		fmt.Fprintf(&b, "\n📊 Result %d:\n", i+1)
		fmt.Fprintf(&b, "  💡 Fact: %s\n", r.Fact)
		source := r.SourceDescription
		if source == "" {
			source = "Knowledge graph"
		}
		fmt.Fprintf(&b, "  📁 Source: %s\n", source)
		if !r.CreatedAt.IsZero() {
			fmt.Fprintf(&b, "  📅 Created: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		if r.RelevanceScore != nil {
			fmt.Fprintf(&b, "  🎯 Relevance: %.1f\n", *r.RelevanceScore)
		}
		b.WriteString(thinRule + "\n")
	}
	if result.Answer != "" {
		fmt.Fprintf(&b, "\n🤖 Answer:\n%s\n%s\n", result.Answer, thinRule)
	}
	fmt.Fprintf(&b, "\n💡 Tip: Explore the full graph at %s\n%s", graphURL, thickRule)
	return b.String()
}

// FormatUploadReceipt renders a single upload confirmation.
func FormatUploadReceipt(r *UploadReceipt) string {
	return fmt.Sprintf(`
✅ Call data uploaded successfully!
📝 Episode Name: %s
📊 Content Length: %d characters
🌐 View graph at: %s
%s`, r.EpisodeName, r.ContentLength, graphURL, thickRule)
}

// FormatBatchReceipt renders a batch upload summary including per-file
// failures.
func FormatBatchReceipt(r *BatchReceipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n📊 Batch upload complete: %d/%d files uploaded successfully.\n", r.Succeeded, r.Total)
	for _, msg := range r.Errors {
		fmt.Fprintf(&b, "  ❌ %s\n", msg)
	}
	b.WriteString(thickRule)
	return b.String()
}

// FormatPerformanceReport renders the analytics performance report.
func FormatPerformanceReport(report *metrics.PerformanceReport) string {
	if report.Error != "" {
		return fmt.Sprintf("\n❌ Performance report unavailable: %s", report.Error)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n📊 PERFORMANCE REPORT (%s)\n%s\n", report.GeneratedAt, thickRule)
	if s := report.Summary; s != nil {
		fmt.Fprintf(&b, "Total operations:     %d\n", s.TotalOperations)
		fmt.Fprintf(&b, "Operation types:      %d\n", s.OperationTypes)
		fmt.Fprintf(&b, "Avg success rate:     %.2f%%\n", s.AverageSuccessRate)
		fmt.Fprintf(&b, "Slow operations:      %d\n", s.SlowOperationsCount)
	}
	if len(report.OperationStats) > 0 {
		fmt.Fprintf(&b, "\nTop operations by count:\n%s\n", thinRule)
		for _, st := range report.OperationStats {
			fmt.Fprintf(&b, "  %-24s count=%-6d avg=%.3fs success=%.1f%%\n",
				st.OperationType, st.Count, st.AvgDuration, st.SuccessRate*100)
		}
	}
	if len(report.RecentSlowOperations) > 0 {
		fmt.Fprintf(&b, "\nRecent slow operations:\n%s\n", thinRule)
		for _, op := range report.RecentSlowOperations {
			status := "✅"
			if !op.Success {
				status = "❌"
			}
			fmt.Fprintf(&b, "  %s %-24s %.2fs at %s\n",
				status, op.Operation, op.Duration, op.Timestamp.Format("2006-01-02 15:04:05"))
		}
	}
	b.WriteString(thickRule)
	return b.String()
}

// FormatUsageInsights renders the analytics usage insights.
func FormatUsageInsights(insights *metrics.UsageInsights) string {
	if insights.Error != "" {
		return fmt.Sprintf("\n❌ Usage insights unavailable: %s", insights.Error)
	}
	if insights.Message != "" {
		return fmt.Sprintf("\n💡 %s", insights.Message)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n💡 USAGE INSIGHTS (%s)\n%s\n", insights.GeneratedAt, thickRule)
	if h := insights.MostUsed; h != nil && h.Count != nil {
		fmt.Fprintf(&b, "Most used:       %s (%d calls)\n", h.Name, *h.Count)
	}
	if h := insights.LeastReliable; h != nil && h.SuccessRate != nil {
		fmt.Fprintf(&b, "Least reliable:  %s (%.1f%% success)\n", h.Name, *h.SuccessRate*100)
	}
	if h := insights.Slowest; h != nil && h.AvgDuration != nil {
		fmt.Fprintf(&b, "Slowest:         %s (%.2fs avg)\n", h.Name, *h.AvgDuration)
	}
	if len(insights.Recommendations) > 0 {
		fmt.Fprintf(&b, "\nRecommendations:\n%s\n", thinRule)
		for _, rec := range insights.Recommendations {
			fmt.Fprintf(&b, "  • %s\n", rec)
		}
	}
	b.WriteString(thickRule)
	return b.String()
}

// FormatHealthReport renders a health snapshot.
func FormatHealthReport(report *health.Report) string {
	var b strings.Builder
	overall := "✅ HEALTHY"
	if !report.Healthy {
		overall = "❌ UNHEALTHY"
	}
	fmt.Fprintf(&b, "\n🏥 SYSTEM HEALTH: %s (%s)\n%s\n",
		overall, report.Timestamp.Format("2006-01-02 15:04:05"), thickRule)
	b.WriteString(formatProbe("Graph database", report.Graph))
	b.WriteString(formatProbe("Metrics database", report.MetricsDB))
	fmt.Fprintf(&b, "Memory:           alloc %.1f MB / sys %.1f MB, %d GC cycles, %d goroutines\n",
		report.Memory.AllocMB, report.Memory.SysMB, report.Memory.NumGC, report.Memory.Goroutines)
	b.WriteString(thickRule)
	return b.String()
}

func formatProbe(name string, p health.Probe) string {
	if p.OK {
		return fmt.Sprintf("%-17s ✅ ok (%.1fms)\n", name+":", float64(p.Latency.Microseconds())/1000)
	}
	return fmt.Sprintf("%-17s ❌ %s\n", name+":", p.Error)
}
