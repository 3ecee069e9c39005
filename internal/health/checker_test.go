package health

import (
	"context"
	"fmt"
	"testing"
)

// stubPinger satisfies both probe interfaces.
type stubPinger struct {
	err   error
	calls int
}

func (s *stubPinger) Ping(ctx context.Context) error {
	s.calls++
	return s.err
}

func TestCheckAllHealthy(t *testing.T) {
	graph := &stubPinger{}
	store := &stubPinger{}
	checker := NewChecker(graph, store)

	report := checker.Check(context.Background())

	if !report.Healthy {
		t.Errorf("report.Healthy = false, want true")
	}
	if !report.Graph.OK || !report.MetricsDB.OK {
		t.Errorf("probes = %+v / %+v, want both ok", report.Graph, report.MetricsDB)
	}
	if graph.calls != 1 || store.calls != 1 {
		t.Errorf("probe calls = %d / %d, want 1 / 1", graph.calls, store.calls)
	}
	if report.Memory.Goroutines < 1 {
		t.Errorf("goroutines = %d, want at least 1", report.Memory.Goroutines)
	}
	if report.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestCheckOneProbeFailing(t *testing.T) {
	graph := &stubPinger{err: fmt.Errorf("connection refused")}
	store := &stubPinger{}
	checker := NewChecker(graph, store)

	report := checker.Check(context.Background())

	if report.Healthy {
		t.Error("report.Healthy = true with a failing probe")
	}
	if report.Graph.OK {
		t.Error("graph probe reported ok despite error")
	}
	if report.Graph.Error != "connection refused" {
		t.Errorf("graph probe error = %q", report.Graph.Error)
	}
	// A failed graph probe must not suppress the store probe.
	if !report.MetricsDB.OK || store.calls != 1 {
		t.Errorf("store probe = %+v (calls %d), want ok and probed", report.MetricsDB, store.calls)
	}
}

func TestCheckBothFailing(t *testing.T) {
	checker := NewChecker(
		&stubPinger{err: fmt.Errorf("graph down")},
		&stubPinger{err: fmt.Errorf("db down")},
	)

	report := checker.Check(context.Background())

	if report.Healthy {
		t.Error("report.Healthy = true with both probes failing")
	}
	if report.Graph.Error != "graph down" || report.MetricsDB.Error != "db down" {
		t.Errorf("probe errors = %q / %q", report.Graph.Error, report.MetricsDB.Error)
	}
}
