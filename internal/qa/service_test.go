package qa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"callqa/internal/graphiti"
	"callqa/internal/metrics"
	"callqa/pkg/errors"
)

// mockGraphService records calls and returns configured results.
type mockGraphService struct {
	addEpisodeFunc func(ctx context.Context, ep graphiti.Episode) error
	searchFunc     func(ctx context.Context, query string, numResults int) ([]graphiti.SearchResult, error)
	episodes       []graphiti.Episode
}

func (m *mockGraphService) AddEpisode(ctx context.Context, ep graphiti.Episode) error {
	m.episodes = append(m.episodes, ep)
	if m.addEpisodeFunc != nil {
		return m.addEpisodeFunc(ctx, ep)
	}
	return nil
}

func (m *mockGraphService) Search(ctx context.Context, query string, numResults int) ([]graphiti.SearchResult, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, numResults)
	}
	return nil, nil
}

func (m *mockGraphService) BuildIndicesAndConstraints(ctx context.Context) error { return nil }
func (m *mockGraphService) Close(ctx context.Context) error                      { return nil }

type mockAnswerer struct {
	completeFunc func(ctx context.Context, systemPrompt, userMsg string) (string, error)
	calls        int
}

func (m *mockAnswerer) Complete(ctx context.Context, systemPrompt, userMsg string) (string, error) {
	m.calls++
	if m.completeFunc != nil {
		return m.completeFunc(ctx, systemPrompt, userMsg)
	}
	return "synthesized answer", nil
}

func newTestService(t *testing.T, graph *mockGraphService, llm *mockAnswerer) (*Service, *metrics.Store) {
	t.Helper()
	store, err := metrics.Open(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("open metrics store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewService(graph, llm, metrics.NewMonitor(store)), store
}

func TestUploadText(t *testing.T) {
	graph := &mockGraphService{}
	svc, store := newTestService(t, graph, &mockAnswerer{})

	receipt, err := svc.UploadText(context.Background(), "Alice called about the invoice.")
	if err != nil {
		t.Fatalf("UploadText failed: %v", err)
	}
	if !strings.HasPrefix(receipt.EpisodeName, "direct_input_") {
		t.Errorf("episode name = %q, want direct_input_ prefix", receipt.EpisodeName)
	}
	if receipt.SourceDescription != "Direct text input" {
		t.Errorf("source = %q", receipt.SourceDescription)
	}
	if len(graph.episodes) != 1 {
		t.Fatalf("episodes stored = %d, want 1", len(graph.episodes))
	}
	if graph.episodes[0].Body != "Alice called about the invoice." {
		t.Errorf("episode body altered: %q", graph.episodes[0].Body)
	}

	// The operation must be metered.
	stats := store.UsageStats(context.Background())
	if len(stats) != 1 || stats[0].OperationType != "qa.upload_text" {
		t.Fatalf("usage stats = %+v, want one qa.upload_text entry", stats)
	}
	if stats[0].SuccessRate != 1.0 {
		t.Errorf("success rate = %v, want 1.0", stats[0].SuccessRate)
	}
}

func TestUploadTextBlankIsValidationError(t *testing.T) {
	svc, store := newTestService(t, &mockGraphService{}, &mockAnswerer{})

	_, err := svc.UploadText(context.Background(), "   \n  ")
	if !errors.IsErrorType(err, errors.ErrorTypeValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}

	// Failed calls are metered too.
	stats := store.UsageStats(context.Background())
	if len(stats) != 1 || stats[0].SuccessRate != 0 {
		t.Fatalf("usage stats = %+v, want one failed qa.upload_text entry", stats)
	}
}

func TestUploadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "call_notes.txt")
	if err := os.WriteFile(path, []byte("Bob reported a billing issue."), 0o644); err != nil {
		t.Fatal(err)
	}

	graph := &mockGraphService{}
	svc, _ := newTestService(t, graph, &mockAnswerer{})

	receipt, err := svc.UploadFile(context.Background(), path, "")
	if err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}
	if !strings.HasPrefix(receipt.EpisodeName, "call_notes_") {
		t.Errorf("episode name = %q", receipt.EpisodeName)
	}
	if receipt.SourceDescription != "Uploaded from file: call_notes.txt" {
		t.Errorf("source = %q", receipt.SourceDescription)
	}
}

func TestUploadFileMissing(t *testing.T) {
	svc, _ := newTestService(t, &mockGraphService{}, &mockAnswerer{})
	_, err := svc.UploadFile(context.Background(), "/no/such/file.txt", "")
	if !errors.IsErrorType(err, errors.ErrorTypeValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestUploadGlob(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		name := filepath.Join(dir, fmt.Sprintf("call%d.txt", i))
		if err := os.WriteFile(name, []byte(fmt.Sprintf("transcript %d", i)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// An empty file should fail its individual upload without stopping the batch.
	if err := os.WriteFile(filepath.Join(dir, "call_empty.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	graph := &mockGraphService{}
	svc, _ := newTestService(t, graph, &mockAnswerer{})

	receipt, err := svc.UploadGlob(context.Background(), filepath.Join(dir, "call*.txt"))
	if err != nil {
		t.Fatalf("UploadGlob failed: %v", err)
	}
	if receipt.Total != 4 || receipt.Succeeded != 3 || receipt.Failed != 1 {
		t.Fatalf("receipt = %+v, want total 4, succeeded 3, failed 1", receipt)
	}
	if len(receipt.Errors) != 1 {
		t.Fatalf("errors = %v, want one entry", receipt.Errors)
	}
	for _, ep := range graph.episodes {
		if !strings.HasPrefix(ep.Name, "batch_") {
			t.Errorf("batch episode name = %q, want batch_ prefix", ep.Name)
		}
	}
}

func TestUploadGlobNoMatches(t *testing.T) {
	svc, _ := newTestService(t, &mockGraphService{}, &mockAnswerer{})
	_, err := svc.UploadGlob(context.Background(), filepath.Join(t.TempDir(), "*.txt"))
	if !errors.IsErrorType(err, errors.ErrorTypeValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func score(v float64) *float64 { return &v }

func TestAskFilters(t *testing.T) {
	now := time.Now().UTC()
	graph := &mockGraphService{
		searchFunc: func(ctx context.Context, query string, numResults int) ([]graphiti.SearchResult, error) {
			return []graphiti.SearchResult{
				{Fact: "Acme renewed the contract", SourceDescription: "Uploaded from file: call1.txt", CreatedAt: now, RelevanceScore: score(1.0)},
				{Fact: "Beta asked for a refund", SourceDescription: "Uploaded from file: call2.txt", CreatedAt: now.AddDate(0, 0, -30), RelevanceScore: score(0.5)},
			}, nil
		},
	}
	svc, _ := newTestService(t, graph, &mockAnswerer{})

	// Source filter keeps only call1.
	result, err := svc.Ask(context.Background(), "what happened with the contract", AskOptions{SourceFilter: "call1"})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if len(result.Results) != 1 || result.Results[0].Fact != "Acme renewed the contract" {
		t.Fatalf("filtered results = %+v", result.Results)
	}

	// Days-back cutoff drops the 30-day-old fact.
	result, err = svc.Ask(context.Background(), "what happened with the contract", AskOptions{DaysBack: 7})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if len(result.Results) != 1 || result.Results[0].Fact != "Acme renewed the contract" {
		t.Fatalf("cutoff results = %+v", result.Results)
	}
}

func TestAskInvalidQuery(t *testing.T) {
	svc, _ := newTestService(t, &mockGraphService{}, &mockAnswerer{})
	for _, q := range []string{"", "  ", "ab", strings.Repeat("x", 501)} {
		if _, err := svc.Ask(context.Background(), q, AskOptions{}); !errors.IsErrorType(err, errors.ErrorTypeValidation) {
			t.Errorf("Ask(%q) err = %v, want validation error", q, err)
		}
	}
}

func TestAskSynthesize(t *testing.T) {
	graph := &mockGraphService{
		searchFunc: func(ctx context.Context, query string, numResults int) ([]graphiti.SearchResult, error) {
			return []graphiti.SearchResult{{Fact: "Acme renewed the contract"}}, nil
		},
	}
	llm := &mockAnswerer{
		completeFunc: func(ctx context.Context, systemPrompt, userMsg string) (string, error) {
			if !strings.Contains(userMsg, "Acme renewed the contract") {
				t.Errorf("prompt missing fact: %q", userMsg)
			}
			return " Acme renewed. [1] ", nil
		},
	}
	svc, store := newTestService(t, graph, llm)

	result, err := svc.Ask(context.Background(), "did acme renew", AskOptions{Synthesize: true})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if result.Answer != "Acme renewed. [1]" {
		t.Errorf("answer = %q", result.Answer)
	}

	// Both the search and the answer operations are metered.
	ops := map[string]bool{}
	for _, st := range store.UsageStats(context.Background()) {
		ops[st.OperationType] = true
	}
	if !ops["qa.search"] || !ops["qa.answer"] {
		t.Errorf("metered ops = %v, want qa.search and qa.answer", ops)
	}
}

func TestAskSynthesisFailureDegradesToFacts(t *testing.T) {
	graph := &mockGraphService{
		searchFunc: func(ctx context.Context, query string, numResults int) ([]graphiti.SearchResult, error) {
			return []graphiti.SearchResult{{Fact: "Acme renewed the contract"}}, nil
		},
	}
	llm := &mockAnswerer{
		completeFunc: func(ctx context.Context, systemPrompt, userMsg string) (string, error) {
			return "", fmt.Errorf("model unavailable")
		},
	}
	svc, _ := newTestService(t, graph, llm)

	result, err := svc.Ask(context.Background(), "did acme renew", AskOptions{Synthesize: true})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if result.Answer != "" {
		t.Errorf("answer = %q, want empty after synthesis failure", result.Answer)
	}
	if len(result.Results) != 1 {
		t.Errorf("results = %+v, want the raw fact", result.Results)
	}
}

func TestAskNoSynthesisOnEmptyResults(t *testing.T) {
	llm := &mockAnswerer{}
	svc, _ := newTestService(t, &mockGraphService{}, llm)

	result, err := svc.Ask(context.Background(), "anything at all", AskOptions{Synthesize: true})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if len(result.Results) != 0 || result.Answer != "" {
		t.Errorf("result = %+v, want empty", result)
	}
	if llm.calls != 0 {
		t.Errorf("answerer called %d times on empty results", llm.calls)
	}
}
