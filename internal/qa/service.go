// Package qa orchestrates the call-transcript question answering flows:
// validating user input, ingesting transcripts into the knowledge graph,
// searching it and optionally synthesizing a prose answer from the
// retrieved facts. Every operation is instrumented through the metrics
// monitor under a stable operation name.
package qa

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"callqa/internal/graphiti"
	"callqa/internal/metrics"
	"callqa/pkg/errors"
	"callqa/pkg/logger"
)

// Instrumented operation names.
const (
	opUploadText  = "qa.upload_text"
	opUploadFile  = "qa.upload_file"
	opBatchUpload = "qa.batch_upload"
	opSearch      = "qa.search"
	opAnswer      = "qa.answer"
)

const defaultAskResults = 5

// GraphService is the slice of the knowledge graph engine the service
// consumes.
type GraphService interface {
	AddEpisode(ctx context.Context, ep graphiti.Episode) error
	Search(ctx context.Context, query string, numResults int) ([]graphiti.SearchResult, error)
	BuildIndicesAndConstraints(ctx context.Context) error
	Close(ctx context.Context) error
}

// Answerer synthesizes a prose answer from retrieved facts.
type Answerer interface {
	Complete(ctx context.Context, systemPrompt, userMsg string) (string, error)
}

// UploadReceipt describes one stored episode.
type UploadReceipt struct {
	EpisodeName       string `json:"episode_name"`
	SourceDescription string `json:"source_description"`
	ContentLength     int    `json:"content_length"`
}

// BatchReceipt summarizes a glob upload. Errors holds one message per
// failed file.
type BatchReceipt struct {
	Pattern   string          `json:"pattern,omitempty"`
	Total     int             `json:"total_files"`
	Succeeded int             `json:"successful_uploads"`
	Failed    int             `json:"failed_uploads"`
	Receipts  []UploadReceipt `json:"receipts,omitempty"`
	Errors    []string        `json:"errors,omitempty"`
}

// AskOptions tune a question: result count, post-filters and whether to
// synthesize a prose answer on top of the raw facts.
type AskOptions struct {
	NumResults   int
	SourceFilter string
	DaysBack     int
	Synthesize   bool
}

// AskResult is the answer to one question. Answer is empty when synthesis
// was not requested, produced nothing, or failed (facts still stand).
type AskResult struct {
	Query   string                  `json:"query"`
	Results []graphiti.SearchResult `json:"results"`
	Answer  string                  `json:"answer,omitempty"`
}

// Service wires the graph engine, the answer model and the metrics monitor
// into the application's upload and ask operations.
type Service struct {
	graph   GraphService
	llm     Answerer
	monitor *metrics.Monitor
	logger  *zap.Logger
}

// NewService creates the QA service.
func NewService(graph GraphService, llm Answerer, monitor *metrics.Monitor) *Service {
	return &Service{
		graph:   graph,
		llm:     llm,
		monitor: monitor,
		logger:  logger.Get(),
	}
}

// UploadText stores directly entered transcript text as one episode.
func (s *Service) UploadText(ctx context.Context, text string) (*UploadReceipt, error) {
	fn := metrics.InstrumentContext(s.monitor, opUploadText, func(ctx context.Context) (*UploadReceipt, error) {
		if strings.TrimSpace(text) == "" {
			return nil, errors.NewValidationFailed("text", "no content provided")
		}
		now := time.Now()
		return s.upload(ctx, text, episodeName("", "direct_input", now), "Direct text input", now)
	})
	return fn(ctx)
}

// UploadFile stores the transcript at path as one episode. prefix is
// prepended to the episode name ("batch_" during glob uploads).
func (s *Service) UploadFile(ctx context.Context, path, prefix string) (*UploadReceipt, error) {
	fn := metrics.InstrumentContext(s.monitor, opUploadFile, func(ctx context.Context) (*UploadReceipt, error) {
		if err := ValidateFilePath(path); err != nil {
			return nil, err
		}
		content, err := ReadTranscript(path)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(content) == "" {
			return nil, errors.NewValidationFailed("file content", fmt.Sprintf("file %q is empty", path))
		}
		now := time.Now()
		name := episodeName(prefix, fileBase(path), now)
		source := fmt.Sprintf("Uploaded from file: %s", filepath.Base(path))
		return s.upload(ctx, content, name, source, now)
	})
	return fn(ctx)
}

// UploadGlob uploads every file matching pattern, sequentially. A file
// failure is recorded in the receipt and does not stop the batch.
func (s *Service) UploadGlob(ctx context.Context, pattern string) (*BatchReceipt, error) {
	fn := metrics.InstrumentContext(s.monitor, opBatchUpload, func(ctx context.Context) (*BatchReceipt, error) {
		if strings.TrimSpace(pattern) == "" {
			return nil, errors.NewValidationFailed("pattern", "no pattern provided")
		}
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.NewValidationFailed("pattern", fmt.Sprintf("bad pattern %q: %v", pattern, err))
		}
		if len(files) == 0 {
			return nil, errors.NewValidationFailed("pattern", fmt.Sprintf("no files found matching pattern %q", pattern))
		}

		receipt := &BatchReceipt{Pattern: pattern, Total: len(files)}
		for _, file := range files {
			r, err := s.UploadFile(ctx, file, "batch_")
			if err != nil {
				receipt.Failed++
				receipt.Errors = append(receipt.Errors, fmt.Sprintf("%s: %v", file, err))
				s.logger.Warn("batch upload file failed", zap.String("file", file), zap.Error(err))
				continue
			}
			receipt.Succeeded++
			receipt.Receipts = append(receipt.Receipts, *r)
		}
		s.logger.Info("batch upload complete",
			zap.String("pattern", pattern),
			zap.Int("succeeded", receipt.Succeeded),
			zap.Int("failed", receipt.Failed),
		)
		return receipt, nil
	})
	return fn(ctx)
}

func (s *Service) upload(ctx context.Context, content, name, source string, now time.Time) (*UploadReceipt, error) {
	ep := graphiti.Episode{
		Name:              name,
		Body:              content,
		SourceDescription: source,
		ReferenceTime:     now.UTC(),
	}
	if err := s.graph.AddEpisode(ctx, ep); err != nil {
		return nil, err
	}
	s.logger.Info("episode uploaded",
		zap.String("episode", name),
		zap.Int("content_length", len(content)),
	)
	return &UploadReceipt{
		EpisodeName:       name,
		SourceDescription: source,
		ContentLength:     len(content),
	}, nil
}

// Ask answers a question: validate, search, post-filter, and optionally
// synthesize prose over the surviving facts. Synthesis failure degrades to
// a facts-only result rather than failing the whole ask.
func (s *Service) Ask(ctx context.Context, query string, opts AskOptions) (*AskResult, error) {
	fn := metrics.InstrumentContext(s.monitor, opSearch, func(ctx context.Context) (*AskResult, error) {
		if err := ValidateQuery(query); err != nil {
			return nil, err
		}

		numResults := opts.NumResults
		if numResults < 1 {
			numResults = defaultAskResults
		}

		results, err := s.graph.Search(ctx, query, numResults)
		if err != nil {
			return nil, err
		}
		results = applyFilters(results, opts)

		return &AskResult{Query: query, Results: results}, nil
	})

	result, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Synthesize && len(result.Results) > 0 {
		answer := metrics.InstrumentContext(s.monitor, opAnswer, func(ctx context.Context) (string, error) {
			return s.synthesize(ctx, query, result.Results)
		})
		text, err := answer(ctx)
		if err != nil {
			s.logger.Warn("answer synthesis failed, returning facts only", zap.Error(err))
		} else {
			result.Answer = text
		}
	}
	return result, nil
}

func applyFilters(results []graphiti.SearchResult, opts AskOptions) []graphiti.SearchResult {
	if opts.SourceFilter == "" && opts.DaysBack <= 0 {
		return results
	}

	sourceFilter := strings.ToLower(opts.SourceFilter)
	var cutoff time.Time
	if opts.DaysBack > 0 {
		cutoff = time.Now().UTC().AddDate(0, 0, -opts.DaysBack)
	}

	var kept []graphiti.SearchResult
	for _, r := range results {
		if sourceFilter != "" && !strings.Contains(strings.ToLower(r.SourceDescription), sourceFilter) {
			continue
		}
		if !cutoff.IsZero() && r.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

const answerSystemPrompt = `You answer questions about call transcripts.

Use only the numbered facts provided. Do not invent information. If the facts
do not answer the question, say so plainly. Keep the answer short and cite
fact numbers like [1] where relevant.`

func (s *Service) synthesize(ctx context.Context, query string, results []graphiti.SearchResult) (string, error) {
	var b strings.Builder
	b.WriteString("Facts:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s (source: %s)\n", i+1, r.Fact, r.SourceDescription)
	}
	fmt.Fprintf(&b, "\nQuestion: %s", query)

	text, err := s.llm.Complete(ctx, answerSystemPrompt, b.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
