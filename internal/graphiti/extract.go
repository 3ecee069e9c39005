package graphiti

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"callqa/pkg/errors"
	"callqa/pkg/logger"
)

// Completer is the slice of the LLM adapter the extractor needs.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMsg string) (string, error)
}

const extractSystemPrompt = `You extract knowledge graph facts from call transcripts.

Identify the important entities (people, companies, products, issues) and the
relationships between them. Respond with a JSON array only, no prose. Each element:
{"subject": "<entity>", "object": "<entity>", "fact": "<one complete sentence stating the relationship>"}

Rules:
- Each fact must be a self-contained sentence understandable without the transcript.
- Use entity names exactly as they appear in the transcript.
- Skip greetings, small talk and filler.
- Return [] if the transcript contains nothing factual.`

// LLMExtractor extracts facts by prompting a language model.
type LLMExtractor struct {
	llm    Completer
	logger *zap.Logger
}

// NewLLMExtractor creates an extractor over the given completer.
func NewLLMExtractor(llm Completer) *LLMExtractor {
	return &LLMExtractor{llm: llm, logger: logger.Get()}
}

// ExtractFacts prompts the model with the episode body and parses the JSON
// fact list out of its reply.
func (e *LLMExtractor) ExtractFacts(ctx context.Context, episodeBody, sourceDescription string) ([]ExtractedFact, error) {
	userMsg := fmt.Sprintf("Source: %s\n\nTranscript:\n%s", sourceDescription, episodeBody)

	raw, err := e.llm.Complete(ctx, extractSystemPrompt, userMsg)
	if err != nil {
		return nil, err
	}

	jsonStr := extractJSONArray(raw)
	var parsed []ExtractedFact
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		e.logger.Warn("failed to parse extraction response",
			zap.String("response", raw),
			zap.Error(err),
		)
		return nil, errors.NewLLMBadResponse("fact extraction", err)
	}

	facts := make([]ExtractedFact, 0, len(parsed))
	for _, f := range parsed {
		if strings.TrimSpace(f.Subject) == "" ||
			strings.TrimSpace(f.Object) == "" ||
			strings.TrimSpace(f.Fact) == "" {
			continue
		}
		facts = append(facts, f)
	}

	e.logger.Debug("facts extracted", zap.Int("count", len(facts)))
	return facts, nil
}

// extractJSONArray pulls the JSON array out of a model reply that may be
// wrapped in markdown code fences or surrounding prose.
func extractJSONArray(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		var kept []string
		inBlock := false
		for _, line := range lines {
			if strings.HasPrefix(line, "```") {
				inBlock = !inBlock
				continue
			}
			if inBlock {
				kept = append(kept, line)
			}
		}
		s = strings.Join(kept, "\n")
	}

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end > start {
			return s[start : end+1]
		}
	}
	return s
}
