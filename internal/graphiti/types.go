// Package graphiti is a thin client for the temporal knowledge graph backing
// the QA application. Episodes (raw transcripts) and the facts extracted from
// them live in Neo4j; retrieval is keyword search over fact edges.
package graphiti

import "time"

// Episode is one unit of ingested content, usually a call transcript.
type Episode struct {
	Name              string
	Body              string
	SourceDescription string
	ReferenceTime     time.Time
}

// SearchResult is one fact matched by a search. RelevanceScore is nil when
// the backend produced no score for the match.
type SearchResult struct {
	Fact              string    `json:"fact"`
	SourceDescription string    `json:"source_description"`
	CreatedAt         time.Time `json:"created_at"`
	RelevanceScore    *float64  `json:"relevance_score,omitempty"`
}

// ExtractedFact is a subject/object relationship pulled out of an episode
// body, stated as one self-contained sentence.
type ExtractedFact struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Fact    string `json:"fact"`
}
