package graphiti

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"callqa/pkg/errors"
	"callqa/pkg/logger"
)

const defaultNumResults = 10

// Extractor turns an episode body into graph facts.
type Extractor interface {
	ExtractFacts(ctx context.Context, episodeBody, sourceDescription string) ([]ExtractedFact, error)
}

// Client handles all knowledge graph operations against Neo4j.
type Client struct {
	driver    neo4j.DriverWithContext
	extractor Extractor
	logger    *zap.Logger
}

// NewClient creates a graph client. The extractor enriches every added
// episode with entity/relationship facts.
func NewClient(driver neo4j.DriverWithContext, extractor Extractor) *Client {
	return &Client{
		driver:    driver,
		extractor: extractor,
		logger:    logger.Get(),
	}
}

// BuildIndicesAndConstraints sets up the uniqueness constraints and indexes
// the client relies on. Safe to call on every startup.
func (c *Client) BuildIndicesAndConstraints(ctx context.Context) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT episodic_uuid IF NOT EXISTS FOR (e:Episodic) REQUIRE e.uuid IS UNIQUE`,
		`CREATE CONSTRAINT entity_name IF NOT EXISTS FOR (n:Entity) REQUIRE n.name IS UNIQUE`,
		`CREATE INDEX relates_to_created IF NOT EXISTS FOR ()-[r:RELATES_TO]-() ON (r.created_at)`,
	}

	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return errors.NewGraphQueryFailed("build_indices", err)
		}
	}

	c.logger.Info("graph indices and constraints ready")
	return nil
}

// AddEpisode stores the episode node, extracts facts from its body and
// links them into the graph. The episode node persists even if a later
// enrichment step fails.
func (c *Client) AddEpisode(ctx context.Context, ep Episode) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	episodeUUID := uuid.New().String()
	createdAt := time.Now().UTC()

	createEpisode := `
		CREATE (e:Episodic {
			uuid: $uuid,
			name: $name,
			body: $body,
			source_description: $sourceDescription,
			reference_time: $referenceTime,
			created_at: $createdAt
		})
	`
	_, err := session.Run(ctx, createEpisode, map[string]interface{}{
		"uuid":              episodeUUID,
		"name":              ep.Name,
		"body":              ep.Body,
		"sourceDescription": ep.SourceDescription,
		"referenceTime":     ep.ReferenceTime.UTC(),
		"createdAt":         createdAt,
	})
	if err != nil {
		return errors.NewGraphQueryFailed("add_episode", err)
	}

	facts, err := c.extractor.ExtractFacts(ctx, ep.Body, ep.SourceDescription)
	if err != nil {
		return err
	}

	createFact := `
		MATCH (e:Episodic {uuid: $episodeUUID})
		MERGE (s:Entity {name: $subject})
		MERGE (o:Entity {name: $object})
		MERGE (e)-[:MENTIONS]->(s)
		MERGE (e)-[:MENTIONS]->(o)
		CREATE (s)-[r:RELATES_TO {
			uuid: $factUUID,
			fact: $fact,
			source_description: $sourceDescription,
			reference_time: $referenceTime,
			created_at: $createdAt
		}]->(o)
	`
	for _, f := range facts {
		_, err := session.Run(ctx, createFact, map[string]interface{}{
			"episodeUUID":       episodeUUID,
			"subject":           strings.TrimSpace(f.Subject),
			"object":            strings.TrimSpace(f.Object),
			"factUUID":          uuid.New().String(),
			"fact":              strings.TrimSpace(f.Fact),
			"sourceDescription": ep.SourceDescription,
			"referenceTime":     ep.ReferenceTime.UTC(),
			"createdAt":         createdAt,
		})
		if err != nil {
			return errors.NewGraphQueryFailed("add_fact", err)
		}
	}

	c.logger.Info("episode added",
		zap.String("name", ep.Name),
		zap.String("uuid", episodeUUID),
		zap.Int("facts", len(facts)),
	)
	return nil
}

// Search returns up to numResults facts matching the query keywords,
// best match first. A query with no usable keywords yields no results.
func (c *Client) Search(ctx context.Context, query string, numResults int) ([]SearchResult, error) {
	if numResults < 1 {
		numResults = defaultNumResults
	}

	keywords := tokenize(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	// Over-fetch by recency, then rescore by keyword overlap in Go.
	fetch := numResults * 4
	if fetch < 40 {
		fetch = 40
	}

	searchQuery := `
		MATCH (s:Entity)-[r:RELATES_TO]->(o:Entity)
		WHERE any(kw IN $keywords WHERE toLower(r.fact) CONTAINS kw)
		RETURN r.fact as fact,
		       r.source_description as source_description,
		       r.created_at as created_at
		ORDER BY r.created_at DESC
		LIMIT $fetch
	`
	result, err := session.Run(ctx, searchQuery, map[string]interface{}{
		"keywords": keywords,
		"fetch":    fetch,
	})
	if err != nil {
		return nil, errors.NewGraphQueryFailed("search", err)
	}

	var results []SearchResult
	for result.Next(ctx) {
		record := result.Record()
		fact := getString(record, "fact", "")
		if fact == "" {
			continue
		}
		score := relevanceScore(fact, keywords)
		results = append(results, SearchResult{
			Fact:              fact,
			SourceDescription: getString(record, "source_description", ""),
			CreatedAt:         getTime(record, "created_at", time.Time{}),
			RelevanceScore:    &score,
		})
	}
	if err := result.Err(); err != nil {
		return nil, errors.NewGraphQueryFailed("search", err)
	}

	// Stable sort keeps recency order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].RelevanceScore > *results[j].RelevanceScore
	})
	if len(results) > numResults {
		results = results[:numResults]
	}

	return results, nil
}

// Ping verifies connectivity to the graph database.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return errors.NewGraphConnectionFailed(c.driver.Target().Host, err)
	}
	return nil
}

// Close closes the underlying driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// stopwords are skipped during query tokenization.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "about": true,
	"as": true, "at": true, "be": true, "by": true, "did": true,
	"do": true, "does": true, "for": true, "from": true, "how": true,
	"in": true, "is": true, "it": true, "of": true, "on": true,
	"or": true, "that": true, "the": true, "this": true, "to": true,
	"was": true, "were": true, "what": true, "when": true, "where": true,
	"which": true, "who": true, "why": true, "with": true,
}

func tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	var keywords []string
	seen := map[string]bool{}
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		keywords = append(keywords, f)
	}
	return keywords
}

func relevanceScore(fact string, keywords []string) float64 {
	lower := strings.ToLower(fact)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

func getString(record *neo4j.Record, key, defaultValue string) string {
	val, ok := record.Get(key)
	if !ok {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

func getTime(record *neo4j.Record, key string, defaultValue time.Time) time.Time {
	val, ok := record.Get(key)
	if !ok {
		return defaultValue
	}
	// Neo4j datetime values come back as time.Time
	if t, ok := val.(time.Time); ok {
		return t
	}
	return defaultValue
}
