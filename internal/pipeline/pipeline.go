// Package pipeline drives one batch run: fetch emails, extract and
// deduplicate articles concurrently, expand topics, then allocate the ranked
// per-topic selections.
package pipeline

import (
	"context"
	"sort"
	"sync"

	"newsbrief/internal/core"
	"newsbrief/internal/dedup"
	"newsbrief/internal/logger"
	"newsbrief/internal/mail"
	"newsbrief/internal/relevance"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the extraction fan-out bound. Each worker owns one email
// at a time, so this also caps in-flight completion-service calls.
const DefaultWorkers = 3

// Extractor produces article candidates from one email. Implementations
// degrade to an empty slice on failure instead of returning errors.
type Extractor interface {
	Extract(ctx context.Context, email core.RawEmail) []core.ArticleCandidate
}

// Expander maps topics to expanded term lists, falling back to the topic
// itself on failure.
type Expander interface {
	Expand(ctx context.Context, topics []string) map[string][]string
}

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
}

// Config carries the run parameters, bound at start and never mutated.
type Config struct {
	Topics             []string // Allocation processes topics in this order
	MinRelevanceScore  float64  // Articles below this score are not selected
	MaxResultsPerTopic int      // Cap per topic
	DedupThreshold     float64  // Cosine similarity at which articles collapse
	Workers            int      // Extraction pool size (default 3)
}

// Pipeline wires the collaborators for one or more runs. Per-run state (the
// deduplicator, the article pool, the used-URL set) lives inside Run.
type Pipeline struct {
	source    mail.Source
	extractor Extractor
	expander  Expander
	embedder  Embedder
	cfg       Config
}

// New creates a pipeline. Non-positive Workers and MaxResultsPerTopic fall
// back to usable defaults.
func New(source mail.Source, extractor Extractor, expander Expander, embedder Embedder, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MaxResultsPerTopic <= 0 {
		cfg.MaxResultsPerTopic = 3
	}
	return &Pipeline{
		source:    source,
		extractor: extractor,
		expander:  expander,
		embedder:  embedder,
		cfg:       cfg,
	}
}

// Run executes one batch. Collaborator failures degrade: an unreachable mail
// source means zero emails, a failed extraction means zero articles for that
// email, a failed expansion means topics match only themselves. The worst
// case is an empty selection per topic, never an error from a collaborator.
func (p *Pipeline) Run(ctx context.Context) (map[string]core.SelectionResult, error) {
	emails := p.fetch(ctx)
	pool := p.extractAll(ctx, emails)
	logger.Info("Built unique article pool", "emails", len(emails), "articles", len(pool))

	expanded := p.expander.Expand(ctx, p.cfg.Topics)

	return p.allocate(ctx, pool, expanded), nil
}

func (p *Pipeline) fetch(ctx context.Context) []core.RawEmail {
	emails, err := p.source.Fetch(ctx)
	if err != nil {
		logger.Error("Mail source failed, continuing with no emails", err)
		return nil
	}
	return emails
}

// extractAll fans extraction out over a bounded worker pool and merges
// accepted articles into a single pool. The deduplicator serializes its own
// compare-and-append; the sink has its own lock. Completion order decides
// pool order, so ties in later scoring are broken by arrival.
func (p *Pipeline) extractAll(ctx context.Context, emails []core.RawEmail) []core.Article {
	deduper := dedup.New(p.cfg.DedupThreshold)

	var (
		mu   sync.Mutex
		pool []core.Article
	)

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)

	for _, email := range emails {
		g.Go(func() error {
			for _, candidate := range p.extractor.Extract(ctx, email) {
				embedding, err := p.embedder.GenerateEmbedding(ctx, candidate.EmbeddingText())
				if err != nil {
					logger.Error("Failed to embed candidate, skipping", err, "title", candidate.Title)
					continue
				}
				if !deduper.Accept(candidate, embedding) {
					continue
				}
				mu.Lock()
				pool = append(pool, core.Article{
					ID:               uuid.NewString(),
					ArticleCandidate: candidate,
					Embedding:        embedding,
				})
				mu.Unlock()
			}
			// A task never fails the group: sibling emails keep processing.
			return nil
		})
	}

	// Tasks return nil unconditionally.
	_ = g.Wait()

	return pool
}

// allocate processes topics in configured order. Each topic scores the
// still-available pool, keeps articles at or above the minimum score, sorts
// descending (stable, preserving pool order on ties) and claims the URLs of
// its selection so later topics cannot reuse them.
func (p *Pipeline) allocate(ctx context.Context, pool []core.Article, expanded map[string][]string) map[string]core.SelectionResult {
	scorer := relevance.NewScorer(p.embedder)
	results := make(map[string]core.SelectionResult, len(p.cfg.Topics))
	used := make(map[string]bool)

	for _, topic := range p.cfg.Topics {
		terms := expanded[topic]
		if len(terms) == 0 {
			terms = []string{topic}
		}
		result := core.SelectionResult{Topic: topic, ExpandedTerms: terms}

		termsEmbedding, err := scorer.TermsEmbedding(ctx, terms)
		if err != nil {
			logger.Error("Failed to embed terms, topic gets no selection", err, "topic", topic)
			results[topic] = result
			continue
		}

		var relevant []core.ScoredArticle
		for _, article := range pool {
			if used[article.URL] {
				continue
			}
			score, err := relevance.Hybrid(article.Embedding, termsEmbedding, article.ArticleCandidate, terms)
			if err != nil {
				logger.Error("Failed to score article, skipping", err, "title", article.Title, "topic", topic)
				continue
			}
			if score >= p.cfg.MinRelevanceScore {
				relevant = append(relevant, core.ScoredArticle{Article: article, RelevanceScore: score})
			}
		}

		sort.SliceStable(relevant, func(i, j int) bool {
			return relevant[i].RelevanceScore > relevant[j].RelevanceScore
		})
		if len(relevant) > p.cfg.MaxResultsPerTopic {
			relevant = relevant[:p.cfg.MaxResultsPerTopic]
		}

		for _, selected := range relevant {
			used[selected.URL] = true
		}

		result.Articles = relevant
		results[topic] = result
		logger.Info("Allocated articles for topic", "topic", topic, "selected", len(relevant))
	}

	return results
}
