// Package relevance scores articles against expanded topic terms with a
// hybrid of embedding similarity and keyword presence.
package relevance

import (
	"context"
	"fmt"
	"strings"

	"newsbrief/internal/core"
	"newsbrief/internal/similarity"
)

// Weights of the two scoring signals. Embedding similarity catches semantic
// matches the keywords miss; the keyword hit anchors the score when the
// article literally names a term.
const (
	embeddingWeight = 0.5
	keywordWeight   = 0.5
)

// Embedder is the slice of the LLM client the scorer depends on.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
}

// Scorer computes hybrid relevance scores for (article, topic) pairs.
type Scorer struct {
	embedder Embedder
}

// NewScorer creates a scorer backed by the given embedding service.
func NewScorer(embedder Embedder) *Scorer {
	return &Scorer{embedder: embedder}
}

// Score computes the relevance of a candidate to the expanded terms and
// returns the article embedding alongside the score so callers can reuse it.
// Scoring is a pure function of the two embeddings and the text, so the same
// inputs always produce the same score.
func (s *Scorer) Score(ctx context.Context, candidate core.ArticleCandidate, terms []string) (float64, []float64, error) {
	articleEmbedding, err := s.embedder.GenerateEmbedding(ctx, candidate.EmbeddingText())
	if err != nil {
		return 0, nil, fmt.Errorf("failed to embed article %q: %w", candidate.Title, err)
	}

	termsEmbedding, err := s.TermsEmbedding(ctx, terms)
	if err != nil {
		return 0, nil, err
	}

	score, err := Hybrid(articleEmbedding, termsEmbedding, candidate, terms)
	if err != nil {
		return 0, nil, err
	}
	return score, articleEmbedding, nil
}

// TermsEmbedding embeds the concatenation of all expanded terms. Callers
// scoring many articles against one topic should compute this once.
func (s *Scorer) TermsEmbedding(ctx context.Context, terms []string) ([]float64, error) {
	embedding, err := s.embedder.GenerateEmbedding(ctx, strings.Join(terms, " "))
	if err != nil {
		return nil, fmt.Errorf("failed to embed expanded terms: %w", err)
	}
	return embedding, nil
}

// Hybrid combines embedding similarity and keyword presence into one score
// in [0, 1]. A negative cosine similarity contributes nothing rather than
// dragging the score below zero.
func Hybrid(articleEmbedding, termsEmbedding []float64, candidate core.ArticleCandidate, terms []string) (float64, error) {
	sim, err := similarity.Cosine(articleEmbedding, termsEmbedding)
	if err != nil {
		return 0, fmt.Errorf("failed to compare embeddings for %q: %w", candidate.Title, err)
	}
	if sim < 0 {
		sim = 0
	}

	return embeddingWeight*sim + keywordWeight*keywordHit(candidate, terms), nil
}

// keywordHit is 1 when any expanded term occurs as a case-insensitive
// substring of the article's title and description, else 0.
func keywordHit(candidate core.ArticleCandidate, terms []string) float64 {
	text := strings.ToLower(candidate.EmbeddingText())
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(term)) {
			return 1
		}
	}
	return 0
}
