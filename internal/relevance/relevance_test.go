package relevance

import (
	"context"
	"math"
	"testing"

	"newsbrief/internal/core"
)

// vectorEmbedder maps exact texts to fixed vectors.
type vectorEmbedder struct {
	vectors map[string][]float64
	calls   int
}

func (v *vectorEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float64, error) {
	v.calls++
	if vec, ok := v.vectors[text]; ok {
		return vec, nil
	}
	return []float64{0.1, 0.1, 0.1}, nil
}

func TestScoreCombinesSignals(t *testing.T) {
	candidate := core.ArticleCandidate{
		Title:       "React Server Components explained",
		Description: "A deep dive into RSC.",
		URL:         "https://example.com/rsc",
	}
	embedder := &vectorEmbedder{vectors: map[string][]float64{
		candidate.EmbeddingText(): {1, 0, 0},
		"React JSX":               {1, 0, 0},
	}}
	scorer := NewScorer(embedder)

	score, embedding, err := scorer.Score(context.Background(), candidate, []string{"React", "JSX"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	// Perfect cosine similarity plus a keyword hit ("React" in the title).
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("Expected score 1.0, got %f", score)
	}
	if len(embedding) != 3 {
		t.Errorf("Expected the article embedding to be returned, got %v", embedding)
	}
}

func TestScoreKeywordMissHalvesCeiling(t *testing.T) {
	candidate := core.ArticleCandidate{
		Title:       "Cooking with cast iron",
		Description: "Skillet basics.",
	}
	embedder := &vectorEmbedder{vectors: map[string][]float64{
		candidate.EmbeddingText(): {1, 0, 0},
		"React JSX":               {1, 0, 0},
	}}
	scorer := NewScorer(embedder)

	score, _, err := scorer.Score(context.Background(), candidate, []string{"React", "JSX"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	// Identical embeddings but no keyword: only the embedding half counts.
	if math.Abs(score-0.5) > 1e-9 {
		t.Errorf("Expected score 0.5, got %f", score)
	}
}

func TestScoreIsIdempotent(t *testing.T) {
	candidate := core.ArticleCandidate{Title: "Go generics", Description: "Type parameters in Go."}
	embedder := &vectorEmbedder{vectors: map[string][]float64{
		candidate.EmbeddingText(): {0.3, 0.8, 0.2},
		"Go golang":               {0.5, 0.5, 0.5},
	}}
	scorer := NewScorer(embedder)

	first, _, err := scorer.Score(context.Background(), candidate, []string{"Go", "golang"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	second, _, err := scorer.Score(context.Background(), candidate, []string{"Go", "golang"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if first != second {
		t.Errorf("Expected identical scores for identical input, got %f and %f", first, second)
	}
}

func TestKeywordHitIsCaseInsensitive(t *testing.T) {
	candidate := core.ArticleCandidate{Title: "KUBERNETES 1.30 released", Description: "Cluster news."}

	if keywordHit(candidate, []string{"kubernetes"}) != 1 {
		t.Error("Expected case-insensitive keyword match")
	}
	if keywordHit(candidate, []string{"terraform"}) != 0 {
		t.Error("Expected no match for absent term")
	}
	if keywordHit(candidate, []string{""}) != 0 {
		t.Error("Expected empty term to never match")
	}
}

func TestHybridClampsNegativeSimilarity(t *testing.T) {
	candidate := core.ArticleCandidate{Title: "React news", Description: "JSX everywhere."}

	score, err := Hybrid([]float64{1, 0}, []float64{-1, 0}, candidate, []string{"React"})
	if err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}

	// Opposite embeddings contribute 0; the keyword hit still counts.
	if math.Abs(score-0.5) > 1e-9 {
		t.Errorf("Expected score 0.5, got %f", score)
	}
	if score < 0 || score > 1 {
		t.Errorf("Score out of [0, 1]: %f", score)
	}
}

func TestHybridDegenerateEmbeddingIsAnError(t *testing.T) {
	candidate := core.ArticleCandidate{Title: "x", Description: "y"}
	if _, err := Hybrid([]float64{0, 0}, []float64{1, 0}, candidate, nil); err == nil {
		t.Error("Expected error for zero-norm embedding")
	}
}
