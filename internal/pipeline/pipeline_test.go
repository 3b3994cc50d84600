package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"newsbrief/internal/core"
)

type fakeSource struct {
	emails []core.RawEmail
	err    error
}

func (f *fakeSource) Fetch(_ context.Context) ([]core.RawEmail, error) {
	return f.emails, f.err
}

// fakeExtractor returns scripted candidates keyed by email subject and
// records its peak concurrency.
type fakeExtractor struct {
	bySubject map[string][]core.ArticleCandidate

	mu      sync.Mutex
	active  int32
	maxSeen int32
}

func (f *fakeExtractor) Extract(_ context.Context, email core.RawEmail) []core.ArticleCandidate {
	current := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)

	f.mu.Lock()
	if current > f.maxSeen {
		f.maxSeen = current
	}
	f.mu.Unlock()

	return f.bySubject[email.Subject]
}

type fakeExpander struct {
	terms map[string][]string
}

func (f *fakeExpander) Expand(_ context.Context, topics []string) map[string][]string {
	result := make(map[string][]string, len(topics))
	for _, topic := range topics {
		if terms, ok := f.terms[topic]; ok {
			result[topic] = terms
		} else {
			result[topic] = []string{topic}
		}
	}
	return result
}

// fakeEmbedder returns fixed vectors per exact text.
type fakeEmbedder struct {
	vectors map[string][]float64
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float64, error) {
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return nil, errors.New("no scripted embedding for: " + text)
}

func email(subject string) core.RawEmail {
	return core.RawEmail{Subject: subject, TextBody: "body of " + subject}
}

func candidate(title, desc, url string) core.ArticleCandidate {
	return core.ArticleCandidate{Title: title, Description: desc, URL: url}
}

func TestRunCrossTopicExclusivity(t *testing.T) {
	// Article A scores highest for both topics; B is second for React and
	// irrelevant to Security. With max_results=1, React (processed first)
	// claims A, so Security must not reuse it and B is below its threshold.
	articleA := candidate("React security deep dive", "Locking down your components.", "https://a.example")
	articleB := candidate("React tips", "Ten quick wins.", "https://b.example")

	source := &fakeSource{emails: []core.RawEmail{email("weekly")}}
	extractor := &fakeExtractor{bySubject: map[string][]core.ArticleCandidate{
		"weekly": {articleA, articleB},
	}}
	expander := &fakeExpander{}
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		articleA.EmbeddingText(): {1, 0.2},
		articleB.EmbeddingText(): {0.95, 0.3},
		"React":                  {1, 0},
		"Security":               {0, 1},
	}}

	p := New(source, extractor, expander, embedder, Config{
		Topics:             []string{"React", "Security"},
		MinRelevanceScore:  0.5,
		MaxResultsPerTopic: 1,
		DedupThreshold:     0.95,
	})

	results, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	react := results["React"]
	if len(react.Articles) != 1 || react.Articles[0].URL != "https://a.example" {
		t.Fatalf("Expected React to select article A, got %+v", react.Articles)
	}

	security := results["Security"]
	for _, a := range security.Articles {
		if a.URL == "https://a.example" {
			t.Error("Article A selected for two topics: cross-topic exclusivity violated")
		}
	}
	// B has no keyword hit and low similarity for Security, so nothing is left.
	if len(security.Articles) != 0 {
		t.Errorf("Expected empty Security selection, got %+v", security.Articles)
	}
}

func TestRunDeduplicatesAcrossEmails(t *testing.T) {
	// The same story arrives in two different newsletters; the pool must
	// contain it once.
	dupe := candidate("Go 1.24 is out", "Release highlights.", "https://go.dev/blog")

	source := &fakeSource{emails: []core.RawEmail{email("one"), email("two")}}
	extractor := &fakeExtractor{bySubject: map[string][]core.ArticleCandidate{
		"one": {dupe},
		"two": {dupe},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		dupe.EmbeddingText(): {0.6, 0.8},
		"Go":                 {0.6, 0.8},
	}}

	p := New(source, extractor, &fakeExpander{}, embedder, Config{
		Topics:             []string{"Go"},
		MinRelevanceScore:  0.1,
		MaxResultsPerTopic: 5,
		DedupThreshold:     0.95,
	})

	results, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := len(results["Go"].Articles); got != 1 {
		t.Errorf("Expected exactly 1 unique article, got %d", got)
	}
}

func TestRunSelectionOrderingAndCap(t *testing.T) {
	low := candidate("Go modules intro", "Getting started.", "https://low.example")
	mid := candidate("Go generics", "Type parameters in Go.", "https://mid.example")
	high := candidate("Go 1.24 released", "Everything new in Go.", "https://high.example")
	noise := candidate("Gardening weekly", "Tomatoes.", "https://noise.example")

	source := &fakeSource{emails: []core.RawEmail{email("weekly")}}
	extractor := &fakeExtractor{bySubject: map[string][]core.ArticleCandidate{
		"weekly": {low, mid, high, noise},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		low.EmbeddingText():   {1, 1},      // cos ~0.707 + keyword
		mid.EmbeddingText():   {0.8, 0.25}, // cos ~0.954 + keyword
		high.EmbeddingText():  {1, 0.05},   // cos ~0.999 + keyword
		noise.EmbeddingText(): {0, 1},      // orthogonal, no keyword
		"Go":                  {1, 0},
	}}

	p := New(source, extractor, &fakeExpander{}, embedder, Config{
		Topics:             []string{"Go"},
		MinRelevanceScore:  0.6,
		MaxResultsPerTopic: 2,
		DedupThreshold:     0.95,
	})

	results, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	selected := results["Go"].Articles
	if len(selected) != 2 {
		t.Fatalf("Expected selection capped at 2, got %d", len(selected))
	}
	if selected[0].URL != "https://high.example" || selected[1].URL != "https://mid.example" {
		t.Errorf("Expected descending score order [high, mid], got [%s, %s]", selected[0].URL, selected[1].URL)
	}
	for _, a := range selected {
		if a.RelevanceScore < 0.6 {
			t.Errorf("Selected article %s below minimum score: %f", a.URL, a.RelevanceScore)
		}
	}
}

func TestRunEmptyMailSource(t *testing.T) {
	p := New(&fakeSource{}, &fakeExtractor{}, &fakeExpander{}, &fakeEmbedder{vectors: map[string][]float64{
		"React": {1, 0},
	}}, Config{
		Topics:             []string{"React"},
		MinRelevanceScore:  0.5,
		MaxResultsPerTopic: 3,
	})

	results, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	result, ok := results["React"]
	if !ok {
		t.Fatal("Expected a result for every configured topic")
	}
	if len(result.Articles) != 0 {
		t.Errorf("Expected no articles, got %d", len(result.Articles))
	}
	if len(result.ExpandedTerms) == 0 {
		t.Error("Expected expanded terms to be populated even with no emails")
	}
}

func TestRunMailSourceErrorDegrades(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	p := New(source, &fakeExtractor{}, &fakeExpander{}, &fakeEmbedder{vectors: map[string][]float64{
		"Go": {1, 0},
	}}, Config{
		Topics:            []string{"Go"},
		MinRelevanceScore: 0.5,
	})

	results, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected source failure to degrade, got error: %v", err)
	}
	if len(results["Go"].Articles) != 0 {
		t.Error("Expected empty selection when the source is unreachable")
	}
}

func TestRunEmbeddingFailureSkipsCandidate(t *testing.T) {
	good := candidate("Go news", "All about Go.", "https://good.example")
	bad := candidate("Unembeddable", "No vector for this.", "https://bad.example")

	source := &fakeSource{emails: []core.RawEmail{email("weekly")}}
	extractor := &fakeExtractor{bySubject: map[string][]core.ArticleCandidate{
		"weekly": {bad, good},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		good.EmbeddingText(): {1, 0},
		"Go":                 {1, 0},
	}}

	p := New(source, extractor, &fakeExpander{}, embedder, Config{
		Topics:             []string{"Go"},
		MinRelevanceScore:  0.5,
		MaxResultsPerTopic: 5,
	})

	results, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	selected := results["Go"].Articles
	if len(selected) != 1 || selected[0].URL != "https://good.example" {
		t.Errorf("Expected only the embeddable article, got %+v", selected)
	}
}

func TestExtractAllBoundsConcurrency(t *testing.T) {
	story := candidate("Story", "Desc.", "https://s.example")

	var emails []core.RawEmail
	extractorMap := make(map[string][]core.ArticleCandidate)
	for _, subject := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		emails = append(emails, email(subject))
		extractorMap[subject] = nil
	}
	extractorMap["a"] = []core.ArticleCandidate{story}

	extractor := &fakeExtractor{bySubject: extractorMap}
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		story.EmbeddingText(): {1, 0},
	}}

	p := New(&fakeSource{emails: emails}, extractor, &fakeExpander{}, embedder, Config{
		Topics:  []string{"x"},
		Workers: 2,
	})

	pool := p.extractAll(context.Background(), emails)

	if extractor.maxSeen > 2 {
		t.Errorf("Expected at most 2 concurrent extractions, saw %d", extractor.maxSeen)
	}
	if len(pool) != 1 {
		t.Errorf("Expected 1 article in the pool, got %d", len(pool))
	}
	if pool[0].ID == "" {
		t.Error("Expected pooled article to carry an ID")
	}
	if len(pool[0].Embedding) == 0 {
		t.Error("Expected pooled article to carry its embedding")
	}
}
