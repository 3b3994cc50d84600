// Package dedup implements batch-scoped near-duplicate rejection over
// article embeddings.
package dedup

import (
	"sync"

	"newsbrief/internal/core"
	"newsbrief/internal/logger"
	"newsbrief/internal/similarity"
)

// DefaultThreshold is the cosine similarity at or above which two articles
// are considered the same story.
const DefaultThreshold = 0.95

type entry struct {
	candidate core.ArticleCandidate
	embedding []float64
}

// Deduplicator keeps the accepted-article embeddings for one pipeline run.
// Construct a fresh one per run: there is no reset call to forget, and no
// package-level state to leak between runs.
//
// Accept is safe for concurrent use. The compare-and-append sequence is
// guarded by a single lock, so two near-duplicate candidates arriving from
// different extraction workers cannot both be accepted.
type Deduplicator struct {
	mu        sync.Mutex
	threshold float64
	accepted  []entry
}

// New creates a Deduplicator with the given similarity threshold.
// A threshold outside (0, 1] falls back to DefaultThreshold.
func New(threshold float64) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{threshold: threshold}
}

// Accept reports whether the candidate is unique within the current run.
// A unique candidate is recorded; a duplicate's embedding is discarded.
// A candidate is compared only against previously accepted entries, never
// against other pending candidates, so acceptance order decides which of two
// near-duplicates survives.
func (d *Deduplicator) Accept(candidate core.ArticleCandidate, embedding []float64) bool {
	if !hasDirection(embedding) {
		// A zero-norm embedding cannot be compared against anything, and
		// recording it would poison every later comparison.
		logger.Warn("Rejecting candidate with degenerate embedding", "title", candidate.Title)
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, prev := range d.accepted {
		sim, err := similarity.Cosine(embedding, prev.embedding)
		if err != nil {
			// Degenerate input cannot be compared; treat the candidate as
			// unacceptable rather than guessing.
			logger.Warn("Cannot compare embeddings", "title", candidate.Title, "error", err.Error())
			return false
		}
		if sim >= d.threshold {
			logger.Info("Duplicate article found",
				"title", candidate.Title,
				"duplicate_of", prev.candidate.Title,
				"similarity", sim)
			return false
		}
	}

	d.accepted = append(d.accepted, entry{candidate: candidate, embedding: embedding})
	return true
}

func hasDirection(embedding []float64) bool {
	for _, v := range embedding {
		if v != 0 {
			return true
		}
	}
	return false
}

// Len returns the number of accepted articles so far.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.accepted)
}
