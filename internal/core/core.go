package core

import "time"

// RawEmail represents one email record as fetched from the mail source.
// It is immutable for the duration of a pipeline run.
type RawEmail struct {
	UID      uint32    `json:"uid"`       // IMAP UID of the message
	Subject  string    `json:"subject"`   // Subject line
	Sender   string    `json:"sender"`    // From address
	HTMLBody string    `json:"html_body"` // text/html body part (may be empty)
	TextBody string    `json:"text_body"` // text/plain body part (may be empty)
	Date     time.Time `json:"date"`      // Internal date of the message
}

// ArticleCandidate is one article extracted from an email, pre-deduplication.
// A candidate is only kept when all three keys were present in the extraction
// response; the URL value itself may be empty.
type ArticleCandidate struct {
	Title       string `json:"title"`       // Rewritten article title
	Description string `json:"description"` // Rewritten article description
	URL         string `json:"url"`         // Article URL ("" when none was found)
}

// EmbeddingText returns the text an article's embedding is computed from.
func (c ArticleCandidate) EmbeddingText() string {
	return c.Title + " " + c.Description
}

// Article is a candidate that passed deduplication, together with the
// embedding computed from its title and description. The embedding is
// computed once, at acceptance, and reused for relevance scoring.
type Article struct {
	ID string `json:"id"` // Unique identifier for the article
	ArticleCandidate
	Embedding []float64 `json:"embedding"` // Vector embedding of title + " " + description
}

// ScoredArticle annotates an Article with its relevance score for one topic.
// The same article can carry a different score per topic, so the score lives
// on the selection, never on the Article itself.
type ScoredArticle struct {
	Article
	RelevanceScore float64 `json:"relevance_score"` // Hybrid relevance score in [0, 1]
}

// Topic is a user search topic together with its expanded terms.
type Topic struct {
	Name          string   `json:"name"`           // The topic string as configured
	ExpandedTerms []string `json:"expanded_terms"` // Related terms, in expansion order
}

// SelectionResult holds the ranked articles selected for one topic.
// Articles are ordered by descending relevance score and their URLs are
// disjoint from every other topic's selection in the same run.
type SelectionResult struct {
	Topic         string          `json:"topic"`          // The topic this selection is for
	ExpandedTerms []string        `json:"expanded_terms"` // Terms used for matching
	Articles      []ScoredArticle `json:"articles"`       // At most max_results articles, best first
}
