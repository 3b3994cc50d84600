// Package extract turns one raw newsletter email into structured article
// candidates using the completion service.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"newsbrief/internal/core"
	"newsbrief/internal/jsonscan"
	"newsbrief/internal/logger"
)

// ExtractArticlesPromptTemplate is the fixed prompt contract for article
// extraction. The service must answer with a JSON array of objects carrying
// exactly the keys title, description and url.
const ExtractArticlesPromptTemplate = `Analyze the following email content and extract information about articles mentioned.
For each article:
1. Extract the original title, description (if available), and URL (look for [LINK: url] in the text)
2. Rewrite the title and description in a friendlier, lighter tone with a touch of personal feel
3. Keep the rewritten content concise and engaging
4. Restrict the description to be less than 160 characters, and be more to the point

Email content:
%s

Format the output as a JSON array of objects, each with 'title', 'description', and 'url' keys.
The 'title' and 'description' should contain the rewritten versions.
Ensure that the output is valid JSON. If no URL is found for an article, use an empty string for the 'url' value.

Example of the tone and style for rewritten content:
Original: "Implementing Machine Learning Models: A Comprehensive Guide"
Rewritten: "Dive into ML: Your Friendly Guide to Bringing Models to Life!"`

// TextCompleter is the slice of the LLM client the extractor depends on.
type TextCompleter interface {
	CompleteText(ctx context.Context, prompt string) (string, error)
}

// Extractor extracts article candidates from raw emails.
type Extractor struct {
	completer TextCompleter
}

// NewExtractor creates an extractor backed by the given completion service.
func NewExtractor(completer TextCompleter) *Extractor {
	return &Extractor{completer: completer}
}

// Extract produces zero or more article candidates from one email.
//
// Failures never propagate: a transport error, a response without a JSON
// array, or an array containing any malformed object all degrade to an empty
// result for this email. A single malformed object invalidates the whole
// response rather than being skipped, so a confused model cannot smuggle
// partial garbage into the pool.
func (e *Extractor) Extract(ctx context.Context, email core.RawEmail) []core.ArticleCandidate {
	log := logger.With("subject", email.Subject)
	log.Info("Extracting articles from email")

	content := FlattenBody(email)
	if strings.TrimSpace(content) == "" {
		log.Warn("Email has no extractable body content")
		return nil
	}

	prompt := fmt.Sprintf(ExtractArticlesPromptTemplate, content)
	raw, err := e.completer.CompleteText(ctx, prompt)
	if err != nil {
		logger.Error("Completion service failed for email", err, "subject", email.Subject)
		return nil
	}

	candidates, err := ParseCandidates(raw)
	if err != nil {
		logger.Error("Failed to parse extraction response", err, "subject", email.Subject)
		return nil
	}

	log.Info("Extracted articles from email", "count", len(candidates))
	return candidates
}

// ParseCandidates locates the first JSON array in the raw response and
// decodes it. Every object must carry string values for title, description
// and url; one bad object fails the entire response.
func ParseCandidates(raw string) ([]core.ArticleCandidate, error) {
	arr, err := jsonscan.FirstArray(raw)
	if err != nil {
		return nil, fmt.Errorf("no JSON array found in response: %w", err)
	}

	var objects []map[string]any
	if err := json.Unmarshal([]byte(arr), &objects); err != nil {
		return nil, fmt.Errorf("failed to decode article array: %w", err)
	}

	candidates := make([]core.ArticleCandidate, 0, len(objects))
	for i, obj := range objects {
		candidate, err := candidateFromObject(obj)
		if err != nil {
			return nil, fmt.Errorf("invalid article at index %d: %w", i, err)
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

func candidateFromObject(obj map[string]any) (core.ArticleCandidate, error) {
	var candidate core.ArticleCandidate

	for _, key := range []string{"title", "description", "url"} {
		value, ok := obj[key]
		if !ok {
			return candidate, fmt.Errorf("missing required key %q", key)
		}
		text, ok := value.(string)
		if !ok {
			return candidate, fmt.Errorf("key %q is not a string", key)
		}
		switch key {
		case "title":
			candidate.Title = text
		case "description":
			candidate.Description = text
		case "url":
			candidate.URL = text
		}
	}

	return candidate, nil
}
