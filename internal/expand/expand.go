// Package expand broadens user topics into short lists of related terms via
// the completion service.
package expand

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"newsbrief/internal/jsonscan"
	"newsbrief/internal/logger"
)

// ExpandTopicsPromptTemplate is the batched expansion prompt. All topics go
// out in a single request; the service answers with a JSON object keyed by
// the exact input topic strings, each value a comma-separated term list.
const ExpandTopicsPromptTemplate = `Expand each of the following queries into a concise set of the most relevant technical terms.
For each query, focus only on:
1. The exact input term
2. Its most common abbreviations or alternative names
3. Core concepts that are directly and strongly associated with the input

Rules:
- Limit the expansion of each query to a maximum of 5-7 terms
- Include only technical terms directly related to each input
- Exclude broader categories, related tools, or concepts that are not core to the input
- Separate each term with a comma
- Provide the expanded queries in a JSON format, with the original query as the key. DO NOT include characters like ` + "```json" + `. Return the pure JSON as text.

Example output format:
{
    "React": "React, React.js, ReactJS, JSX, Virtual DOM",
    "Python": "Python, Py, CPython, PyPy, GIL, PEP"
}

Queries to expand:
%s

Expanded queries:`

// TextCompleter is the slice of the LLM client the expander depends on.
type TextCompleter interface {
	CompleteText(ctx context.Context, prompt string) (string, error)
}

// Expander expands topics into related search terms.
type Expander struct {
	completer TextCompleter
}

// NewExpander creates an expander backed by the given completion service.
func NewExpander(completer TextCompleter) *Expander {
	return &Expander{completer: completer}
}

// Expand maps every topic to its list of related terms.
//
// The request is batched: one completion call covers all topics. On any
// failure, transport or parse, every topic falls back to the singleton list
// containing only itself. A run never fails because expansion failed.
func (e *Expander) Expand(ctx context.Context, topics []string) map[string][]string {
	if len(topics) == 0 {
		return map[string][]string{}
	}

	prompt := fmt.Sprintf(ExpandTopicsPromptTemplate, strings.Join(topics, "\n"))
	raw, err := e.completer.CompleteText(ctx, prompt)
	if err != nil {
		logger.Error("Topic expansion request failed, using topics as-is", err)
		return fallback(topics)
	}

	expanded, err := parseExpansion(raw)
	if err != nil {
		logger.Error("Failed to parse expansion response, using topics as-is", err)
		return fallback(topics)
	}

	// The service is trusted for term counts but not for coverage: a topic
	// it dropped still expands to itself.
	result := make(map[string][]string, len(topics))
	for _, topic := range topics {
		if terms, ok := expanded[topic]; ok && len(terms) > 0 {
			result[topic] = terms
		} else {
			logger.Warn("Topic missing from expansion response", "topic", topic)
			result[topic] = []string{topic}
		}
	}

	logger.Info("Expanded topics", "topics", len(topics))
	return result
}

// parseExpansion decodes the first JSON object in the raw response. Values
// are comma-separated term strings; term order is preserved as returned.
func parseExpansion(raw string) (map[string][]string, error) {
	obj, err := jsonscan.FirstObject(raw)
	if err != nil {
		return nil, fmt.Errorf("no JSON object found in response: %w", err)
	}

	var byTopic map[string]string
	if err := json.Unmarshal([]byte(obj), &byTopic); err != nil {
		return nil, fmt.Errorf("failed to decode expansion object: %w", err)
	}

	result := make(map[string][]string, len(byTopic))
	for topic, joined := range byTopic {
		var terms []string
		for _, term := range strings.Split(joined, ",") {
			if term = strings.TrimSpace(term); term != "" {
				terms = append(terms, term)
			}
		}
		result[topic] = terms
	}

	return result, nil
}

func fallback(topics []string) map[string][]string {
	result := make(map[string][]string, len(topics))
	for _, topic := range topics {
		result[topic] = []string{topic}
	}
	return result
}
