// Package render writes the per-topic selection results as a markdown file.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsbrief/internal/core"
)

// RenderMarkdown writes one newsletter results file for the run and returns
// its path. Topics are written in topicOrder so the output is deterministic
// and mirrors the allocation order.
func RenderMarkdown(results map[string]core.SelectionResult, topicOrder []string, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = "results"
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	dateStr := time.Now().UTC().Format("2006-01-02")
	filePath := filepath.Join(outputDir, fmt.Sprintf("newsletter_%s.md", dateStr))

	content := Markdown(results, topicOrder)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write results file %s: %w", filePath, err)
	}

	return filePath, nil
}

// Markdown builds the results document: one section per topic with the
// expanded keywords and the ranked article list.
func Markdown(results map[string]core.SelectionResult, topicOrder []string) string {
	var sb strings.Builder

	for _, topic := range topicOrder {
		result, ok := results[topic]
		if !ok {
			continue
		}

		sb.WriteString(fmt.Sprintf("## %s\n", result.Topic))
		sb.WriteString(fmt.Sprintf("Expanded keywords: %s\n", strings.Join(result.ExpandedTerms, ", ")))
		sb.WriteString("### Top articles\n")
		if len(result.Articles) == 0 {
			sb.WriteString("No relevant articles this time.\n")
		}
		for _, article := range result.Articles {
			if article.URL != "" {
				sb.WriteString(fmt.Sprintf("#### [%s](%s)\n", article.Title, article.URL))
			} else {
				sb.WriteString(fmt.Sprintf("#### %s\n", article.Title))
			}
			sb.WriteString(article.Description + "\n\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
