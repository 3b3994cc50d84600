package handlers

import (
	"fmt"
	"strings"

	"newsbrief/internal/config"
	"newsbrief/internal/expand"
	"newsbrief/internal/llm"

	"github.com/spf13/cobra"
)

// NewExpandCmd creates the expand command, a debugging helper that shows how
// the configured topics expand without running the full pipeline.
func NewExpandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expand",
		Short: "Show the expanded terms for the configured topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			ctx := cmd.Context()

			topics := cfg.Search.Topics
			if len(args) > 0 {
				topics = args
			}
			if len(topics) == 0 {
				return fmt.Errorf("no topics configured and none given as arguments")
			}

			llmClient, err := llm.NewClient(ctx, cfg.AI.Gemini.Model)
			if err != nil {
				return fmt.Errorf("failed to create LLM client: %w", err)
			}
			defer llmClient.Close()

			expanded := expand.NewExpander(llmClient).Expand(ctx, topics)
			for _, topic := range topics {
				fmt.Printf("%s: %s\n", topic, strings.Join(expanded[topic], ", "))
			}
			return nil
		},
	}
}
