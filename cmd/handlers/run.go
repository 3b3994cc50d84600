package handlers

import (
	"context"
	"fmt"
	"time"

	"newsbrief/internal/config"
	"newsbrief/internal/expand"
	"newsbrief/internal/extract"
	"newsbrief/internal/llm"
	"newsbrief/internal/logger"
	"newsbrief/internal/mail"
	"newsbrief/internal/messaging"
	"newsbrief/internal/pipeline"
	"newsbrief/internal/render"
	"newsbrief/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command, the batch pipeline invocation.
func NewRunCmd() *cobra.Command {
	var skipDiscord bool

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch emails and produce the per-topic article digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), skipDiscord)
		},
	}

	runCmd.Flags().BoolVar(&skipDiscord, "no-discord", false, "skip posting results to Discord")

	return runCmd
}

func runPipeline(ctx context.Context, skipDiscord bool) error {
	started := time.Now()
	cfg := config.Get()

	if len(cfg.Search.Topics) == 0 {
		return fmt.Errorf("no search topics configured: set search.topics in the config file")
	}

	llmClient, err := llm.NewClient(ctx, cfg.AI.Gemini.Model)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer llmClient.Close()

	since, err := cfg.Mail.SinceTime(time.Now())
	if err != nil {
		return err
	}

	source := mail.NewIMAPSource(cfg.Mail.IMAPAddr, cfg.Mail.Username, cfg.Mail.Password, mail.Filter{
		AllowedSenders: cfg.Mail.AllowedSenders,
		AllowedDomains: cfg.Mail.AllowedDomains,
		Since:          since,
		UnreadOnly:     cfg.Mail.UnreadOnly,
	})
	source.Mailbox = cfg.Mail.Mailbox

	p := pipeline.New(
		source,
		extract.NewExtractor(llmClient),
		expand.NewExpander(llmClient),
		llmClient,
		pipeline.Config{
			Topics:             cfg.Search.Topics,
			MinRelevanceScore:  cfg.Search.MinRelevanceScore,
			MaxResultsPerTopic: cfg.Output.MaxResultsPerTopic,
			DedupThreshold:     cfg.Dedup.SimilarityThreshold,
			Workers:            cfg.Pipeline.Workers,
		},
	)

	results, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	path, err := render.RenderMarkdown(results, cfg.Search.Topics, cfg.Output.Directory)
	if err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	runID := uuid.NewString()
	if st, err := store.NewStore(cfg.Store.Directory); err != nil {
		logger.Error("Failed to open store, results not persisted", err)
	} else {
		if err := st.SaveResults(runID, results); err != nil {
			logger.Error("Failed to persist results", err)
		}
		st.Close()
	}

	if !skipDiscord && cfg.Messaging.Discord.WebhookURL != "" {
		discord := messaging.NewDiscordClient(cfg.Messaging.Discord.WebhookURL, cfg.Messaging.Discord.Username)
		if err := discord.SendResults(ctx, results, cfg.Search.Topics); err != nil {
			logger.Error("Failed to post results to Discord", err)
		}
	}

	selected := 0
	for _, result := range results {
		selected += len(result.Articles)
	}
	fmt.Printf("Results written to %s\n", path)
	fmt.Printf("Selected %d articles across %d topics in %s\n",
		selected, len(cfg.Search.Topics), time.Since(started).Round(time.Millisecond))

	return nil
}
