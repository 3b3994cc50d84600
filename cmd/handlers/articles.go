package handlers

import (
	"fmt"

	"newsbrief/internal/config"
	"newsbrief/internal/store"

	"github.com/spf13/cobra"
)

// NewArticlesCmd creates the articles command, which lists previously
// selected articles from the local store.
func NewArticlesCmd() *cobra.Command {
	var limit int

	articlesCmd := &cobra.Command{
		Use:   "articles",
		Short: "List articles selected in previous runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()

			st, err := store.NewStore(cfg.Store.Directory)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			articles, err := st.ListArticles(limit)
			if err != nil {
				return fmt.Errorf("failed to list articles: %w", err)
			}

			if len(articles) == 0 {
				fmt.Println("No articles selected yet.")
				return nil
			}

			for _, article := range articles {
				fmt.Printf("[%s] %s (%.2f)\n", article.Topic, article.Title, article.RelevanceScore)
				if article.URL != "" {
					fmt.Printf("    %s\n", article.URL)
				}
			}
			return nil
		},
	}

	articlesCmd.Flags().IntVar(&limit, "limit", 50, "maximum number of articles to list")

	return articlesCmd
}
