// Package store persists selected articles between runs in a local SQLite
// database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"newsbrief/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-backed result store.
type Store struct {
	db   *sql.DB
	path string
}

// SavedArticle is one persisted selection row.
type SavedArticle struct {
	RunID          string
	Topic          string
	Title          string
	Description    string
	URL            string
	RelevanceScore float64
	SelectedAt     time.Time
}

// NewStore opens (and if needed creates) the database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "newsbrief.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	// URL is the article identity across runs: re-selecting a known article
	// leaves the original row in place.
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		url TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		relevance_score REAL NOT NULL,
		selected_at DATETIME NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create articles table: %w", err)
	}
	return nil
}

// SaveResults records every selected article of a run. Articles without a
// URL have no stable identity and are skipped.
func (s *Store) SaveResults(runID string, results map[string]core.SelectionResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO articles
		(url, run_id, topic, title, description, relevance_score, selected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for topic, result := range results {
		for _, article := range result.Articles {
			if article.URL == "" {
				continue
			}
			if _, err := stmt.Exec(article.URL, runID, topic, article.Title,
				article.Description, article.RelevanceScore, now); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to save article %s: %w", article.URL, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// ListArticles returns the most recently selected articles, newest first.
func (s *Store) ListArticles(limit int) ([]SavedArticle, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`SELECT run_id, topic, title, description, url, relevance_score, selected_at
		FROM articles ORDER BY selected_at DESC, url LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []SavedArticle
	for rows.Next() {
		var a SavedArticle
		if err := rows.Scan(&a.RunID, &a.Topic, &a.Title, &a.Description, &a.URL,
			&a.RelevanceScore, &a.SelectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while reading article rows: %w", err)
	}

	return articles, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
