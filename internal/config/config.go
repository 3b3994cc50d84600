// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"newsbrief/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration. It is bound once at run start
// and treated as read-only afterwards.
type Config struct {
	App       App       `mapstructure:"app"`
	AI        AI        `mapstructure:"ai"`
	Mail      Mail      `mapstructure:"mail"`
	Search    Search    `mapstructure:"search"`
	Dedup     Dedup     `mapstructure:"dedup"`
	Pipeline  Pipeline  `mapstructure:"pipeline"`
	Output    Output    `mapstructure:"output"`
	Messaging Messaging `mapstructure:"messaging"`
	Store     Store     `mapstructure:"store"`
}

// App holds general application configuration.
type App struct {
	DataDir string `mapstructure:"data_dir"`
}

// AI holds AI/LLM configuration.
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration.
type GeminiConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// Mail holds IMAP mail source configuration.
type Mail struct {
	IMAPAddr       string   `mapstructure:"imap_addr"` // host:port
	Username       string   `mapstructure:"username"`
	Password       string   `mapstructure:"password"`
	Mailbox        string   `mapstructure:"mailbox"`
	AllowedSenders []string `mapstructure:"allowed_senders"`
	AllowedDomains []string `mapstructure:"allowed_domains"`
	UnreadOnly     bool     `mapstructure:"unread_only"`
	Since          string   `mapstructure:"since"` // "month_start" or YYYY-MM-DD
}

// Search holds topic and relevance configuration.
type Search struct {
	Topics            []string `mapstructure:"topics"`
	MinRelevanceScore float64  `mapstructure:"min_relevance_score"`
}

// Dedup holds deduplication configuration.
type Dedup struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

// Pipeline holds concurrency configuration.
type Pipeline struct {
	Workers int `mapstructure:"workers"`
}

// Output holds result output configuration.
type Output struct {
	MaxResultsPerTopic int    `mapstructure:"max_results_per_topic"`
	Directory          string `mapstructure:"directory"`
}

// Messaging holds messaging platform configuration.
type Messaging struct {
	Discord DiscordConfig `mapstructure:"discord"`
}

// DiscordConfig holds Discord webhook configuration.
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Username   string `mapstructure:"username"`
}

// Store holds persistence configuration.
type Store struct {
	Directory string `mapstructure:"directory"`
}

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	domainPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var globalConfig *Config

// Load loads the configuration from the config file, environment and defaults.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			logger.Warn("Error loading .env file", "error", err.Error())
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".newsbrief")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	config.Mail.AllowedSenders, config.Mail.AllowedDomains =
		FilterSenders(config.Mail.AllowedSenders, config.Mail.AllowedDomains)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

func setDefaults() {
	viper.SetDefault("app.data_dir", ".newsbrief-cache")

	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.embedding_model", "gemini-embedding-001")

	viper.SetDefault("mail.mailbox", "INBOX")
	viper.SetDefault("mail.unread_only", true)
	viper.SetDefault("mail.since", "month_start")

	viper.SetDefault("search.min_relevance_score", 0.7)
	viper.SetDefault("dedup.similarity_threshold", 0.95)
	viper.SetDefault("pipeline.workers", 3)

	viper.SetDefault("output.max_results_per_topic", 3)
	viper.SetDefault("output.directory", "results")

	viper.SetDefault("messaging.discord.username", "newsbrief")

	viper.SetDefault("store.directory", ".newsbrief-cache")
}

// FilterSenders drops syntactically invalid sender and domain entries with a
// warning. Partial configuration validity never aborts a run; the valid
// entries are still used.
func FilterSenders(senders, domains []string) (validSenders, validDomains []string) {
	for _, sender := range senders {
		if emailPattern.MatchString(sender) {
			validSenders = append(validSenders, sender)
		} else {
			logger.Warn("Ignoring invalid sender address in config", "sender", sender)
		}
	}
	for _, domain := range domains {
		if domainPattern.MatchString(domain) {
			validDomains = append(validDomains, domain)
		} else {
			logger.Warn("Ignoring invalid domain in config", "domain", domain)
		}
	}
	return validSenders, validDomains
}

func validateConfig(config *Config) error {
	if config.Search.MinRelevanceScore < 0 || config.Search.MinRelevanceScore > 1 {
		return fmt.Errorf("search.min_relevance_score must be in [0, 1], got %f", config.Search.MinRelevanceScore)
	}
	if config.Dedup.SimilarityThreshold <= 0 || config.Dedup.SimilarityThreshold > 1 {
		return fmt.Errorf("dedup.similarity_threshold must be in (0, 1], got %f", config.Dedup.SimilarityThreshold)
	}
	if config.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be positive, got %d", config.Pipeline.Workers)
	}
	return nil
}

// SinceTime resolves the configured mail search lower bound. "month_start"
// (or an empty value) means the first day of the current month; anything
// else must parse as YYYY-MM-DD.
func (m Mail) SinceTime(now time.Time) (time.Time, error) {
	switch m.Since {
	case "", "month_start":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	default:
		t, err := time.Parse("2006-01-02", m.Since)
		if err != nil {
			return time.Time{}, fmt.Errorf("mail.since must be \"month_start\" or YYYY-MM-DD: %w", err)
		}
		return t, nil
	}
}
