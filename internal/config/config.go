/*
Package config loads run settings from defaults, an optional YAML file, a .env file and the environment.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shanehull/wsbscraper/internal/types"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Subreddit string          `yaml:"subreddit"`
	Profile   string          `yaml:"profile"`
	Feed      FeedConfig      `yaml:"feed"`
	Extract   ExtractConfig   `yaml:"extract"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	Output    OutputConfig    `yaml:"output"`
	Database  DatabaseConfig  `yaml:"database"`
	Email     EmailConfig     `yaml:"email"`
	Log       LogConfig       `yaml:"log"`
	History   HistoryConfig   `yaml:"history"`
}

type FeedConfig struct {
	ClientID       string        `yaml:"client_id"`
	ClientSecret   string        `yaml:"client_secret"`
	UserAgent      string        `yaml:"user_agent"`
	TimeFilter     string        `yaml:"time_filter"`
	Limit          int           `yaml:"limit"`
	Window         time.Duration `yaml:"window"`
	Retries        int           `yaml:"retries"`
	RetryWait      time.Duration `yaml:"retry_wait"`
	RequestsPerMin int           `yaml:"requests_per_minute"`
	Timeout        time.Duration `yaml:"timeout"`
}

type ExtractConfig struct {
	ContextWidth int `yaml:"context_width"`
}

type SentimentConfig struct {
	Backend      string  `yaml:"backend"`
	ScaleMax     float64 `yaml:"scale_max"`
	GeminiAPIKey string  `yaml:"gemini_api_key"`
	GeminiModel  string  `yaml:"gemini_model"`
}

type AggregateConfig struct {
	Key string `yaml:"key"`
}

type OutputConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Format  string `yaml:"format"`
}

type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Table   string `yaml:"table"`
}

type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	SMTPUser   string `yaml:"smtp_user"`
	SMTPPass   string `yaml:"smtp_pass"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
	Subject    string `yaml:"subject"`
	TopN       int    `yaml:"top_n"`
	Disabled   bool   `yaml:"disabled"`
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (e EmailConfig) Enabled() bool {
	return !e.Disabled && e.SMTPServer != "" && e.SMTPUser != "" && e.SMTPPass != "" && e.ToEmail != ""
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type profile struct {
	timeFilter string
	limit      int
	window     time.Duration
	key        types.KeyGranularity
	subject    string
}

var profiles = map[string]profile{
	"daily": {
		timeFilter: "day", limit: 100, window: 24 * time.Hour, key: types.KeyTicker,
		subject: "Daily Stock Tickers with Sentiment Analysis",
	},
	"monthly": {
		timeFilter: "month", limit: 1000, window: 30 * 24 * time.Hour, key: types.KeyTickerTimestamp,
		subject: "Monthly Stock Tickers with Sentiment Analysis",
	},
}

// Default returns the daily profile with no sinks configured.
func Default() *Config {
	cfg := &Config{
		Subreddit: "wallstreetbets",
		Profile:   "daily",
		Feed: FeedConfig{
			UserAgent:      "wsbscraper/1.0",
			Retries:        3,
			RetryWait:      2 * time.Second,
			RequestsPerMin: 60,
			Timeout:        30 * time.Second,
		},
		Extract:   ExtractConfig{ContextWidth: 50},
		Sentiment: SentimentConfig{Backend: "vader", ScaleMax: 10, GeminiModel: "gemini-2.5-flash"},
		Output:    OutputConfig{Enabled: true, Dir: ".", Format: "csv"},
		Database:  DatabaseConfig{Table: "wsb_ticker_raw"},
		Email: EmailConfig{
			SMTPServer: "smtp.gmail.com",
			SMTPPort:   587,
		},
		Log:     LogConfig{Level: "info", Format: "console"},
		History: HistoryConfig{Enabled: true},
	}
	if err := cfg.ApplyProfile("daily"); err != nil {
		panic(err)
	}
	return cfg
}

// ApplyProfile overwrites the feed window, sampling and aggregation key with a named preset.
func (c *Config) ApplyProfile(name string) error {
	p, ok := profiles[name]
	if !ok {
		return fmt.Errorf("%w: unknown profile %q (valid: daily, monthly)", ErrInvalid, name)
	}
	c.Profile = name
	c.Feed.TimeFilter = p.timeFilter
	c.Feed.Limit = p.limit
	c.Feed.Window = p.window
	c.Aggregate.Key = string(p.key)
	return nil
}

// Load builds a Config from defaults, the YAML file at path (if non-empty), .env and the environment.
// The profile preset (WSB_PROFILE, else the file's profile) applies before any explicit value.
func Load(path string) (*Config, error) {
	cfg := Default()
	loadEnvFile()

	var data []byte
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	name, err := profileName(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.ApplyProfile(name); err != nil {
		return nil, err
	}

	if data != nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		cfg.Profile = name
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func profileName(data []byte) (string, error) {
	if p := os.Getenv("WSB_PROFILE"); p != "" {
		return p, nil
	}
	var head struct {
		Profile string `yaml:"profile"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return "", err
	}
	if head.Profile == "" {
		return "daily", nil
	}
	return head.Profile, nil
}

func (c *Config) applyEnv() error {
	c.Subreddit = getEnv("WSB_SUBREDDIT", c.Subreddit)

	c.Feed.ClientID = getEnv("REDDIT_CLIENT_ID", c.Feed.ClientID)
	c.Feed.ClientSecret = getEnv("REDDIT_CLIENT_SECRET", c.Feed.ClientSecret)
	c.Feed.UserAgent = getEnv("REDDIT_USER_AGENT", c.Feed.UserAgent)
	c.Feed.TimeFilter = getEnv("FEED_TIME_FILTER", c.Feed.TimeFilter)
	c.Feed.Limit = getEnvAsInt("FEED_LIMIT", c.Feed.Limit)
	c.Feed.Window = getEnvAsDuration("FEED_WINDOW", c.Feed.Window)
	c.Feed.Retries = getEnvAsInt("FEED_RETRIES", c.Feed.Retries)
	c.Feed.RequestsPerMin = getEnvAsInt("FEED_REQUESTS_PER_MINUTE", c.Feed.RequestsPerMin)

	c.Extract.ContextWidth = getEnvAsInt("CONTEXT_WIDTH", c.Extract.ContextWidth)

	c.Sentiment.Backend = getEnv("SENTIMENT_BACKEND", c.Sentiment.Backend)
	c.Sentiment.ScaleMax = getEnvAsFloat("SCORE_SCALE_MAX", c.Sentiment.ScaleMax)
	c.Sentiment.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.Sentiment.GeminiAPIKey)
	c.Sentiment.GeminiModel = getEnv("GEMINI_MODEL", c.Sentiment.GeminiModel)

	c.Aggregate.Key = getEnv("AGGREGATE_KEY", c.Aggregate.Key)

	c.Output.Enabled = getEnvAsBool("OUTPUT_ENABLED", c.Output.Enabled)
	c.Output.Dir = getEnv("OUTPUT_DIR", c.Output.Dir)
	c.Output.Format = getEnv("OUTPUT_FORMAT", c.Output.Format)

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.Table = getEnv("DB_TABLE", c.Database.Table)
	c.Database.Enabled = getEnvAsBool("DB_ENABLED", c.Database.Enabled || c.Database.URL != "")

	c.Email.SMTPServer = getEnv("SMTP_SERVER", c.Email.SMTPServer)
	c.Email.SMTPPort = getEnvAsInt("SMTP_PORT", c.Email.SMTPPort)
	c.Email.SMTPUser = getEnv("SMTP_USER", c.Email.SMTPUser)
	c.Email.SMTPPass = getEnv("SMTP_PASS", c.Email.SMTPPass)
	c.Email.FromEmail = getEnv("FROM_EMAIL", c.Email.FromEmail)
	c.Email.ToEmail = getEnv("TO_EMAIL", c.Email.ToEmail)
	c.Email.Subject = getEnv("EMAIL_SUBJECT", c.Email.Subject)
	c.Email.TopN = getEnvAsInt("EMAIL_TOP_N", c.Email.TopN)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.History.Enabled = getEnvAsBool("HISTORY_ENABLED", c.History.Enabled)
	c.History.Dir = getEnv("HISTORY_DIR", c.History.Dir)

	return nil
}

// Validate checks enums and ranges. It also defaults the sender address to the SMTP user.
func (c *Config) Validate() error {
	if c.Subreddit == "" {
		return fmt.Errorf("%w: subreddit is required", ErrInvalid)
	}
	switch c.Feed.TimeFilter {
	case "hour", "day", "week", "month", "year", "all":
	default:
		return fmt.Errorf("%w: feed.time_filter %q must be one of hour, day, week, month, year, all", ErrInvalid, c.Feed.TimeFilter)
	}
	if c.Feed.Limit <= 0 {
		return fmt.Errorf("%w: feed.limit must be positive, got %d", ErrInvalid, c.Feed.Limit)
	}
	if c.Feed.Window <= 0 {
		return fmt.Errorf("%w: feed.window must be positive, got %s", ErrInvalid, c.Feed.Window)
	}
	if c.Feed.Retries < 0 {
		return fmt.Errorf("%w: feed.retries must not be negative", ErrInvalid)
	}
	if c.Feed.UserAgent == "" {
		return fmt.Errorf("%w: feed.user_agent is required", ErrInvalid)
	}
	if c.Extract.ContextWidth < 0 {
		return fmt.Errorf("%w: extract.context_width must not be negative", ErrInvalid)
	}
	if c.Sentiment.ScaleMax <= 0 {
		return fmt.Errorf("%w: sentiment.scale_max must be positive", ErrInvalid)
	}
	switch c.Sentiment.Backend {
	case "vader":
	case "gemini":
		if c.Sentiment.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required for the gemini backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: sentiment.backend %q must be vader or gemini", ErrInvalid, c.Sentiment.Backend)
	}
	if _, err := types.ParseKeyGranularity(c.Aggregate.Key); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Output.Format != "csv" && c.Output.Format != "xlsx" {
		return fmt.Errorf("%w: output.format %q must be csv or xlsx", ErrInvalid, c.Output.Format)
	}
	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("%w: DATABASE_URL is required when the database sink is enabled", ErrInvalid)
	}
	if c.Email.FromEmail == "" {
		c.Email.FromEmail = c.Email.SMTPUser
	}
	return nil
}

// EmailSubject returns the configured subject, or the profile's default when none is set.
func (c *Config) EmailSubject() string {
	if c.Email.Subject != "" {
		return c.Email.Subject
	}
	if p, ok := profiles[c.Profile]; ok {
		return p.subject
	}
	return profiles["daily"].subject
}

// Granularity returns the parsed aggregation key. Only valid after Validate.
func (c *Config) Granularity() types.KeyGranularity {
	return types.KeyGranularity(c.Aggregate.Key)
}

func loadEnvFile() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return duration
}
