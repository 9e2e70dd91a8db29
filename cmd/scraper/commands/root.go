package commands

import (
	"github.com/spf13/cobra"

	"github.com/shanehull/wsbscraper/internal/config"
	"github.com/shanehull/wsbscraper/internal/logger"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "scraper",
	Short: "Rank stock tickers mentioned on a subreddit by mentions and sentiment",
	Long: `wsbscraper reads the top posts of a subreddit, extracts ticker-like tokens,
scores the text around every mention and ranks tickers by mention count and
average sentiment.

Examples:
  scraper run
  scraper run --profile monthly --no-email
  scraper init-db
  scraper history`,
	SilenceUsage: true,
}

// Execute runs the root command. It is called once by main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (environment and .env are always read)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}

func newLogger(cfg *config.Config) *logger.Logger {
	logCfg := cfg.Log
	if verbose {
		logCfg.Level = "debug"
	}
	return logger.New(logCfg)
}
