package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shanehull/wsbscraper/internal/config"
	"github.com/shanehull/wsbscraper/internal/history"
	"github.com/shanehull/wsbscraper/internal/logger"
	"github.com/shanehull/wsbscraper/internal/notify"
	"github.com/shanehull/wsbscraper/internal/pipeline"
	"github.com/shanehull/wsbscraper/internal/reddit"
	"github.com/shanehull/wsbscraper/internal/sentiment"
	"github.com/shanehull/wsbscraper/internal/store"
	"github.com/shanehull/wsbscraper/internal/types"
)

type runOptions struct {
	profile      string
	subreddit    string
	window       time.Duration
	limit        int
	timeFilter   string
	key          string
	contextWidth int
	backend      string
	format       string
	outputDir    string

	noFile    bool
	noDB      bool
	noEmail   bool
	noHistory bool

	smtpServer string
	smtpPort   int
	smtpUser   string
	smtpPass   string
	toEmail    string
	fromEmail  string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, score and rank tickers once, then write results to every enabled sink",
	Long: `Run one pass over the subreddit's top posts.

Posts older than the window are dropped, every ticker mention is scored on the
text around it and results are written to the output file, PostgreSQL and
email when those sinks are configured. A failing sink does not stop the others
but makes the command exit non-zero after the results are printed.

Example:
  scraper run --profile daily
  scraper run --profile monthly --format xlsx --no-db`,
	RunE: runScrape,
}

func init() {
	bindRunFlags(runCmd.Flags(), &runOpts)
	rootCmd.AddCommand(runCmd)
}

func bindRunFlags(f *pflag.FlagSet, o *runOptions) {
	f.StringVar(&o.profile, "profile", "", "preset: daily (t=day, 100 posts, 24h, ticker) or monthly (t=month, 1000 posts, 720h, ticker_timestamp)")
	f.StringVar(&o.subreddit, "subreddit", "", "subreddit to scan")
	f.DurationVar(&o.window, "window", 0, "recency window; older posts are dropped")
	f.IntVar(&o.limit, "limit", 0, "number of top posts to fetch")
	f.StringVar(&o.timeFilter, "time-filter", "", "listing time filter (hour, day, week, month, year, all)")
	f.StringVar(&o.key, "key", "", "aggregation key (ticker, ticker_timestamp, ticker_day)")
	f.IntVar(&o.contextWidth, "context-width", 0, "characters of context on each side of a mention")
	f.StringVar(&o.backend, "backend", "", "sentiment backend (vader, gemini)")
	f.StringVar(&o.format, "format", "", "output file format (csv, xlsx)")
	f.StringVar(&o.outputDir, "output-dir", "", "directory for output files")

	f.BoolVar(&o.noFile, "no-file", false, "skip the output file")
	f.BoolVar(&o.noDB, "no-db", false, "skip the PostgreSQL sink")
	f.BoolVar(&o.noEmail, "no-email", false, "skip the email notification")
	f.BoolVar(&o.noHistory, "no-history", false, "do not record this run in the run history")

	f.StringVar(&o.smtpServer, "smtp-server", "", "SMTP server address")
	f.IntVar(&o.smtpPort, "smtp-port", 0, "SMTP server port")
	f.StringVar(&o.smtpUser, "smtp-user", "", "SMTP username (email address)")
	f.StringVar(&o.smtpPass, "smtp-pass", "", "SMTP password or App Password")
	f.StringVar(&o.toEmail, "to-email", "", "recipient email address")
	f.StringVar(&o.fromEmail, "from-email", "", "sender email address (default: smtp-user)")
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet, o runOptions) error {
	if flags.Changed("profile") {
		if err := cfg.ApplyProfile(o.profile); err != nil {
			return err
		}
	}

	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("subreddit", func() { cfg.Subreddit = o.subreddit })
	set("window", func() { cfg.Feed.Window = o.window })
	set("limit", func() { cfg.Feed.Limit = o.limit })
	set("time-filter", func() { cfg.Feed.TimeFilter = o.timeFilter })
	set("key", func() { cfg.Aggregate.Key = o.key })
	set("context-width", func() { cfg.Extract.ContextWidth = o.contextWidth })
	set("backend", func() { cfg.Sentiment.Backend = o.backend })
	set("format", func() { cfg.Output.Format = o.format })
	set("output-dir", func() { cfg.Output.Dir = o.outputDir })
	set("no-file", func() { cfg.Output.Enabled = !o.noFile })
	set("no-db", func() { cfg.Database.Enabled = !o.noDB })
	set("no-email", func() { cfg.Email.Disabled = o.noEmail })
	set("no-history", func() { cfg.History.Enabled = !o.noHistory })
	set("smtp-server", func() { cfg.Email.SMTPServer = o.smtpServer })
	set("smtp-port", func() { cfg.Email.SMTPPort = o.smtpPort })
	set("smtp-user", func() { cfg.Email.SMTPUser = o.smtpUser })
	set("smtp-pass", func() { cfg.Email.SMTPPass = o.smtpPass })
	set("to-email", func() { cfg.Email.ToEmail = o.toEmail })
	set("from-email", func() { cfg.Email.FromEmail = o.fromEmail })

	return cfg.Validate()
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, cmd.Flags(), runOpts); err != nil {
		return err
	}

	log := newLogger(cfg)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scorer, err := sentiment.New(ctx, cfg.Sentiment)
	if err != nil {
		return fmt.Errorf("failed to create %s scorer: %w", cfg.Sentiment.Backend, err)
	}

	runner := pipeline.New(
		reddit.New(ctx, cfg.Feed, log),
		sentiment.NewContextScorer(scorer, cfg.Sentiment.ScaleMax),
		pipeline.Options{
			Subreddit:    cfg.Subreddit,
			TimeFilter:   cfg.Feed.TimeFilter,
			Limit:        cfg.Feed.Limit,
			Window:       cfg.Feed.Window,
			ContextWidth: cfg.Extract.ContextWidth,
			Granularity:  cfg.Granularity(),
		},
		log.WithField("profile", cfg.Profile),
	)

	report, err := runner.Run(ctx)
	if err != nil {
		log.WithError(err).Error("Run failed")
		return err
	}

	sinks, closeSinks, openErr := openSinks(ctx, cfg, report, log)
	defer closeSinks()

	sinkErr := errors.Join(openErr, pipeline.Deliver(ctx, report, sinks, log))

	notify.PrintResults(cmd.OutOrStdout(), report, cfg.Sentiment.ScaleMax)

	if cfg.History.Enabled {
		recordHistory(cfg, report, log)
	}

	if sinkErr != nil {
		return fmt.Errorf("one or more sinks failed: %w", sinkErr)
	}
	return nil
}

// openSinks builds the enabled sinks. A sink that cannot be opened is recorded on the report
// and in the returned error; the others still run.
func openSinks(ctx context.Context, cfg *config.Config, report *types.RunReport, log *logger.Logger) ([]pipeline.Sink, func(), error) {
	var sinks []pipeline.Sink
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	var errs []error
	failed := func(name string, err error) {
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
		report.Sinks = append(report.Sinks, types.SinkOutcome{Sink: name, Error: err.Error()})
		log.WithError(err).WithField("sink", name).Error("Sink unavailable")
	}

	if cfg.Output.Enabled {
		fileSink, err := store.NewFileSink(cfg.Output.Dir, cfg.Output.Format)
		if err != nil {
			failed("file", err)
		} else {
			sinks = append(sinks, fileSink)
		}
	}

	if cfg.Database.Enabled {
		pg, err := store.Open(ctx, cfg.Database)
		if err != nil {
			failed("postgres", err)
		} else {
			closers = append(closers, pg.Close)
			sinks = append(sinks, pg)
		}
	}

	if cfg.Email.Enabled() {
		renderer := notify.NewHTMLEmailRenderer(cfg.EmailSubject())
		sinks = append(sinks, notify.NewEmailSender(cfg.Email, renderer, cfg.Sentiment.ScaleMax, log))
	} else if !cfg.Email.Disabled {
		log.Debug("SMTP settings incomplete, email notification disabled")
	}

	return sinks, closeAll, errors.Join(errs...)
}

func recordHistory(cfg *config.Config, report *types.RunReport, log *logger.Logger) {
	hm, err := history.NewManager(cfg.History.Dir, log)
	if err != nil {
		log.WithError(err).Warn("Run history unavailable")
		return
	}

	previous, hadPrevious := hm.Last(report.Subreddit)
	current, err := hm.Record(report)
	if err != nil {
		log.WithError(err).Warn("Failed to save run history")
	}

	if hadPrevious {
		if fresh := history.NewEntrants(previous, current); len(fresh) > 0 {
			log.WithField("since", previous.RunAt.Format(time.RFC3339)).
				Infof("New in the top tickers: %s", strings.Join(fresh, ", "))
		}
	}
}
