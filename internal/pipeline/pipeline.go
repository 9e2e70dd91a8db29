/*
Package pipeline runs one scrape: fetch, filter by recency, extract, score, aggregate, rank.
Stages run sequentially and nothing is kept between runs.
*/
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shanehull/wsbscraper/internal/aggregate"
	"github.com/shanehull/wsbscraper/internal/logger"
	"github.com/shanehull/wsbscraper/internal/tickers"
	"github.com/shanehull/wsbscraper/internal/types"
)

// Feed yields the candidate posts for a run.
type Feed interface {
	TopPosts(ctx context.Context, subreddit, timeFilter string, limit int) ([]types.Post, error)
}

// OccurrenceScorer rates a single ticker occurrence on the rescaled sentiment scale.
type OccurrenceScorer interface {
	Score(ctx context.Context, occ types.Occurrence) (float64, error)
}

// Sink receives the ranked results of a run.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, report *types.RunReport) (int, error)
}

type Options struct {
	Subreddit    string
	TimeFilter   string
	Limit        int
	Window       time.Duration
	ContextWidth int
	Granularity  types.KeyGranularity
}

type Runner struct {
	feed   Feed
	scorer OccurrenceScorer
	opts   Options
	log    *logger.Logger
	now    func() time.Time
}

func New(feed Feed, scorer OccurrenceScorer, opts Options, log *logger.Logger) *Runner {
	if opts.ContextWidth <= 0 {
		opts.ContextWidth = tickers.DefaultContextWidth
	}
	if opts.Granularity == "" {
		opts.Granularity = types.KeyTicker
	}
	return &Runner{
		feed:   feed,
		scorer: scorer,
		opts:   opts,
		log:    log,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for the recency cutoff and the run timestamp.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// InWindow keeps posts created at or after cutoff. A post strictly earlier than cutoff is dropped.
func InWindow(posts []types.Post, cutoff time.Time) []types.Post {
	kept := make([]types.Post, 0, len(posts))
	for _, p := range posts {
		if p.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// Run executes the pipeline once. Only a feed failure aborts the run; scoring failures are
// counted in the report and the occurrence is skipped.
func (r *Runner) Run(ctx context.Context) (*types.RunReport, error) {
	runAt := r.now()
	report := &types.RunReport{
		RunAt:       runAt,
		Subreddit:   r.opts.Subreddit,
		Window:      r.opts.Window,
		Granularity: r.opts.Granularity,
	}

	r.log.WithFields(map[string]interface{}{
		"subreddit":   r.opts.Subreddit,
		"time_filter": r.opts.TimeFilter,
		"limit":       r.opts.Limit,
		"window":      r.opts.Window.String(),
	}).Info("Fetching posts")

	posts, err := r.feed.TopPosts(ctx, r.opts.Subreddit, r.opts.TimeFilter, r.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts from r/%s: %w", r.opts.Subreddit, err)
	}
	report.PostsFetched = len(posts)

	if r.opts.Window > 0 {
		posts = InWindow(posts, runAt.Add(-r.opts.Window))
	}
	report.PostsInWindow = len(posts)

	agg := aggregate.New(r.opts.Granularity)
	for _, post := range posts {
		for _, occ := range tickers.Extract(post, r.opts.ContextWidth) {
			report.Occurrences++

			score, err := r.scorer.Score(ctx, occ)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				report.ScoreFailures++
				r.log.WithError(err).WithFields(map[string]interface{}{
					"post":   post.ID,
					"ticker": occ.Ticker,
				}).Warn("Skipping unscored mention")
				continue
			}

			agg.Add(occ, score)
			report.Scored++
		}
	}

	report.Results = aggregate.Rank(agg.Results())

	r.log.WithFields(map[string]interface{}{
		"posts_fetched":   report.PostsFetched,
		"posts_in_window": report.PostsInWindow,
		"occurrences":     report.Occurrences,
		"scored":          report.Scored,
		"score_failures":  report.ScoreFailures,
		"tickers":         len(report.Results),
	}).Info("Run complete")

	return report, nil
}

// Deliver hands the report to every sink. A failing sink does not stop the others; all
// failures are joined into the returned error and recorded on the report.
func Deliver(ctx context.Context, report *types.RunReport, sinks []Sink, log *logger.Logger) error {
	var errs []error
	for _, sink := range sinks {
		rows, err := sink.Deliver(ctx, report)
		outcome := types.SinkOutcome{Sink: sink.Name(), Rows: rows}
		if err != nil {
			outcome.Error = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			log.WithError(err).WithField("sink", sink.Name()).Error("Sink failed")
		} else {
			log.WithFields(map[string]interface{}{
				"sink": sink.Name(),
				"rows": rows,
			}).Info("Sink delivered")
		}
		report.Sinks = append(report.Sinks, outcome)
	}
	return errors.Join(errs...)
}
