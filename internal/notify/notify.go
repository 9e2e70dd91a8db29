/*
Package notify reports ranked tickers on the console and by email.
*/
package notify

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shanehull/wsbscraper/internal/types"
)

// NotificationData is everything a renderer needs to describe one run.
type NotificationData struct {
	Subreddit   string
	RunAt       time.Time
	Granularity types.KeyGranularity
	ScaleMax    float64
	Results     []types.Result
	Total       int
}

type RenderedMessage struct {
	Subject string
	Text    string
	HTML    string
}

type Renderer interface {
	Render(data NotificationData) (*RenderedMessage, error)
}

// NewNotificationData builds the render input from a report, keeping at most topN results
// when topN is positive.
func NewNotificationData(report *types.RunReport, scaleMax float64, topN int) NotificationData {
	results := report.Results
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return NotificationData{
		Subreddit:   report.Subreddit,
		RunAt:       report.RunAt,
		Granularity: report.Granularity,
		ScaleMax:    scaleMax,
		Results:     results,
		Total:       len(report.Results),
	}
}

func formatPostDate(t *time.Time, granularity types.KeyGranularity) string {
	if t == nil {
		return ""
	}
	if granularity == types.KeyTickerDay {
		return t.UTC().Format(time.DateOnly)
	}
	return t.UTC().Format(time.RFC3339)
}

func formatScale(scaleMax float64) string {
	if scaleMax <= 0 {
		scaleMax = 10
	}
	return strconv.FormatFloat(scaleMax, 'f', -1, 64)
}

// FormatResult renders one ranking line, e.g. "GME: 2 mentions, Sentiment: 5.25/10".
func FormatResult(r types.Result, granularity types.KeyGranularity, scaleMax float64) string {
	line := fmt.Sprintf("%s: %d mentions, Sentiment: %.2f/%s", r.Ticker, r.Mentions, r.AvgSentiment, formatScale(scaleMax))
	if r.PostDate != nil {
		line += ", Post Date: " + formatPostDate(r.PostDate, granularity)
	}
	return line
}

// PrintResults writes the ranking and the run counters to w.
func PrintResults(w io.Writer, report *types.RunReport, scaleMax float64) {
	fmt.Fprintln(w, "\n===========================================")
	fmt.Fprintf(w, "r/%s: %d posts fetched, %d in window, %d mentions scored", report.Subreddit, report.PostsFetched, report.PostsInWindow, report.Scored)
	if report.ScoreFailures > 0 {
		fmt.Fprintf(w, " (%d failed)", report.ScoreFailures)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "===========================================")

	if len(report.Results) == 0 {
		fmt.Fprintln(w, "No tickers found.")
		return
	}

	fmt.Fprintln(w, "\nTicker data with sentiment scores:")
	for _, r := range report.Results {
		fmt.Fprintln(w, FormatResult(r, report.Granularity, scaleMax))
	}

	if len(report.Sinks) > 0 {
		fmt.Fprintln(w)
		var parts []string
		for _, s := range report.Sinks {
			if s.Error != "" {
				parts = append(parts, fmt.Sprintf("%s failed: %s", s.Sink, s.Error))
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %d rows", s.Sink, s.Rows))
		}
		fmt.Fprintln(w, strings.Join(parts, "; "))
	}
}
