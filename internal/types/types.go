package types

import (
	"fmt"
	"time"
)

type Post struct {
	ID          string
	CreatedAt   time.Time
	Title       string
	Body        string
	IsSelf      bool
	Permalink   string
	Score       int
	NumComments int
}

// Content is the text scanned for tickers: the title, plus the body for self posts.
func (p Post) Content() string {
	if p.IsSelf {
		return p.Title + " " + p.Body
	}
	return p.Title
}

type Occurrence struct {
	Ticker   string
	Start    int
	End      int
	Context  string
	PostTime time.Time
}

type Aggregate struct {
	Ticker     string
	PostTime   *time.Time
	Mentions   int
	TotalScore float64
}

func (a Aggregate) AvgSentiment() (float64, bool) {
	if a.Mentions == 0 {
		return 0, false
	}
	return a.TotalScore / float64(a.Mentions), true
}

type Result struct {
	Ticker       string
	Mentions     int
	AvgSentiment float64
	PostDate     *time.Time
}

type KeyGranularity string

const (
	KeyTicker          KeyGranularity = "ticker"
	KeyTickerTimestamp KeyGranularity = "ticker_timestamp"
	KeyTickerDay       KeyGranularity = "ticker_day"
)

func ParseKeyGranularity(s string) (KeyGranularity, error) {
	switch KeyGranularity(s) {
	case KeyTicker, KeyTickerTimestamp, KeyTickerDay:
		return KeyGranularity(s), nil
	}
	return "", fmt.Errorf("unknown aggregation key %q (valid: ticker, ticker_timestamp, ticker_day)", s)
}

// PerPost reports whether results carry a post date.
func (k KeyGranularity) PerPost() bool {
	return k == KeyTickerTimestamp || k == KeyTickerDay
}

type SinkOutcome struct {
	Sink  string
	Rows  int
	Error string
}

type RunReport struct {
	RunAt         time.Time
	Subreddit     string
	Window        time.Duration
	Granularity   KeyGranularity
	PostsFetched  int
	PostsInWindow int
	Occurrences   int
	Scored        int
	ScoreFailures int
	Results       []Result
	Sinks         []SinkOutcome
}
