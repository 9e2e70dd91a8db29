/*
Package store persists ranked results: a tabular file per run and rows in PostgreSQL.
*/
package store

import (
	"context"
	"time"

	"github.com/shanehull/wsbscraper/internal/types"
)

// Row is one persisted result. PostDate is nil when results are keyed by ticker only.
type Row struct {
	RunDate      time.Time
	Ticker       string
	MentionCount int
	Sentiment    float64
	PostDate     *time.Time
}

type Sink interface {
	Name() string
	Save(ctx context.Context, rows []Row) error
}

func RowsFromReport(report *types.RunReport) []Row {
	runDate := report.RunAt.UTC()
	rows := make([]Row, 0, len(report.Results))
	for _, r := range report.Results {
		rows = append(rows, Row{
			RunDate:      runDate,
			Ticker:       r.Ticker,
			MentionCount: r.Mentions,
			Sentiment:    r.AvgSentiment,
			PostDate:     r.PostDate,
		})
	}
	return rows
}

// deliver saves a report through sink. Empty reports write nothing.
func deliver(ctx context.Context, sink Sink, report *types.RunReport) (int, error) {
	rows := RowsFromReport(report)
	if len(rows) == 0 {
		return 0, nil
	}
	if err := sink.Save(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
