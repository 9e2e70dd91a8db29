/*
Package aggregate accumulates scored ticker mentions per key and ranks the results.
*/
package aggregate

import (
	"cmp"
	"slices"
	"time"

	"github.com/shanehull/wsbscraper/internal/types"
)

type key struct {
	ticker string
	unix   int64
	timed  bool
}

// Aggregator groups occurrences under a key chosen by its granularity.
// The zero value is not usable; call New.
type Aggregator struct {
	granularity types.KeyGranularity
	entries     map[key]*types.Aggregate
	order       []key
}

func New(granularity types.KeyGranularity) *Aggregator {
	return &Aggregator{
		granularity: granularity,
		entries:     make(map[key]*types.Aggregate),
	}
}

func (a *Aggregator) keyFor(occ types.Occurrence) (key, *time.Time) {
	switch a.granularity {
	case types.KeyTickerTimestamp:
		t := occ.PostTime.UTC()
		return key{ticker: occ.Ticker, unix: t.UnixNano(), timed: true}, &t
	case types.KeyTickerDay:
		u := occ.PostTime.UTC()
		day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		return key{ticker: occ.Ticker, unix: day.UnixNano(), timed: true}, &day
	default:
		return key{ticker: occ.Ticker}, nil
	}
}

// Add counts one mention and adds its rescaled score to the mention's key.
func (a *Aggregator) Add(occ types.Occurrence, score float64) {
	k, postTime := a.keyFor(occ)
	agg, ok := a.entries[k]
	if !ok {
		agg = &types.Aggregate{Ticker: occ.Ticker, PostTime: postTime}
		a.entries[k] = agg
		a.order = append(a.order, k)
	}
	agg.Mentions++
	agg.TotalScore += score
}

func (a *Aggregator) Len() int {
	return len(a.entries)
}

// Aggregates returns a copy of the raw counters in insertion order.
func (a *Aggregator) Aggregates() []types.Aggregate {
	out := make([]types.Aggregate, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, *a.entries[k])
	}
	return out
}

// Results derives the average sentiment for every key.
func (a *Aggregator) Results() []types.Result {
	results := make([]types.Result, 0, len(a.order))
	for _, k := range a.order {
		agg := a.entries[k]
		avg, ok := agg.AvgSentiment()
		if !ok {
			continue
		}
		results = append(results, types.Result{
			Ticker:       agg.Ticker,
			Mentions:     agg.Mentions,
			AvgSentiment: avg,
			PostDate:     agg.PostTime,
		})
	}
	return results
}

// Rank sorts by mentions then average sentiment, both descending. Ticker and post date
// break any remaining tie so the order is total.
func Rank(results []types.Result) []types.Result {
	ranked := slices.Clone(results)
	slices.SortFunc(ranked, compareResults)
	return ranked
}

func compareResults(a, b types.Result) int {
	if c := cmp.Compare(b.Mentions, a.Mentions); c != 0 {
		return c
	}
	if c := cmp.Compare(b.AvgSentiment, a.AvgSentiment); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Ticker, b.Ticker); c != 0 {
		return c
	}
	switch {
	case a.PostDate == nil && b.PostDate == nil:
		return 0
	case a.PostDate == nil:
		return -1
	case b.PostDate == nil:
		return 1
	}
	return a.PostDate.Compare(*b.PostDate)
}
