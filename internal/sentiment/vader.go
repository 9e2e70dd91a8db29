package sentiment

import (
	"context"

	"github.com/jonreiter/govader"
)

// VaderScorer rates text with the VADER lexicon and rules.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderScorer) Compound(_ context.Context, text string) (float64, error) {
	return v.analyzer.PolarityScores(text).Compound, nil
}
