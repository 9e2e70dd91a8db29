package sentiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/wsbscraper/internal/config"
	"github.com/shanehull/wsbscraper/internal/types"
)

func TestRescale(t *testing.T) {
	tests := []struct {
		compound float64
		want     float64
	}{
		{-1, 0},
		{0, 5},
		{1, 10},
		{0.6, 8.0},
		{-0.5, 2.5},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, Rescale(tt.compound, DefaultScaleMax), 1e-9, "compound %v", tt.compound)
	}

	assert.InDelta(t, 50.0, Rescale(0, 100), 1e-9)
}

func TestContextScorerScoresTheWindow(t *testing.T) {
	var seen []string
	scorer := ScorerFunc(func(_ context.Context, text string) (float64, error) {
		seen = append(seen, text)
		return 0.6, nil
	})

	cs := NewContextScorer(scorer, DefaultScaleMax)
	score, err := cs.Score(context.Background(), types.Occurrence{Ticker: "GME", Context: "GME to the moon"})

	require.NoError(t, err)
	assert.InDelta(t, 8.0, score, 1e-9)
	assert.Equal(t, []string{"GME to the moon"}, seen)
}

func TestContextScorerPropagatesErrors(t *testing.T) {
	boom := errors.New("model unavailable")
	cs := NewContextScorer(ScorerFunc(func(context.Context, string) (float64, error) {
		return 0, boom
	}), DefaultScaleMax)

	_, err := cs.Score(context.Background(), types.Occurrence{Ticker: "AMC"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "AMC")
}

func TestContextScorerRejectsOutOfRange(t *testing.T) {
	for _, c := range []float64{-1.01, 1.5, math.NaN()} {
		cs := NewContextScorer(ScorerFunc(func(context.Context, string) (float64, error) {
			return c, nil
		}), DefaultScaleMax)

		_, err := cs.Score(context.Background(), types.Occurrence{Ticker: "X"})
		assert.ErrorIs(t, err, ErrOutOfRange, "compound %v", c)
	}
}

func TestNewContextScorerDefaultsScale(t *testing.T) {
	cs := NewContextScorer(ScorerFunc(func(context.Context, string) (float64, error) { return 1, nil }), 0)
	score, err := cs.Score(context.Background(), types.Occurrence{})
	require.NoError(t, err)
	assert.Equal(t, 10.0, score)
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New(context.Background(), config.SentimentConfig{Backend: "vader"})
	require.NoError(t, err)
	assert.IsType(t, &VaderScorer{}, s)

	_, err = New(context.Background(), config.SentimentConfig{Backend: "gemini"})
	assert.Error(t, err, "gemini without an API key")

	_, err = New(context.Background(), config.SentimentConfig{Backend: "lexicon"})
	assert.Error(t, err)
}
