/*
Package sentiment scores the text around a ticker mention.

A Scorer returns a compound polarity in [-1, 1]. ContextScorer calls it once per occurrence and
rescales the compound to [0, scaleMax].
*/
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shanehull/wsbscraper/internal/config"
	"github.com/shanehull/wsbscraper/internal/types"
)

const DefaultScaleMax = 10.0

var ErrOutOfRange = errors.New("compound polarity outside [-1, 1]")

type Scorer interface {
	Compound(ctx context.Context, text string) (float64, error)
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(ctx context.Context, text string) (float64, error)

func (f ScorerFunc) Compound(ctx context.Context, text string) (float64, error) {
	return f(ctx, text)
}

// Rescale maps a compound c in [-1, 1] onto [0, scaleMax]. With scaleMax 10 this is (c+1)*5.
func Rescale(compound, scaleMax float64) float64 {
	return (compound + 1) * (scaleMax / 2)
}

type ContextScorer struct {
	scorer   Scorer
	scaleMax float64
}

func NewContextScorer(scorer Scorer, scaleMax float64) *ContextScorer {
	if scaleMax <= 0 {
		scaleMax = DefaultScaleMax
	}
	return &ContextScorer{scorer: scorer, scaleMax: scaleMax}
}

// Score rates one occurrence's context window. Scorer errors are returned, never replaced by a default.
func (c *ContextScorer) Score(ctx context.Context, occ types.Occurrence) (float64, error) {
	compound, err := c.scorer.Compound(ctx, occ.Context)
	if err != nil {
		return 0, fmt.Errorf("failed to score %s: %w", occ.Ticker, err)
	}
	if math.IsNaN(compound) || compound < -1 || compound > 1 {
		return 0, fmt.Errorf("failed to score %s: %w: %v", occ.Ticker, ErrOutOfRange, compound)
	}
	return Rescale(compound, c.scaleMax), nil
}

// New builds the scorer selected by cfg.Backend.
func New(ctx context.Context, cfg config.SentimentConfig) (Scorer, error) {
	switch cfg.Backend {
	case "", "vader":
		return NewVaderScorer(), nil
	case "gemini":
		return NewGeminiScorer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown sentiment backend %q", cfg.Backend)
	}
}
