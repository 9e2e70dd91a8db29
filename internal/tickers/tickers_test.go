package tickers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/wsbscraper/internal/types"
)

func TestCandidates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "no uppercase tokens", text: "nothing to see here, just lowercase words", want: nil},
		{name: "single ticker", text: "GME to the moon", want: []string{"GME"}},
		{name: "common words count", text: "I think the CEO is YOLO on TSLA", want: []string{"I", "CEO", "YOLO", "TSLA"}},
		{name: "duplicates collapse in first-seen order", text: "AMC AMC GME AMC", want: []string{"AMC", "GME"}},
		{name: "six letters is not a ticker", text: "ABCDEF and ABCDE", want: []string{"ABCDE"}},
		{name: "mixed case is not a ticker", text: "Gme gME", want: nil},
		{name: "digits glue to the token", text: "A1 B2C and Q3", want: nil},
		{name: "punctuation is a boundary", text: "($SPY), NVDA! -AMD-", want: []string{"SPY", "NVDA", "AMD"}},
		{name: "accented capital glues to the token", text: "ÜBER gains", want: nil},
		{name: "accented lead letter", text: "ÉTF inflows", want: nil},
		{name: "trailing accented letter", text: "GMEÉ and AMC", want: []string{"AMC"}},
		{name: "underscore glues to the token", text: "_GME GME_", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Candidates(tt.text))
		})
	}
}

func TestFindYieldsOneSpanPerMention(t *testing.T) {
	text := "GME up, AMC flat, GME again and GME once more"
	spans := Find(text)

	var gme []Span
	for _, s := range spans {
		if s.Ticker == "GME" {
			gme = append(gme, s)
		}
	}
	require.Len(t, gme, 3)
	assert.Equal(t, Span{Ticker: "GME", Start: 0, End: 3}, gme[0])
	for _, s := range gme {
		assert.Equal(t, "GME", text[s.Start:s.End])
	}
	assert.Len(t, spans, 4)
	assert.Equal(t, "AMC", spans[3].Ticker, "spans are grouped by first-seen candidate")
}

func TestFindEmpty(t *testing.T) {
	assert.Empty(t, Find(""))
	assert.Empty(t, Find("all lowercase, 123, and Mixed Case"))
}

func TestFindUsesCharacterOffsets(t *testing.T) {
	text := "café GME"
	spans := Find(text)
	require.Len(t, spans, 1)
	assert.Equal(t, 5, spans[0].Start)
	assert.Equal(t, 8, spans[0].End)
}

func TestFindSkipsTokensInsideNonASCIIWords(t *testing.T) {
	text := "ÜBER GME"
	spans := Find(text)
	require.Len(t, spans, 1)
	assert.Equal(t, Span{Ticker: "GME", Start: 5, End: 8}, spans[0])
}

func TestContextWindow(t *testing.T) {
	long := strings.Repeat("a", 60) + " GME " + strings.Repeat("b", 60)
	span := Find(long)[0]

	tests := []struct {
		name  string
		text  string
		span  Span
		width int
		want  string
	}{
		{
			name:  "clamped at both ends",
			text:  "GME to the moon",
			span:  Span{Ticker: "GME", Start: 0, End: 3},
			width: 50,
			want:  "GME to the moon",
		},
		{
			name:  "full window in long text",
			text:  long,
			span:  span,
			width: 50,
			want:  long[span.Start-50 : span.End+50],
		},
		{
			name:  "zero width is the token",
			text:  long,
			span:  span,
			width: 0,
			want:  "GME",
		},
		{
			name:  "multibyte characters count once",
			text:  "ééé GME ééé",
			span:  Span{Ticker: "GME", Start: 4, End: 7},
			width: 2,
			want:  "é GME é",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContextWindow(tt.text, tt.span, tt.width))
		})
	}
}

func TestContextWindowLaw(t *testing.T) {
	text := strings.Repeat("x ", 40) + "TSLA calls " + strings.Repeat("y ", 10) + "TSLA puts"
	for _, s := range Find(text) {
		start := max(0, s.Start-DefaultContextWidth)
		end := min(len(text), s.End+DefaultContextWidth)
		assert.Equal(t, text[start:end], ContextWindow(text, s, DefaultContextWidth))
	}
}

func TestExtract(t *testing.T) {
	created := time.Date(2024, 1, 29, 15, 4, 5, 0, time.UTC)

	t.Run("self post includes body", func(t *testing.T) {
		post := types.Post{Title: "GME to the moon", Body: "Holding GME forever", IsSelf: true, CreatedAt: created}
		occ := Extract(post, DefaultContextWidth)
		require.Len(t, occ, 2)
		for _, o := range occ {
			assert.Equal(t, "GME", o.Ticker)
			assert.Equal(t, created, o.PostTime)
			assert.Equal(t, "GME to the moon Holding GME forever", o.Context)
		}
	})

	t.Run("link post ignores body", func(t *testing.T) {
		post := types.Post{Title: "Look at this", Body: "AMC", IsSelf: false, CreatedAt: created}
		assert.Empty(t, Extract(post, DefaultContextWidth))
	})
}
