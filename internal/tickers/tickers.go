/*
Package tickers finds probable ticker symbols in free text and cuts the context window around each mention.

Any word-bounded run of one to five uppercase ASCII letters is a candidate. Word boundaries are
Unicode-aware, so "ÜBER" and "ÉTF" yield nothing. Nothing is checked
against a real list of securities, so "I", "CEO" and "YOLO" are all candidates.
*/
package tickers

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/shanehull/wsbscraper/internal/types"
)

const DefaultContextWidth = 50

var tickerPattern = regexp.MustCompile(`\b[A-Z]{1,5}\b`)

// Span locates one mention. Start and End are character (rune) offsets, End exclusive.
type Span struct {
	Ticker string
	Start  int
	End    int
}

// matches returns the byte ranges of tickerPattern matches whose neighbors are not Unicode word
// characters. RE2's \b only knows ASCII, so "ÜBER" would otherwise yield "BER".
func matches(text string) [][]int {
	locs := tickerPattern.FindAllStringIndex(text, -1)
	kept := locs[:0]
	for _, loc := range locs {
		if wordBounded(text, loc) {
			kept = append(kept, loc)
		}
	}
	return kept
}

func wordBounded(text string, loc []int) bool {
	if before, _ := utf8.DecodeLastRuneInString(text[:loc[0]]); loc[0] > 0 && isWordRune(before) {
		return false
	}
	if after, _ := utf8.DecodeRuneInString(text[loc[1]:]); loc[1] < len(text) && isWordRune(after) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Candidates returns the distinct ticker tokens in text in first-seen order.
func Candidates(text string) []string {
	var candidates []string
	seen := make(map[string]struct{})
	for _, loc := range matches(text) {
		tok := text[loc[0]:loc[1]]
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		candidates = append(candidates, tok)
	}
	return candidates
}

// Find returns every mention of every candidate, grouped by candidate in first-seen order.
// A token that appears k times yields exactly k spans.
func Find(text string) []Span {
	locs := matches(text)
	if len(locs) == 0 {
		return nil
	}

	byTicker := make(map[string][]Span)
	var order []string

	// byte offsets from the regexp are converted to rune offsets in a single forward walk
	runePos, bytePos := 0, 0
	toRune := func(b int) int {
		runePos += utf8.RuneCountInString(text[bytePos:b])
		bytePos = b
		return runePos
	}

	for _, loc := range locs {
		tok := text[loc[0]:loc[1]]
		start := toRune(loc[0])
		end := toRune(loc[1])
		if _, ok := byTicker[tok]; !ok {
			order = append(order, tok)
		}
		byTicker[tok] = append(byTicker[tok], Span{Ticker: tok, Start: start, End: end})
	}

	spans := make([]Span, 0, len(locs))
	for _, tok := range order {
		spans = append(spans, byTicker[tok]...)
	}
	return spans
}

// ContextWindow returns text[max(0, start-width) : min(len, end+width)] counted in characters.
func ContextWindow(text string, span Span, width int) string {
	runes := []rune(text)

	start := span.Start - width
	if start < 0 {
		start = 0
	}
	end := span.End + width
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

// Extract scans a post's content and returns one Occurrence per mention.
func Extract(post types.Post, width int) []types.Occurrence {
	content := post.Content()
	spans := Find(content)
	if len(spans) == 0 {
		return nil
	}

	occurrences := make([]types.Occurrence, 0, len(spans))
	for _, s := range spans {
		occurrences = append(occurrences, types.Occurrence{
			Ticker:   s.Ticker,
			Start:    s.Start,
			End:      s.End,
			Context:  ContextWindow(content, s, width),
			PostTime: post.CreatedAt,
		})
	}
	return occurrences
}
