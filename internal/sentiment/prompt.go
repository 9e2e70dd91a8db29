package sentiment

import (
	"fmt"

	"google.golang.org/genai"
)

const systemInstruction = `
# [INSTRUCTION]

You are a sentiment rater for retail-investor forum posts.

You will be given a short excerpt (roughly one hundred characters) cut from a post around a stock ticker mention. Rate the polarity of the excerpt toward that ticker.

# [SCALE]

- Return a single "compound" number in the closed range [-1, 1].
- -1 is maximally negative (fraud, bankruptcy, heavy losses, "scam"), 0 is neutral or unrelated, 1 is maximally positive (strong gains, "to the moon", "tendies").
- Forum slang counts: "moon", "rocket", "diamond hands" and "tendies" are positive; "bagholder", "rekt", "guh" and "rug pull" are negative.
- Sarcasm should be read the way a regular of the forum would read it.
- The excerpt may be cut mid-word at either end. Ignore the fragments.

# [OUTPUT]

Respond only with JSON matching the response schema. No commentary.
`

func buildPrompt(text string) string {
	return fmt.Sprintf("Rate the following excerpt:\n\n---\n%s\n---", text)
}

func getResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"compound": {
				Type:        genai.TypeNumber,
				Description: "Polarity of the excerpt in [-1, 1].",
			},
		},
		Required: []string{"compound"},
	}
}
