package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/reelcut/internal/types"
)

var ErrEmptyContent = errors.New("empty model content")

var sentiments = map[string]struct{}{
	"sad": {}, "angry": {}, "worried": {},
	"happy": {}, "excited": {}, "grateful": {}, "important": {},
	"neutral": {},
}

// DecodeAnalysis parses a model answer to the Analysis prompt. Only the
// verdict fields are filled; the caller owns segment identity and timing.
func DecodeAnalysis(content string) (types.Analysis, error) {
	clean, err := ExtractJSONObject(content)
	if err != nil {
		return types.Analysis{}, err
	}
	var raw struct {
		NeedsVisualization bool    `json:"needs_visualization"`
		ImportanceScore    float64 `json:"importance_score"`
		Reasoning          string  `json:"reasoning"`
		ImagePrompt        *string `json:"image_prompt"`
	}
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return types.Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	a := types.Analysis{
		NeedsVisualization: raw.NeedsVisualization,
		ImportanceScore:    clamp(raw.ImportanceScore, 0, 10),
		Reasoning:          strings.TrimSpace(raw.Reasoning),
	}
	if raw.ImagePrompt != nil {
		a.ImagePrompt = strings.TrimSpace(*raw.ImagePrompt)
	}
	return a, nil
}

// DecodeCaption parses a model answer to the Caption prompt. Unknown
// sentiments become neutral and the size modifier is kept within [1, 1.5].
func DecodeCaption(content string, maxLen int) (types.Caption, error) {
	clean, err := ExtractJSONObject(content)
	if err != nil {
		return types.Caption{}, err
	}
	var raw struct {
		Text             string   `json:"text"`
		EnglishText      string   `json:"english_text"`
		Sentiment        string   `json:"sentiment"`
		FontSizeModifier float64  `json:"font_size_modifier"`
		EmphasisWords    []string `json:"emphasis_words"`
	}
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return types.Caption{}, fmt.Errorf("decode caption: %w", err)
	}
	text := strings.TrimSpace(raw.Text)
	if text == "" {
		text = strings.TrimSpace(raw.EnglishText)
	}
	if text == "" {
		return types.Caption{}, errors.New("decode caption: empty text")
	}
	c := types.Caption{
		Text:             Truncate(text, maxLen),
		Sentiment:        normalizeSentiment(raw.Sentiment),
		FontSizeModifier: 1,
	}
	if raw.FontSizeModifier > 0 {
		c.FontSizeModifier = clamp(raw.FontSizeModifier, 1, 1.5)
	}
	for _, w := range raw.EmphasisWords {
		if w = strings.TrimSpace(w); w != "" {
			c.EmphasisWords = append(c.EmphasisWords, w)
		}
	}
	return c, nil
}

// FallbackCaption is the caption used when summarization fails: the segment
// text cut to maxLen, neutral styling.
func FallbackCaption(text string, maxLen int) types.Caption {
	return types.Caption{
		Text:             Truncate(strings.TrimSpace(text), maxLen),
		Sentiment:        "neutral",
		FontSizeModifier: 1,
	}
}

// ExtractJSONObject strips markdown fences and chatter around the first JSON
// object in s.
func ExtractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", ErrEmptyContent
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", fmt.Errorf("could not locate JSON object in: %q", Truncate(t, 200))
}

// Truncate cuts s to at most n runes. n <= 0 means MaxTextLength.
func Truncate(s string, n int) string {
	if n <= 0 {
		n = MaxTextLength
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

func normalizeSentiment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := sentiments[s]; ok {
		return s
	}
	return "neutral"
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
