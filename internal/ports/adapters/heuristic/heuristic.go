// Package heuristic scores and captions speech offline with lexical signals.
// It backs runs without model credentials and tests.
package heuristic

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/forPelevin/reelcut/internal/domain/prompts"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

var (
	_ ports.ContentScorer     = (*Adapter)(nil)
	_ ports.CaptionSummarizer = (*Adapter)(nil)
)

// DefaultThreshold is the importance from which a segment asks for an image.
const DefaultThreshold = 4.0

var (
	reNum     = regexp.MustCompile(`\b\d+(?:[\.,]\d+)?\b`)
	reHook    = regexp.MustCompile(`(?i)\b(important|key|secret|mistake|never|always|here\s+is\s+why|remember)\b`)
	reHow     = regexp.MustCompile(`(?i)\b(how\s+to|step\s+\d+|first|second|third|do\s+this)\b`)
	reStepNum = regexp.MustCompile(`(?i)\bstep\s+\d+\b`)
	reVisual  = regexp.MustCompile(`(?i)\b(city|mountain|ocean|sea|beach|forest|car|house|street|river|sky|island|bridge|castle|desert|planet|dog|cat|horse|bird|food|kitchen|office|stadium|museum|train|plane|ship)s?\b`)
)

var lexicon = map[string][]string{
	"sad":       {"sad", "lost", "miss", "died", "cry", "sorry", "alone"},
	"angry":     {"angry", "hate", "furious", "unfair", "ridiculous"},
	"worried":   {"worried", "afraid", "scared", "risk", "danger", "problem"},
	"happy":     {"happy", "love", "glad", "enjoy", "fun", "smile"},
	"excited":   {"amazing", "incredible", "awesome", "wow", "excited", "huge"},
	"grateful":  {"thank", "thanks", "grateful", "appreciate"},
	"important": {"important", "remember", "key", "never", "always", "must"},
}

var sentimentOrder = []string{"important", "excited", "grateful", "happy", "angry", "worried", "sad"}

type Adapter struct {
	threshold float64
}

func New(threshold float64) *Adapter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Adapter{threshold: threshold}
}

func (a *Adapter) Score(ctx context.Context, text, before, after string) (types.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return types.Analysis{}, err
	}
	info, hook := signals(text)
	visual := float64(len(reVisual.FindAllStringIndex(text, -1)))*1.5 + float64(properNouns(text))*0.8
	score := clamp(info+hook+visual, 0, 10)

	res := types.Analysis{
		ImportanceScore:    score,
		NeedsVisualization: visual > 0 && score >= a.threshold,
		Reasoning:          "lexical signals",
	}
	if res.NeedsVisualization {
		res.ImagePrompt = "Photorealistic scene showing " + strings.TrimSpace(text)
	}
	return res, nil
}

func (a *Adapter) Summarize(ctx context.Context, text string, maxLen int) (types.Caption, error) {
	if err := ctx.Err(); err != nil {
		return types.Caption{}, err
	}
	c := prompts.FallbackCaption(text, maxLen)
	c.Sentiment = sentiment(text)
	if c.Sentiment != "neutral" {
		c.FontSizeModifier = 1.2
	}
	c.EmphasisWords = emphasis(c.Text)
	return c, nil
}

// signals returns (info, hook) in range [0..10].
func signals(text string) (float64, float64) {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0, 0
	}
	lower := strings.ToLower(t)

	info := float64(len(reNum.FindAllStringIndex(t, -1))) * 0.4
	if reHow.MatchString(lower) {
		info += 1.2
	}
	info -= 0.0006 * float64(len([]rune(t)))

	hook := float64(len(reHook.FindAllStringIndex(lower, -1))) * 0.9
	hook += float64(len(reStepNum.FindAllStringIndex(lower, -1))) * 0.4
	hook += float64(strings.Count(t, "?")) * 0.7
	hook += float64(strings.Count(t, "!")) * 0.3

	return clamp(info, 0, 10), clamp(hook, 0, 10)
}

// properNouns counts capitalised words that do not open a sentence.
func properNouns(text string) int {
	n := 0
	sentenceStart := true
	for _, w := range strings.Fields(text) {
		r := []rune(strings.Trim(w, `"'([`))
		if len(r) > 1 && unicode.IsUpper(r[0]) && !sentenceStart {
			n++
		}
		sentenceStart = strings.ContainsAny(w[len(w)-1:], ".!?")
	}
	return n
}

func sentiment(text string) string {
	words := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		words[strings.Trim(w, `.,!?;:"'()`)] = struct{}{}
	}
	for _, s := range sentimentOrder {
		for _, cue := range lexicon[s] {
			if _, ok := words[cue]; ok {
				return s
			}
		}
	}
	return "neutral"
}

func emphasis(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		clean := strings.Trim(w, `.,!?;:"'()`)
		if clean == "" {
			continue
		}
		if reNum.MatchString(clean) || reHook.MatchString(clean) {
			out = append(out, clean)
		}
	}
	return out
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
