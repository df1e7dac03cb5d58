package prompts

import (
	"fmt"
	"strings"
)

// MaxTextLength bounds on-screen caption length in characters.
const MaxTextLength = 60

const (
	AnalysisSystem = "You are an expert video editor analyzing content for visualization opportunities."
	CaptionSystem  = "You are an expert at creating concise on-screen text."
)

// Analysis asks whether a speech segment deserves an image overlay.
func Analysis(text, before, after string) string {
	return fmt.Sprintf(`Analyze the following speech segment and decide:
1. Should this segment have a visual image overlay?
2. How important is visualization for this segment? (0-10)
3. If visualization is needed, what should the image show?

Speech segment: %q
Context (previous): %q
Context (next): %q

Prefer concrete subjects (people, places, objects) where an image clearly helps the viewer.
Avoid images for abstract statements. Be conservative.

Respond with JSON only:
{"needs_visualization": true|false, "importance_score": 0-10, "reasoning": "brief explanation", "image_prompt": "detailed image prompt in English" or null}`,
		strings.TrimSpace(text), strings.TrimSpace(before), strings.TrimSpace(after))
}

// Caption asks for a short on-screen caption with sentiment styling hints.
func Caption(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = MaxTextLength
	}
	return fmt.Sprintf(`Write an on-screen caption for a short vertical video.

Speech segment: %q

Capture the key message or emotion, not a word-for-word subtitle.
- At most %d characters
- Punchy, sentence case or title case, 1-2 short lines

Classify the sentiment: sad, angry, worried, happy, excited, grateful, important or neutral.

Respond with JSON only:
{"text": "caption", "sentiment": "neutral", "font_size_modifier": 1.0-1.5, "emphasis_words": ["word"]}`,
		strings.TrimSpace(text), maxLen)
}

// AnalysisSchema is the JSON schema of an analysis answer.
func AnalysisSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"needs_visualization": map[string]any{"type": "boolean"},
			"importance_score":    map[string]any{"type": "number"},
			"reasoning":           map[string]any{"type": "string"},
			"image_prompt":        map[string]any{"type": []string{"string", "null"}},
		},
		"required": []string{"needs_visualization", "importance_score", "image_prompt"},
	}
}

// CaptionSchema is the JSON schema of a caption answer.
func CaptionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text":               map[string]any{"type": "string"},
			"sentiment":          map[string]any{"type": "string"},
			"font_size_modifier": map[string]any{"type": "number"},
			"emphasis_words":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"text", "sentiment", "font_size_modifier", "emphasis_words"},
	}
}
