package subtitles

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	DefaultFontName = "DejaVu Sans"
	DefaultFontSize = 42

	strokeWidth = 3
	shadowDepth = 2
	boxPadding  = 20
)

// Caption is a styled caption placed at a fixed anchor for its whole span.
type Caption struct {
	Start            float64
	End              float64
	Text             string
	Sentiment        string
	FontSizeModifier float64
	EmphasisWords    []string
	X                int
	Y                int
}

type Style struct {
	FontName      string
	FontSize      int
	WordDelay     float64
	WordsPerChunk int
}

func DefaultStyle() Style {
	return Style{
		FontName:      DefaultFontName,
		FontSize:      DefaultFontSize,
		WordDelay:     DefaultWordDelay,
		WordsPerChunk: DefaultWordsPerChunk,
	}
}

// Tint is the caption background family derived from sentiment.
type Tint int

const (
	TintNone Tint = iota
	TintNegative
	TintPositive
)

func SentimentTint(sentiment string) Tint {
	switch strings.ToLower(strings.TrimSpace(sentiment)) {
	case "sad", "angry", "worried":
		return TintNegative
	case "happy", "excited", "grateful", "important":
		return TintPositive
	default:
		return TintNone
	}
}

// RenderASS builds an ASS document for a width x height frame with
// word-by-word captions. A tinted caption gets a box drawn on the layer
// below the outlined text.
func RenderASS(caps []Caption, width, height int, st Style) string {
	if st.FontName == "" {
		st.FontName = DefaultFontName
	}
	if st.FontSize <= 0 {
		st.FontSize = DefaultFontSize
	}

	var b strings.Builder
	b.WriteString(assHeader(width, height, st))
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range caps {
		fs := fontSize(st.FontSize, c.FontSizeModifier)
		tags := fmt.Sprintf("{\\an5\\pos(%d,%d)\\fs%d}", c.X, c.Y, fs)
		boxStyle := ""
		switch SentimentTint(c.Sentiment) {
		case TintNegative:
			boxStyle = "BoxNegative"
		case TintPositive:
			boxStyle = "BoxPositive"
		}
		for _, cue := range Reveal(c.Text, c.Start, c.End, st.WordDelay, st.WordsPerChunk) {
			plain := joinLines(cue.Lines, nil)
			if boxStyle != "" {
				writeDialogue(&b, 0, cue, boxStyle, tags+plain)
			}
			writeDialogue(&b, 1, cue, "Caption", tags+joinLines(cue.Lines, c.EmphasisWords))
		}
	}
	return b.String()
}

func writeDialogue(b *strings.Builder, layer int, cue Cue, style, text string) {
	fmt.Fprintf(b, "Dialogue: %d,%s,%s,%s,,0,0,0,,%s\n",
		layer, assTime(dur(cue.Start)), assTime(dur(cue.End)), style, text)
}

// joinLines turns staggered lines into ASS text: hard spaces keep the
// indentation and emphasised words are drawn in gold.
func joinLines(lines []string, emphasis []string) string {
	emph := make(map[string]struct{}, len(emphasis))
	for _, w := range emphasis {
		if k := normalizeWord(w); k != "" {
			emph[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		trimmed := strings.TrimLeft(ln, " ")
		indent := strings.Repeat("\\h", len(ln)-len(trimmed))
		words := strings.Fields(trimmed)
		for i, w := range words {
			w = sanitizeASS(w)
			if _, ok := emph[normalizeWord(w)]; ok {
				w = "{\\c&H00D7FF&}" + w + "{\\c}"
			}
			words[i] = w
		}
		out = append(out, indent+strings.Join(words, " "))
	}
	return strings.Join(out, "\\N")
}

func fontSize(base int, modifier float64) int {
	if modifier <= 0 {
		modifier = 1
	}
	return int(float64(base) * modifier)
}

func assHeader(width, height int, st Style) string {
	// Colours are &HAABBGGRR; box alpha 0x33 leaves the tint at 80% opacity.
	return strings.TrimSpace(fmt.Sprintf(`
[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
WrapStyle: 2
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption, %s, %d, &H00FFFFFF, &H00FFFFFF, &H00000000, &H80000000, 1,0,0,0,100,100,0,0,1,%d,%d,5, 0,0,0,1
Style: BoxNegative, %s, %d, &HFF000000, &HFF000000, &H332626DC, &HFF000000, 1,0,0,0,100,100,0,0,3,%d,0,5, 0,0,0,1
Style: BoxPositive, %s, %d, &HFF000000, &HFF000000, &H334AA316, &HFF000000, 1,0,0,0,100,100,0,0,3,%d,0,5, 0,0,0,1
`, width, height,
		st.FontName, st.FontSize, strokeWidth, shadowDepth,
		st.FontName, st.FontSize, boxPadding,
		st.FontName, st.FontSize, boxPadding,
	))
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "/")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

func normalizeWord(s string) string {
	return strings.ToLower(strings.Trim(s, `"'.,!?;:()[]`))
}

func dur(sec float64) time.Duration { return time.Duration(math.Round(sec * float64(time.Second))) }
