package subtitles

import "strings"

const (
	DefaultWordDelay     = 0.35
	DefaultWordsPerChunk = 2

	indentPerLine = 4
)

// Cue is one visible state of a caption: the words revealed so far, laid out
// as staggered lines.
type Cue struct {
	Start float64
	End   float64
	Lines []string
}

// Reveal splits a caption spanning [start, end) into cumulative states. Every
// delay seconds another wordsPerChunk words appear; words already shown stay
// until end. The first chunk is visible from start.
func Reveal(text string, start, end, delay float64, wordsPerChunk int) []Cue {
	words := strings.Fields(text)
	if len(words) == 0 || end <= start {
		return nil
	}
	if delay <= 0 {
		delay = DefaultWordDelay
	}
	if wordsPerChunk <= 0 {
		wordsPerChunk = DefaultWordsPerChunk
	}

	var cues []Cue
	for k := 0; k*wordsPerChunk < len(words); k++ {
		cueStart := start + float64(k)*delay
		if cueStart >= end {
			break
		}
		shown := min(len(words), (k+1)*wordsPerChunk)
		cueEnd := start + float64(k+1)*delay
		if shown == len(words) || cueEnd > end {
			cueEnd = end
		}
		cues = append(cues, Cue{Start: cueStart, End: cueEnd, Lines: stagger(words[:shown], wordsPerChunk)})
	}
	if n := len(cues); n > 0 {
		cues[n-1].End = end
	}
	return cues
}

// stagger groups words into lines of wordsPerChunk, indenting each line a
// little further than the one above.
func stagger(words []string, wordsPerChunk int) []string {
	lines := make([]string, 0, (len(words)+wordsPerChunk-1)/wordsPerChunk)
	for i := 0; i < len(words); i += wordsPerChunk {
		j := min(i+wordsPerChunk, len(words))
		indent := strings.Repeat(" ", indentPerLine*(i/wordsPerChunk))
		lines = append(lines, indent+strings.Join(words[i:j], " "))
	}
	return lines
}
