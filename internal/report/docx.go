package report

import (
	"fmt"
	"path/filepath"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"github.com/forPelevin/reelcut/internal/types"
)

const (
	fontName = "Calibri"
	fontSize = 11
)

// WriteDocx renders rep as a readable document next to the JSON report.
func WriteDocx(dir string, rep types.Report) (string, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}

	styled(doc.AddParagraph(""), "reelcut report", true, 16)
	for _, l := range header(rep) {
		line(doc.AddParagraph(""), l[0], l[1])
	}

	styled(doc.AddParagraph(""), "Timeline", true, 13)
	for _, l := range timelineLines(rep.Timeline) {
		line(doc.AddParagraph(""), l[0], l[1])
	}

	styled(doc.AddParagraph(""), "Warnings", true, 13)
	if rep.Warnings.Total() == 0 {
		styled(doc.AddParagraph(""), "none", false, fontSize)
	} else {
		for _, l := range warningLines(rep.Warnings) {
			line(doc.AddParagraph(""), l[0], l[1])
		}
	}

	if len(rep.Images) > 0 {
		styled(doc.AddParagraph(""), "Images", true, 13)
		for _, im := range rep.Images {
			line(doc.AddParagraph(""),
				fmt.Sprintf("segment %d", im.SegmentID),
				fmt.Sprintf("%.2fs-%.2fs, score %.1f, %s", im.Start, im.End, im.Score, filepath.Base(im.Path)),
			)
		}
	}

	styled(doc.AddParagraph(""), "Phases", true, 13)
	for _, p := range rep.Phases {
		line(doc.AddParagraph(""), p.Name, fmt.Sprintf("%.2fs", p.Seconds))
	}

	path := filepath.Join(dir, DocxName)
	if err := doc.SaveTo(path); err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}
	return path, nil
}

func header(rep types.Report) [][2]string {
	v := rep.Video
	return [][2]string{
		{"Run", rep.RunID},
		{"Mode", rep.Mode},
		{"Input", rep.Input},
		{"Output", rep.Output},
		{"Video", fmt.Sprintf("%dx%d, %.2f fps, %.2fs, audio: %t", v.Width, v.Height, v.FPS, v.Duration, v.HasAudio)},
	}
}

func timelineLines(s types.TimelineStats) [][2]string {
	return [][2]string{
		{"Segments", fmt.Sprint(s.TotalSegments)},
		{"Captions", fmt.Sprint(s.TextSegments)},
		{"Generated images", fmt.Sprint(s.AIImages)},
		{"Custom images", fmt.Sprint(s.CustomImages)},
		{"Resolved overlaps", fmt.Sprint(s.Conflicts)},
	}
}

// warningLines lists only the non-zero counters.
func warningLines(w types.Warnings) [][2]string {
	var out [][2]string
	add := func(label string, n int) {
		if n > 0 {
			out = append(out, [2]string{label, fmt.Sprint(n)})
		}
	}
	add("Transcription failures", w.TranscriptionFailed)
	add("Analysis fallbacks", w.AnalysisFallbacks)
	add("Caption fallbacks", w.CaptionFallbacks)
	add("Images failed", w.ImagesFailed)
	add("Images skipped", w.ImagesSkipped)
	add("Face frames failed", w.FaceFrameFailures)
	if w.SafeZonesMissing {
		out = append(out, [2]string{"Safe zones", "missing, default caption anchor used"})
	}
	if w.CaptionsDisabled {
		out = append(out, [2]string{"Captions", "disabled, font unavailable"})
	}
	return out
}

func line(p *docx.Paragraph, label, value string) {
	p.AddText(label+": ").Font(fontName).Size(fontSize).Color("000000").Bold(true)
	p.AddText(value).Font(fontName).Size(fontSize).Color("000000")
}

func styled(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
