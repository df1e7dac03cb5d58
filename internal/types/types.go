package types

import "sort"

type Transcript struct {
	Text     string          `json:"text"`
	Language string          `json:"language"`
	Segments []SpeechSegment `json:"segments"`
}

type SpeechSegment struct {
	ID    int     `json:"id"`
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type Phrase struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	SegmentIDs []int   `json:"segment_ids"`
}

// Analysis is the scorer's verdict on one speech segment.
type Analysis struct {
	SegmentID          int     `json:"segment_id"`
	StartTime          float64 `json:"start_time"`
	EndTime            float64 `json:"end_time"`
	NeedsVisualization bool    `json:"needs_visualization"`
	ImportanceScore    float64 `json:"importance_score"`
	ImagePrompt        string  `json:"image_prompt,omitempty"`
	Reasoning          string  `json:"reasoning,omitempty"`
	OriginalText       string  `json:"original_text,omitempty"`
}

type Caption struct {
	Text             string   `json:"text"`
	Sentiment        string   `json:"sentiment"`
	FontSizeModifier float64  `json:"font_size_modifier"`
	EmphasisWords    []string `json:"emphasis_words,omitempty"`
}

// Rect is a detected face box in frame pixels.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// GrayFrame is one sampled luma frame.
type GrayFrame struct {
	Index  int
	Time   float64
	Width  int
	Height int
	Pix    []byte
}

type SafeZone struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Score  float64 `json:"score"`
}

// Center returns the zone centre in frame pixels.
func (z SafeZone) Center() (int, int) {
	return z.X + z.Width/2, z.Y + z.Height/2
}

type SafeZoneSample struct {
	Time  float64    `json:"time"`
	Zones []SafeZone `json:"zones"`
}

// SafeZoneMap holds ranked zones per sampled timestamp, ascending by time.
type SafeZoneMap struct {
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	FPS      float64          `json:"fps"`
	Interval int              `json:"interval"`
	Samples  []SafeZoneSample `json:"samples"`
}

// Nearest returns the zones sampled closest to t. Equidistant samples
// resolve to the earlier one.
func (m SafeZoneMap) Nearest(t float64) ([]SafeZone, bool) {
	n := len(m.Samples)
	if n == 0 {
		return nil, false
	}
	i := sort.Search(n, func(i int) bool { return m.Samples[i].Time >= t })
	switch {
	case i == 0:
		return m.Samples[0].Zones, true
	case i == n:
		return m.Samples[n-1].Zones, true
	}
	prev, next := m.Samples[i-1], m.Samples[i]
	if t-prev.Time <= next.Time-t {
		return prev.Zones, true
	}
	return next.Zones, true
}

type SegmentType string

const (
	SegmentText        SegmentType = "text"
	SegmentAIImage     SegmentType = "ai_image"
	SegmentCustomImage SegmentType = "custom_image"
)

// IsImage reports whether the segment replaces backbone footage.
func (t SegmentType) IsImage() bool {
	return t == SegmentAIImage || t == SegmentCustomImage
}

// SegmentData carries the payload of a timeline segment. Text segments use the
// caption fields, image segments use ImagePath and Analysis.
type SegmentData struct {
	Text             string    `json:"text,omitempty"`
	Sentiment        string    `json:"sentiment,omitempty"`
	FontSizeModifier float64   `json:"font_size_modifier,omitempty"`
	EmphasisWords    []string  `json:"emphasis_words,omitempty"`
	ImagePath        string    `json:"image_path,omitempty"`
	Analysis         *Analysis `json:"analysis,omitempty"`
}

type TimelineSegment struct {
	StartTime float64     `json:"start_time"`
	EndTime   float64     `json:"end_time"`
	Type      SegmentType `json:"type"`
	Priority  int         `json:"priority"`
	Data      SegmentData `json:"data"`
}

type EntryType string

const (
	EntryOriginalVideo EntryType = "original_video"
	EntryAIImage       EntryType = "ai_image"
	EntryCustomImage   EntryType = "custom_image"
	EntryTextOverlay   EntryType = "text_overlay"
)

// IsBackbone reports whether the entry is part of the video track.
func (t EntryType) IsBackbone() bool {
	return t != EntryTextOverlay
}

type PlanEntry struct {
	Type     EntryType   `json:"type"`
	Start    float64     `json:"start"`
	End      float64     `json:"end"`
	Duration float64     `json:"duration"`
	Data     SegmentData `json:"data"`
}

// Transition is the entrance effect of an image clip.
type Transition string

const (
	TransitionFade       Transition = "fade"
	TransitionZoom       Transition = "zoom"
	TransitionSlideLeft  Transition = "slide_left"
	TransitionSlideRight Transition = "slide_right"
	TransitionWipe       Transition = "wipe"
)

type VideoInfo struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
	Duration float64 `json:"duration"`
	HasAudio bool    `json:"has_audio"`
}

// Report summarizes one processing run.
type Report struct {
	RunID    string        `json:"run_id"`
	Mode     string        `json:"mode"`
	Input    string        `json:"input"`
	Output   string        `json:"output"`
	Video    VideoInfo     `json:"video"`
	Timeline TimelineStats `json:"timeline"`
	Warnings Warnings      `json:"warnings"`
	Phases   []PhaseTiming `json:"phases"`
	Images   []ReportImage `json:"images,omitempty"`
}

type TimelineStats struct {
	TotalSegments int `json:"total_segments"`
	TextSegments  int `json:"text_segments"`
	AIImages      int `json:"ai_images"`
	CustomImages  int `json:"custom_images"`
	Conflicts     int `json:"conflicts"`
}

type Warnings struct {
	TranscriptionFailed int  `json:"transcription_failed"`
	AnalysisFallbacks   int  `json:"analysis_fallbacks"`
	CaptionFallbacks    int  `json:"caption_fallbacks"`
	ImagesFailed        int  `json:"images_failed"`
	ImagesSkipped       int  `json:"images_skipped"`
	FaceFrameFailures   int  `json:"face_frame_failures"`
	SafeZonesMissing    bool `json:"safe_zones_missing,omitempty"`
	CaptionsDisabled    bool `json:"captions_disabled"`
}

// Total is the number of degraded operations in a run.
func (w Warnings) Total() int {
	n := w.TranscriptionFailed + w.AnalysisFallbacks + w.CaptionFallbacks + w.ImagesFailed + w.ImagesSkipped + w.FaceFrameFailures
	if w.SafeZonesMissing {
		n++
	}
	if w.CaptionsDisabled {
		n++
	}
	return n
}

type PhaseTiming struct {
	Name    string  `json:"name"`
	Seconds float64 `json:"seconds"`
}

type ReportImage struct {
	SegmentID int     `json:"segment_id"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Score     float64 `json:"score"`
	Path      string  `json:"path,omitempty"`
}
