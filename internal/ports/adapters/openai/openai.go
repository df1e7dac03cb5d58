package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/forPelevin/reelcut/internal/domain/prompts"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

var (
	_ ports.ContentScorer     = (*Adapter)(nil)
	_ ports.CaptionSummarizer = (*Adapter)(nil)
	_ ports.Transcriber       = (*Adapter)(nil)
	_ ports.ImageGenerator    = (*Adapter)(nil)
)

const (
	chatTimeout  = 90 * time.Second
	audioTimeout = 10 * time.Minute
	imageTimeout = 2 * time.Minute

	DefaultChatModel = "gpt-4o-mini"
)

type Adapter struct {
	client    openai.Client
	chatModel string
	portrait  bool
}

type Options struct {
	APIKey    string
	BaseURL   string
	ChatModel string
	// Portrait requests tall images for vertical video.
	Portrait bool
}

func New(o Options) *Adapter {
	opts := []option.RequestOption{option.WithAPIKey(o.APIKey)}
	if strings.TrimSpace(o.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	model := strings.TrimSpace(o.ChatModel)
	if model == "" {
		model = DefaultChatModel
	}
	return &Adapter{client: openai.NewClient(opts...), chatModel: model, portrait: o.Portrait}
}

func (a *Adapter) Score(ctx context.Context, text, before, after string) (types.Analysis, error) {
	content, err := a.chat(ctx, prompts.AnalysisSystem, prompts.Analysis(text, before, after), 0.3)
	if err != nil {
		return types.Analysis{}, err
	}
	return prompts.DecodeAnalysis(content)
}

func (a *Adapter) Summarize(ctx context.Context, text string, maxLen int) (types.Caption, error) {
	content, err := a.chat(ctx, prompts.CaptionSystem, prompts.Caption(text, maxLen), 0.5)
	if err != nil {
		return types.Caption{}, err
	}
	return prompts.DecodeCaption(content, maxLen)
}

func (a *Adapter) chat(ctx context.Context, system, user string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       a.chatModel,
		Temperature: openai.Float(temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe uploads audioPath to whisper-1 and keeps segment timings.
func (a *Adapter) Transcribe(ctx context.Context, audioPath, workDir string) (types.Transcript, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("openai transcribe: %w", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, audioTimeout)
	defer cancel()

	resp, err := a.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:                   f,
		Model:                  openai.AudioModelWhisper1,
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	})
	if err != nil {
		return types.Transcript{}, fmt.Errorf("openai transcribe: %w", err)
	}
	raw := resp.RawJSON()
	if workDir != "" {
		_ = os.WriteFile(filepath.Join(workDir, "whisper-api.json"), []byte(raw), 0o644)
	}
	return parseVerbose([]byte(raw))
}

type verbose struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func parseVerbose(b []byte) (types.Transcript, error) {
	var v verbose
	if err := json.Unmarshal(b, &v); err != nil {
		return types.Transcript{}, fmt.Errorf("parse transcription: %w", err)
	}
	tr := types.Transcript{Text: strings.TrimSpace(v.Text), Language: v.Language}
	for _, s := range v.Segments {
		if s.End <= s.Start {
			continue
		}
		tr.Segments = append(tr.Segments, types.SpeechSegment{
			ID:    s.ID,
			Text:  strings.TrimSpace(s.Text),
			Start: s.Start,
			End:   s.End,
		})
	}
	return tr, nil
}

// Generate renders prompt with dall-e-3 and writes the PNG to outPath.
func (a *Adapter) Generate(ctx context.Context, prompt, outPath string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, imageTimeout)
	defer cancel()

	size := openai.ImageGenerateParamsSize1024x1024
	if a.portrait {
		size = openai.ImageGenerateParamsSize1024x1792
	}
	resp, err := a.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModelDallE3,
		N:              openai.Int(1),
		Size:           size,
		Quality:        openai.ImageGenerateParamsQualityStandard,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", nil
	}
	return writeB64(resp.Data[0].B64JSON, outPath)
}

func writeB64(data, outPath string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("openai image: decode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		return "", fmt.Errorf("openai image: %w", err)
	}
	return outPath, nil
}
