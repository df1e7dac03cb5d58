package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/forPelevin/reelcut/internal/domain/prompts"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

var (
	_ ports.ContentScorer     = (*Adapter)(nil)
	_ ports.CaptionSummarizer = (*Adapter)(nil)
)

const (
	requestTimeout = 90 * time.Second
	DefaultModel   = "gemini-2.5-flash"
)

// Adapter calls Gemini with a pool of API keys, moving to the next key when
// one is rate limited. Each key has its own client.
type Adapter struct {
	model   string
	clients []*genai.Client

	mu      sync.Mutex
	current int
}

// New builds one client per non-blank key. No request is made here.
func New(apiKeys []string, model string) (*Adapter, error) {
	if model == "" {
		model = DefaultModel
	}
	a := &Adapter{model: model}
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k == "" {
			continue
		}
		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  k,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini create client: %w", err)
		}
		a.clients = append(a.clients, client)
	}
	return a, nil
}

func (a *Adapter) Score(ctx context.Context, text, before, after string) (types.Analysis, error) {
	content, err := a.generate(ctx, prompts.AnalysisSystem, prompts.Analysis(text, before, after), 0.3)
	if err != nil {
		return types.Analysis{}, err
	}
	return prompts.DecodeAnalysis(content)
}

func (a *Adapter) Summarize(ctx context.Context, text string, maxLen int) (types.Caption, error) {
	content, err := a.generate(ctx, prompts.CaptionSystem, prompts.Caption(text, maxLen), 0.5)
	if err != nil {
		return types.Caption{}, err
	}
	return prompts.DecodeCaption(content, maxLen)
}

func (a *Adapter) generate(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	if len(a.clients) == 0 {
		return "", errors.New("gemini: no api keys")
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(temperature),
		ResponseMIMEType:  "application/json",
	}

	var lastErr error
	for range len(a.clients) {
		client, idx := a.client()
		result, err := client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), cfg)
		if err != nil {
			if isRateLimited(err) {
				lastErr = err
				a.rotate(idx)
				continue
			}
			return "", fmt.Errorf("gemini generate: %w", err)
		}
		if text := responseText(result); text != "" {
			return text, nil
		}
		return "", errors.New("gemini: empty response")
	}
	return "", fmt.Errorf("gemini: all api keys exhausted: %w", lastErr)
}

func (a *Adapter) client() (*genai.Client, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clients[a.current], a.current
}

// rotate advances past idx unless another caller already did.
func (a *Adapter) rotate(idx int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == idx {
		a.current = (a.current + 1) % len(a.clients)
	}
}

func responseText(r *genai.GenerateContentResponse) string {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
