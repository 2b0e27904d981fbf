package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiModels is the subset of the genai client used here; *genai.Models
// satisfies it.
type GeminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiLLM implements LLMClient on top of the Google Gen AI SDK.
type GeminiLLM struct {
	Model  string
	models GeminiModels
}

func NewGeminiLLM(ctx context.Context, cfg *LLMSettings) (*GeminiLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key missing; set GEMINI_API_KEY or llm.api_key")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	clientCfg := &genai.ClientConfig{APIKey: cfg.APIKey}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiLLM{Model: cfg.Model, models: client.Models}, nil
}

// NewGeminiLLMWithModels wires an existing models client, mostly for tests.
func NewGeminiLLMWithModels(model string, models GeminiModels) *GeminiLLM {
	return &GeminiLLM{Model: model, models: models}
}

func (g *GeminiLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var genCfg *genai.GenerateContentConfig
	if prompt.System != "" {
		genCfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		}
	}

	resp, err := g.models.GenerateContent(ctx, g.Model, []*genai.Content{genai.NewContentFromText(prompt.User, genai.RoleUser)}, genCfg)
	if err != nil {
		return "", err
	}
	return geminiText(resp)
}

// geminiText concatenates the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", errors.New("gemini: no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", errors.New("gemini: content blocked by safety filters")
	}
	if candidate.Content == nil {
		return "", errors.New("gemini: empty candidate content")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
