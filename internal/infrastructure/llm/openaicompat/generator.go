// Package openaicompat adapts any OpenAI-compatible chat completion endpoint
// as an answer generator. Used when the deployment points GEN_PROVIDER at a
// hosted model instead of a local ollama instance.
package openaicompat

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

type Generator struct {
	client *openai.Client
	model  string
}

func New(baseURL, apiKey, model string) *Generator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Generator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (g *Generator) Generate(ctx context.Context, prompt string, maxTokens int, images []string) (string, string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}
	if len(images) > 0 {
		parts := make([]openai.ChatMessagePart, 0, len(images)+1)
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: prompt,
		})
		for _, img := range images {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: "data:image/png;base64," + img,
				},
			})
		}
		req.Messages = []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		}
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", "", domain.WrapError(domain.ErrTemporary, "chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("chat completion returned no choices")
	}

	model := resp.Model
	if model == "" {
		model = g.model
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), model, nil
}
