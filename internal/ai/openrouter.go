package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	rewriteSystemPrompt = "Responde solo con el título reescrito. No agregues comillas, símbolos ni ninguna explicación. Manténlo corto, atractivo, en español neutro, sin adornos. Máximo 12 palabras."
	contentSystemPrompt = "Responde solo con el contenido de la noticia. No incluyas instrucciones ni encabezados."
)

// OpenRouter uses the OpenAI-compatible chat-completions API of
// openrouter.ai.
type OpenRouter struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenRouter(apiKey, baseURL, model string, timeout time.Duration) (*OpenRouter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &OpenRouter{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}, nil
}

func (o *OpenRouter) RewriteTitle(ctx context.Context, title string) (string, error) {
	return o.complete(ctx, rewriteSystemPrompt, title)
}

func (o *OpenRouter) GenerateContent(ctx context.Context, title, sourceURL string) (string, error) {
	prompt := fmt.Sprintf(
		"Redacta una noticia profesional clara, fluida, en español neutro y sin adornos, basada en este título: %s. "+
			"Debe ser un texto limpio, directo, sin frases decorativas, sin repetir el título, ni explicaciones ni encabezados. "+
			"Solo el contenido. Cierra con esta fuente: %s",
		title, sourceURL,
	)
	return o.complete(ctx, contentSystemPrompt, prompt)
}

func (o *OpenRouter) complete(ctx context.Context, system, user string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
