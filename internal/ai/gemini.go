package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiDefaultModel = "gemini-1.5-flash"

// Gemini is the alternative text-generation backend. It takes a single
// prompt per call, so the system instruction is folded into the prompt.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGemini(apiKey, model string, timeout time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" || !strings.HasPrefix(model, "gemini") {
		model = geminiDefaultModel
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

func (g *Gemini) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

func (g *Gemini) RewriteTitle(ctx context.Context, title string) (string, error) {
	prompt := fmt.Sprintf("%s\n\nTítulo original: %s", rewriteSystemPrompt, title)
	return g.generate(ctx, prompt)
}

func (g *Gemini) GenerateContent(ctx context.Context, title, sourceURL string) (string, error) {
	prompt := fmt.Sprintf(
		"%s\n\nRedacta una noticia profesional clara, fluida, en español neutro y sin adornos, basada en este título: %s. "+
			"Debe ser un texto limpio, directo, sin frases decorativas, sin repetir el título, ni explicaciones ni encabezados. "+
			"Solo el contenido. Cierra con esta fuente: %s",
		contentSystemPrompt, title, sourceURL,
	)
	return g.generate(ctx, prompt)
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	model := g.client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctxWithTimeout, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	return strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])), nil
}
