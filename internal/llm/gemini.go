package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultModelName = "gemini-1.5-flash-latest"

type Gemini struct {
	client *genai.Client
}

func NewGemini(apiKey string) (*Gemini, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client}, nil
}

func (g *Gemini) Available() bool { return true }

func (g *Gemini) Close() {
	if g.client != nil {
		if err := g.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		} else {
			log.Println("GenAI client closed.")
		}
	}
}

func (g *Gemini) Complete(ctx context.Context, systemPrompt string, turns []Turn, opts Options) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("conversation is empty for chat completion")
	}

	model := g.client.GenerativeModel(defaultModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	if opts.Temperature > 0 {
		temp := opts.Temperature
		model.GenerationConfig.Temperature = &temp
	}
	if opts.MaxTokens > 0 {
		maxTokens := opts.MaxTokens
		model.GenerationConfig.MaxOutputTokens = &maxTokens
	}
	if opts.JSONMode {
		model.GenerationConfig.ResponseMIMEType = "application/json"
	}

	last := turns[len(turns)-1]
	if last.Role != "user" {
		return "", fmt.Errorf("last turn is not from 'user', cannot proceed with chat completion")
	}

	chatSession := model.StartChat()
	for _, turn := range turns[:len(turns)-1] {
		chatSession.History = append(chatSession.History, &genai.Content{
			Role:  geminiRole(turn.Role),
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}

	resp, err := chatSession.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response was empty or had no valid candidates")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			log.Printf("Gemini response part was not text: %T", part)
		}
	}

	if responseText.Len() == 0 {
		return "", fmt.Errorf("gemini response contained no text parts")
	}

	return responseText.String(), nil
}

// geminiRole maps conversation roles onto what the genai API expects.
func geminiRole(role string) string {
	if role == "assistant" {
		return "model"
	}
	return "user"
}
