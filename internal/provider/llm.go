package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const planSystemPrompt = `You are a travel assistant. Answer with a single JSON object and nothing else.
The object must have exactly these keys:
  "weather": short description of the expected weather for the dates,
  "cuisine": array of typical dishes or food experiences,
  "packing_list": array of items to pack,
  "places_to_visit": array of must-see places,
  "city_image_url": URL of a representative public image of the city, or "" if unknown.`

// LLMGenerator — генерация шага 4 через языковую модель.
//
// Ответ модели разбирается как JSON объект той же формы, что и data
// контракта generate_travel_plan, и дальше нормализуется как обычный ответ.
type LLMGenerator struct {
	model  llms.Model
	logger *slog.Logger
}

// NewLLMGenerator создаёт генератор поверх модели.
func NewLLMGenerator(model llms.Model, logger *slog.Logger) *LLMGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMGenerator{model: model, logger: logger}
}

// NewOpenAIModel создаёт OpenAI-совместимую модель.
func NewOpenAIModel(apiKey, model, baseURL string) (llms.Model, error) {
	if model == "" {
		return nil, fmt.Errorf("%w: llm model is empty", ErrNotConfigured)
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return llm, nil
}

// GenerateTravelPlan реализует Generator.
func (g *LLMGenerator) GenerateTravelPlan(ctx context.Context, req PlanRequest) (*Envelope[Record], error) {
	if g.model == nil {
		return nil, fmt.Errorf("%w: llm model is nil", ErrNotConfigured)
	}

	prompt := fmt.Sprintf("Destination: %s\nDeparture date: %s\nReturn date: %s",
		req.Destination, req.DepartureDate, req.ReturnDate)

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(planSystemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	resp, err := g.model.GenerateContent(ctx, messages, llms.WithTemperature(0.2))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrRequest, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		g.logger.Warn("llm returned no content", "destination", req.Destination)
		return &Envelope[Record]{Success: false}, nil
	}

	data, err := extractJSONObject(resp.Choices[0].Content)
	if err != nil {
		return nil, err
	}

	return &Envelope[Record]{Success: true, Data: data}, nil
}

// extractJSONObject вырезает первый JSON объект из текста модели.
// Модели часто оборачивают ответ в ```json ... ```.
func extractJSONObject(text string) (Record, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no json object in model output", ErrDecode)
	}

	var rec Record
	if err := json.Unmarshal([]byte(text[start:end+1]), &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return rec, nil
}
