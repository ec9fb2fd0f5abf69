package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/ollama/ollama/api"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrAIGenerationFailed - модель недоступна или вернула пустой ответ.
var ErrAIGenerationFailed = errors.New("ошибка генерации текста AI")

// GenerationParams - параметры запроса. Указатели отличают 0 от "не задано".
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
	JSONOutput  bool
}

// UsageInfo содержит информацию об использовании токенов.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AIClient интерфейс для взаимодействия с текстовой моделью.
type AIClient interface {
	// GenerateText генерирует текст по системному промту и вводу пользователя.
	GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error)
}

// ClientConfig - настройки фабрики NewAIClient.
type ClientConfig struct {
	Type    string // openai | ollama | gemini
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// --- OpenAI Client Implementation ---

type openAIClient struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

func (c *openAIClient) GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	usageInfo := UsageInfo{}
	if strings.TrimSpace(systemPrompt) == "" {
		observeRequest(c.model, "error", 0)
		return "", usageInfo, fmt.Errorf("%w: системный промт пуст", ErrAIGenerationFailed)
	}

	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleUser, Content: userInput})
	}

	req := openaigo.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32Val(params.Temperature),
		MaxTokens:   intVal(params.MaxTokens),
	}
	if params.JSONOutput {
		req.ResponseFormat = &openaigo.ChatCompletionResponseFormat{Type: openaigo.ChatCompletionResponseFormatTypeJSONObject}
	}

	observePromptTokens(c.model, systemPrompt, userInput)
	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("AI API error", zap.String("user_id", userID), zap.Duration("duration", duration), zap.Error(err))
		observeRequest(c.model, "error", duration)
		return "", usageInfo, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		c.logger.Error("AI API returned empty response", zap.String("user_id", userID), zap.Duration("duration", duration))
		observeRequest(c.model, "error_empty_response", duration)
		return "", usageInfo, fmt.Errorf("%w: получен пустой ответ", ErrAIGenerationFailed)
	}
	observeRequest(c.model, "success", duration)

	usageInfo.PromptTokens = resp.Usage.PromptTokens
	usageInfo.CompletionTokens = resp.Usage.CompletionTokens
	usageInfo.TotalTokens = resp.Usage.TotalTokens
	c.logger.Debug("AI response received",
		zap.String("user_id", userID),
		zap.Duration("duration", duration),
		zap.Int("length", len(resp.Choices[0].Message.Content)),
		zap.Int("total_tokens", usageInfo.TotalTokens),
	)
	return resp.Choices[0].Message.Content, usageInfo, nil
}

// --- Ollama Client Implementation ---

type ollamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func newOllamaClient(cfg ClientConfig, logger *zap.Logger) (AIClient, error) {
	// api.NewClient требует URL без суффикса /v1
	ollamaBaseURL := strings.TrimSuffix(cfg.BaseURL, "/v1")
	ollamaBaseURL = strings.TrimSuffix(ollamaBaseURL, "/")

	parsedURL, err := url.Parse(ollamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", ollamaBaseURL, err)
	}
	client := api.NewClient(parsedURL, &http.Client{Timeout: cfg.Timeout})
	return &ollamaClient{client: client, model: cfg.Model, timeout: cfg.Timeout, logger: logger}, nil
}

func (c *ollamaClient) GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	usageInfo := UsageInfo{}
	if strings.TrimSpace(systemPrompt) == "" {
		observeRequest(c.model, "error", 0)
		return "", usageInfo, fmt.Errorf("%w: системный промт пуст", ErrAIGenerationFailed)
	}

	messages := []api.Message{{Role: "system", Content: systemPrompt}}
	if userInput != "" {
		messages = append(messages, api.Message{Role: "user", Content: userInput})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": params.Temperature,
			"num_predict": intVal(params.MaxTokens),
		},
	}
	if params.JSONOutput {
		req.Format = json.RawMessage(`"json"`)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	observePromptTokens(c.model, systemPrompt, userInput)
	startTime := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Ollama API error", zap.String("user_id", userID), zap.Duration("duration", duration), zap.Error(err))
		observeRequest(c.model, "error", duration)
		return "", usageInfo, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if resp.Message.Content == "" {
		observeRequest(c.model, "error_empty_response", duration)
		return "", usageInfo, fmt.Errorf("%w: получен пустой ответ", ErrAIGenerationFailed)
	}
	observeRequest(c.model, "success", duration)

	usageInfo.PromptTokens = resp.PromptEvalCount
	usageInfo.CompletionTokens = resp.EvalCount
	usageInfo.TotalTokens = resp.PromptEvalCount + resp.EvalCount
	return resp.Message.Content, usageInfo, nil
}

// --- Gemini Client Implementation ---

type geminiClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func newGeminiClient(cfg ClientConfig, logger *zap.Logger) (AIClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента Gemini: %w", err)
	}
	return &geminiClient{client: client, model: cfg.Model, logger: logger}, nil
}

func (c *geminiClient) GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	usageInfo := UsageInfo{}
	if strings.TrimSpace(systemPrompt) == "" {
		observeRequest(c.model, "error", 0)
		return "", usageInfo, fmt.Errorf("%w: системный промт пуст", ErrAIGenerationFailed)
	}

	gm := c.client.GenerativeModel(c.model)
	gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	if params.Temperature != nil {
		gm.SetTemperature(float32(*params.Temperature))
	}
	if params.MaxTokens != nil {
		gm.SetMaxOutputTokens(int32(*params.MaxTokens))
	}
	if params.JSONOutput {
		gm.ResponseMIMEType = "application/json"
	}

	input := userInput
	if input == "" {
		input = "Begin."
	}

	observePromptTokens(c.model, systemPrompt, userInput)
	startTime := time.Now()
	resp, err := gm.GenerateContent(ctx, genai.Text(input))
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Error("Gemini API error", zap.String("user_id", userID), zap.Duration("duration", duration), zap.Error(err))
		observeRequest(c.model, "error", duration)
		return "", usageInfo, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
	}
	if sb.Len() == 0 {
		observeRequest(c.model, "error_empty_response", duration)
		return "", usageInfo, fmt.Errorf("%w: получен пустой ответ", ErrAIGenerationFailed)
	}
	observeRequest(c.model, "success", duration)

	if resp.UsageMetadata != nil {
		usageInfo.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usageInfo.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usageInfo.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return sb.String(), usageInfo, nil
}

// --- Вспомогательные функции ---

func float32Val(f64 *float64) float32 {
	if f64 == nil {
		return 1.0
	}
	return float32(*f64)
}

func intVal(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

// --- Factory Function ---

// NewAIClient создает клиента в зависимости от cfg.Type.
func NewAIClient(cfg ClientConfig, logger *zap.Logger) (AIClient, error) {
	logger = logger.Named("AIClient")
	switch strings.ToLower(cfg.Type) {
	case "openai":
		openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			openaiConfig.BaseURL = cfg.BaseURL
		}
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
		logger.Info("Using AI client", zap.String("type", "openai"), zap.String("base_url", openaiConfig.BaseURL), zap.String("model", cfg.Model))
		return &openAIClient{client: openaigo.NewClientWithConfig(openaiConfig), model: cfg.Model, logger: logger}, nil
	case "ollama":
		logger.Info("Using AI client", zap.String("type", "ollama"), zap.String("base_url", cfg.BaseURL), zap.String("model", cfg.Model))
		return newOllamaClient(cfg, logger)
	case "gemini":
		logger.Info("Using AI client", zap.String("type", "gemini"), zap.String("model", cfg.Model))
		return newGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("неизвестный тип AI клиента: %s", cfg.Type)
	}
}

var (
	_ AIClient = (*openAIClient)(nil)
	_ AIClient = (*ollamaClient)(nil)
	_ AIClient = (*geminiClient)(nil)
)

func observeRequest(model, status string, duration time.Duration) {
	aiRequestsTotal.With(prometheus.Labels{"model": model, "status": status}).Inc()
	if duration > 0 {
		aiRequestDuration.With(prometheus.Labels{"model": model}).Observe(duration.Seconds())
	}
}
