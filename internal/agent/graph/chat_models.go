package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/agrideliver/server/internal/agent/model"
	logx "github.com/agrideliver/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey        string
	BaseURL       string
	ClassifierCfg *model.ClassifierModelConfig
	ResponseCfg   *model.ResponseModelConfig
}

// ChatModels holds the classifier and response chat models
type ChatModels struct {
	Classifier          *gemini.ChatModel
	Response            *gemini.ChatModel
	ClassifierModelName string
	ResponseModelName   string
}

// NewChatModels creates both classifier and response chat models with the given configuration
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModelClassifier, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.ClassifierCfg.Model,
		Temperature: &config.ClassifierCfg.Temperature,
		MaxTokens:   &config.ClassifierCfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating classifier model")
		return nil, fmt.Errorf("error creating classifier model: %w", err)
	}

	chatModelResponse, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.ResponseCfg.Model,
		Temperature: &config.ResponseCfg.Temperature,
		MaxTokens:   &config.ResponseCfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, fmt.Errorf("error creating response model: %w", err)
	}

	return &ChatModels{
		Classifier:          chatModelClassifier,
		Response:            chatModelResponse,
		ClassifierModelName: config.ClassifierCfg.Model,
		ResponseModelName:   config.ResponseCfg.Model,
	}, nil
}

// logUsage records token usage and USD cost for a completed model call.
func logUsage(sessionID, step, modelName string, out *schema.Message) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	pricing := model.ResolvePricing(modelName)
	inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
	logx.Debug().
		Str("session_id", sessionID).
		Str("step", step).
		Str("model", modelName).
		Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
		Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
		Int("total_tokens", out.ResponseMeta.Usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}
