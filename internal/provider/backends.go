package provider

import (
	"context"
	"encoding/json"
	"fmt"

	einoark "github.com/cloudwego/eino-ext/components/model/ark"
	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/54b3r/chefai-go/internal/llm"
)

// chatFactory builds an eino chat model for one model name on a backend.
// jsonOut asks the backend to constrain the response to a JSON object.
type chatFactory func(ctx context.Context, modelName string, jsonOut bool) (model.BaseChatModel, error)

// ollamaJSONFormat is the Ollama "format" value for JSON-only output.
var ollamaJSONFormat = json.RawMessage(`"json"`)

// answerDefaults turns the optional answer tuning into generator defaults.
func answerDefaults(cfg *Config) []llm.Option {
	var opts []llm.Option
	if cfg.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(cfg.MaxTokens))
	}
	return opts
}

// buildChatModels constructs the answer and judge generators through the
// same backend factory. The judge is always its own model instance in JSON
// output mode and runs at JudgeTemperature.
func buildChatModels(ctx context.Context, cfg *Config, newChat chatFactory) (*Models, error) {
	answerName := cfg.AnswerModel()
	judgeName := cfg.ResolvedJudgeModel()

	answer, err := newChat(ctx, answerName, false)
	if err != nil {
		return nil, fmt.Errorf("provider: %s answer model %q: %w", cfg.Backend, answerName, err)
	}
	judge, err := newChat(ctx, judgeName, true)
	if err != nil {
		return nil, fmt.Errorf("provider: %s judge model %q: %w", cfg.Backend, judgeName, err)
	}

	return &Models{
		Answer:      llm.NewChatGenerator(answer, string(cfg.Backend), answerDefaults(cfg)...),
		Judge:       llm.NewChatGenerator(judge, string(cfg.Backend), llm.WithTemperature(cfg.JudgeTemperature)),
		AnswerModel: answerName,
		JudgeModel:  judgeName,
		backend:     cfg.Backend,
	}, nil
}

// newGemini builds the gemini models on a shared client: answers go through
// the eino Gemini chat model, the judge calls genai directly so it can
// request a JSON response.
func newGemini(ctx context.Context, cfg *Config, client *genai.Client) (*Models, error) {
	answerName := cfg.AnswerModel()
	judgeName := cfg.ResolvedJudgeModel()

	chat, err := einogemini.NewChatModel(ctx, &einogemini.Config{
		Client: client,
		Model:  answerName,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: gemini answer model %q: %w", answerName, err)
	}

	return &Models{
		Answer:       llm.NewChatGenerator(chat, string(BackendGemini), answerDefaults(cfg)...),
		Judge:        llm.NewGeminiGenerator(client, judgeName, llm.WithTemperature(cfg.JudgeTemperature)),
		AnswerModel:  answerName,
		JudgeModel:   judgeName,
		GeminiClient: client,
		backend:      BackendGemini,
	}, nil
}

// newOpenAI builds models backed by the OpenAI API.
func newOpenAI(ctx context.Context, cfg *Config) (*Models, error) {
	return buildChatModels(ctx, cfg, func(ctx context.Context, name string, jsonOut bool) (model.BaseChatModel, error) {
		return einoopenai.NewChatModel(ctx, openAIChatConfig(cfg, name, jsonOut)) //nolint:wrapcheck // constructor passthrough
	})
}

func openAIChatConfig(cfg *Config, name string, jsonOut bool) *einoopenai.ChatModelConfig {
	return &einoopenai.ChatModelConfig{
		Model:          name,
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		ResponseFormat: openAIResponseFormat(jsonOut),
	}
}

// newAzure builds models backed by Azure OpenAI Service. Model names are
// deployment names.
func newAzure(ctx context.Context, cfg *Config) (*Models, error) {
	return buildChatModels(ctx, cfg, func(ctx context.Context, name string, jsonOut bool) (model.BaseChatModel, error) {
		return einoopenai.NewChatModel(ctx, azureChatConfig(cfg, name, jsonOut)) //nolint:wrapcheck // constructor passthrough
	})
}

func azureChatConfig(cfg *Config, name string, jsonOut bool) *einoopenai.ChatModelConfig {
	return &einoopenai.ChatModelConfig{
		Model:      name,
		APIKey:     cfg.AzureOpenAI.APIKey,
		BaseURL:    cfg.AzureOpenAI.Endpoint,
		ByAzure:    true,
		APIVersion: cfg.AzureOpenAI.APIVersion,
		// Use the deployment name as-is: the default mapper strips dots
		// and colons, which breaks names like "gpt-4.1".
		AzureModelMapperFunc: func(model string) string { return model },
		ResponseFormat:       openAIResponseFormat(jsonOut),
	}
}

func openAIResponseFormat(jsonOut bool) *einoopenai.ChatCompletionResponseFormat {
	if !jsonOut {
		return nil
	}
	return &einoopenai.ChatCompletionResponseFormat{Type: einoopenai.ChatCompletionResponseFormatTypeJSONObject}
}

// newOllama builds models backed by a local Ollama instance.
func newOllama(ctx context.Context, cfg *Config) (*Models, error) {
	m, err := buildChatModels(ctx, cfg, func(ctx context.Context, name string, jsonOut bool) (model.BaseChatModel, error) {
		return einoollama.NewChatModel(ctx, ollamaChatConfig(cfg, name, jsonOut)) //nolint:wrapcheck // constructor passthrough
	})
	if err != nil {
		return nil, err
	}
	m.host = cfg.Ollama.Host
	return m, nil
}

func ollamaChatConfig(cfg *Config, name string, jsonOut bool) *einoollama.ChatModelConfig {
	c := &einoollama.ChatModelConfig{
		BaseURL: cfg.Ollama.Host,
		Model:   name,
	}
	if jsonOut {
		c.Format = ollamaJSONFormat
	}
	return c
}

// newArk builds models backed by the Volcengine Ark runtime.
func newArk(ctx context.Context, cfg *Config) (*Models, error) {
	return buildChatModels(ctx, cfg, func(ctx context.Context, name string, jsonOut bool) (model.BaseChatModel, error) {
		return einoark.NewChatModel(ctx, arkChatConfig(cfg, name, jsonOut)) //nolint:wrapcheck // constructor passthrough
	})
}

func arkChatConfig(cfg *Config, name string, jsonOut bool) *einoark.ChatModelConfig {
	c := &einoark.ChatModelConfig{
		Model:   name,
		APIKey:  cfg.Ark.APIKey,
		BaseURL: cfg.Ark.BaseURL,
	}
	if jsonOut {
		c.ResponseFormat = &einoark.ResponseFormat{Type: "json_object"}
	}
	return c
}
