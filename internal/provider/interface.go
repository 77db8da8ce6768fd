// Package provider resolves which generative-model backend chefai talks to,
// validates its credentials up front, and builds the answer and judge
// generators from it. Supported backends: Gemini, OpenAI, Azure OpenAI,
// Ollama and Ark.
package provider

import (
	"google.golang.org/genai"

	"github.com/54b3r/chefai-go/internal/llm"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendArk selects the Volcengine Ark model runtime.
	BackendArk Backend = "ark"
)

// Default model names.
const (
	DefaultGeminiModel      = "gemini-2.0-flash"
	DefaultGeminiJudgeModel = "gemini-2.5-flash"
	DefaultOpenAIModel      = "gpt-4o-mini"
	DefaultOllamaModel      = "llama3"
	DefaultJudgeTemperature = float32(0.2)
)

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	Gemini      ProviderGemini
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Ollama      ProviderOllama
	Ark         ProviderArk

	// JudgeModel overrides the model used for scoring. Empty means
	// DefaultGeminiJudgeModel on gemini and the answer model elsewhere.
	JudgeModel string

	// JudgeTemperature is the sampling temperature for judge calls.
	JudgeTemperature float32

	// Temperature optionally pins the answer temperature. Nil keeps the model default.
	Temperature *float32

	// MaxTokens optionally caps answer length. Zero keeps the model default.
	MaxTokens int
}

// ProviderGemini holds Google Gemini settings.
type ProviderGemini struct {
	// APIKey is read from GEMINI_API_KEY, falling back to GOOGLE_API_KEY.
	APIKey string
	// Model is the answer model (GEMINI_MODEL).
	Model string
}

// ProviderOpenAI holds OpenAI settings.
type ProviderOpenAI struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ProviderAzureOpenAI holds Azure OpenAI settings.
type ProviderAzureOpenAI struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
}

// ProviderOllama holds local Ollama settings.
type ProviderOllama struct {
	Host  string
	Model string
}

// ProviderArk holds Volcengine Ark settings.
type ProviderArk struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Models is the set of generators built for one process. It is constructed
// once at startup and shared by every request.
type Models struct {
	// Answer produces recipe answers.
	Answer llm.Generator
	// Judge scores answers. It may be the same backend with a different model.
	Judge llm.Generator

	// AnswerModel and JudgeModel name the models behind each generator.
	AnswerModel string
	JudgeModel  string

	// GeminiClient is the shared genai client on the gemini backend, nil otherwise.
	GeminiClient *genai.Client

	backend Backend
	host    string
}

// Backend reports which backend these models were built for.
func (m *Models) Backend() Backend { return m.backend }
