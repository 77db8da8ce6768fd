package provider

import "fmt"

// Validate checks that the selected backend has every credential and model
// name it needs. Errors name the env var to set.
func (c *Config) Validate() error {
	if c.JudgeTemperature < 0 || c.JudgeTemperature > 2 {
		return fmt.Errorf("provider: JUDGE_TEMPERATURE must be between 0 and 2, got %g", c.JudgeTemperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("provider: MODEL_MAX_TOKENS must not be negative, got %d", c.MaxTokens)
	}

	switch c.Backend {
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("provider: gemini backend requires GEMINI_API_KEY (or GOOGLE_API_KEY); set it in the environment or .env")
		}
		if c.Gemini.Model == "" {
			return fmt.Errorf("provider: gemini backend requires GEMINI_MODEL")
		}
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("provider: openai backend requires OPENAI_API_KEY")
		}
		if c.OpenAI.Model == "" {
			return fmt.Errorf("provider: openai backend requires OPENAI_MODEL")
		}
	case BackendAzure:
		if c.AzureOpenAI.APIKey == "" {
			return fmt.Errorf("provider: azure backend requires AZURE_OPENAI_API_KEY")
		}
		if c.AzureOpenAI.Endpoint == "" {
			return fmt.Errorf("provider: azure backend requires AZURE_OPENAI_ENDPOINT")
		}
		if c.AzureOpenAI.Deployment == "" {
			return fmt.Errorf("provider: azure backend requires AZURE_OPENAI_DEPLOYMENT")
		}
	case BackendOllama:
		if c.Ollama.Host == "" {
			return fmt.Errorf("provider: ollama backend requires OLLAMA_HOST")
		}
		if c.Ollama.Model == "" {
			return fmt.Errorf("provider: ollama backend requires OLLAMA_MODEL")
		}
	case BackendArk:
		if c.Ark.APIKey == "" {
			return fmt.Errorf("provider: ark backend requires ARK_API_KEY")
		}
		if c.Ark.Model == "" {
			return fmt.Errorf("provider: ark backend requires ARK_MODEL")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q: valid values are gemini, openai, azure, ollama, ark", c.Backend)
	}
	return nil
}
