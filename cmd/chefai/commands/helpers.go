package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/54b3r/chefai-go/internal/assistant"
	"github.com/54b3r/chefai-go/internal/embedder"
	"github.com/54b3r/chefai-go/internal/judge"
	"github.com/54b3r/chefai-go/internal/prompt"
	"github.com/54b3r/chefai-go/internal/provider"
	"github.com/54b3r/chefai-go/internal/rag"
	"github.com/54b3r/chefai-go/internal/store"
	"github.com/54b3r/chefai-go/internal/tracing"
)

// Vector store backends selectable with VECTOR_STORE.
const (
	storeQdrant = "qdrant"
	storeSQLite = "sqlite"
)

// defaultKnowledgeBase is the knowledge-base file used when neither --kb
// nor CHEFAI_KNOWLEDGE_BASE is given.
const defaultKnowledgeBase = "knowledgebase.json"

// storeSettings is the resolved vector store selection.
type storeSettings struct {
	backend string
	index   string
	qdrant  *rag.QdrantConfig
	sqlite  string
}

// storeSettingsFromEnv reads VECTOR_STORE, VECTOR_INDEX and the backend
// specific variables, and validates them.
func storeSettingsFromEnv() (*storeSettings, error) {
	s := &storeSettings{
		backend: strings.ToLower(getEnvOrDefault("VECTOR_STORE", storeQdrant)),
		index:   getEnvOrDefault("VECTOR_INDEX", rag.DefaultIndex),
	}
	switch s.backend {
	case storeQdrant:
		s.qdrant = &rag.QdrantConfig{
			Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
			Port:       getEnvInt("QDRANT_PORT", 6334),
			Collection: s.index,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     getEnvBool("QDRANT_TLS"),
		}
		if err := s.qdrant.Validate(); err != nil {
			return nil, err
		}
	case storeSQLite:
		s.sqlite = os.Getenv("CHEFAI_VECTOR_DB")
	default:
		return nil, fmt.Errorf("VECTOR_STORE %q is not supported: valid values are qdrant, sqlite", s.backend)
	}
	return s, nil
}

// openStore connects to the selected vector store. The returned store's
// Ping (both implementations have one) backs the readiness probe.
func openStore(s *storeSettings, log *slog.Logger) (vectorStore, error) {
	switch s.backend {
	case storeQdrant:
		st, err := rag.NewQdrantStore(s.qdrant)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", s.qdrant.Host, s.qdrant.Port, err)
		}
		log.Info("vector store ready",
			slog.String("store", storeQdrant),
			slog.String("host", s.qdrant.Host),
			slog.Int("port", s.qdrant.Port),
			slog.String("index", s.index),
		)
		return st, nil
	default:
		path := s.sqlite
		if path == "" {
			p, err := store.DefaultDBPath()
			if err != nil {
				return nil, err
			}
			path = p
		} else if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
		st, err := store.Open(path, s.index)
		if err != nil {
			return nil, err
		}
		log.Info("vector store ready",
			slog.String("store", storeSQLite),
			slog.String("path", path),
			slog.String("index", s.index),
		)
		return st, nil
	}
}

// vectorStore is a rag.VectorStore with a readiness probe.
type vectorStore interface {
	rag.VectorStore
	Ping(ctx context.Context) error
}

// embedderConfig resolves and validates the embedding configuration. A
// shared genai client is reused when the embedder is on gemini too.
func embedderConfig(shared *provider.Models) (*embedder.Config, error) {
	cfg := embedder.ConfigFromEnv()
	if cfg.Provider == embedder.BackendGemini && shared != nil && shared.GeminiClient != nil {
		cfg.GeminiClient = shared.GeminiClient
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// knowledgeBase resolves the knowledge-base source: flag, then env, then
// the default file name.
func knowledgeBase(flag string) string {
	if flag != "" {
		return flag
	}
	return getEnvOrDefault("CHEFAI_KNOWLEDGE_BASE", defaultKnowledgeBase)
}

// app is the query-time runtime shared by ask, evaluate and serve. Every
// client is built once here and injected downward.
type app struct {
	log       *slog.Logger
	models    *provider.Models
	templates *prompt.Templates
	store     vectorStore
	assistant *assistant.Pipeline
	judge     *judge.Judge
	flush     func()
}

// Close releases the store and flushes traces.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("vector store close failed", slog.Any("error", err))
		}
	}
	if a.flush != nil {
		a.flush()
	}
}

// buildApp validates every configuration block before the first network
// call, then builds the models (with an access check), the embedder, the
// vector store, the retriever, the composer for templateName and the judge.
func buildApp(ctx context.Context, log *slog.Logger, templateName string) (*app, error) {
	providerCfg := provider.ConfigFromEnv()
	if err := providerCfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := embedderConfig(nil); err != nil {
		return nil, err
	}
	storeCfg, err := storeSettingsFromEnv()
	if err != nil {
		return nil, err
	}
	templates, err := prompt.Load(os.Getenv("CHEFAI_PROMPTS_DIR"))
	if err != nil {
		return nil, err
	}
	log.Info("prompt templates loaded",
		slog.String("version", templates.Version()),
		slog.String("answer_source", templates.Source(templateName)),
	)

	a := &app{log: log, templates: templates}
	flush, traced := tracing.Setup()
	a.flush = flush
	log.Info("langfuse tracing", slog.Bool("enabled", traced))

	models, err := provider.New(ctx, providerCfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := models.CheckAccess(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.models = models
	log.Info("models ready",
		slog.String("backend", string(models.Backend())),
		slog.String("answer_model", models.AnswerModel),
		slog.String("judge_model", models.JudgeModel),
	)

	embCfg, err := embedderConfig(models)
	if err != nil {
		a.Close()
		return nil, err
	}
	embCfg.WarnIfChatModel(log)
	emb, err := embedder.New(ctx, embCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	vs, err := openStore(storeCfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = vs

	retriever, err := rag.NewRetriever(emb, vs, rag.DefaultTopK, embCfg.Dimensions)
	if err != nil {
		a.Close()
		return nil, err
	}
	composer, err := prompt.NewComposer(templates, templateName)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.assistant, err = assistant.New(assistant.Config{
		Retriever:       retriever,
		Composer:        composer,
		Generator:       models.Answer,
		MaxPromptTokens: getEnvInt("CHEFAI_MAX_PROMPT_TOKENS", 0),
		Logger:          log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.judge, err = judge.New(models.Judge, templates, judge.Config{
		Temperature: providerCfg.JudgeTemperature,
		Logger:      log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the named variable parsed as int, or fallback.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvBool reports whether the named variable parses as true.
func getEnvBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
