// Package ingestion implements the knowledge-base ingestion pipeline.
// It loads recipe records from a local file or an HTTP(S) URL, embeds each
// record's text, and upserts (id, vector, recipe) into the vector store.
// This pipeline is invoked by the `chefai ingest` CLI command.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/chefai-go/internal/rag"
	"github.com/54b3r/chefai-go/internal/recipe"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// Dimensions is the vector size the index is created with and every
	// embedding is checked against. Defaults to rag.DefaultDimensions.
	Dimensions int

	// BatchSize is the number of records embedded per Embed call.
	// Defaults to 32 if zero.
	BatchSize int

	// HTTPTimeout is the timeout for fetching a remote knowledge base.
	// Defaults to 30s if zero.
	HTTPTimeout time.Duration

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
}

// Stats summarises one ingestion run.
type Stats struct {
	// Index is the name of the index written to.
	Index string
	// Created is true when the index did not exist and was created.
	Created bool
	// Upserted is the number of records written.
	Upserted int
}

// Pipeline orchestrates the load → embed → upsert flow.
type Pipeline struct {
	// embedder converts recipe text into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded recipes.
	store rag.VectorStore

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// httpClient is the HTTP client used for remote knowledge bases.
	httpClient *http.Client
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = rag.DefaultDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "chefai-go/1.0 (knowledge base ingestion)"
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}, nil
}

// Ingest ensures the index exists, then embeds and upserts every recipe.
// Re-ingesting an id overwrites its vector and recipe. The first embedding
// or store error aborts the run; the job is safe to rerun. Progress is
// reported via the optional progress callback.
func (p *Pipeline) Ingest(ctx context.Context, recipes []recipe.Recipe, progress func(msg string)) (Stats, error) {
	if progress == nil {
		progress = func(string) {}
	}
	stats := Stats{Index: p.store.Index()}

	created, err := rag.EnsureIndex(ctx, p.store, p.cfg.Dimensions)
	if err != nil {
		return stats, fmt.Errorf("ingestion: %w", err)
	}
	stats.Created = created
	if created {
		progress(fmt.Sprintf("index %q does not exist, created it (%d dims, cosine)", stats.Index, p.cfg.Dimensions))
	} else {
		progress(fmt.Sprintf("index %q already exists, using it", stats.Index))
	}

	for start := 0; start < len(recipes); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(recipes))
		batch := recipes[start:end]

		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.EmbeddingText()
		}

		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("ingestion: embedding failed for records %d-%d: %w", start+1, end, err)
		}
		if len(embeddings) != len(batch) {
			return stats, fmt.Errorf("ingestion: embedder returned %d vectors for %d records", len(embeddings), len(batch))
		}

		for i, r := range batch {
			if err := rag.CheckDimensions(embeddings[i], p.cfg.Dimensions); err != nil {
				return stats, fmt.Errorf("ingestion: recipe %q: %w", r.ID, err)
			}
			if err := p.store.Upsert(ctx, r.ID, embeddings[i], r); err != nil {
				return stats, fmt.Errorf("ingestion: upsert failed for recipe %q: %w", r.ID, err)
			}
			stats.Upserted++
		}
		progress(fmt.Sprintf("upserted %d/%d recipes", stats.Upserted, len(recipes)))
	}

	return stats, nil
}

// IngestSource loads the knowledge base at src (a file path or an HTTP(S)
// URL) and ingests it.
func (p *Pipeline) IngestSource(ctx context.Context, src string, progress func(msg string)) (Stats, error) {
	recipes, err := p.Load(ctx, src)
	if err != nil {
		return Stats{Index: p.store.Index()}, err
	}
	if progress != nil {
		progress(fmt.Sprintf("loaded %d recipes from %s", len(recipes), src))
	}
	return p.Ingest(ctx, recipes, progress)
}

// Load reads and validates the knowledge base at src.
func (p *Pipeline) Load(ctx context.Context, src string) ([]recipe.Recipe, error) {
	if !IsRemote(src) {
		recipes, err := recipe.LoadFile(src)
		if err != nil {
			return nil, fmt.Errorf("ingestion: %w", err)
		}
		return recipes, nil
	}

	body, err := p.fetch(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("ingestion: fetch failed for %s: %w", src, err)
	}
	defer body.Close()

	recipes, err := recipe.Load(body)
	if err != nil {
		return nil, fmt.Errorf("ingestion: %s: %w", src, err)
	}
	return recipes, nil
}

// fetch opens the body of a remote knowledge base.
func (p *Pipeline) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	return resp.Body, nil
}

// IsRemote reports whether src names an http(s) URL rather than a file.
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}
