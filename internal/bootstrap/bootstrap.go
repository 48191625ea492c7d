package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medkit-ai/medrag/internal/config"
	"github.com/medkit-ai/medrag/internal/core/domain"
	"github.com/medkit-ai/medrag/internal/core/ports"
	"github.com/medkit-ai/medrag/internal/core/usecase"
	"github.com/medkit-ai/medrag/internal/corpus"
	"github.com/medkit-ai/medrag/internal/infrastructure/chunking"
	"github.com/medkit-ai/medrag/internal/infrastructure/extractor"
	neo4jgraph "github.com/medkit-ai/medrag/internal/infrastructure/graph/neo4j"
	"github.com/medkit-ai/medrag/internal/infrastructure/lexical"
	"github.com/medkit-ai/medrag/internal/infrastructure/llm/ollama"
	"github.com/medkit-ai/medrag/internal/infrastructure/llm/openaicompat"
	"github.com/medkit-ai/medrag/internal/infrastructure/queue/nats"
	"github.com/medkit-ai/medrag/internal/infrastructure/repository/postgres"
	"github.com/medkit-ai/medrag/internal/infrastructure/rerank"
	"github.com/medkit-ai/medrag/internal/infrastructure/resilience"
	"github.com/medkit-ai/medrag/internal/infrastructure/storage/localfs"
	"github.com/medkit-ai/medrag/internal/infrastructure/vector/qdrant"
)

const closeTimeout = 5 * time.Second

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Repo  ports.DocumentRepository

	AnswerUC  *usecase.AnswerUseCase
	IngestUC  *usecase.IngestDocumentUseCase
	ProcessUC *usecase.ProcessDocumentUseCase
	StatsUC   *usecase.StatsUseCase

	closeFn func()
}

// Close releases every infrastructure handle acquired in New. Safe to call
// on a zero-value App.
func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	guard := resilience.NewGuard(resilience.DefaultConfig())

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{Guard: guard})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
	embedder := resilience.NewGuardedEmbedder(guard, "llm.embed", ollama.NewEmbedder(ollamaClient), ollama.ClassifyError)

	vectorDB := qdrant.New(cfg.QdrantURL, qdrant.Collections{
		Text:  cfg.QdrantTextCollection,
		Table: cfg.QdrantTableCollection,
		Image: cfg.QdrantImageCollection,
	})
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	docExtractor := extractor.New(storage)

	if cfg.SeedCorpus {
		if _, err := corpus.NewSeeder(embedder, vectorDB).SeedIfEmpty(ctx); err != nil {
			slog.Warn("corpus_seed_failed", "error", err)
		}
	}

	lexicalIndex := buildLexicalIndex(ctx, vectorDB)
	// A nil *lexical.Index must not leak into the interface as a typed nil.
	var lexSearcher ports.LexicalSearcher
	if lexicalIndex != nil {
		lexSearcher = lexicalIndex
	}

	rules, err := config.LoadNoiseRules(cfg.NoiseRulesPath)
	if err != nil {
		return nil, fmt.Errorf("load noise rules: %w", err)
	}

	graph, graphClose := openConditionGraph(cfg)

	answerUC := usecase.NewAnswerUseCase(
		embedder,
		vectorDB,
		lexSearcher,
		generatorFactory(cfg, guard, ollamaClient),
		rerankerFactory(cfg),
		graph,
		rules,
		usecase.AnswerConfig{
			Alpha:               cfg.FusionAlpha,
			ConfidenceThreshold: cfg.ConfidenceGate,
			TopK:                cfg.RAGTopK,
			HybridCandidates:    cfg.HybridCandidates,
			MaxContextDocs:      cfg.MaxContextDocs,
			GenMaxTokens:        cfg.GenMaxTokens,
			RerankEnabled:       cfg.RerankEnabled,
			RerankTopK:          cfg.RerankTopK,
			Disclaimer:          cfg.DisclaimerText,
		},
	)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, docExtractor, chunker, embedder, vectorDB)
	statsUC := usecase.NewStatsUseCase(repo, vectorDB, lexSearcher)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		AnswerUC:  answerUC,
		IngestUC:  ingestUC,
		ProcessUC: processUC,
		StatsUC:   statsUC,

		closeFn: func() {
			queue.Close()
			if lexicalIndex != nil {
				_ = lexicalIndex.Close()
			}
			if graphClose != nil {
				graphClose()
			}
			_ = db.Close()
		},
	}, nil
}

// buildLexicalIndex loads the indexed text corpus into the in-memory keyword
// index. Failures degrade to dense-only retrieval rather than blocking
// startup.
func buildLexicalIndex(ctx context.Context, vectorDB ports.VectorStore) *lexical.Index {
	chunks, err := vectorDB.GetAll(ctx, domain.CollectionText)
	if err != nil {
		slog.Warn("lexical_index_degraded_dense_only", "error", err)
		chunks = nil
	}

	index, err := lexical.BuildIndex(chunks)
	if err != nil {
		slog.Warn("lexical_index_build_failed_dense_only", "error", err)
		return nil
	}
	slog.Info("lexical_index_ready", "documents", index.Size())
	return index
}

// generatorFactory defers generator construction to first use so the API
// starts even when the model backend is still warming up.
func generatorFactory(cfg config.Config, guard *resilience.Guard, ollamaClient *ollama.Client) func() (ports.Generator, error) {
	return func() (ports.Generator, error) {
		switch cfg.GenProvider {
		case "openai":
			if cfg.OpenAIBaseURL == "" && cfg.OpenAIAPIKey == "" {
				return nil, fmt.Errorf("openai generator selected but no base url or api key configured")
			}
			inner := openaicompat.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
			return resilience.NewGuardedGenerator(guard, "llm.generate", inner, nil), nil
		default:
			inner := ollama.NewGenerator(ollamaClient)
			return resilience.NewGuardedGenerator(guard, "llm.generate", inner, ollama.ClassifyError), nil
		}
	}
}

func rerankerFactory(cfg config.Config) func() (ports.Reranker, error) {
	if cfg.RerankerURL == "" {
		return nil
	}
	return func() (ports.Reranker, error) {
		return rerank.New(cfg.RerankerURL, cfg.RerankerModel), nil
	}
}

func openConditionGraph(cfg config.Config) (ports.ConditionGraph, func()) {
	if cfg.Neo4jURI == "" {
		return nil, nil
	}
	graph, err := neo4jgraph.New(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		slog.Warn("condition_graph_disabled", "error", err)
		return nil, nil
	}
	return graph, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = graph.Close(closeCtx)
	}
}
