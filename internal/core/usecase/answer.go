package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/medkit-ai/medrag/internal/core/domain"
	"github.com/medkit-ai/medrag/internal/core/ports"
)

const insufficientMessage = "I couldn't find relevant information to answer your question. " +
	"Please try rephrasing or ask about a different topic."

const defaultDisclaimer = "I don't have enough reliable information to answer this question confidently. " +
	"Please consult a healthcare professional."

type AnswerConfig struct {
	Alpha               float64
	ConfidenceThreshold float64
	TopK                int
	HybridCandidates    int
	MaxContextDocs      int
	GenMaxTokens        int
	RerankEnabled       bool
	RerankTopK          int
	Disclaimer          string
}

func (c AnswerConfig) normalize() AnswerConfig {
	out := c
	if out.Alpha <= 0 || out.Alpha > 1 {
		out.Alpha = 0.7
	}
	if out.ConfidenceThreshold <= 0 {
		out.ConfidenceThreshold = 0.25
	}
	if out.TopK <= 0 {
		out.TopK = 5
	}
	if out.HybridCandidates <= 0 {
		out.HybridCandidates = 30
	}
	if out.MaxContextDocs <= 0 {
		out.MaxContextDocs = 4
	}
	if out.RerankTopK <= 0 {
		out.RerankTopK = 50
	}
	if out.Disclaimer == "" {
		out.Disclaimer = defaultDisclaimer
	}
	return out
}

// AnswerUseCase runs the full question-answering pipeline: hybrid retrieval,
// noise filtering, score fusion, optional reranking, the confidence gate, and
// answer synthesis. It returns an error only for invalid input; every
// degraded collaborator path still yields a well-formed Answer.
type AnswerUseCase struct {
	embedder  ports.Embedder
	vectors   ports.VectorStore
	lexical   ports.LexicalSearcher
	generator *lazyHandle[ports.Generator]
	reranker  *lazyHandle[ports.Reranker]
	graph     ports.ConditionGraph
	filter    *noiseFilter
	cfg       AnswerConfig
}

func NewAnswerUseCase(
	embedder ports.Embedder,
	vectors ports.VectorStore,
	lexical ports.LexicalSearcher,
	generatorFactory func() (ports.Generator, error),
	rerankerFactory func() (ports.Reranker, error),
	graph ports.ConditionGraph,
	rules domain.NoiseRules,
	cfg AnswerConfig,
) *AnswerUseCase {
	return &AnswerUseCase{
		embedder:  embedder,
		vectors:   vectors,
		lexical:   lexical,
		generator: newLazyHandle(generatorFactory),
		reranker:  newLazyHandle(rerankerFactory),
		graph:     graph,
		filter:    newNoiseFilter(rules),
		cfg:       cfg.normalize(),
	}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, query domain.Query) (*domain.Answer, error) {
	question := strings.TrimSpace(query.Text)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer query", errors.New("empty question"))
	}

	start := time.Now()
	k := query.K
	if k <= 0 {
		k = uc.cfg.TopK
	}

	filter := query.Filter
	routed := false
	if filter == nil {
		filter = routeIntent(question)
		routed = filter != nil
	}

	var dense []domain.Candidate
	vector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		slog.Warn("query_embedding_degraded", "error", err)
	} else {
		dense = uc.denseRetrieve(ctx, vector, uc.cfg.HybridCandidates, filter)
		// A routed filter is a hint, not a caller contract. If it matches
		// nothing, widen to the full corpus instead of gating on an empty set.
		if routed && len(dense) == 0 {
			slog.Info("routed_filter_empty_widening", "key", filter.Key, "value", filter.Value)
			dense = uc.denseRetrieve(ctx, vector, uc.cfg.HybridCandidates, nil)
		}
	}
	sparse := uc.sparseRetrieve(question, uc.cfg.HybridCandidates)

	telemetry := &domain.Telemetry{
		DenseHits:  len(dense),
		SparseHits: len(sparse),
	}

	dense, droppedDense := uc.filter.filterCandidates(dense)
	sparse, droppedSparse := uc.filter.filterCandidates(sparse)

	fused := fuseCandidates(dense, sparse, uc.cfg.Alpha)
	fused, droppedFused := uc.filter.filterFused(fused)
	telemetry.NoiseDropped = droppedDense + droppedSparse + droppedFused
	telemetry.FusedCandidates = len(fused)

	if len(fused) == 0 {
		telemetry.DurationMillis = time.Since(start).Milliseconds()
		return &domain.Answer{
			Text:       insufficientMessage,
			Sources:    []domain.Source{},
			Confidence: 0,
			NoAnswer:   true,
			Telemetry:  telemetry,
		}, nil
	}

	telemetry.RerankAttempted = uc.cfg.RerankEnabled
	final, reranked := uc.maybeRerank(ctx, question, fused)
	if len(final) > k {
		final = final[:k]
	}

	sources := make([]domain.Source, 0, len(final))
	for _, candidate := range final {
		sources = append(sources, domain.Source{
			Content:   snippet(candidate.Document),
			Metadata:  candidate.Metadata,
			Relevance: candidate.Relevance,
		})
	}

	confidence := final[0].Relevance
	telemetry.DurationMillis = time.Since(start).Milliseconds()

	// Hard gate: below threshold nothing is generated, to avoid fabricating
	// an answer from weak evidence.
	if confidence < uc.cfg.ConfidenceThreshold {
		return &domain.Answer{
			Text:       uc.cfg.Disclaimer,
			Sources:    sources,
			Confidence: confidence,
			NoAnswer:   true,
			Reranked:   reranked,
			Telemetry:  telemetry,
		}, nil
	}

	text, model := uc.synthesize(ctx, question, final, sources, query.Images)
	text = appendCitations(text, sources)
	telemetry.DurationMillis = time.Since(start).Milliseconds()

	return &domain.Answer{
		Text:       text,
		Sources:    sources,
		Confidence: confidence,
		Reranked:   reranked,
		Model:      model,
		Telemetry:  telemetry,
	}, nil
}

// synthesize prefers the generative path and falls back to extraction when no
// generator is available or its output is degenerate.
func (uc *AnswerUseCase) synthesize(
	ctx context.Context,
	question string,
	final []domain.FinalCandidate,
	sources []domain.Source,
	images []string,
) (string, string) {
	contextDocs := final
	if len(contextDocs) > uc.cfg.MaxContextDocs {
		contextDocs = contextDocs[:uc.cfg.MaxContextDocs]
	}

	generator, err := uc.generator.get()
	if err != nil || generator == nil {
		if err != nil {
			slog.Warn("generator_unavailable_using_extractive", "error", err)
		}
		return uc.extractiveAnswer(ctx, question, contextDocs, sources), ""
	}

	docs := make([]string, len(contextDocs))
	for i, doc := range contextDocs {
		docs[i] = doc.Document
	}
	prompt := buildPrompt(question, docs)

	text, model, err := generator.Generate(ctx, prompt, uc.cfg.GenMaxTokens, images)
	if err != nil {
		slog.Warn("generation_failed_using_extractive", "error", err)
		return uc.extractiveAnswer(ctx, question, contextDocs, sources), ""
	}
	if isDegenerateGeneration(text, prompt) {
		slog.Warn("generation_degenerate_using_extractive", "model", model)
		return uc.extractiveAnswer(ctx, question, contextDocs, sources), ""
	}
	return text, model
}
