package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/medkit-ai/medrag/internal/core/domain"
	"github.com/medkit-ai/medrag/internal/core/ports"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeVectorStore struct {
	hits    map[domain.Collection][]domain.VectorHit
	errs    map[domain.Collection]error
	counts  map[domain.Collection]int
	indexed []domain.Chunk

	// filterAware makes Query honor the metadata filter the way the real
	// backend does; most tests leave it off and return hits unconditionally.
	filterAware bool
}

func (f *fakeVectorStore) Query(_ context.Context, collection domain.Collection, _ []float32, _ int, filter *domain.MetadataFilter) ([]domain.VectorHit, error) {
	if err := f.errs[collection]; err != nil {
		return nil, err
	}
	hits := f.hits[collection]
	if !f.filterAware || filter == nil {
		return hits, nil
	}
	var matched []domain.VectorHit
	for _, hit := range hits {
		if hit.Metadata.Get(filter.Key) == filter.Value {
			matched = append(matched, hit)
		}
	}
	return matched, nil
}

func (f *fakeVectorStore) GetAll(_ context.Context, collection domain.Collection) ([]domain.Chunk, error) {
	return nil, nil
}

func (f *fakeVectorStore) IndexChunks(_ context.Context, _ *domain.Document, chunks []domain.Chunk, _ [][]float32) error {
	f.indexed = append(f.indexed, chunks...)
	return nil
}

func (f *fakeVectorStore) Count(_ context.Context, collection domain.Collection) (int, error) {
	return f.counts[collection], nil
}

type fakeLexical struct {
	results []domain.Candidate
	err     error
}

func (f *fakeLexical) Search(string, int) ([]domain.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeLexical) Size() int { return len(f.results) }

type fakeGenerator struct {
	text  string
	model string
	err   error
	calls int
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, _ int, _ []string) (string, string, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	return f.text, f.model, nil
}

type fakeReranker struct {
	scores []float64
	err    error
	calls  int
}

func (f *fakeReranker) Score(_ context.Context, _ string, documents []string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.scores) >= len(documents) {
		return f.scores[:len(documents)], nil
	}
	return f.scores, nil
}

func hypertensionHit() domain.VectorHit {
	return domain.VectorHit{
		ID:       "doc1",
		Document: "Hypertension is high blood pressure. Lifestyle changes and medication help control it.",
		Metadata: domain.Metadata{"condition": "hypertension", "type": "patient_pdf", "source_file": "hypertension.txt"},
		Distance: 0.1,
	}
}

func newTestUseCase(
	embedder ports.Embedder,
	vectors ports.VectorStore,
	lexical ports.LexicalSearcher,
	gen ports.Generator,
	reranker ports.Reranker,
	cfg AnswerConfig,
) *AnswerUseCase {
	var genFactory func() (ports.Generator, error)
	if gen != nil {
		genFactory = func() (ports.Generator, error) { return gen, nil }
	}
	var rerankFactory func() (ports.Reranker, error)
	if reranker != nil {
		rerankFactory = func() (ports.Reranker, error) { return reranker, nil }
	}
	return NewAnswerUseCase(embedder, vectors, lexical, genFactory, rerankFactory, nil, domain.DefaultNoiseRules(), cfg)
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	uc := newTestUseCase(&fakeEmbedder{}, &fakeVectorStore{}, nil, nil, nil, AnswerConfig{})
	_, err := uc.Answer(context.Background(), domain.Query{Text: "   "})
	if err == nil {
		t.Fatal("expected error for empty question")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
}

func TestAnswerDenseOnlyRetrieval(t *testing.T) {
	vectors := &fakeVectorStore{hits: map[domain.Collection][]domain.VectorHit{
		domain.CollectionText: {hypertensionHit()},
	}}
	gen := &fakeGenerator{text: "Hypertension means persistently elevated blood pressure.", model: "llama3.1:8b"}
	uc := newTestUseCase(&fakeEmbedder{vector: []float32{0.1}}, vectors, nil, gen, nil, AnswerConfig{})

	answer, err := uc.Answer(context.Background(), domain.Query{Text: "What is hypertension?"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.NoAnswer {
		t.Fatalf("expected an answer, got no_answer: %+v", answer)
	}
	if !strings.Contains(strings.ToLower(answer.Text), "hypertension") {
		t.Fatalf("answer does not mention the condition: %q", answer.Text)
	}
	if answer.Confidence <= 0.25 {
		t.Fatalf("expected confidence above threshold, got %v", answer.Confidence)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Metadata.Get("condition") != "hypertension" {
		t.Fatalf("unexpected sources: %+v", answer.Sources)
	}
	if !strings.Contains(answer.Text, "hypertension.txt") {
		t.Fatalf("expected citation to source file, got %q", answer.Text)
	}
	if answer.Model != "llama3.1:8b" {
		t.Fatalf("expected model recorded, got %q", answer.Model)
	}
}

func TestAnswerEmptyCorpus(t *testing.T) {
	uc := newTestUseCase(&fakeEmbedder{vector: []float32{0.1}}, &fakeVectorStore{}, nil, &fakeGenerator{text: "x"}, nil, AnswerConfig{})

	answer, err := uc.Answer(context.Background(), domain.Query{Text: "What is asthma?"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !answer.NoAnswer {
		t.Fatal("expected no_answer for empty corpus")
	}
	if answer.Confidence != 0 {
		t.Fatalf("expected confidence 0, got %v", answer.Confidence)
	}
	if len(answer.Sources) != 0 {
		t.Fatalf("expected empty sources, got %+v", answer.Sources)
	}
}

func TestAnswerGateBlocksGeneration(t *testing.T) {
	weak := hypertensionHit()
	weak.Distance = 99 // score 0.01, far below threshold
	vectors := &fakeVectorStore{hits: map[domain.Collection][]domain.VectorHit{
		domain.CollectionText: {weak},
	}}
	gen := &fakeGenerator{text: "should never be used"}
	uc := newTestUseCase(&fakeEmbedder{vector: []float32{0.1}}, vectors, nil, gen, nil, AnswerConfig{})

	answer, err := uc.Answer(context.Background(), domain.Query{Text: "What is hypertension?"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !answer.NoAnswer {
		t.Fatal("expected gated no_answer")
	}
	if gen.calls != 0 {
		t.Fatalf("generation must not run below the gate, got %d calls", gen.calls)
	}
	if len(answer.Sources) == 0 {
		t.Fatal("gated answers still expose sources for transparency")
	}
	if answer.Confidence >= 0.25 {
		t.Fatalf("expected sub-threshold confidence, got %v", answer.Confidence)
	}
}

func TestAnswerRerankerFailureFallsBackToFusedOrder(t *testing.T) {
	vectors := &fakeVectorStore{hits: map[domain.Collection][]domain.VectorHit{
		domain.CollectionText: {hypertensionHit()},
	}}
	reranker := &fakeReranker{err: errors.New("reranker down")}
	gen := &fakeGenerator{text: "Hypertension is elevated blood pressure.", model: "m"}
	uc := newTestUseCase(&fakeEmbedder{vector: []float32{0.1}}, vectors, nil, gen, reranker,
		AnswerConfig{RerankEnabled: true})

	answer, err := uc.Answer(context.Background(), domain.Query{Text: "What is hypertension?"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Reranked {
		t.Fatal("expected reranked=false after reranker failure")
	}
	if answer.NoAnswer {
		t.Fatal("reranker failure must not block the answer")
	}
	if reranker.calls != 1 {
		t.Fatalf("expected one rerank attempt, got %d", reranker.calls)
	}
}

func TestAnswerRerankerReorders(t *testing.T) {
	first := hypertensionHit()
	second := domain.VectorHit{
		ID:       "doc2",
		Document: "Diabetes affects blood sugar regulation.",
		Metadata: domain.Metadata{"condition": "diabetes", "type": "patient_pdf"},
		Distance: 0.2,
	}
	vectors := &fakeVectorStore{hits: map[domain.Collection][]domain.VectorHit{
		domain.CollectionText: {first, second},
	}}
	// Cross-encoder prefers the second document.
	reranker := &fakeReranker{scores: []float64{-2.0, 3.0}}
	gen := &fakeGenerator{text: "Grounded answer.", model: "m"}
	uc := newTestUseCase(&fakeEmbedder{vector: []float32{0.1}}, vectors, nil, gen, reranker,
		AnswerConfig{RerankEnabled: true})

	answer, err := uc.Answer(context.Background(), domain.Query{Text: "How does diabetes work?"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !answer.Reranked {
		t.Fatal("expected reranked=true")
	}
	if answer.Sources[0].Metadata.Get("condition") != "diabetes" {
		t.Fatalf("expected reranker to promote doc2, got %+v", answer.Sources[0].Metadata)
	}
	if answer.Confidence <= 0.5 || answer.Confidence >= 1 {
		t.Fatalf("expected sigmoid-rescaled confidence in (0.5,1), got %v", answer.Confidence)
	}
}

func TestAnswerDegenerateGenerationFallsBackToExtractive(t *testing.T) {
	vectors := &fakeVectorStore{hits: map[domain.Collection][]domain.VectorHit{
		domain.CollectionText: {hypertensionHit()},
	}}
	gen := &fakeGenerator{text: "[local fallback answer]"}
	uc := newTestUseCase(&fakeEmbedder{vector: []float32{0.1}}, vectors, nil, gen, nil, AnswerConfig{})

	answer, err := uc.Answer(context.Background(), domain.Query{Text: "What is hypertension?"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.NoAnswer {
		t.Fatal("expected extractive answer, got no_answer")
	}
	if !strings.HasPrefix(answer.Text, extractivePreamble) {
		t.Fatalf("expected extractive preamble, got %q", answer.Text)
	}
	if answer.Model != "" {
		t.Fatalf("extractive answers carry no model, got %q", answer.Model)
	}
	if !strings.Contains(answer.Text, "Related conditions: hypertension") {
		t.Fatalf("expected related-conditions line, got %q", answer.Text)
	}
}

func TestAnswerDegradedCollectionStillAnswers(t *testing.T) {
	vectors := &fakeVectorStore{
		hits: map[domain.Collection][]domain.VectorHit{
			domain.CollectionText: {hypertensionHit()},
		},
		errs: map[domain.Collection]error{
			domain.CollectionTable: errors.New("collection unreachable"),
		},
	}
	gen := &fakeGenerator{text: "Hypertension answer.", model: "m"}
	uc := newTestUseCase(&fakeEmbedder{vector: []float32{0.1}}, vectors, nil, gen, nil, AnswerConfig{})

	answer, err := uc.Answer(context.Background(), domain.Query{Text: "What is hypertension?"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.NoAnswer {
		t.Fatal("one failing collection must not produce no_answer")
	}
}

func TestAnswerHybridFusionMergesSparse(t *testing.T) {
	vectors := &fakeVectorStore{hits: map[domain.Collection][]domain.VectorHit{
		domain.CollectionText: {hypertensionHit()},
	}}
	lexical := &fakeLexical{results: []domain.Candidate{
		{
			ID:       "doc3",
			Document: "Blood pressure logs from home monitoring.",
			Metadata: domain.Metadata{"type": "patient_pdf"},
			Score:    4.2,
			Modality: domain.ModalitySparse,
		},
	}}
	gen := &fakeGenerator{text: "Answer.", model: "m"}
	uc := newTestUseCase(&fakeEmbedder{vector: []float32{0.1}}, vectors, lexical, gen, nil, AnswerConfig{})

	answer, err := uc.Answer(context.Background(), domain.Query{Text: "blood pressure monitoring"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("expected union of dense and sparse candidates, got %d sources", len(answer.Sources))
	}
	if answer.Telemetry == nil || answer.Telemetry.SparseHits != 1 || answer.Telemetry.DenseHits != 1 {
		t.Fatalf("unexpected telemetry: %+v", answer.Telemetry)
	}
}

func TestAnswerNoiseDenylistDropsSyntheticDocs(t *testing.T) {
	noisy1 := domain.VectorHit{
		ID:       "n1",
		Document: "tool call transcript",
		Metadata: domain.Metadata{"type": "dataset_tool_calling"},
		Distance: 0.05,
	}
	noisy2 := domain.VectorHit{
		ID:       "n2",
		Document: "another synthetic transcript",
		Metadata: domain.Metadata{"type": "dataset_tool_calling"},
		Distance: 0.06,
	}
	vectors := &fakeVectorStore{hits: map[domain.Collection][]domain.VectorHit{
		domain.CollectionText: {noisy1, noisy2, hypertensionHit()},
	}}
	gen := &fakeGenerator{text: "Answer.", model: "m"}
	uc := newTestUseCase(&fakeEmbedder{vector: []float32{0.1}}, vectors, nil, gen, nil, AnswerConfig{})

	answer, err := uc.Answer(context.Background(), domain.Query{Text: "What is hypertension?"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Metadata.Get("condition") != "hypertension" {
		t.Fatalf("expected only the clean document, got %+v", answer.Sources)
	}
	if answer.Telemetry.NoiseDropped != 2 {
		t.Fatalf("expected 2 dropped candidates, got %d", answer.Telemetry.NoiseDropped)
	}
}

func TestAnswerRoutedFilterWidensWhenEmpty(t *testing.T) {
	vectors := &fakeVectorStore{
		hits: map[domain.Collection][]domain.VectorHit{
			domain.CollectionText: {hypertensionHit()},
		},
		filterAware: true,
	}
	gen := &fakeGenerator{text: "Hypertension is high blood pressure.", model: "m"}
	uc := newTestUseCase(&fakeEmbedder{vector: []float32{0.1}}, vectors, nil, gen, nil, AnswerConfig{})

	// "glossary" routes to type=dataset_glossary, which matches nothing in a
	// corpus of patient documents.
	answer, err := uc.Answer(context.Background(), domain.Query{Text: "Check the glossary for hypertension."})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.NoAnswer {
		t.Fatal("routed filter matching nothing must widen to the full corpus, not gate")
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Metadata.Get("condition") != "hypertension" {
		t.Fatalf("expected the unfiltered hit, got %+v", answer.Sources)
	}
}

func TestAnswerExplicitFilterIsNotWidened(t *testing.T) {
	vectors := &fakeVectorStore{
		hits: map[domain.Collection][]domain.VectorHit{
			domain.CollectionText: {hypertensionHit()},
		},
		filterAware: true,
	}
	gen := &fakeGenerator{text: "should never be used"}
	uc := newTestUseCase(&fakeEmbedder{vector: []float32{0.1}}, vectors, nil, gen, nil, AnswerConfig{})

	answer, err := uc.Answer(context.Background(), domain.Query{
		Text:   "What is hypertension?",
		Filter: &domain.MetadataFilter{Key: "type", Value: "dataset_glossary"},
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !answer.NoAnswer {
		t.Fatal("a caller-supplied filter that matches nothing must stay empty")
	}
	if gen.calls != 0 {
		t.Fatalf("generation must not run for an empty explicit filter, got %d calls", gen.calls)
	}
}
