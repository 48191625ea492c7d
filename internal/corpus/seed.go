// Package corpus seeds a small built-in set of healthcare documents so a
// fresh deployment answers questions before anything is uploaded.
package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medkit-ai/medrag/internal/core/domain"
	"github.com/medkit-ai/medrag/internal/core/ports"
)

type seedDoc struct {
	id        string
	condition string
	category  string
	text      string
}

var seedDocs = []seedDoc{
	{
		id:        "seed-hypertension",
		condition: "hypertension",
		category:  "cardiovascular",
		text: "Hypertension, or high blood pressure, is a condition where the force of blood " +
			"against artery walls is consistently too high. It often has no symptoms but raises " +
			"the risk of heart disease and stroke. Management includes reducing salt intake, " +
			"regular exercise, maintaining a healthy weight, and prescribed medication such as " +
			"ACE inhibitors or diuretics. Blood pressure should be checked regularly.",
	},
	{
		id:        "seed-diabetes",
		condition: "diabetes",
		category:  "endocrine",
		text: "Diabetes mellitus is a chronic condition affecting how the body regulates blood " +
			"sugar. Type 1 diabetes results from the immune system destroying insulin-producing " +
			"cells; type 2 develops when the body becomes resistant to insulin. Common symptoms " +
			"include increased thirst, frequent urination, and fatigue. Treatment combines blood " +
			"glucose monitoring, diet, physical activity, and medication such as metformin or insulin.",
	},
	{
		id:        "seed-asthma",
		condition: "asthma",
		category:  "respiratory",
		text: "Asthma is a chronic respiratory condition in which airways narrow, swell, and " +
			"produce extra mucus, causing wheezing, shortness of breath, and coughing. Triggers " +
			"include allergens, cold air, exercise, and respiratory infections. Quick-relief " +
			"inhalers open airways during an attack; long-term controller medication reduces " +
			"airway inflammation. An asthma action plan helps patients respond to worsening symptoms.",
	},
	{
		id:        "seed-migraine",
		condition: "migraine",
		category:  "neurological",
		text: "A migraine is a neurological condition causing intense, throbbing headache, often " +
			"on one side of the head, accompanied by nausea and sensitivity to light and sound. " +
			"Some people experience an aura of visual disturbances beforehand. Triggers include " +
			"stress, certain foods, hormonal changes, and poor sleep. Treatment includes pain " +
			"relievers, triptans, and preventive medication for frequent attacks.",
	},
	{
		id:        "seed-arthritis",
		condition: "arthritis",
		category:  "musculoskeletal",
		text: "Arthritis is inflammation of one or more joints, causing pain, swelling, and " +
			"stiffness that typically worsen with age. Osteoarthritis involves wear of joint " +
			"cartilage; rheumatoid arthritis is an autoimmune disorder attacking joint linings. " +
			"Management includes physical therapy, weight control, anti-inflammatory medication, " +
			"and in severe cases joint replacement surgery.",
	},
	{
		id:        "seed-influenza",
		condition: "influenza",
		category:  "infectious",
		text: "Influenza, commonly called the flu, is a contagious viral infection of the " +
			"respiratory system. Symptoms appear suddenly and include fever, chills, muscle " +
			"aches, cough, and fatigue. Most people recover within two weeks, but the flu can " +
			"cause serious complications such as pneumonia in young children, older adults, and " +
			"people with chronic conditions. Annual vaccination is the best prevention.",
	},
	{
		id:        "seed-anemia",
		condition: "anemia",
		category:  "hematological",
		text: "Anemia is a condition in which the blood lacks enough healthy red blood cells to " +
			"carry adequate oxygen to the body's tissues. The most common cause is iron " +
			"deficiency. Symptoms include fatigue, weakness, pale skin, and shortness of breath. " +
			"Treatment depends on the cause and may include iron supplements, dietary changes, " +
			"vitamin B12 injections, or treatment of underlying bleeding.",
	},
	{
		id:        "seed-gerd",
		condition: "gerd",
		category:  "gastrointestinal",
		text: "Gastroesophageal reflux disease, or GERD, occurs when stomach acid repeatedly " +
			"flows back into the esophagus, irritating its lining. Symptoms include heartburn, " +
			"regurgitation, and difficulty swallowing. Lifestyle changes such as avoiding large " +
			"meals, not lying down after eating, and limiting trigger foods help; proton pump " +
			"inhibitors reduce acid production when symptoms persist.",
	},
	{
		id:        "seed-depression",
		condition: "depression",
		category:  "mental health",
		text: "Depression is a common mood disorder causing persistent sadness, loss of interest " +
			"in activities, changes in sleep and appetite, and difficulty concentrating. It is a " +
			"medical condition, not a personal weakness, and is treatable. Effective treatment " +
			"combines psychotherapy, such as cognitive behavioral therapy, with antidepressant " +
			"medication when indicated. Anyone with thoughts of self-harm should seek help immediately.",
	},
	{
		id:        "seed-eczema",
		condition: "eczema",
		category:  "dermatological",
		text: "Eczema, or atopic dermatitis, is a chronic skin condition causing dry, itchy, and " +
			"inflamed patches of skin. It commonly begins in childhood and flares periodically. " +
			"Triggers include harsh soaps, allergens, stress, and dry air. Daily moisturizing is " +
			"the foundation of care; topical corticosteroids calm flare-ups, and antihistamines " +
			"can relieve itching at night.",
	},
}

// Seeder populates the text collection with the built-in documents when the
// collection is empty.
type Seeder struct {
	embedder ports.Embedder
	vectors  ports.VectorStore
}

func NewSeeder(embedder ports.Embedder, vectors ports.VectorStore) *Seeder {
	return &Seeder{embedder: embedder, vectors: vectors}
}

// SeedIfEmpty indexes the sample documents unless the text collection already
// holds chunks. It returns the number of chunks indexed (0 when skipped).
func (s *Seeder) SeedIfEmpty(ctx context.Context) (int, error) {
	count, err := s.vectors.Count(ctx, domain.CollectionText)
	if err != nil {
		return 0, fmt.Errorf("count text collection: %w", err)
	}
	if count > 0 {
		slog.Info("corpus_seed_skipped", "existing_chunks", count)
		return 0, nil
	}

	chunks := make([]domain.Chunk, 0, len(seedDocs))
	texts := make([]string, 0, len(seedDocs))
	for _, doc := range seedDocs {
		chunks = append(chunks, domain.Chunk{
			ID:         doc.id,
			Text:       doc.text,
			Collection: domain.CollectionText,
			Metadata: domain.Metadata{
				"type":        "patient_pdf",
				"source_file": "builtin_" + doc.condition + ".txt",
				"condition":   doc.condition,
				"category":    doc.category,
			},
		})
		texts = append(texts, doc.text)
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed seed documents: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("seed vectors/chunks mismatch: %d/%d", len(vectors), len(chunks))
	}

	doc := &domain.Document{ID: "builtin-corpus", Filename: "builtin_corpus", Collection: domain.CollectionText}
	if err := s.vectors.IndexChunks(ctx, doc, chunks, vectors); err != nil {
		return 0, fmt.Errorf("index seed documents: %w", err)
	}

	slog.Info("corpus_seeded", "chunks", len(chunks))
	return len(chunks), nil
}
