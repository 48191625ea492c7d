package usecase

import (
	"strings"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

// Intent routing narrows dense retrieval to the audience the question
// implies. Explicit caller filters always win; routing only fills the gap.
var intentRules = []struct {
	filter   domain.MetadataFilter
	keywords []string
}{
	{
		filter:   domain.MetadataFilter{Key: "type", Value: "dataset_glossary"},
		keywords: []string{"glossary", "jargon", "terminology", "what does the term", "abbreviation"},
	},
	{
		filter:   domain.MetadataFilter{Key: "type", Value: "doctor_pdf"},
		keywords: []string{"clinical", "dosage", "contraindication", "guideline", "prescrib", "differential diagnosis"},
	},
	{
		filter:   domain.MetadataFilter{Key: "type", Value: "patient_pdf"},
		keywords: []string{"patient", "side effect", "home care", "self-care", "what should i do"},
	},
}

func routeIntent(question string) *domain.MetadataFilter {
	q := strings.ToLower(question)
	for _, rule := range intentRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(q, keyword) {
				filter := rule.filter
				return &filter
			}
		}
	}
	return nil
}
