package domain

// NoiseRules configure the denylist applied to retrieval candidates. Matching
// candidates carry known low-value content such as synthetic tool-calling
// transcripts or leaked system-prompt phrasing.
type NoiseRules struct {
	DenyTypes   []string `yaml:"deny_types"`
	DenySources []string `yaml:"deny_sources"`
	TextMarkers []string `yaml:"text_markers"`
}

// DefaultNoiseRules are applied when no rules file is configured.
func DefaultNoiseRules() NoiseRules {
	return NoiseRules{
		DenyTypes:   []string{"dataset_tool_calling", "synthetic_transcript"},
		DenySources: []string{"glaive_toolcall", "synthetic_tool_calls"},
		TextMarkers: []string{
			"<|im_start|>",
			"you are a helpful assistant",
			"### system:",
			"[tool_call]",
		},
	}
}
