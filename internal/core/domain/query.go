package domain

// MetadataFilter restricts retrieval to chunks whose metadata key equals value.
type MetadataFilter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Query is one user question against the corpus.
type Query struct {
	Text string `json:"text"`
	// Filter is optional; when nil the pipeline derives one from intent
	// routing rules over the question.
	Filter *MetadataFilter `json:"filter,omitempty"`
	// K is the requested number of final candidates; non-positive values fall
	// back to the configured default.
	K int `json:"k"`
	// Images are auxiliary image references handed to the generation
	// collaborator alongside the retrieved context.
	Images []string `json:"images,omitempty"`
}
