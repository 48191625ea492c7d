package domain

// Collection identifies one of the indexed content collections.
type Collection string

const (
	CollectionText  Collection = "text"
	CollectionTable Collection = "table"
	CollectionImage Collection = "image"
)

func (c Collection) Valid() bool {
	switch c {
	case CollectionText, CollectionTable, CollectionImage:
		return true
	}
	return false
}

// Metadata holds flat string key/value attributes attached to indexed content.
// Well-known keys: "type", "source", "source_file", "doc_id", "dataset_id",
// "citation", "category", "condition".
type Metadata map[string]string

func (m Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return m[key]
}

func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Chunk is one indexed unit of content. Chunks are created at ingestion time
// and read-only at query time.
type Chunk struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Collection Collection `json:"collection"`
	Metadata   Metadata   `json:"metadata,omitempty"`
}
