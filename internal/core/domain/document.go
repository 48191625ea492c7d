package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is an ingested source file tracked by the registry. Its chunks live
// in the vector store; the registry only records provenance and state.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	Collection  Collection     `json:"collection"`
	SourceType  string         `json:"source_type,omitempty"`
	ChunkCount  int            `json:"chunk_count"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CorpusStats summarizes the state of the knowledge base.
type CorpusStats struct {
	Documents        int            `json:"documents"`
	DocumentsByState map[string]int `json:"documents_by_state"`
	IndexedChunks    int            `json:"indexed_chunks"`
	LexicalIndexSize int            `json:"lexical_index_size"`
	Status           string         `json:"status"`
}
